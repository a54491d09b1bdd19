package main

import (
	"os"

	"github.com/fluxline-dev/fluxline/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
