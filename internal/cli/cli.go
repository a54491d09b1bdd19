// Package cli is Fluxline's command-line surface: one root *cobra.Command
// with subcommands added via root.AddCommand(...).
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/executor"
	"github.com/fluxline-dev/fluxline/engine/preflight"
	"github.com/fluxline-dev/fluxline/engine/validator"
	"github.com/fluxline-dev/fluxline/internal/app"
	"github.com/fluxline-dev/fluxline/internal/server"
	"github.com/fluxline-dev/fluxline/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// RootCmd assembles Fluxline's CLI: validate/preflight/execute subcommands
// operating on a local spec file, plus serve to run the HTTP API.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fluxline",
		Short: "Fluxline automation runtime",
	}

	root.AddCommand(
		validateCmd(),
		preflightCmd(),
		executeCmd(),
		serveCmd(),
	)
	return root
}

// loadSpec reads an automation spec from either JSON or YAML, detected by
// file extension. YAML files are authored more often in practice, but the
// Spec type carries no yaml tags, so a YAML document is decoded generically
// and re-marshaled through encoding/json to reuse the same field mapping.
func loadSpec(path string) (automation.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return automation.Spec{}, fmt.Errorf("reading spec file: %w", err)
	}

	var spec automation.Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		var generic map[string]any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return automation.Spec{}, fmt.Errorf("parsing YAML spec file: %w", err)
		}
		encoded, err := json.Marshal(generic)
		if err != nil {
			return automation.Spec{}, fmt.Errorf("normalizing YAML spec file: %w", err)
		}
		if err := json.Unmarshal(encoded, &spec); err != nil {
			return automation.Spec{}, fmt.Errorf("decoding YAML spec file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return automation.Spec{}, fmt.Errorf("parsing spec file: %w", err)
		}
	}
	return spec, nil
}

func validateCmd() *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Statically validate an automation spec file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app.New(nil)
			spec, err := loadSpec(specPath)
			if err != nil {
				return err
			}
			result := validator.Validate(spec, validator.Options{Registry: a.Registry})
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to the automation spec file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func preflightCmd() *cobra.Command {
	var specPath, userID string
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Dry-run a polling automation's trigger_data paths against a live sample",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app.New(nil)
			spec, err := loadSpec(specPath)
			if err != nil {
				return err
			}
			cfg, err := automation.DecodePolling(spec.TriggerConfig)
			if err != nil {
				return fmt.Errorf("decoding polling trigger_config: %w", err)
			}
			result := preflight.Run(cmd.Context(), a.Registry, userID, cfg, spec.Actions)
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to the automation spec file (JSON or YAML)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user the preflight probe runs as")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func executeCmd() *cobra.Command {
	var specPath, userID, triggerDataPath string
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute an automation spec once, in-process, against trigger data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app.New(nil)
			spec, err := loadSpec(specPath)
			if err != nil {
				return err
			}
			triggerData := map[string]any{}
			if triggerDataPath != "" {
				raw, err := os.ReadFile(triggerDataPath)
				if err != nil {
					return fmt.Errorf("reading trigger data file: %w", err)
				}
				if err := json.Unmarshal(raw, &triggerData); err != nil {
					return fmt.Errorf("parsing trigger data file: %w", err)
				}
			}
			user := a.ResolveUser(cmd.Context(), userID)
			result := executor.Execute(cmd.Context(), executor.Dependencies{
				Registry:  a.Registry,
				Notifier:  a.Notifier,
				Templates: a.Templates,
				Condition: a.Condition,
				Log:       a.Log,
				Metrics:   a.Metrics,
			}, executor.Request{
				Actions:        spec.Actions,
				Variables:      spec.Variables,
				TriggerData:    triggerData,
				User:           user,
				AutomationName: spec.Name,
			})
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to the automation spec file (JSON or YAML)")
	cmd.Flags().StringVar(&userID, "user-id", "local", "user the execution runs as")
	cmd.Flags().StringVar(&triggerDataPath, "trigger-data", "", "optional path to a trigger_data JSON file")
	_ = cmd.MarkFlagRequired("spec")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a := app.New(cfg)
			router := server.New(a).Router()
			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			a.Log.Info("starting fluxline HTTP API", "addr", addr)
			return router.Run(addr)
		},
	}
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
