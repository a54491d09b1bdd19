package registry

import "encoding/json"

// encodeParams JSON-encodes a resolved parameter map for a Handler call, per
// spec.md §9's "tool interface accepts a JSON-encoded string" contract.
func encodeParams(params map[string]any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
