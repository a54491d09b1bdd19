package validator

import (
	"encoding/json"
	"fmt"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/kaptinlin/jsonschema"
)

// ValidateParameterValues is the supplemental (non-blocking) pass spec.md
// §4.7's expansion adds on top of check 7: when a tool's fetched schema
// document is available, action parameters are schema-validated as written
// (before any template resolution) against it and any mismatch is surfaced as a warning, never a blocking
// error — spec.md requires only that parameter *names* be checked; value
// validation is an extension a real implementation would add.
func ValidateParameterValues(spec automation.Spec, schemas map[string]ToolSchema) []string {
	if schemas == nil {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	var warnings []string
	for i, action := range spec.Actions {
		id := action.ResolvedID(i)
		schema, ok := schemas[action.Tool]
		if !ok || schema.Parameters == nil {
			continue
		}
		encoded, err := json.Marshal(map[string]any{
			"type":       "object",
			"properties": schema.Parameters,
		})
		if err != nil {
			continue
		}
		compiled, err := compiler.Compile(encoded)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf(
				"action %q: could not compile schema for tool %q: %s", id, action.Tool, err.Error()))
			continue
		}
		result := compiled.Validate(map[string]any(action.Parameters))
		if !result.IsValid() {
			warnings = append(warnings, fmt.Sprintf(
				"action %q: parameters do not match tool %q's declared schema: %v", id, action.Tool, result.Errors))
		}
	}
	return warnings
}
