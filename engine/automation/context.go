package automation

import (
	"dario.cat/mergo"
)

// ReservedKeys cannot be overwritten by trigger_data spreading (spec.md §3's
// invariant); they may still be overwritten by variables, per the documented
// precedence.
var ReservedKeys = map[string]bool{
	"user":         true,
	"trigger_data": true,
}

// NewContext builds the initial execution context for one run, composing
// sources in the order spec.md §3 requires: trigger_data spread at the
// root, then the reserved "user"/"trigger_data" keys (never shadowed by the
// spread), then variables on top (which may overwrite anything, including
// the reserved keys).
func NewContext(triggerData map[string]any, user UserInfo, variables map[string]any) map[string]any {
	ctx := map[string]any{}

	spread := map[string]any{}
	for k, v := range triggerData {
		if ReservedKeys[k] {
			continue
		}
		spread[k] = v
	}
	_ = mergo.Merge(&ctx, spread, mergo.WithOverride)

	reserved := map[string]any{
		"user": map[string]any{
			"id":       user.ID,
			"email":    user.Email,
			"timezone": user.ResolvedTimezone(),
			"phone":    user.Phone,
			"name":     user.Name,
		},
		"trigger_data": triggerData,
	}
	_ = mergo.Merge(&ctx, reserved, mergo.WithOverride)

	if len(variables) > 0 {
		_ = mergo.Merge(&ctx, variables, mergo.WithOverride)
	}

	return ctx
}

// Bind publishes a successful action's output_as binding into ctx, with
// later bindings of the same name overwriting earlier ones (spec.md §3's
// monotonic-context invariant).
func Bind(ctx map[string]any, name string, value any) {
	if name == "" {
		return
	}
	ctx[name] = value
}
