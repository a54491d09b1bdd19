// Package normalizer smooths over shape differences between tool results
// so that template paths written against a normalized view stay stable
// regardless of which wrapper envelope the source tool used.
package normalizer

// wrapperKeys are keys whose mapping value gets both kept and copied to
// root, and whose sequence value gets its first element's primitive fields
// copied to root.
var wrapperKeys = map[string]bool{
	"data":     true,
	"summary":  true,
	"result":   true,
	"response": true,
	"output":   true,
}

// flattenAndKeepKeys are keys whose mapping value gets both kept and its
// primitive fields copied to root.
var flattenAndKeepKeys = map[string]bool{
	"contributors": true,
	"user":         true,
	"author":       true,
	"goals":        true,
}

// Normalize applies the rules in §4.3 to a tool result. A non-mapping,
// non-nil value is wrapped as {"value": v}; nil becomes an empty mapping.
func Normalize(input any) map[string]any {
	m, ok := input.(map[string]any)
	if !ok {
		if input == nil {
			return map[string]any{}
		}
		return map[string]any{"value": input}
	}
	return normalizeMapping(m)
}

func normalizeMapping(input map[string]any) map[string]any {
	root := make(map[string]any, len(input))
	for k, v := range input {
		root[k] = v
	}

	for key := range wrapperKeys {
		v, present := input[key]
		if !present {
			continue
		}
		applyWrapperKey(root, key, v)
	}

	for key := range flattenAndKeepKeys {
		v, present := input[key]
		if !present {
			continue
		}
		applyFlattenAndKeepKey(root, key, v)
	}

	return root
}

func applyWrapperKey(root map[string]any, _ string, value any) {
	switch v := value.(type) {
	case map[string]any:
		promoted := map[string]any{}
		for k, fv := range v {
			if _, exists := root[k]; !exists {
				root[k] = fv
				promoted[k] = fv
			}
		}
		// A promoted key that is itself a flatten-and-keep key is further
		// processed by that rule.
		for k, fv := range promoted {
			if flattenAndKeepKeys[k] {
				if fvm, ok := fv.(map[string]any); ok {
					applyFlattenAndKeepKey(root, k, fvm)
				}
			}
		}
	case []any:
		if len(v) == 0 {
			return
		}
		first, ok := v[0].(map[string]any)
		if !ok {
			return
		}
		for k, fv := range first {
			if isPrimitive(fv) {
				if _, exists := root[k]; !exists {
					root[k] = fv
				}
			}
		}
	}
}

func applyFlattenAndKeepKey(root map[string]any, key string, value any) {
	m, ok := value.(map[string]any)
	if !ok {
		return
	}
	for k, fv := range m {
		if isPrimitive(fv) {
			if _, exists := root[k]; !exists {
				root[k] = fv
			}
		}
	}
	if key == "user" {
		if profile, ok := m["profile"].(map[string]any); ok {
			for k, fv := range profile {
				if isPrimitive(fv) {
					if _, exists := root[k]; !exists {
						root[k] = fv
					}
				}
			}
		}
	}
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
