package registry

import "encoding/json"

// decodeJSONOrString attempts to JSON-decode body into out. Callers that
// get an error fall back to treating the raw bytes as a plain string
// result, mirroring the executor's own "string result, try JSON, else keep
// the string" classification rule (spec.md §4.6 step 6).
func decodeJSONOrString(body []byte, out any) error {
	return json.Unmarshal(body, out)
}
