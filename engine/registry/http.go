package registry

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// HTTPRegistry resolves a fixed set of known tools whose Handler makes an
// outbound HTTP call through resty, JSON-encoding the resolved parameters
// and decoding the response body (or passing a raw string through, per
// spec.md §9's polymorphic handler note — the remote side may reply with
// either shape).
type HTTPRegistry struct {
	client *resty.Client
	tools  map[string]*Tool
}

// NewHTTPRegistry builds an HTTPRegistry. baseURL is the tool service's
// root; each registered endpoint is resolved relative to it.
func NewHTTPRegistry(baseURL string) *HTTPRegistry {
	client := resty.New().SetBaseURL(baseURL)
	return &HTTPRegistry{client: client, tools: map[string]*Tool{}}
}

// RegisterEndpoint exposes name as a Tool whose Handler POSTs the resolved
// parameters (as JSON) to path and returns the decoded response body.
func (r *HTTPRegistry) RegisterEndpoint(name, description, path string) {
	r.tools[name] = &Tool{
		Name:        name,
		Description: description,
		Handler: func(ctx context.Context, paramsJSON string) (any, error) {
			resp, err := r.client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetBody(paramsJSON).
				Post(path)
			if err != nil {
				return nil, fmt.Errorf("calling tool %q: %w", name, err)
			}
			if resp.IsError() {
				return nil, fmt.Errorf("tool %q returned status %d: %s", name, resp.StatusCode(), resp.String())
			}
			var decoded any
			if err := decodeJSONOrString(resp.Body(), &decoded); err != nil {
				return resp.String(), nil
			}
			return decoded, nil
		},
	}
}

func (r *HTTPRegistry) GetToolByName(_ context.Context, name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *HTTPRegistry) ListTools(_ context.Context, service string) ([]*Tool, error) {
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if service == "" || t.Service == service {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *HTTPRegistry) ExecuteTool(ctx context.Context, name string, params map[string]any, userID string) (any, error) {
	tool, ok := r.GetToolByName(ctx, name)
	if !ok {
		return nil, ErrToolNotFound(name)
	}
	merged := cloneParams(params)
	merged["user_id"] = userID
	encoded, err := encodeParams(merged)
	if err != nil {
		return nil, err
	}
	return tool.Handler(ctx, encoded)
}
