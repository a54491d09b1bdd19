package storage

import (
	"context"
	"fmt"
	"sync"

	"dario.cat/mergo"
	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/core"
	"github.com/go-viper/mapstructure/v2"
)

// MemoryStore is the in-process reference Store used by tests and the CLI's
// one-shot commands. Safe for concurrent use.
type MemoryStore struct {
	mu           sync.RWMutex
	deployments  map[string]*automation.Deployment
	logs         []LogEntry
	capabilities map[string]*ServiceCapabilities
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deployments:  map[string]*automation.Deployment{},
		capabilities: map[string]*ServiceCapabilities{},
	}
}

// PutCapabilities seeds a service's capabilities, for tests.
func (s *MemoryStore) PutCapabilities(service string, caps *ServiceCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities[service] = caps
}

func (s *MemoryStore) GetAutomation(_ context.Context, id, userID string) (*automation.Deployment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[id]
	if !ok || d.UserID != userID {
		return nil, false, nil
	}
	return d, true, nil
}

func (s *MemoryStore) CreateAutomation(_ context.Context, userID string, spec automation.Spec) (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", fmt.Errorf("generating automation id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployments[id.String()] = &automation.Deployment{
		ID:     id.String(),
		UserID: userID,
		Spec:   spec,
		Status: automation.DeploymentPendingReview,
	}
	return id.String(), nil
}

func (s *MemoryStore) UpdateAutomation(_ context.Context, id, userID string, updates map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok || d.UserID != userID {
		return false, nil
	}
	var patch automation.Deployment
	if err := mapstructure.Decode(updates, &patch); err != nil {
		return false, fmt.Errorf("decoding automation updates: %w", err)
	}
	if err := mergo.Merge(d, &patch, mergo.WithOverride); err != nil {
		return false, fmt.Errorf("applying automation updates: %w", err)
	}
	return true, nil
}

func (s *MemoryStore) DeleteAutomation(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deployments[id]
	if !ok || d.UserID != userID {
		return false, nil
	}
	delete(s.deployments, id)
	return true, nil
}

func (s *MemoryStore) ListAutomations(
	_ context.Context, userID string, status automation.DeploymentStatus,
) ([]*automation.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*automation.Deployment{}
	for _, d := range s.deployments {
		if d.UserID != userID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) LogExecution(_ context.Context, automationID, userID string, entry LogEntry) (string, error) {
	id, err := core.NewID()
	if err != nil {
		return "", fmt.Errorf("generating log id: %w", err)
	}
	entry.AutomationID = automationID
	entry.UserID = userID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return id.String(), nil
}

func (s *MemoryStore) GetServiceCapabilities(
	_ context.Context, serviceName string,
) (*ServiceCapabilities, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.capabilities[serviceName]
	return c, ok, nil
}
