package registry

import (
	"context"
	"sync"

	"github.com/fluxline-dev/fluxline/pkg/logger"
)

// StaticUserProvider is a minimal in-memory UserProvider sufficient for
// tests and local runs; production deployments supply their own (out of
// scope per spec.md §1). Safe for concurrent use.
type StaticUserProvider struct {
	mu    sync.RWMutex
	users map[string]*UserInfo
}

// NewStaticUserProvider builds a StaticUserProvider seeded with users.
func NewStaticUserProvider(users ...*UserInfo) *StaticUserProvider {
	p := &StaticUserProvider{users: map[string]*UserInfo{}}
	for _, u := range users {
		p.users[u.ID] = u
	}
	return p
}

// Put adds or replaces a user.
func (p *StaticUserProvider) Put(u *UserInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

func (p *StaticUserProvider) GetUserInfo(_ context.Context, userID string) (*UserInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	return u, ok
}

// LogNotifier is a deliberately minimal reference Notifier that logs
// through pkg/logger instead of delivering anywhere; real delivery
// channels (email, push, SMS) are explicitly out of scope per spec.md §1.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier builds a LogNotifier. A nil log falls back to the default
// logger.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewLogger(nil)
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyUsageLimitExceeded(_ context.Context, userID, automationID, automationName string) error {
	n.log.Warn("usage limit exceeded",
		"user_id", userID, "automation_id", automationID, "automation_name", automationName)
	return nil
}

func (n *LogNotifier) NotifyAutomationFailed(
	_ context.Context, userID, automationID, automationName, errorSummary string,
) error {
	n.log.Warn("automation failed",
		"user_id", userID, "automation_id", automationID, "automation_name", automationName,
		"error_summary", errorSummary)
	return nil
}

func (n *LogNotifier) NotifyCustom(_ context.Context, userID, title, body string) error {
	n.log.Info("custom notification", "user_id", userID, "title", title, "body", body)
	return nil
}
