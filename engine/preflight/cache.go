package preflight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fluxline-dev/fluxline/engine/automation"
	"github.com/fluxline-dev/fluxline/engine/registry"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how long a cached preflight Result is reused for
// the same (automation_id, trigger_config) pair before the
// probe is allowed to run again.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "fluxline:preflight:"

// CachedRunner deduplicates repeat Run calls against the same polling
// automation within TTL, since the preflight is an explicitly
// side-effecting probe (spec.md §9) that may count against a per-user
// quota like a real poll would. It does not change Run's semantics — a
// cache hit replays the exact Result a fresh call would have produced at
// cache-write time.
type CachedRunner struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedRunner wraps client. A zero ttl uses DefaultCacheTTL.
func NewCachedRunner(client *redis.Client, ttl time.Duration) *CachedRunner {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedRunner{redis: client, ttl: ttl}
}

// Run returns a cached Result for (automationID, triggerConfig) if one was
// written within the TTL window; otherwise it calls Run and caches the
// outcome. Cache errors (including a Redis outage) are treated as a cache
// miss rather than propagated — a cold preflight is always safe to run,
// just potentially redundant.
func (c *CachedRunner) Run(
	ctx context.Context, reg registry.Registry, userID, automationID string,
	triggerConfig automation.PollingTriggerConfig, actions []automation.Action,
) Result {
	key := cacheKey(automationID, triggerConfig)

	if cached, ok := c.get(ctx, key); ok {
		return cached
	}

	result := Run(ctx, reg, userID, triggerConfig, actions)
	c.set(ctx, key, result)
	return result
}

func cacheKey(automationID string, triggerConfig automation.PollingTriggerConfig) string {
	encoded, _ := json.Marshal(triggerConfig)
	sum := sha256.Sum256(encoded)
	return cacheKeyPrefix + automationID + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedRunner) get(ctx context.Context, key string) (Result, bool) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

func (c *CachedRunner) set(ctx context.Context, key string, result Result) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, encoded, c.ttl).Err()
}
