package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smehta/migraine-server/internal/filter"
)

// StateCache keeps a warm JSON copy of each user's latent state in
// Redis. The database stays the source of truth; a cache miss falls
// back to it, so entries can expire freely.
type StateCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStateCache creates a state cache with the given entry TTL.
func NewStateCache(redisClient *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{redis: redisClient, ttl: ttl}
}

type stateSnapshot struct {
	Mean        float64   `json:"mean"`
	Variance    float64   `json:"variance"`
	LogsCount   int       `json:"logs_count"`
	LastLogDate time.Time `json:"last_log_date"`
	CachedAt    time.Time `json:"cached_at"`
}

func stateKey(userID string) string {
	return fmt.Sprintf("latent_state:%s", userID)
}

// Get retrieves the cached state for a user. Returns nil on a miss.
func (c *StateCache) Get(ctx context.Context, userID string) (*filter.State, error) {
	data, err := c.redis.Get(ctx, stateKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}

	var snap stateSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state snapshot: %w", err)
	}

	return &filter.State{
		Mean:        snap.Mean,
		Variance:    snap.Variance,
		LogsCount:   snap.LogsCount,
		LastLogDate: snap.LastLogDate,
	}, nil
}

// Set stores the state snapshot with the configured TTL.
func (c *StateCache) Set(ctx context.Context, userID string, state *filter.State) error {
	snap := stateSnapshot{
		Mean:        state.Mean,
		Variance:    state.Variance,
		LogsCount:   state.LogsCount,
		LastLogDate: state.LastLogDate,
		CachedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	if err := c.redis.Set(ctx, stateKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state in Redis: %w", err)
	}
	return nil
}

// Delete evicts a user's snapshot, forcing the next read through the
// database.
func (c *StateCache) Delete(ctx context.Context, userID string) error {
	return c.redis.Del(ctx, stateKey(userID)).Err()
}

// Ping reports whether Redis is reachable.
func (c *StateCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
