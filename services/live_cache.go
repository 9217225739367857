package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	hallStateKey = "hall:current"
	hallStateTTL = 2 * time.Hour
)

// LiveStateCache keeps the latest hall display event in Redis so a display
// that connects mid-game immediately shows the current screen.
type LiveStateCache struct {
	redis *redis.Client
}

func NewLiveStateCache(client *redis.Client) *LiveStateCache {
	return &LiveStateCache{redis: client}
}

func (c *LiveStateCache) StoreEvent(ctx context.Context, event DisplayEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal hall state: %w", err)
	}
	if err := c.redis.Set(ctx, hallStateKey, data, hallStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store hall state in Redis: %w", err)
	}
	return nil
}

// CurrentEvent returns nil without error when no screen has been shown yet.
func (c *LiveStateCache) CurrentEvent(ctx context.Context) (*DisplayEvent, error) {
	data, err := c.redis.Get(ctx, hallStateKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var event DisplayEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hall state: %w", err)
	}
	return &event, nil
}
