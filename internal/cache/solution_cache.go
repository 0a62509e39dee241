package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

// SolutionCacheService caches squad recommendations keyed by a digest
// of the optimization request. A run is deterministic for identical
// inputs, so a cache hit is exact, not approximate.
type SolutionCacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewSolutionCacheService creates a new solution cache service
func NewSolutionCacheService(client *redis.Client, logger *logrus.Logger) *SolutionCacheService {
	return &SolutionCacheService{
		client: client,
		logger: logger,
	}
}

// SetSolution stores a squad recommendation in cache
func (c *SolutionCacheService) SetSolution(ctx context.Context, key string, solution *types.Solution, expiration time.Duration) error {
	data, err := json.Marshal(solution)
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}

	fullKey := fmt.Sprintf("squad:%s", key)
	if err := c.client.Set(ctx, fullKey, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set solution in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": expiration,
		"objective":  solution.ObjectiveValue,
	}).Debug("Cached solution")

	return nil
}

// GetSolution retrieves a squad recommendation from cache
func (c *SolutionCacheService) GetSolution(ctx context.Context, key string) (*types.Solution, error) {
	fullKey := fmt.Sprintf("squad:%s", key)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("solution not found in cache")
		}
		return nil, fmt.Errorf("failed to get solution from cache: %w", err)
	}

	var solution types.Solution
	if err := json.Unmarshal([]byte(data), &solution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal solution: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Retrieved solution from cache")

	return &solution, nil
}
