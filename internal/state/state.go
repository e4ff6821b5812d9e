package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StateManager records ingestion progress per source bucket: how many
// documents landed and which object key was handled last. Purely
// observational; ingestion never reads it to decide anything.
type StateManager interface {
	GetProcessedCount(ctx context.Context, bucket string) (int64, error)
	IncrProcessedCount(ctx context.Context, bucket string) (int64, error)
	GetLastObjectKey(ctx context.Context, bucket string) (string, error)
	SetLastObjectKey(ctx context.Context, bucket, key string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "pricewatch:progress:",
	}
}

func (s *redisStateManager) GetProcessedCount(ctx context.Context, bucket string) (int64, error) {
	key := s.keyPrefix + "count:" + bucket
	count, err := s.redisClient.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Nothing ingested yet
		}
		return 0, fmt.Errorf("failed to get processed count for bucket %s: %w", bucket, err)
	}
	return count, nil
}

func (s *redisStateManager) IncrProcessedCount(ctx context.Context, bucket string) (int64, error) {
	key := s.keyPrefix + "count:" + bucket
	count, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment processed count for bucket %s: %w", bucket, err)
	}
	return count, nil
}

func (s *redisStateManager) GetLastObjectKey(ctx context.Context, bucket string) (string, error) {
	key := s.keyPrefix + "last:" + bucket
	val, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get last object key for bucket %s: %w", bucket, err)
	}
	return val, nil
}

func (s *redisStateManager) SetLastObjectKey(ctx context.Context, bucket, key string) error {
	redisKey := s.keyPrefix + "last:" + bucket
	if err := s.redisClient.Set(ctx, redisKey, key, 0).Err(); err != nil { // No expiration
		return fmt.Errorf("failed to set last object key for bucket %s: %w", bucket, err)
	}
	return nil
}
