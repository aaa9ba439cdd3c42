package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cryptodash/internal/models"
)

// SnapshotKey holds the most recently published asset collection.
const SnapshotKey = "snapshot:latest"

// Store is a Redis-backed JSON cache. It serves as the gateway's detail
// cache and the orchestrator's snapshot publisher.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis store and verifies the connection.
func New(redisURL string, redisPassword string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if redisPassword != "" {
		opt.Password = redisPassword
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_store"),
	}, nil
}

// Load reads key into dst. A missing key returns false with no error.
func (s *Store) Load(ctx context.Context, key string, dst any) (bool, error) {
	jsonBytes, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.logger.Debug("cache_miss", "cache_key", key)
			return false, nil
		}
		return false, fmt.Errorf("redis GET failed: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, dst); err != nil {
		return false, fmt.Errorf("json unmarshal failed: %w", err)
	}

	s.logger.Debug("cache_hit", "cache_key", key, "size_bytes", len(jsonBytes))
	return true, nil
}

// Store writes value under key with the configured TTL.
func (s *Store) Store(ctx context.Context, key string, value any) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	if err := s.client.Set(ctx, key, jsonBytes, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	s.logger.Debug("cache_stored",
		"cache_key", key,
		"ttl_sec", s.ttl.Seconds(),
		"size_bytes", len(jsonBytes),
	)
	return nil
}

// PublishSnapshot stores the latest asset collection under SnapshotKey.
func (s *Store) PublishSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	startTime := time.Now()

	if err := s.Store(ctx, SnapshotKey, snapshot); err != nil {
		return err
	}

	s.logger.Info("snapshot_published",
		"cache_key", SnapshotKey,
		"assets", len(snapshot.Assets),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
	return nil
}

// LatestSnapshot reads the last published snapshot, or nil if none is cached.
func (s *Store) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	ok, err := s.Load(ctx, SnapshotKey, &snapshot)
	if err != nil || !ok {
		return nil, err
	}
	return &snapshot, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
