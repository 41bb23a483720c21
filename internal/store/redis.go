package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps the latest entry per kind under <prefix>:cache:<kind>.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

// OpenRedis connects to Redis and verifies the connection with a ping.
func OpenRedis(cfg RedisConfig, log zerolog.Logger) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "infonaytto"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		log:    log.With().Str("component", "redis_cache").Logger(),
	}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(kind dashboard.Kind) string {
	return fmt.Sprintf("%s:cache:%s", s.prefix, kind)
}

// Put replaces the stored entry for entry.Kind. Entries never expire.
func (s *RedisStore) Put(ctx context.Context, entry dashboard.Entry) error {
	data, err := Encode(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(entry.Kind), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Kind, err)
	}
	return nil
}

// Get returns the stored entry for kind.
func (s *RedisStore) Get(ctx context.Context, kind dashboard.Kind) (dashboard.Entry, error) {
	data, err := s.client.Get(ctx, s.key(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dashboard.Entry{}, dashboard.ErrNotCached
	}
	if err != nil {
		return dashboard.Entry{}, fmt.Errorf("redis get %s: %w", kind, err)
	}

	entry, err := Decode(kind, data)
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("discarding unreadable cache entry")
		return dashboard.Entry{}, dashboard.ErrNotCached
	}
	return entry, nil
}
