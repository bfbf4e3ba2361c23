package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to the Redis server described by cfg,
// retrying up to cfg.RetryAttempts times with cfg.RetryInterval between
// attempts, all bounded by cfg.ConnectTimeout.
//
// Returns ErrFailedToParseConnString for a malformed URL and ErrNotReady
// when every attempt fails. Callers guarding against a down Redis should
// treat the latter as a degraded start, not a fatal one.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	for range cfg.RetryAttempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrNotReady
}

// NewClient builds a client from the configured URL without waiting for the
// server to answer. Use it when the caller has its own availability
// handling, e.g. a health monitor that degrades to a local backend.
func NewClient(cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}
	return redis.NewClient(opt), nil
}
