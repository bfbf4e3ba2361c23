package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redispkg "github.com/nextwavehq/gatekit/pkg/redis"
)

// incrementScript runs the increment-and-arm-expiry sequence server-side so
// it is a single indivisible operation. Without the script, two concurrent
// first requests could both observe count 1 and both arm the expiry,
// extending the window indefinitely. PTTL -1 covers the edge where a key
// survived without an expiry (e.g. after a partial failover).
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

const defaultCallTimeout = 500 * time.Millisecond

// RedisStore is the shared counter backend, visible to every process
// instance pointed at the same Redis. Every call carries a bounded timeout;
// a timeout is treated the same as a connection failure.
type RedisStore struct {
	client      redis.UniversalClient
	callTimeout time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithCallTimeout bounds each counter operation against the shared backend.
func WithCallTimeout(timeout time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

// NewRedisStore creates a shared counter store on top of the given client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil redis client", ErrStoreRequired)
	}

	s := &RedisStore{
		client:      client,
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Increment implements Store via the atomic server-side script. Any failure
// to complete the call, timeouts included, is reported as ErrStoreUnavailable
// so the monitor can switch backends instead of failing the request.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	res, err := incrementScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply of length %d", ErrStoreUnavailable, len(res))
	}

	count, ttlMillis := res[0], res[1]
	return count, time.Now().Add(time.Duration(ttlMillis) * time.Millisecond), nil
}

// Reset drops the counter for key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Probe implements HealthProber with a ping followed by a server info fetch.
// The metadata feeds the health endpoint; only the ping decides liveness, so
// an info parsing hiccup does not force a backend switch.
func (s *RedisStore) Probe(ctx context.Context) (ServerMetadata, error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ServerMetadata{}, errors.Join(ErrStoreUnavailable, err)
	}

	info, err := redispkg.ServerInfo(ctx, s.client)
	if err != nil {
		return ServerMetadata{}, nil
	}

	return ServerMetadata{
		Version:          info.Version,
		ConnectedClients: info.ConnectedClients,
		UsedMemory:       info.UsedMemory,
	}, nil
}
