package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/munilab/ai-gateway/internal/config"
)

// admitScript increments KEYS[1] only while it is below ARGV[1]. The TTL
// (ARGV[2], milliseconds) is set on the first increment of the day.
var admitScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if used >= limit then
  return {used, 0}
end
used = redis.call('INCR', KEYS[1])
if used == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {used, 1}
`)

// RedisStore keeps counters in Redis so several gateway instances share them.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, ttl: config.DefaultQuotaKeyTTL}
}

// NewRedisStoreFromURL connects using a redis:// URL.
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

func redisKey(key, day string) string {
	return "quota:" + day + ":" + key
}

// AdmitOrDeny implements Store.
func (s *RedisStore) AdmitOrDeny(ctx context.Context, key, day string, limit int) (int, bool, error) {
	res, err := admitScript.Run(ctx, s.client, []string{redisKey(key, day)}, limit, s.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("running admit script: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected admit script reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
