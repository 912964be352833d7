package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "folio-chat/errors"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiry sets the window only on the first hit, so later hits never extend it.
var incrWithExpiry = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisRegistry implements the shared registry on Redis sets, strings and counters.
// Every error is wrapped with ErrRegistryUnavailable.
type RedisRegistry struct {
	client redis.UniversalClient
}

func NewRedisRegistry(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) SetAdd(ctx context.Context, key, member string) error {
	return unavailable(r.client.SAdd(ctx, key, member).Err())
}

func (r *RedisRegistry) SetRemove(ctx context.Context, key, member string) error {
	return unavailable(r.client.SRem(ctx, key, member).Err())
}

func (r *RedisRegistry) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

func (r *RedisRegistry) SetCardinality(ctx context.Context, key string) (int64, error) {
	n, err := r.client.SCard(ctx, key).Result()
	return n, unavailable(err)
}

func (r *RedisRegistry) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return value, true, nil
}

func (r *RedisRegistry) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return unavailable(r.client.Set(ctx, key, value, ttl).Err())
}

func (r *RedisRegistry) Delete(ctx context.Context, key string) error {
	return unavailable(r.client.Del(ctx, key).Err())
}

func (r *RedisRegistry) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := incrWithExpiry.Run(ctx, r.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return count, nil
}

func (r *RedisRegistry) Ping(ctx context.Context) error {
	return unavailable(r.client.Ping(ctx).Err())
}

// UserSockets is one row of a registry snapshot.
type UserSockets struct {
	UserID  string
	Sockets []SocketEntry
}

type SocketEntry struct {
	ConnID string
	Owner  string
	TTL    time.Duration
}

// Snapshot scans every userSockets set with the TTL of each reverse mapping.
// A negative TTL means the reverse mapping is missing (stale registration).
func (r *RedisRegistry) Snapshot(ctx context.Context) ([]UserSockets, error) {
	var rows []UserSockets
	iter := r.client.Scan(ctx, 0, userSocketsPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		members, err := r.client.SMembers(ctx, key).Result()
		if err != nil {
			return nil, unavailable(err)
		}
		row := UserSockets{UserID: strings.TrimPrefix(key, userSocketsPrefix)}
		for _, member := range members {
			owner, err := r.client.Get(ctx, socketPrefix+member).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return nil, unavailable(err)
			}
			ttl, err := r.client.TTL(ctx, socketPrefix+member).Result()
			if err != nil {
				return nil, unavailable(err)
			}
			row.Sockets = append(row.Sockets, SocketEntry{ConnID: member, Owner: owner, TTL: ttl})
		}
		rows = append(rows, row)
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable(err)
	}
	return rows, nil
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperrors.ErrRegistryUnavailable, err)
}
