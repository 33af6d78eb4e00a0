// internal/app/system/rendercache/redis.go
package rendercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "stratatour:render:"

// RedisStore shares rendered pages between storefront replicas.
//
// Entries are JSON values; each tag is a Redis set of entry keys. The
// generation counter is bumped before a tag's members are deleted, and
// SetIfUnchanged watches it, so a render that began before the bump is
// discarded rather than written after the delete.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore wraps rdb. An empty prefix uses "stratatour:render:".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) entryKey(key string) string { return s.prefix + "entry:" + key }
func (s *RedisStore) tagKey(tag string) string   { return s.prefix + "tag:" + tag }
func (s *RedisStore) genKey() string             { return s.prefix + "generation" }

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.rdb.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode entry %s: %w", key, err)
	}
	return e, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", key, err)
	}
	pipe := s.rdb.Pipeline()
	s.queueSet(ctx, pipe, key, raw, e)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// queueSet adds the entry write and its tag memberships to pipe.
func (s *RedisStore) queueSet(ctx context.Context, pipe redis.Pipeliner, key string, raw []byte, e Entry) {
	// ttl entries expire with their freshness window; the others stay until invalidated
	exp := e.Policy.TTL
	if e.Policy.Kind != KindTTL {
		exp = 0
	}
	pipe.Set(ctx, s.entryKey(key), raw, exp)
	for _, tag := range e.Tags {
		pipe.SAdd(ctx, s.tagKey(tag), key)
	}
}

func (s *RedisStore) Generation(ctx context.Context) (uint64, error) {
	return readGeneration(ctx, s.rdb, s.genKey())
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, c getter, key string) (uint64, error) {
	gen, err := c.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (s *RedisStore) SetIfUnchanged(ctx context.Context, key string, e Entry, gen uint64) (bool, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("encode entry %s: %w", key, err)
	}
	stored := false
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, s.genKey())
		if err != nil || cur != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.queueSet(ctx, pipe, key, raw, e)
			return nil
		})
		stored = err == nil
		return err
	}, s.genKey())
	if errors.Is(err, redis.TxFailedErr) {
		// an invalidation landed between the check and EXEC
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set %s: %w", key, err)
	}
	return stored, nil
}

func (s *RedisStore) InvalidateTag(ctx context.Context, tag string) (int, error) {
	if err := s.rdb.Incr(ctx, s.genKey()).Err(); err != nil {
		return 0, fmt.Errorf("redis incr generation: %w", err)
	}
	members, err := s.rdb.SMembers(ctx, s.tagKey(tag)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers %s: %w", tag, err)
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, s.entryKey(m))
	}
	var n int64
	if len(keys) > 0 {
		n, err = s.rdb.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis del %s: %w", tag, err)
		}
	}
	if err := s.rdb.Del(ctx, s.tagKey(tag)).Err(); err != nil {
		return int(n), fmt.Errorf("redis del tag %s: %w", tag, err)
	}
	return int(n), nil
}

// Ping checks the connection for health probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
