package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TestRedisAddr is the Redis server used by tests.
	TestRedisAddr = "localhost:6379"
	// TestRedisDB keeps test keys away from a developer's default database.
	TestRedisDB = 15
)

// SetupTestRedis returns a client for the test Redis database. Redis is
// optional infrastructure, so the test is skipped when it is unreachable.
// Keys written by the test should use a prefix derived from t.Name(); they
// are removed on cleanup.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr: TestRedisAddr,
		DB:   TestRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis not available at %s: %v", TestRedisAddr, err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		iter := rdb.Scan(ctx, 0, "test:"+t.Name()+":*", 100).Iterator()
		for iter.Next(ctx) {
			_ = rdb.Del(ctx, iter.Val()).Err()
		}
		_ = rdb.Close()
	})
	return rdb
}
