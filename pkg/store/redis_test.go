package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when
// none is running. The integration suite uses a container instead.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, zerolog.Nop(), 0)
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		client := setupTestRedis(t)
		return NewRedisStore(client, zerolog.Nop(), 0)
	})
}

func TestRedisStore_Retention(t *testing.T) {
	client := setupTestRedis(t)
	s := NewRedisStore(client, zerolog.Nop(), time.Hour)
	ctx := context.Background()

	if err := s.SaveRun(ctx, testRun("eeee5555")); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	ttl, err := client.TTL(ctx, RunKey("eeee5555").String()).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want (0, 1h]", ttl)
	}
}

func TestRedisStore_InvalidRecord(t *testing.T) {
	client := setupTestRedis(t)
	s := NewRedisStore(client, zerolog.Nop(), 0)
	ctx := context.Background()

	if err := client.Set(ctx, RunKey("broken").String(), "{not json", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := s.GetRun(ctx, "broken"); err == nil {
		t.Error("GetRun() should fail on corrupted data")
	}
}
