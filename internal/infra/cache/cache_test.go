package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/mfi-statements-bfa/internal/domain"
	"github.com/boddenberg/mfi-statements-bfa/internal/infra/cache"
	"github.com/boddenberg/mfi-statements-bfa/internal/port"

	"go.uber.org/zap"
)

var (
	_ port.Cache[domain.AccountSnapshot] = (*cache.InMemory[domain.AccountSnapshot])(nil)
	_ port.Cache[[]domain.Officer]       = (*cache.Redis[[]domain.Officer])(nil)
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := cache.New[int](20 * time.Millisecond)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(150 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Errorf("expected expired entries to be swept, %d left", n)
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[int](time.Minute)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRedis_UnreachableIsMiss(t *testing.T) {
	client, err := cache.NewRedisClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	defer client.Close()

	c := cache.NewRedis[domain.AccountSnapshot](client, "test:", time.Minute, zap.NewNop())
	c.Set("k", domain.AccountSnapshot{ID: "x"})

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	c.Delete("k")
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := cache.NewRedisClient("http://host:6379"); err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
}
