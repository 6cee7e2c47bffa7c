package cache

import (
	"context"
	"testing"

	"github.com/theunion-shop/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := SetCatalogList(ctx, []int{1, 2}); err != nil {
		t.Fatalf("set should be noop, got %v", err)
	}
	var dest []int
	hit, err := GetCatalogList(ctx, &dest)
	if err != nil || hit {
		t.Fatalf("want miss got hit=%v err=%v", hit, err)
	}
	if NewPaypalTokenCache() != nil {
		t.Fatalf("token cache should be nil when redis is disabled")
	}
	if err := Ping(ctx); err != nil {
		t.Fatalf("ping should succeed when disabled, got %v", err)
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey(" cart:abc "); got != redisPrefix+":cart:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := BuildKey(""); got != redisPrefix {
		t.Fatalf("empty key should return prefix, got %s", got)
	}
}
