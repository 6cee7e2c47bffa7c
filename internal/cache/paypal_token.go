package cache

import (
	"context"
	"time"

	"github.com/theunion-shop/internal/logger"
)

// PaypalTokenCache 基于 Redis 的 PayPal 访问令牌缓存
type PaypalTokenCache struct{}

// NewPaypalTokenCache 创建令牌缓存，Redis 未启用时返回 nil
func NewPaypalTokenCache() *PaypalTokenCache {
	if !Enabled() {
		return nil
	}
	return &PaypalTokenCache{}
}

// GetToken 读取令牌
func (PaypalTokenCache) GetToken(ctx context.Context, key string) (string, bool) {
	token, ok, err := GetString(ctx, key)
	if err != nil {
		logger.Warnw("paypal_token_cache_get_failed", "error", err)
		return "", false
	}
	return token, ok
}

// SetToken 写入令牌
func (PaypalTokenCache) SetToken(ctx context.Context, key, token string, ttl time.Duration) {
	if err := SetString(ctx, key, token, ttl); err != nil {
		logger.Warnw("paypal_token_cache_set_failed", "error", err)
	}
}
