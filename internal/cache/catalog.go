package cache

import (
	"context"
	"time"
)

const (
	catalogListKey = "catalog:list"
	catalogListTTL = 30 * time.Second
)

// GetCatalogList 读取商品目录快照
func GetCatalogList(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, catalogListKey, dest)
}

// SetCatalogList 写入商品目录快照
func SetCatalogList(ctx context.Context, value interface{}) error {
	return SetJSON(ctx, catalogListKey, value, catalogListTTL)
}

// InvalidateCatalog 清除商品目录快照（库存变化后调用）
func InvalidateCatalog(ctx context.Context) error {
	return Del(ctx, catalogListKey)
}
