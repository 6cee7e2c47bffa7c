package cart

import (
	"context"
	"time"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"
)

const defaultRedisTTL = 72 * time.Hour

// RedisStorage 以 JSON 形式存放在 Redis 的购物车
type RedisStorage struct {
	ttl time.Duration
}

// NewRedisStorage 创建 Redis 后端
func NewRedisStorage(ttl time.Duration) *RedisStorage {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisStorage{ttl: ttl}
}

func redisKey(sessionID string) string {
	return "cart:" + sessionID
}

// Load 读取
func (r *RedisStorage) Load(ctx context.Context, sessionID string) ([]Item, error) {
	var items []Item
	if _, err := cache.GetJSON(ctx, redisKey(sessionID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save 写入并刷新过期时间
func (r *RedisStorage) Save(ctx context.Context, sessionID string, items []Item) error {
	return cache.SetJSON(ctx, redisKey(sessionID), items, r.ttl)
}

// Clear 删除
func (r *RedisStorage) Clear(ctx context.Context, sessionID string) error {
	return cache.Del(ctx, redisKey(sessionID))
}

// DBStorage 基于 cart_items 表的购物车
type DBStorage struct {
	repo repository.CartRepository
}

// NewDBStorage 创建数据库后端
func NewDBStorage(repo repository.CartRepository) *DBStorage {
	return &DBStorage{repo: repo}
}

// Load 读取
func (d *DBStorage) Load(_ context.Context, sessionID string) ([]Item, error) {
	rows, err := d.repo.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ProductID:      row.ProductID,
			OptionLabel:    row.OptionLabel,
			VariantID:      row.VariantID,
			ProductName:    row.ProductName,
			Price:          row.Price,
			Quantity:       row.Quantity,
			DeliveryMethod: row.DeliveryMethod,
			ImageURL:       row.ImageURL,
		})
	}
	return items, nil
}

// Save 整体替换
func (d *DBStorage) Save(_ context.Context, sessionID string, items []Item) error {
	rows := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.CartItem{
			ProductID:      item.ProductID,
			OptionLabel:    item.OptionLabel,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			Price:          item.Price,
			Quantity:       item.Quantity,
			DeliveryMethod: item.DeliveryMethod,
			ImageURL:       item.ImageURL,
		})
	}
	return d.repo.ReplaceSession(sessionID, rows)
}

// Clear 清空
func (d *DBStorage) Clear(_ context.Context, sessionID string) error {
	return d.repo.ClearBySession(sessionID)
}

// NewStorage 根据 Redis 状态选择后端
func NewStorage(repo repository.CartRepository, ttl time.Duration) Storage {
	if cache.Enabled() {
		return NewRedisStorage(ttl)
	}
	return NewDBStorage(repo)
}
