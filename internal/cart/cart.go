package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"
)

// ErrInvalidItem 购物车行无效
var ErrInvalidItem = errors.New("invalid cart item")

// Item 购物车行，以 (ProductID, OptionLabel) 唯一标识
type Item struct {
	ProductID      uint         `json:"product_id"`
	OptionLabel    string       `json:"option_label"`
	VariantID      *uint        `json:"variant_id,omitempty"`
	ProductName    string       `json:"product_name"`
	Price          models.Money `json:"price"`
	Quantity       int          `json:"quantity"`
	DeliveryMethod string       `json:"delivery_method"`
	ImageURL       string       `json:"image_url"`
}

// Storage 购物车持久化后端
type Storage interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	Clear(ctx context.Context, sessionID string) error
}

// Store 会话购物车
// 存储失败只记录日志，内存状态始终保持一致。
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []Item
	storage   Storage
}

// Open 加载会话购物车
func Open(ctx context.Context, sessionID string, storage Storage) *Store {
	s := &Store{sessionID: strings.TrimSpace(sessionID), storage: storage}
	if storage == nil || s.sessionID == "" {
		return s
	}
	items, err := storage.Load(ctx, s.sessionID)
	if err != nil {
		logger.Warnw("cart_storage_load_failed", "session_id", s.sessionID, "error", err)
		return s
	}
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		s.items = append(s.items, item)
	}
	return s
}

// SessionID 返回会话 ID
func (s *Store) SessionID() string {
	return s.sessionID
}

// Items 返回购物车行副本
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Add 加入购物车，同键时累加数量
func (s *Store) Add(ctx context.Context, item Item) error {
	if item.ProductID == 0 || item.Price.Decimal.IsNegative() {
		return ErrInvalidItem
	}
	item.OptionLabel = strings.TrimSpace(item.OptionLabel)
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	if idx := s.indexOf(item.ProductID, item.OptionLabel); idx >= 0 {
		s.items[idx].Quantity += item.Quantity
	} else {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

// Remove 删除购物车行，不存在时忽略
func (s *Store) Remove(ctx context.Context, productID uint, optionLabel string) {
	s.mu.Lock()
	idx := s.indexOf(productID, strings.TrimSpace(optionLabel))
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.mu.Unlock()

	s.persist(ctx)
}

// SetQuantity 设置数量，quantity <= 0 时删除该行
func (s *Store) SetQuantity(ctx context.Context, productID uint, optionLabel string, quantity int) {
	if quantity <= 0 {
		s.Remove(ctx, productID, optionLabel)
		return
	}
	s.mu.Lock()
	idx := s.indexOf(productID, strings.TrimSpace(optionLabel))
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items[idx].Quantity = quantity
	s.mu.Unlock()

	s.persist(ctx)
}

// SetDeliveryMethod 统一设置全部行的配送方式
func (s *Store) SetDeliveryMethod(ctx context.Context, method string) {
	method = strings.TrimSpace(method)
	s.mu.Lock()
	for i := range s.items {
		s.items[i].DeliveryMethod = method
	}
	s.mu.Unlock()

	s.persist(ctx)
}

// Clear 清空购物车
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if s.storage == nil || s.sessionID == "" {
		return
	}
	if err := s.storage.Clear(ctx, s.sessionID); err != nil {
		logger.Warnw("cart_storage_save_failed", "session_id", s.sessionID, "op", "clear", "error", err)
	}
}

// Total 合计金额
func (s *Store) Total() models.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := models.NewMoneyFromInt(0)
	for _, item := range s.items {
		total = total.Add(item.Price.Mul(item.Quantity))
	}
	return total
}

// Count 商品件数
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

func (s *Store) indexOf(productID uint, optionLabel string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID && s.items[i].OptionLabel == optionLabel {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	if s.storage == nil || s.sessionID == "" {
		return
	}
	items := s.Items()
	if err := s.storage.Save(ctx, s.sessionID, items); err != nil {
		logger.Warnw("cart_storage_save_failed", "session_id", s.sessionID, "items", len(items), "error", err)
	}
}
