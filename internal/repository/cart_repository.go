package repository

import (
	"strings"

	"github.com/theunion-shop/internal/models"

	"gorm.io/gorm"
)

// CartRepository 会话购物车数据访问接口
type CartRepository interface {
	ListBySession(sessionID string) ([]models.CartItem, error)
	ReplaceSession(sessionID string, items []models.CartItem) error
	ClearBySession(sessionID string) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListBySession 获取会话购物车行
func (r *GormCartRepository) ListBySession(sessionID string) ([]models.CartItem, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return []models.CartItem{}, nil
	}
	var items []models.CartItem
	if err := r.db.Where("session_id = ?", sessionID).Order("position asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceSession 以事务整体替换会话购物车
func (r *GormCartRepository) ReplaceSession(sessionID string, items []models.CartItem) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]models.CartItem, len(items))
		for i := range items {
			rows[i] = items[i]
			rows[i].ID = 0
			rows[i].SessionID = sessionID
			rows[i].Position = i
		}
		return tx.Create(&rows).Error
	})
}

// ClearBySession 清空会话购物车
func (r *GormCartRepository) ClearBySession(sessionID string) error {
	return r.db.Where("session_id = ?", strings.TrimSpace(sessionID)).Delete(&models.CartItem{}).Error
}
