package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（本系统只读）
type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                    // 主键
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`                  // 商品名称
	Description string         `gorm:"type:text" json:"description"`                            // 商品描述
	BasePrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"` // 基础价格
	SortOrder   int            `gorm:"default:0;index" json:"sort_order"`                       // 排序权重
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                              // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"` // 规格列表
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
