package models

import (
	"time"
)

// ProductVariant 商品规格（可购买的具体组合）
type ProductVariant struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	ProductID       uint      `gorm:"not null;index" json:"product_id"`                              // 商品ID
	SKU             string    `gorm:"column:sku;type:varchar(64);index" json:"sku"`                  // SKU 编码
	PriceAdjustment Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price_adjustment"` // 相对基础价格的调整
	SortOrder       int       `gorm:"default:0;index" json:"sort_order"`                             // 排序权重
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                                    // 更新时间

	Product    *Product           `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	OptionMaps []VariantOptionMap `gorm:"foreignKey:VariantID" json:"option_maps,omitempty"`
	Images     []VariantImage     `gorm:"foreignKey:VariantID" json:"images,omitempty"`
	Stocks     []InventoryStock   `gorm:"foreignKey:VariantID" json:"stocks,omitempty"`
}

// TableName 指定表名
func (ProductVariant) TableName() string {
	return "product_variants"
}
