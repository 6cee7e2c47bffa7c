package models

import "time"

// OrderItem 订单项（与订单同批写入，之后不再修改）
type OrderItem struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                           // 主键
	OrderID         uint      `gorm:"index;not null" json:"order_id"`                                 // 订单ID
	ProductID       uint      `gorm:"index;not null" json:"product_id"`                               // 商品ID
	VariantID       uint      `gorm:"index;not null" json:"variant_id"`                               // 规格ID
	ProductName     string    `gorm:"type:varchar(255)" json:"product_name"`                          // 商品名称快照
	SKUSnapshot     string    `gorm:"column:sku_snapshot;type:varchar(255)" json:"sku_snapshot"`      // SKU 快照
	Quantity        int       `gorm:"not null" json:"quantity"`                                       // 数量
	PriceAtPurchase Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price_at_purchase"` // 下单单价
	Subtotal        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`          // 小计
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                        // 创建时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
