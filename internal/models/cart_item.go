package models

import "time"

// CartItem 会话购物车行（数据库存储后端）
type CartItem struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	SessionID      string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_session_line" json:"session_id"` // 会话ID
	ProductID      uint      `gorm:"not null;uniqueIndex:idx_cart_session_line" json:"product_id"`                  // 商品ID
	OptionLabel    string    `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_cart_session_line" json:"option_label"`
	VariantID      *uint     `json:"variant_id,omitempty"`                               // 规格ID
	ProductName    string    `gorm:"type:varchar(255)" json:"product_name"`              // 商品名称
	Price          Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单价
	Quantity       int       `gorm:"not null" json:"quantity"`                           // 数量
	DeliveryMethod string    `gorm:"type:varchar(32)" json:"delivery_method"`            // 配送方式
	ImageURL       string    `gorm:"type:varchar(1024)" json:"image_url"`                // 图片
	Position       int       `gorm:"not null;default:0" json:"position"`                 // 行顺序
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
