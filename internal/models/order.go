package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（每笔已验证支付恰好对应一张订单）
type Order struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo          string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CustomerName     string         `gorm:"type:varchar(128);not null" json:"customer_name"`           // 收件人
	CustomerEmail    string         `gorm:"type:varchar(255);not null;index" json:"customer_email"`    // 邮箱
	CustomerPhone    string         `gorm:"type:varchar(64);not null" json:"customer_phone"`           // 电话
	CustomerAddress  string         `gorm:"type:text" json:"customer_address"`                         // 地址
	ShopOrderNo      string         `gorm:"type:varchar(64);index" json:"shop_order_no"`               // 支付侧商户订单号
	DeliveryMethodID uint           `gorm:"not null;index" json:"delivery_method_id"`                  // 配送方式ID
	TotalAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	Currency         string         `gorm:"type:varchar(8);not null" json:"currency"`                  // 币种
	Status           string         `gorm:"index;not null" json:"status"`                              // 订单状态
	PaymentStatus    string         `gorm:"index;not null" json:"payment_status"`                      // 支付状态
	PaymentID        *uint          `gorm:"uniqueIndex" json:"payment_id,omitempty"`                   // 绑定的支付记录
	Locale           string         `gorm:"type:varchar(20)" json:"locale,omitempty"`                  // 下单语言
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items          []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	DeliveryMethod *DeliveryMethod `gorm:"foreignKey:DeliveryMethodID" json:"delivery_method,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
