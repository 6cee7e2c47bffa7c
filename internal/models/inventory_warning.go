package models

import "time"

// InventoryWarning 下单时库存扣减失败的记录，待后台对账
type InventoryWarning struct {
	ID         uint       `gorm:"primarykey" json:"id"`                          // 主键
	OrderID    uint       `gorm:"not null;index" json:"order_id"`                // 订单ID
	VariantID  uint       `gorm:"not null;index" json:"variant_id"`              // 规格ID
	MethodID   uint       `gorm:"not null" json:"method_id"`                     // 配送方式ID
	Reason     string     `gorm:"type:varchar(64);not null;index" json:"reason"` // 原因
	Available  *int       `json:"available,omitempty"`                           // 当时可用库存
	Requested  int        `gorm:"not null" json:"requested"`                     // 请求数量
	Detail     string     `gorm:"type:text" json:"detail,omitempty"`             // 错误详情
	ResolvedAt *time.Time `gorm:"index" json:"resolved_at,omitempty"`            // 处理时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (InventoryWarning) TableName() string {
	return "inventory_warnings"
}
