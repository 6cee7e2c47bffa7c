package models

// DeliveryMethod 配送方式（固定集合：现场领取 / 国内配送 / 海外配送）
type DeliveryMethod struct {
	ID          uint   `gorm:"primarykey" json:"id"`                              // 主键
	Code        string `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"` // 英文编码
	Name        string `gorm:"type:varchar(64);not null" json:"name"`             // 展示名称
	Description string `gorm:"type:varchar(255)" json:"description"`              // 描述
}

// TableName 指定表名
func (DeliveryMethod) TableName() string {
	return "delivery_methods"
}
