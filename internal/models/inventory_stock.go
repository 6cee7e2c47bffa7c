package models

import "time"

// InventoryStock 规格在某一配送方式下的可售库存
type InventoryStock struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	VariantID         uint      `gorm:"not null;uniqueIndex:idx_inventory_variant_method" json:"variant_id"`
	MethodID          uint      `gorm:"not null;uniqueIndex:idx_inventory_variant_method" json:"method_id"`
	QuantityAvailable int       `gorm:"not null;default:0;check:chk_inventory_quantity_non_negative,quantity_available >= 0" json:"quantity_available"`
	UpdatedAt         time.Time `json:"updated_at"`

	DeliveryMethod *DeliveryMethod `gorm:"foreignKey:MethodID" json:"delivery_method,omitempty"`
}

// TableName 指定表名
func (InventoryStock) TableName() string {
	return "inventory_stocks"
}
