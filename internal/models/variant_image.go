package models

// VariantImage 规格图片，展示顺序由 sort_order 升序决定
type VariantImage struct {
	ID        uint   `gorm:"primarykey" json:"id"`                         // 主键
	VariantID uint   `gorm:"not null;index" json:"variant_id"`             // 规格ID
	ImageURL  string `gorm:"type:varchar(1024);not null" json:"image_url"` // 图片地址
	SortOrder int    `gorm:"default:0" json:"sort_order"`                  // 排序
	IsMain    bool   `gorm:"default:false" json:"is_main"`                 // 是否主图
}

// TableName 指定表名
func (VariantImage) TableName() string {
	return "variant_images"
}
