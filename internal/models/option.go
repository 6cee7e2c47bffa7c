package models

// OptionType 规格维度（如 color / size）
type OptionType struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(64);not null;uniqueIndex" json:"name"`
}

// TableName 指定表名
func (OptionType) TableName() string {
	return "option_types"
}

// OptionValue 规格值（如 Large）
type OptionValue struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	OptionTypeID uint   `gorm:"not null;index" json:"option_type_id"`
	Value        string `gorm:"type:varchar(128);not null" json:"value"`

	OptionType *OptionType `gorm:"foreignKey:OptionTypeID" json:"option_type,omitempty"`
}

// TableName 指定表名
func (OptionValue) TableName() string {
	return "option_values"
}

// VariantOptionMap 规格与规格值的多对多关联
type VariantOptionMap struct {
	VariantID     uint `gorm:"primaryKey;autoIncrement:false" json:"variant_id"`
	OptionValueID uint `gorm:"primaryKey;autoIncrement:false" json:"option_value_id"`

	OptionValue *OptionValue `gorm:"foreignKey:OptionValueID" json:"option_value,omitempty"`
}

// TableName 指定表名
func (VariantOptionMap) TableName() string {
	return "variant_option_maps"
}
