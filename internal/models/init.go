package models

import (
	"errors"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/logger"

	"gorm.io/gorm"
)

// DefaultDeliveryMethods 固定配送方式（ID 与 constants 保持一致）
func DefaultDeliveryMethods() []DeliveryMethod {
	return []DeliveryMethod{
		{
			ID:          constants.DeliveryMethodDomesticID,
			Code:        constants.DeliveryMethodDomestic,
			Name:        "국내배송",
			Description: "대한민국 내 택배 배송",
		},
		{
			ID:          constants.DeliveryMethodInternationalID,
			Code:        constants.DeliveryMethodInternational,
			Name:        "해외배송",
			Description: "국제 배송",
		},
		{
			ID:          constants.DeliveryMethodOnsiteID,
			Code:        constants.DeliveryMethodOnsite,
			Name:        "팬미팅현장수령",
			Description: "팬미팅 현장에서 수령",
		},
	}
}

// EnsureDeliveryMethods 初始化固定配送方式，已存在的行保持不变
func EnsureDeliveryMethods(db *gorm.DB) error {
	if db == nil {
		return errors.New("database not initialized")
	}
	for _, method := range DefaultDeliveryMethods() {
		var existing DeliveryMethod
		err := db.Where("id = ?", method.ID).First(&existing).Error
		if err == nil {
			if existing.Code != method.Code {
				logger.Warnw("delivery_method_code_mismatch",
					"id", method.ID,
					"expected", method.Code,
					"actual", existing.Code,
				)
			}
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row := method
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		logger.Infow("delivery_method_created", "id", row.ID, "code", row.Code)
	}
	return nil
}
