package service

import (
	"strings"

	"github.com/theunion-shop/internal/constants"
)

var deliveryMethodAliases = map[string]uint{
	"팬미팅현장수령":                             constants.DeliveryMethodOnsiteID,
	constants.DeliveryMethodOnsite:        constants.DeliveryMethodOnsiteID,
	"국내배송":                                constants.DeliveryMethodDomesticID,
	constants.DeliveryMethodDomestic:      constants.DeliveryMethodDomesticID,
	"해외배송":                                constants.DeliveryMethodInternationalID,
	constants.DeliveryMethodInternational: constants.DeliveryMethodInternationalID,
}

// ResolveDeliveryMethodID 将配送方式名称或编码解析为固定 ID，未知名称不做默认回退
func ResolveDeliveryMethodID(name string) (uint, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, ErrInvalidDeliveryMethod
	}
	id, ok := deliveryMethodAliases[key]
	if !ok {
		return 0, ErrInvalidDeliveryMethod
	}
	return id, nil
}
