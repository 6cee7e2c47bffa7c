package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrProductNotFound         = errors.New("product not found")
	ErrProductFetchFailed      = errors.New("product fetch failed")
	ErrInvalidDeliveryMethod   = errors.New("invalid delivery method")
	ErrDeliveryFetchFailed     = errors.New("delivery method fetch failed")
	ErrInvalidOrderItem        = errors.New("invalid order item")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrPersistence             = errors.New("persistence failed")
	ErrGatewayConfig           = errors.New("payment gateway config invalid")
	ErrGatewayRejected         = errors.New("payment gateway rejected")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrPaymentRejected         = errors.New("payment rejected")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentInProgress       = errors.New("payment verification in progress")
	ErrPaymentExpired          = errors.New("payment expired")
	ErrPaymentAmountMismatch   = errors.New("payment amount mismatch")
	ErrPaymentAmountInvalid    = errors.New("payment amount invalid")
	ErrPaymentNotVerified      = errors.New("payment not verified")
	ErrPaymentProviderMismatch = errors.New("payment provider mismatch")
	ErrCartItemInvalid         = errors.New("cart item invalid")
	ErrCartSessionInvalid      = errors.New("cart session invalid")

	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// ValidationError 字段级校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("validation failed: %s", e.Field)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// GatewayRejectedError 网关拒绝注册/创建请求（携带渠道返回码）
type GatewayRejectedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s %s", e.Provider, e.Code, strings.TrimSpace(e.Message))
}

func (e *GatewayRejectedError) Unwrap() error {
	return ErrGatewayRejected
}

// PaymentRejectedError 支付未通过审批/捕获（携带渠道返回码）
type PaymentRejectedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("%s payment rejected: %s %s", e.Provider, e.Code, strings.TrimSpace(e.Message))
}

func (e *PaymentRejectedError) Unwrap() error {
	return ErrPaymentRejected
}

// ProviderCode 提取错误中携带的渠道返回码与消息
func ProviderCode(err error) (string, string, bool) {
	var gatewayErr *GatewayRejectedError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Code, gatewayErr.Message, true
	}
	var paymentErr *PaymentRejectedError
	if errors.As(err, &paymentErr) {
		return paymentErr.Code, paymentErr.Message, true
	}
	return "", "", false
}
