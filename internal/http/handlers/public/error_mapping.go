package public

import (
	"errors"

	handlershared "github.com/theunion-shop/internal/http/handlers/shared"
	"github.com/theunion-shop/internal/http/response"
	"github.com/theunion-shop/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError struct {
	target error
	code   int
	key    string
	kind   string
}

// respondWithMappedError 按规则表映射业务错误；命中规则的错误视为预期结果，不再记录 error 日志。
func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.target) {
			continue
		}
		detail := handlershared.ErrorDetail{Kind: rule.kind}
		if code, msg, ok := service.ProviderCode(err); ok {
			detail.ProviderCode = code
			detail.ProviderMessage = msg
		}
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			detail.Field = validationErr.Field
		}
		if rule.code >= response.CodeInternal {
			handlershared.RespondErrorWithDetail(c, rule.code, rule.key, detail, err)
			return
		}
		requestLog(c).Infow("handler_mapped_error", "kind", rule.kind, "error", err)
		handlershared.RespondErrorWithDetail(c, rule.code, rule.key, detail, nil)
		return
	}
	handlershared.RespondErrorWithDetail(c, fallbackCode, fallbackKey, handlershared.ErrorDetail{}, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	merged := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		merged = append(merged, group...)
	}
	return merged
}

var catalogErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found", kind: response.KindNotFound},
	{target: service.ErrProductFetchFailed, code: response.CodeInternal, key: "error.product_fetch_failed", kind: response.KindPersistenceError},
	{target: service.ErrDeliveryFetchFailed, code: response.CodeInternal, key: "error.delivery_fetch_failed", kind: response.KindPersistenceError},
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrCartItemInvalid, code: response.CodeBadRequest, key: "error.cart_item_invalid", kind: response.KindValidationError},
	{target: service.ErrCartSessionInvalid, code: response.CodeUnauthorized, key: "error.cart_session_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found", kind: response.KindNotFound},
	{target: service.ErrInvalidDeliveryMethod, code: response.CodeBadRequest, key: "error.delivery_method_invalid", kind: response.KindInvalidDeliveryMethod},
	{target: service.ErrInsufficientStock, code: response.CodeConflict, key: "error.insufficient_stock", kind: response.KindInsufficientStock},
	{target: service.ErrProductFetchFailed, code: response.CodeInternal, key: "error.product_fetch_failed", kind: response.KindPersistenceError},
}

var paymentCommonErrorRules = []mappedHandlerError{
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation", kind: response.KindValidationError},
	{target: service.ErrPaymentAmountInvalid, code: response.CodeBadRequest, key: "error.payment_amount_invalid", kind: response.KindValidationError},
	{target: service.ErrGatewayConfig, code: response.CodeInternal, key: "error.gateway_config", kind: response.KindGatewayConfigError},
	{target: service.ErrGatewayRejected, code: response.CodeBadGateway, key: "error.gateway_rejected", kind: response.KindGatewayRejected},
	{target: service.ErrGatewayUnavailable, code: response.CodeBadGateway, key: "error.gateway_unavailable", kind: response.KindGatewayRejected},
	{target: service.ErrPersistence, code: response.CodeInternal, key: "error.persistence", kind: response.KindPersistenceError},
}

var paymentVerifyExtraErrorRules = []mappedHandlerError{
	{target: service.ErrPaymentNotFound, code: response.CodeNotFound, key: "error.payment_not_found", kind: response.KindNotFound},
	{target: service.ErrPaymentProviderMismatch, code: response.CodeBadRequest, key: "error.payment_provider_mismatch", kind: response.KindValidationError},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeUnprocessable, key: "error.payment_amount_mismatch", kind: response.KindPaymentRejected},
	{target: service.ErrPaymentInProgress, code: response.CodeConflict, key: "error.payment_in_progress"},
	{target: service.ErrPaymentExpired, code: response.CodeGone, key: "error.payment_expired", kind: response.KindPaymentRejected},
	{target: service.ErrPaymentRejected, code: response.CodePaymentRequired, key: "error.payment_rejected", kind: response.KindPaymentRejected},
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidDeliveryMethod, code: response.CodeBadRequest, key: "error.delivery_method_invalid", kind: response.KindInvalidDeliveryMethod},
	{target: service.ErrValidation, code: response.CodeBadRequest, key: "error.validation", kind: response.KindValidationError},
	{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, key: "error.order_item_invalid", kind: response.KindValidationError},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found", kind: response.KindNotFound},
	{target: service.ErrPaymentNotVerified, code: response.CodePaymentRequired, key: "error.payment_not_verified", kind: response.KindPaymentRejected},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeUnprocessable, key: "error.payment_amount_mismatch", kind: response.KindPaymentRejected},
	{target: service.ErrPaymentProviderMismatch, code: response.CodeBadRequest, key: "error.payment_provider_mismatch", kind: response.KindValidationError},
	{target: service.ErrDeliveryFetchFailed, code: response.CodeInternal, key: "error.delivery_fetch_failed", kind: response.KindPersistenceError},
	{target: service.ErrProductFetchFailed, code: response.CodeInternal, key: "error.product_fetch_failed", kind: response.KindPersistenceError},
	{target: service.ErrPersistence, code: response.CodeInternal, key: "error.persistence", kind: response.KindPersistenceError},
}

func respondCatalogError(c *gin.Context, err error) {
	respondWithMappedError(c, err, catalogErrorRules, response.CodeInternal, "error.product_fetch_failed")
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartErrorRules, response.CodeInternal, "error.internal")
}

func respondPaymentRegisterError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentCommonErrorRules, response.CodeInternal, "error.internal")
}

func respondPaymentVerifyError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(paymentVerifyExtraErrorRules, paymentCommonErrorRules), response.CodeInternal, "error.internal")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "error.order_create_failed")
}
