package response

// 失败类别，随错误响应写入 data.kind
const (
	KindGatewayConfigError    = "GatewayConfigError"
	KindGatewayRejected       = "GatewayRejected"
	KindPaymentRejected       = "PaymentRejected"
	KindInvalidDeliveryMethod = "InvalidDeliveryMethod"
	KindPersistenceError      = "PersistenceError"
	KindInsufficientStock     = "InsufficientStock"
	KindValidationError       = "ValidationError"
	KindNotFound              = "NotFound"
)
