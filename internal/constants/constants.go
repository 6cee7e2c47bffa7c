package constants

// 订单状态常量
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCanceled   = "Canceled"
)

// 订单支付状态常量
const (
	OrderPaymentStatusPaid    = "Paid"
	OrderPaymentStatusPending = "Pending"
	OrderPaymentStatusFailed  = "Failed"
)

// 配送方式编码
const (
	DeliveryMethodDomestic      = "domestic"
	DeliveryMethodInternational = "international"
	DeliveryMethodOnsite        = "onsite"
)

// 配送方式固定 ID（与种子数据保持一致）
const (
	DeliveryMethodDomesticID      uint = 1
	DeliveryMethodInternationalID uint = 2
	DeliveryMethodOnsiteID        uint = 3
)

// 支付提供方常量
const (
	PaymentProviderEasyPay = "easypay"
	PaymentProviderPaypal  = "paypal"
)

// 支付记录状态常量
const (
	PaymentStatusRegistered = "registered"
	PaymentStatusCreated    = "created"
	PaymentStatusVerifying  = "verifying"
	PaymentStatusApproved   = "approved"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
	PaymentStatusExpired    = "expired"
)

// 库存告警原因
const (
	InventoryWarningStockNotFound = "Stock record not found"
	InventoryWarningInsufficient  = "Insufficient stock"
	InventoryWarningConflict      = "Inventory conflict"
	InventoryWarningUpdateFailed  = "Failed to update inventory"
)

// 队列名称
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型
const (
	TaskOrderCreated       = "order:created"
	TaskInventoryReconcile = "inventory:reconcile"
)

// 默认币种
const (
	CurrencyKRW = "KRW"
	CurrencyUSD = "USD"
)
