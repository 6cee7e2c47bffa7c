package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/metrics"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/queue"
	"github.com/theunion-shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultStockCASMaxRetries = 3
	defaultStockCASBackoff    = 20 * time.Millisecond
	reconcileDelay            = 30 * time.Second
)

var errPaymentAlreadyBound = errors.New("payment already bound to an order")

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	inventoryRepo repository.InventoryRepository
	paymentRepo   repository.PaymentRepository
	queueClient   *queue.Client
	emailService  *EmailService
	currency      string
	casRetries    int
	casBackoff    time.Duration
}

// NewOrderService 创建订单服务
func NewOrderService(cfg *config.OrderConfig, orderRepo repository.OrderRepository, productRepo repository.ProductRepository, inventoryRepo repository.InventoryRepository, paymentRepo repository.PaymentRepository, queueClient *queue.Client) *OrderService {
	s := &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		paymentRepo:   paymentRepo,
		queueClient:   queueClient,
		currency:      constants.CurrencyKRW,
		casRetries:    defaultStockCASMaxRetries,
		casBackoff:    defaultStockCASBackoff,
	}
	if cfg != nil {
		if c := strings.ToUpper(strings.TrimSpace(cfg.Currency)); c != "" {
			s.currency = c
		}
		if cfg.StockCASMaxRetries > 0 {
			s.casRetries = cfg.StockCASMaxRetries
		}
		if cfg.StockCASBackoffMS > 0 {
			s.casBackoff = time.Duration(cfg.StockCASBackoffMS) * time.Millisecond
		}
	}
	return s
}

// SetEmailService 设置下单通知邮件服务
func (s *OrderService) SetEmailService(emailService *EmailService) {
	s.emailService = emailService
}

// CreateOrderItem 下单项
type CreateOrderItem struct {
	ProductID   uint
	VariantID   uint
	Quantity    int
	Price       models.Money
	OptionLabel string
}

// CreateOrderInput 下单输入
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	DeliveryMethod  string
	TotalAmount     models.Money
	Currency        string
	PaymentStatus   string
	ShopOrderNo     string
	Locale          string
	Items           []CreateOrderItem

	paymentID *uint
}

// InventoryWarning 库存扣减告警（不影响订单创建）
type InventoryWarning struct {
	VariantID uint   `json:"variant_id"`
	MethodID  uint   `json:"method_id"`
	Reason    string `json:"reason"`
	Available *int   `json:"available,omitempty"`
	Requested int    `json:"requested"`
	Detail    string `json:"-"`
}

// CreateOrderResult 下单结果
type CreateOrderResult struct {
	OrderID           uint               `json:"order_id"`
	OrderNo           string             `json:"order_no"`
	InventoryWarnings []InventoryWarning `json:"inventory_warnings,omitempty"`
}

// PlaceOrderInput 结账输入：已确认的支付 + 订单信息
type PlaceOrderInput struct {
	Provider      string
	ShopOrderNo   string
	PayPalOrderID string
	Order         CreateOrderInput
}

type resolvedOrderItem struct {
	input   CreateOrderItem
	variant *models.ProductVariant
}

// PlaceOrder 校验支付后创建订单，同一支付只生成一张订单
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*CreateOrderResult, error) {
	payment, err := s.lookupPayment(input)
	if err != nil {
		return nil, err
	}
	if payment.OrderID != nil {
		return s.existingOrderResult(*payment.OrderID)
	}
	if !isPaidStatus(payment) {
		return nil, ErrPaymentNotVerified
	}
	if !payment.Amount.EqualAmount(input.Order.TotalAmount) {
		logger.Warnw("order_payment_amount_mismatch",
			"payment_id", payment.ID,
			"payment_amount", payment.Amount.String(),
			"order_amount", input.Order.TotalAmount.String(),
		)
		return nil, ErrPaymentAmountMismatch
	}

	orderInput := input.Order
	paymentID := payment.ID
	orderInput.paymentID = &paymentID
	orderInput.PaymentStatus = constants.OrderPaymentStatusPaid
	orderInput.ShopOrderNo = payment.ShopOrderNo
	orderInput.Currency = payment.Currency
	return s.CreateOrder(ctx, orderInput)
}

func (s *OrderService) lookupPayment(input PlaceOrderInput) (*models.Payment, error) {
	var (
		payment *models.Payment
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(input.Provider)) {
	case constants.PaymentProviderEasyPay:
		ref := strings.TrimSpace(input.ShopOrderNo)
		if ref == "" {
			return nil, invalidField("shop_order_no", "is required")
		}
		payment, err = s.paymentRepo.GetByShopOrderNo(ref)
	case constants.PaymentProviderPaypal:
		ref := strings.TrimSpace(input.PayPalOrderID)
		if ref == "" {
			return nil, invalidField("paypal_order_id", "is required")
		}
		payment, err = s.paymentRepo.GetByProviderRef(constants.PaymentProviderPaypal, ref)
	default:
		return nil, invalidField("provider", "is not supported")
	}
	if err != nil {
		return nil, ErrPersistence
	}
	if payment == nil {
		return nil, ErrPaymentNotVerified
	}
	return payment, nil
}

func (s *OrderService) existingOrderResult(orderID uint) (*CreateOrderResult, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		logger.Errorw("order_existing_fetch_failed", "order_id", orderID, "error", err)
		return nil, ErrPersistence
	}
	result := &CreateOrderResult{OrderID: order.ID, OrderNo: order.OrderNo}
	warnings, err := s.inventoryRepo.ListUnresolvedWarnings(order.ID)
	if err != nil {
		logger.Warnw("order_existing_warnings_fetch_failed", "order_id", orderID, "error", err)
		return result, nil
	}
	for _, w := range warnings {
		result.InventoryWarnings = append(result.InventoryWarnings, InventoryWarning{
			VariantID: w.VariantID,
			MethodID:  w.MethodID,
			Reason:    w.Reason,
			Available: w.Available,
			Requested: w.Requested,
		})
	}
	return result, nil
}

// CreateOrder 在一个事务内写入订单、订单项、支付绑定与库存扣减
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	methodID, err := validateCreateOrderInput(&input)
	if err != nil {
		return nil, err
	}
	items, err := s.resolveItems(input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	paymentStatus := strings.TrimSpace(input.PaymentStatus)
	if paymentStatus == "" {
		paymentStatus = constants.OrderPaymentStatusPaid
	}
	order := &models.Order{
		OrderNo:          generateOrderNo(),
		CustomerName:     input.CustomerName,
		CustomerEmail:    input.CustomerEmail,
		CustomerPhone:    input.CustomerPhone,
		CustomerAddress:  input.CustomerAddress,
		ShopOrderNo:      strings.TrimSpace(input.ShopOrderNo),
		DeliveryMethodID: methodID,
		TotalAmount:      models.NewMoneyFromDecimal(input.TotalAmount.Decimal),
		Currency:         currency,
		Status:           constants.OrderStatusPending,
		PaymentStatus:    paymentStatus,
		PaymentID:        input.paymentID,
		Locale:           strings.TrimSpace(input.Locale),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	orderItems, itemsTotal := buildOrderItems(items, now)
	if !itemsTotal.Equal(order.TotalAmount.Decimal) {
		logger.Warnw("order_total_mismatch",
			"order_no", order.OrderNo,
			"total_amount", order.TotalAmount.String(),
			"items_total", itemsTotal.StringFixed(2),
		)
	}

	var warnings []InventoryWarning
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 事务内必须使用 tx 绑定仓储，避免在单连接池下发生自锁等待。
		if err := s.orderRepo.WithTx(tx).Create(order, orderItems); err != nil {
			return err
		}
		if order.PaymentID != nil {
			bound, err := s.paymentRepo.WithTx(tx).BindOrder(*order.PaymentID, order.ID)
			if err != nil {
				return err
			}
			if !bound {
				return errPaymentAlreadyBound
			}
		}

		warnings = warnings[:0]
		for _, item := range items {
			if warning := s.reserveStock(ctx, tx, item.variant.ID, methodID, item.input.Quantity); warning != nil {
				warnings = append(warnings, *warning)
			}
		}
		if len(warnings) == 0 {
			return nil
		}
		rows := make([]models.InventoryWarning, 0, len(warnings))
		for _, w := range warnings {
			rows = append(rows, models.InventoryWarning{
				OrderID:   order.ID,
				VariantID: w.VariantID,
				MethodID:  w.MethodID,
				Reason:    w.Reason,
				Available: w.Available,
				Requested: w.Requested,
				Detail:    w.Detail,
				CreatedAt: now,
			})
		}
		return s.inventoryRepo.WithTx(tx).CreateWarnings(rows)
	})
	if err != nil {
		if order.PaymentID != nil && (errors.Is(err, errPaymentAlreadyBound) || isDuplicateKeyError(err)) {
			existing, fetchErr := s.orderRepo.GetByPaymentID(*order.PaymentID)
			if fetchErr == nil && existing != nil {
				logger.Infow("order_payment_already_bound", "payment_id", *order.PaymentID, "order_id", existing.ID)
				return s.existingOrderResult(existing.ID)
			}
		}
		logger.Errorw("order_create_failed",
			"order_no", order.OrderNo,
			"customer_email", order.CustomerEmail,
			"payment_id", order.PaymentID,
			"items", len(orderItems),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.IncOrderCreated()
	for _, w := range warnings {
		metrics.IncInventoryWarning(w.Reason)
		logger.Warnw("order_inventory_warning",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"variant_id", w.VariantID,
			"method_id", w.MethodID,
			"reason", w.Reason,
			"requested", w.Requested,
		)
	}
	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"payment_id", order.PaymentID,
		"warnings", len(warnings),
	)
	if err := cache.InvalidateCatalog(ctx); err != nil {
		logger.Warnw("catalog_cache_invalidate_failed", "error", err)
	}
	s.enqueueAfterCreate(order, len(warnings) > 0)

	result := &CreateOrderResult{OrderID: order.ID, OrderNo: order.OrderNo}
	if len(warnings) > 0 {
		result.InventoryWarnings = warnings
	}
	return result, nil
}

func (s *OrderService) enqueueAfterCreate(order *models.Order, hasWarnings bool) {
	if s.queueClient == nil {
		return
	}
	if err := s.queueClient.EnqueueOrderCreated(queue.OrderCreatedPayload{OrderID: order.ID, Locale: order.Locale}); err != nil {
		logger.Warnw("order_enqueue_created_failed", "order_id", order.ID, "error", err)
	}
	if !hasWarnings {
		return
	}
	if err := s.queueClient.EnqueueInventoryReconcile(queue.InventoryReconcilePayload{OrderID: order.ID}, reconcileDelay); err != nil {
		logger.Warnw("order_enqueue_reconcile_failed", "order_id", order.ID, "error", err)
	}
}

// reserveStock 在保存点内以 CAS 扣减库存，失败时返回告警
func (s *OrderService) reserveStock(ctx context.Context, tx *gorm.DB, variantID, methodID uint, quantity int) *InventoryWarning {
	for attempt := 0; attempt < s.casRetries; attempt++ {
		var (
			warning  *InventoryWarning
			conflict bool
		)
		err := tx.Transaction(func(sp *gorm.DB) error {
			repo := s.inventoryRepo.WithTx(sp)
			stock, err := repo.GetByVariantMethod(variantID, methodID)
			if err != nil {
				return err
			}
			if stock == nil {
				warning = &InventoryWarning{VariantID: variantID, MethodID: methodID, Reason: constants.InventoryWarningStockNotFound, Requested: quantity}
				return nil
			}
			if stock.QuantityAvailable < quantity {
				available := stock.QuantityAvailable
				warning = &InventoryWarning{VariantID: variantID, MethodID: methodID, Reason: constants.InventoryWarningInsufficient, Available: &available, Requested: quantity}
				return nil
			}
			swapped, err := repo.CompareAndSwap(stock.ID, stock.QuantityAvailable, stock.QuantityAvailable-quantity)
			if err != nil {
				return err
			}
			conflict = !swapped
			return nil
		})
		if err != nil {
			return &InventoryWarning{VariantID: variantID, MethodID: methodID, Reason: constants.InventoryWarningUpdateFailed, Requested: quantity, Detail: err.Error()}
		}
		if warning != nil {
			return warning
		}
		if !conflict {
			return nil
		}
		metrics.IncStockCASRetry()
		if attempt+1 < s.casRetries {
			select {
			case <-ctx.Done():
				return &InventoryWarning{VariantID: variantID, MethodID: methodID, Reason: constants.InventoryWarningConflict, Requested: quantity, Detail: ctx.Err().Error()}
			case <-time.After(s.casBackoff * time.Duration(attempt+1)):
			}
		}
	}
	return &InventoryWarning{VariantID: variantID, MethodID: methodID, Reason: constants.InventoryWarningConflict, Requested: quantity}
}

// ReconcileInventory 重试可恢复的库存告警，返回已处理数量
func (s *OrderService) ReconcileInventory(ctx context.Context, orderID uint) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	warnings, err := s.inventoryRepo.ListUnresolvedWarnings(orderID)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, w := range warnings {
		if w.Reason != constants.InventoryWarningConflict && w.Reason != constants.InventoryWarningUpdateFailed {
			logger.Warnw("inventory_warning_requires_review",
				"warning_id", w.ID,
				"order_id", w.OrderID,
				"variant_id", w.VariantID,
				"reason", w.Reason,
			)
			continue
		}
		warningID := w.ID
		var retryWarning *InventoryWarning
		err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			retryWarning = s.reserveStock(ctx, tx, w.VariantID, w.MethodID, w.Requested)
			if retryWarning != nil {
				return nil
			}
			_, err := s.inventoryRepo.WithTx(tx).MarkWarningResolved(warningID, time.Now())
			return err
		})
		if err != nil {
			return resolved, err
		}
		if retryWarning != nil {
			logger.Warnw("inventory_reconcile_retry_failed",
				"warning_id", warningID,
				"order_id", w.OrderID,
				"reason", retryWarning.Reason,
			)
			continue
		}
		resolved++
		logger.Infow("inventory_warning_resolved", "warning_id", warningID, "order_id", w.OrderID)
	}
	return resolved, nil
}

// NotifyOrderCreated 发送下单确认邮件；邮件未启用时直接跳过
func (s *OrderService) NotifyOrderCreated(_ context.Context, orderID uint, locale string) error {
	if !s.emailService.Enabled() {
		return nil
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("order_notify_missing", "order_id", orderID)
		return nil
	}
	if strings.TrimSpace(locale) == "" {
		locale = order.Locale
	}
	if err := s.emailService.SendOrderConfirmation(order, locale); err != nil {
		if errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrEmailRecipientRejected) {
			logger.Warnw("order_notify_recipient_invalid", "order_id", orderID, "error", err)
			return nil
		}
		return err
	}
	logger.Infow("order_notify_sent", "order_id", orderID, "order_no", order.OrderNo)
	return nil
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrPersistence
	}
	return order, nil
}

func validateCreateOrderInput(input *CreateOrderInput) (uint, error) {
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	input.CustomerAddress = strings.TrimSpace(input.CustomerAddress)
	if input.CustomerName == "" {
		return 0, invalidField("customer_name", "is required")
	}
	if input.CustomerEmail == "" {
		return 0, invalidField("customer_email", "is required")
	}
	if _, err := mail.ParseAddress(input.CustomerEmail); err != nil {
		return 0, invalidField("customer_email", "is invalid")
	}
	if input.CustomerPhone == "" {
		return 0, invalidField("customer_phone", "is required")
	}
	if strings.TrimSpace(input.DeliveryMethod) == "" {
		return 0, invalidField("delivery_method", "is required")
	}
	if !input.TotalAmount.Decimal.IsPositive() {
		return 0, invalidField("total_amount", "must be positive")
	}
	if len(input.Items) == 0 {
		return 0, invalidField("items", "must not be empty")
	}
	for i, item := range input.Items {
		if item.ProductID == 0 && item.VariantID == 0 {
			return 0, invalidField(fmt.Sprintf("items[%d]", i), "requires product_id or variant_id")
		}
		if item.Quantity <= 0 {
			return 0, invalidField(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.Price.Decimal.IsNegative() {
			return 0, invalidField(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	return ResolveDeliveryMethodID(input.DeliveryMethod)
}

func (s *OrderService) resolveItems(items []CreateOrderItem) ([]resolvedOrderItem, error) {
	resolved := make([]resolvedOrderItem, 0, len(items))
	for _, item := range items {
		if item.VariantID != 0 {
			variant, err := s.productRepo.GetVariantByID(item.VariantID)
			if err != nil {
				logger.Errorw("order_variant_fetch_failed", "variant_id", item.VariantID, "error", err)
				return nil, ErrProductFetchFailed
			}
			if variant == nil || (item.ProductID != 0 && variant.ProductID != item.ProductID) {
				return nil, ErrInvalidOrderItem
			}
			resolved = append(resolved, resolvedOrderItem{input: item, variant: variant})
			continue
		}
		variants, err := s.productRepo.ListVariantsByProduct(item.ProductID)
		if err != nil {
			logger.Errorw("order_variant_fetch_failed", "product_id", item.ProductID, "error", err)
			return nil, ErrProductFetchFailed
		}
		if len(variants) != 1 {
			return nil, ErrInvalidOrderItem
		}
		resolved = append(resolved, resolvedOrderItem{input: item, variant: &variants[0]})
	}
	return resolved, nil
}

func buildOrderItems(items []resolvedOrderItem, now time.Time) ([]models.OrderItem, decimal.Decimal) {
	rows := make([]models.OrderItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		productName := ""
		if item.variant.Product != nil {
			productName = item.variant.Product.Name
		}
		price := models.NewMoneyFromDecimal(item.input.Price.Decimal)
		subtotal := price.Mul(item.input.Quantity)
		total = total.Add(subtotal.Decimal)
		rows = append(rows, models.OrderItem{
			ProductID:       item.variant.ProductID,
			VariantID:       item.variant.ID,
			ProductName:     productName,
			SKUSnapshot:     skuSnapshot(item.variant.SKU, item.input.OptionLabel, productName),
			Quantity:        item.input.Quantity,
			PriceAtPurchase: price,
			Subtotal:        subtotal,
			CreatedAt:       now,
		})
	}
	return rows, total.Round(2)
}

func skuSnapshot(sku, optionLabel, productName string) string {
	for _, candidate := range []string{sku, optionLabel, productName} {
		if v := strings.TrimSpace(candidate); v != "" {
			return truncate(v, 255)
		}
	}
	return ""
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("TU%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
