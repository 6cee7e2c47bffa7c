package service

import (
	"context"
	"errors"
	"strings"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/metrics"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/payment/paypal"

	"github.com/shopspring/decimal"
)

const paypalShopOrderPrefix = "PP"

// CreatePayPalOrderInput 创建 PayPal 订单输入
type CreatePayPalOrderInput struct {
	Amount    models.Money
	Currency  string
	GoodsName string
	ReturnURL string
	CancelURL string
}

// PayPalOrderResult 创建 PayPal 订单结果
type PayPalOrderResult struct {
	PaymentID   uint         `json:"payment_id"`
	ShopOrderNo string       `json:"shop_order_no"`
	OrderID     string       `json:"order_id"`
	ApprovalURL string       `json:"approval_url,omitempty"`
	Status      string       `json:"status"`
	Amount      models.Money `json:"amount"`
	Currency    string       `json:"currency"`
}

// PayPalCaptureResult PayPal 捕获结果
type PayPalCaptureResult struct {
	PaymentID     uint         `json:"payment_id"`
	ShopOrderNo   string       `json:"shop_order_no"`
	OrderID       string       `json:"order_id"`
	TransactionID string       `json:"transaction_id"`
	Status        string       `json:"status"`
	Amount        models.Money `json:"amount"`
	Currency      string       `json:"currency"`
}

// CreatePayPalOrder 创建 PayPal 订单并保存支付记录
func (s *PaymentService) CreatePayPalOrder(ctx context.Context, input CreatePayPalOrderInput) (*PayPalOrderResult, error) {
	if !input.Amount.Decimal.IsPositive() {
		return nil, ErrPaymentAmountInvalid
	}
	cfg := s.paypalConfig()
	if err := paypal.ValidateConfig(cfg); err != nil {
		paymentLogger("provider", constants.PaymentProviderPaypal).Errorw("payment_paypal_config_invalid", "error", err)
		return nil, ErrGatewayConfig
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = strings.ToUpper(strings.TrimSpace(s.paypalCfg.Currency))
	}
	if currency == "" {
		currency = constants.CurrencyUSD
	}

	payment := &models.Payment{
		Provider:  constants.PaymentProviderPaypal,
		Amount:    models.NewMoneyFromDecimal(input.Amount.Decimal),
		Currency:  currency,
		Status:    constants.PaymentStatusCreated,
		GoodsName: strings.TrimSpace(input.GoodsName),
	}
	if err := s.createWithUniqueShopOrderNo(payment, paypalShopOrderPrefix); err != nil {
		paymentLogger("provider", constants.PaymentProviderPaypal).Errorw("payment_paypal_persist_failed", "error", err)
		return nil, ErrPersistence
	}
	log := paymentLogger("payment_id", payment.ID, "shop_order_no", payment.ShopOrderNo)

	result, err := paypal.CreateOrder(ctx, cfg, paypal.CreateInput{
		InvoiceID:   payment.ShopOrderNo,
		CustomID:    payment.ShopOrderNo,
		Amount:      payment.Amount.StringFixed(2),
		Currency:    currency,
		Description: payment.GoodsName,
		ReturnURL:   input.ReturnURL,
		CancelURL:   input.CancelURL,
	})
	if err != nil {
		if _, markErr := s.paymentRepo.TransitionStatus(payment.ID,
			[]string{constants.PaymentStatusCreated},
			constants.PaymentStatusFailed,
			map[string]interface{}{"result_message": truncate(err.Error(), 512)},
		); markErr != nil {
			log.Errorw("payment_paypal_mark_failed_failed", "error", markErr)
		}
		metrics.ObservePayment(constants.PaymentProviderPaypal, "create", "failed")
		log.Warnw("payment_paypal_create_failed", "error", err)
		return nil, mapPayPalError(err)
	}

	payment.ProviderRef = result.OrderID
	payment.AuthPageURL = result.ApprovalURL
	payment.ResultCode = result.Status
	payment.ProviderPayload = cloneRaw(result.Raw)
	if err := s.paymentRepo.Update(payment); err != nil {
		log.Errorw("payment_paypal_update_failed", "error", err)
		return nil, ErrPersistence
	}
	metrics.ObservePayment(constants.PaymentProviderPaypal, "create", "ok")
	log.Infow("payment_paypal_order_created", "paypal_order_id", result.OrderID)

	return &PayPalOrderResult{
		PaymentID:   payment.ID,
		ShopOrderNo: payment.ShopOrderNo,
		OrderID:     result.OrderID,
		ApprovalURL: result.ApprovalURL,
		Status:      result.Status,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
	}, nil
}

// CapturePayPalOrder 捕获 PayPal 订单，已捕获时返回保存的结果
func (s *PaymentService) CapturePayPalOrder(ctx context.Context, orderID string) (*PayPalCaptureResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, invalidField("order_id", "is required")
	}
	payment, err := s.paymentRepo.GetByProviderRef(constants.PaymentProviderPaypal, orderID)
	if err != nil {
		return nil, ErrPersistence
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status == constants.PaymentStatusCaptured {
		return paypalResultFromPayment(payment), nil
	}
	if payment.Status == constants.PaymentStatusExpired {
		return nil, ErrPaymentExpired
	}

	cfg := s.paypalConfig()
	if err := paypal.ValidateConfig(cfg); err != nil {
		return nil, ErrGatewayConfig
	}

	log := paymentLogger("payment_id", payment.ID, "paypal_order_id", orderID)
	resumed, current, err := s.claimVerification(payment.ID,
		[]string{constants.PaymentStatusCreated, constants.PaymentStatusFailed},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if current.Status == constants.PaymentStatusCaptured {
			return paypalResultFromPayment(current), nil
		}
		return nil, unclaimedError(current)
	}
	if resumed {
		// PayPal-Request-Id 固定，重复捕获由网关幂等保护
		log.Warnw("payment_paypal_capture_resumed")
	}

	capture, err := paypal.CaptureOrder(ctx, cfg, orderID)
	if errors.Is(err, paypal.ErrAlreadyCaptured) {
		log.Infow("payment_paypal_already_captured")
		capture, err = paypal.GetOrder(ctx, cfg, orderID)
	}
	if err != nil {
		return nil, s.failPayPalCapture(payment, err)
	}

	if !capture.Completed() {
		s.markVerifyFailed(payment.ID, capture.Status, "capture not completed")
		metrics.ObservePayment(constants.PaymentProviderPaypal, "capture", "rejected")
		log.Warnw("payment_paypal_capture_not_completed", "status", capture.Status)
		return nil, &PaymentRejectedError{Provider: constants.PaymentProviderPaypal, Code: capture.Status, Message: "capture not completed"}
	}
	if amount := strings.TrimSpace(capture.Amount); amount != "" {
		captured, parseErr := decimal.NewFromString(amount)
		if parseErr != nil || !captured.Equal(payment.Amount.Decimal) {
			s.markVerifyFailed(payment.ID, "AMOUNT", "captured amount "+amount)
			log.Errorw("payment_paypal_amount_mismatch", "captured_amount", amount, "expected_amount", payment.Amount.String())
			return nil, ErrPaymentAmountMismatch
		}
	}

	now := s.now()
	if capture.PaidAt != nil {
		now = *capture.PaidAt
	}
	ok, err := s.paymentRepo.TransitionStatus(payment.ID,
		[]string{constants.PaymentStatusVerifying},
		constants.PaymentStatusCaptured,
		map[string]interface{}{
			"transaction_ref":  capture.TransactionID,
			"result_code":      capture.Status,
			"result_message":   capture.CaptureStatus,
			"provider_payload": cloneRaw(capture.Raw),
			"approved_at":      now,
		},
	)
	if err != nil || !ok {
		log.Errorw("payment_paypal_persist_capture_failed", "error", err, "applied", ok)
		return nil, ErrPersistence
	}
	metrics.ObservePayment(constants.PaymentProviderPaypal, "capture", "captured")
	log.Infow("payment_paypal_captured", "transaction_id", capture.TransactionID)

	current, err = s.paymentRepo.GetByID(payment.ID)
	if err != nil || current == nil {
		return nil, ErrPersistence
	}
	return paypalResultFromPayment(current), nil
}

func (s *PaymentService) failPayPalCapture(payment *models.Payment, err error) error {
	log := paymentLogger("payment_id", payment.ID, "paypal_order_id", payment.ProviderRef)
	switch {
	case errors.Is(err, paypal.ErrOrderNotApproved):
		s.revertCapture(payment.ID)
		metrics.ObservePayment(constants.PaymentProviderPaypal, "capture", "rejected")
		log.Warnw("payment_paypal_order_not_approved")
		return &PaymentRejectedError{Provider: constants.PaymentProviderPaypal, Code: "ORDER_NOT_APPROVED", Message: "buyer has not approved the order"}
	case errors.Is(err, paypal.ErrResponseInvalid):
		s.markVerifyFailed(payment.ID, "RESPONSE_INVALID", err.Error())
		metrics.ObservePayment(constants.PaymentProviderPaypal, "capture", "rejected")
		log.Warnw("payment_paypal_capture_rejected", "error", err)
		return &PaymentRejectedError{Provider: constants.PaymentProviderPaypal, Code: "CAPTURE_FAILED", Message: err.Error()}
	default:
		s.revertCapture(payment.ID)
		metrics.ObservePayment(constants.PaymentProviderPaypal, "capture", "error")
		log.Errorw("payment_paypal_capture_failed", "error", err)
		return mapPayPalError(err)
	}
}

func (s *PaymentService) revertCapture(paymentID uint) {
	if _, err := s.paymentRepo.TransitionStatus(paymentID,
		[]string{constants.PaymentStatusVerifying},
		constants.PaymentStatusCreated,
		nil,
	); err != nil {
		paymentLogger("payment_id", paymentID).Errorw("payment_paypal_revert_failed", "error", err)
	}
}

func mapPayPalError(err error) error {
	switch {
	case errors.Is(err, paypal.ErrConfigInvalid), errors.Is(err, paypal.ErrAuthFailed):
		return ErrGatewayConfig
	case errors.Is(err, paypal.ErrResponseInvalid):
		return &GatewayRejectedError{Provider: constants.PaymentProviderPaypal, Code: "RESPONSE_INVALID", Message: err.Error()}
	default:
		return ErrGatewayUnavailable
	}
}

func paypalResultFromPayment(payment *models.Payment) *PayPalCaptureResult {
	return &PayPalCaptureResult{
		PaymentID:     payment.ID,
		ShopOrderNo:   payment.ShopOrderNo,
		OrderID:       payment.ProviderRef,
		TransactionID: payment.TransactionRef,
		Status:        payment.Status,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
	}
}
