package service

import (
	"context"
	"errors"
	"strings"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/metrics"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/payment/easypay"

	"github.com/shopspring/decimal"
)

const defaultEasyPayGoodsName = "상품"

// RegisterEasyPayInput EasyPay 交易登记输入
type RegisterEasyPayInput struct {
	Amount    models.Money
	GoodsName string
	UserAgent string
}

// RegisterEasyPayResult EasyPay 交易登记结果
type RegisterEasyPayResult struct {
	PaymentID   uint         `json:"payment_id"`
	ShopOrderNo string       `json:"shop_order_no"`
	AuthPageURL string       `json:"auth_page_url"`
	Amount      models.Money `json:"amount"`
}

// VerifyEasyPayInput EasyPay 承认输入
type VerifyEasyPayInput struct {
	ShopOrderNo     string
	Amount          models.Money
	AuthorizationID string
}

// EasyPayVerifyResult EasyPay 承认结果
type EasyPayVerifyResult struct {
	PaymentID         uint         `json:"payment_id"`
	ShopOrderNo       string       `json:"shop_order_no"`
	ProviderPaymentID string       `json:"provider_payment_id"`
	Amount            models.Money `json:"amount"`
	AuthDate          string       `json:"auth_date"`
	AuthTime          string       `json:"auth_time"`
	MethodType        string       `json:"method_type"`
	MethodName        string       `json:"method_name"`
	Status            string       `json:"status"`
}

// RegisterEasyPay 登记交易并返回托管支付页地址
func (s *PaymentService) RegisterEasyPay(ctx context.Context, input RegisterEasyPayInput) (*RegisterEasyPayResult, error) {
	if !input.Amount.Decimal.IsPositive() {
		return nil, ErrPaymentAmountInvalid
	}
	if !input.Amount.Decimal.Equal(input.Amount.Decimal.Truncate(0)) {
		return nil, ErrPaymentAmountInvalid
	}
	cfg := s.easypayConfig()
	if err := easypay.ValidateConfig(cfg, false); err != nil {
		paymentLogger("provider", constants.PaymentProviderEasyPay).Errorw("payment_easypay_config_invalid", "error", err)
		return nil, ErrGatewayConfig
	}

	goodsName := strings.TrimSpace(input.GoodsName)
	if goodsName == "" {
		goodsName = defaultEasyPayGoodsName
	}
	payment := &models.Payment{
		Provider:  constants.PaymentProviderEasyPay,
		Amount:    models.NewMoneyFromDecimal(input.Amount.Decimal),
		Currency:  constants.CurrencyKRW,
		Status:    constants.PaymentStatusRegistered,
		GoodsName: goodsName,
	}
	if err := s.createWithUniqueShopOrderNo(payment, ""); err != nil {
		paymentLogger("provider", constants.PaymentProviderEasyPay).Errorw("payment_easypay_persist_failed", "error", err)
		return nil, ErrPersistence
	}
	log := paymentLogger("payment_id", payment.ID, "shop_order_no", payment.ShopOrderNo)

	result, err := easypay.Register(ctx, cfg, easypay.RegisterInput{
		ShopOrderNo: payment.ShopOrderNo,
		Amount:      input.Amount.Decimal.IntPart(),
		GoodsName:   goodsName,
		DeviceType:  easypay.DetectDeviceType(input.UserAgent),
	})
	if err != nil {
		code, message := "", err.Error()
		var rejectErr *easypay.RejectError
		if errors.As(err, &rejectErr) {
			code, message = rejectErr.Code, rejectErr.Message
		}
		if _, markErr := s.paymentRepo.TransitionStatus(payment.ID,
			[]string{constants.PaymentStatusRegistered},
			constants.PaymentStatusFailed,
			map[string]interface{}{"result_code": code, "result_message": truncate(message, 512)},
		); markErr != nil {
			log.Errorw("payment_easypay_mark_failed_failed", "error", markErr)
		}
		metrics.ObservePayment(constants.PaymentProviderEasyPay, "register", "failed")
		log.Warnw("payment_easypay_register_failed", "code", code, "error", err)
		if rejectErr != nil {
			return nil, &GatewayRejectedError{Provider: constants.PaymentProviderEasyPay, Code: code, Message: message}
		}
		if errors.Is(err, easypay.ErrConfigInvalid) {
			return nil, ErrGatewayConfig
		}
		return nil, ErrGatewayUnavailable
	}

	payment.AuthPageURL = result.AuthPageURL
	payment.ResultCode = result.Code
	payment.ResultMessage = truncate(result.Message, 512)
	payment.ProviderPayload = cloneRaw(result.Raw)
	if err := s.paymentRepo.Update(payment); err != nil {
		log.Errorw("payment_easypay_update_failed", "error", err)
		return nil, ErrPersistence
	}
	metrics.ObservePayment(constants.PaymentProviderEasyPay, "register", "ok")
	log.Infow("payment_easypay_registered")

	return &RegisterEasyPayResult{
		PaymentID:   payment.ID,
		ShopOrderNo: payment.ShopOrderNo,
		AuthPageURL: payment.AuthPageURL,
		Amount:      payment.Amount,
	}, nil
}

// HandleEasyPayCallback 记录回调字段，回调本身不代表支付成功
func (s *PaymentService) HandleEasyPayCallback(_ context.Context, payload easypay.CallbackPayload) (*models.Payment, error) {
	shopOrderNo := strings.TrimSpace(payload.ShopOrderNo)
	if shopOrderNo == "" {
		return nil, ErrPaymentNotFound
	}
	payment, err := s.paymentRepo.GetByShopOrderNo(shopOrderNo)
	if err != nil {
		return nil, ErrPersistence
	}
	if payment == nil {
		paymentLogger("shop_order_no", shopOrderNo).Warnw("payment_easypay_callback_unknown_order")
		return nil, ErrPaymentNotFound
	}
	if payment.Provider != constants.PaymentProviderEasyPay {
		return nil, ErrPaymentProviderMismatch
	}

	now := s.now()
	updates := map[string]interface{}{
		"callback_at":    now,
		"result_code":    payload.ResCd,
		"result_message": truncate(payload.ResMsg, 512),
	}
	if id := strings.TrimSpace(payload.AuthorizationID); id != "" {
		updates["authorization_id"] = id
	}
	// 仅在读取时的状态仍为 registered / failed 时写入回调字段，状态保持不变
	if payment.Status != constants.PaymentStatusRegistered && payment.Status != constants.PaymentStatusFailed {
		paymentLogger("payment_id", payment.ID, "status", payment.Status).Infow("payment_easypay_callback_ignored")
		return payment, nil
	}
	ok, err := s.paymentRepo.TransitionStatus(payment.ID,
		[]string{payment.Status},
		payment.Status,
		updates,
	)
	if err != nil {
		return nil, ErrPersistence
	}
	if !ok {
		paymentLogger("payment_id", payment.ID, "status", payment.Status).Infow("payment_easypay_callback_ignored")
		return payment, nil
	}
	paymentLogger("payment_id", payment.ID, "res_cd", payload.ResCd).Infow("payment_easypay_callback_recorded")
	metrics.ObservePayment(constants.PaymentProviderEasyPay, "callback", resultLabel(payload.Succeeded()))

	payment.CallbackAt = &now
	payment.ResultCode = payload.ResCd
	payment.ResultMessage = payload.ResMsg
	if id, ok := updates["authorization_id"].(string); ok {
		payment.AuthorizationID = id
	}
	return payment, nil
}

// VerifyEasyPay 承认交易，重复调用返回已保存的结果
func (s *PaymentService) VerifyEasyPay(ctx context.Context, input VerifyEasyPayInput) (*EasyPayVerifyResult, error) {
	shopOrderNo := strings.TrimSpace(input.ShopOrderNo)
	if shopOrderNo == "" {
		return nil, invalidField("shop_order_no", "is required")
	}
	payment, err := s.paymentRepo.GetByShopOrderNo(shopOrderNo)
	if err != nil {
		return nil, ErrPersistence
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Provider != constants.PaymentProviderEasyPay {
		return nil, ErrPaymentProviderMismatch
	}
	if !payment.Amount.EqualAmount(input.Amount) {
		return nil, ErrPaymentAmountMismatch
	}
	if payment.Status == constants.PaymentStatusApproved {
		return easyPayResultFromPayment(payment), nil
	}
	if payment.Status == constants.PaymentStatusExpired {
		return nil, ErrPaymentExpired
	}

	authorizationID := strings.TrimSpace(input.AuthorizationID)
	if authorizationID == "" {
		authorizationID = strings.TrimSpace(payment.AuthorizationID)
	}
	if authorizationID == "" {
		return nil, invalidField("authorization_id", "is required")
	}

	cfg := s.easypayConfig()
	if err := easypay.ValidateConfig(cfg, true); err != nil {
		return nil, ErrGatewayConfig
	}

	log := paymentLogger("payment_id", payment.ID, "shop_order_no", shopOrderNo)
	resumed, current, err := s.claimVerification(payment.ID,
		[]string{constants.PaymentStatusRegistered, constants.PaymentStatusFailed},
		map[string]interface{}{"authorization_id": authorizationID},
	)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if current.Status == constants.PaymentStatusApproved {
			return easyPayResultFromPayment(current), nil
		}
		return nil, unclaimedError(current)
	}

	verifyInput := easypay.VerifyInput{
		ShopOrderNo:     shopOrderNo,
		AuthorizationID: authorizationID,
		Now:             s.now(),
	}
	var approval *easypay.ApprovalResult
	if resumed {
		// 中断的确认可能已在网关侧完成，先查询，未查到承认结果再重新承认
		log.Warnw("payment_easypay_verify_resumed")
		approval, err = easypay.Query(ctx, cfg, shopOrderNo)
		var rejectErr *easypay.RejectError
		if errors.As(err, &rejectErr) {
			approval, err = easypay.Verify(ctx, cfg, verifyInput)
		}
	} else {
		approval, err = easypay.Verify(ctx, cfg, verifyInput)
	}
	if err != nil {
		return nil, s.failEasyPayVerify(payment, err)
	}

	if amount := strings.TrimSpace(approval.Amount); amount != "" {
		approved, parseErr := decimal.NewFromString(amount)
		if parseErr != nil || !approved.Equal(payment.Amount.Decimal) {
			s.markVerifyFailed(payment.ID, "AMOUNT", "approved amount "+amount)
			log.Errorw("payment_easypay_amount_mismatch", "approved_amount", amount, "registered_amount", payment.Amount.String())
			return nil, ErrPaymentAmountMismatch
		}
	}

	now := s.now()
	ok, err := s.paymentRepo.TransitionStatus(payment.ID,
		[]string{constants.PaymentStatusVerifying},
		constants.PaymentStatusApproved,
		map[string]interface{}{
			"provider_ref":     approval.PaymentID,
			"transaction_ref":  approval.PaymentID,
			"result_code":      approval.Code,
			"result_message":   truncate(approval.Message, 512),
			"auth_date":        approval.AuthDate,
			"auth_time":        approval.AuthTime,
			"method_type":      approval.PayMethodType,
			"method_name":      approval.PayMethodTypeName,
			"provider_payload": cloneRaw(approval.Raw),
			"approved_at":      now,
		},
	)
	if err != nil || !ok {
		log.Errorw("payment_easypay_persist_approval_failed", "error", err, "applied", ok)
		return nil, ErrPersistence
	}
	metrics.ObservePayment(constants.PaymentProviderEasyPay, "verify", "approved")
	log.Infow("payment_easypay_approved", "source", approval.Source, "provider_payment_id", approval.PaymentID)

	current, err = s.paymentRepo.GetByID(payment.ID)
	if err != nil || current == nil {
		return nil, ErrPersistence
	}
	return easyPayResultFromPayment(current), nil
}

// QueryEasyPay 查询网关侧交易状态
func (s *PaymentService) QueryEasyPay(ctx context.Context, shopOrderNo string) (*easypay.ApprovalResult, error) {
	shopOrderNo = strings.TrimSpace(shopOrderNo)
	if shopOrderNo == "" {
		return nil, invalidField("shop_order_no", "is required")
	}
	result, err := easypay.Query(ctx, s.easypayConfig(), shopOrderNo)
	if err != nil {
		var rejectErr *easypay.RejectError
		switch {
		case errors.As(err, &rejectErr):
			return nil, &GatewayRejectedError{Provider: constants.PaymentProviderEasyPay, Code: rejectErr.Code, Message: rejectErr.Message}
		case errors.Is(err, easypay.ErrConfigInvalid):
			return nil, ErrGatewayConfig
		default:
			return nil, ErrGatewayUnavailable
		}
	}
	return result, nil
}

func (s *PaymentService) failEasyPayVerify(payment *models.Payment, err error) error {
	log := paymentLogger("payment_id", payment.ID, "shop_order_no", payment.ShopOrderNo)
	var rejectErr *easypay.RejectError
	if errors.As(err, &rejectErr) {
		s.markVerifyFailed(payment.ID, rejectErr.Code, rejectErr.Message)
		metrics.ObservePayment(constants.PaymentProviderEasyPay, "verify", "rejected")
		log.Warnw("payment_easypay_rejected", "code", rejectErr.Code, "message", rejectErr.Message)
		return &PaymentRejectedError{Provider: constants.PaymentProviderEasyPay, Code: rejectErr.Code, Message: rejectErr.Message}
	}

	// 网络或配置错误：释放占用，允许重试
	if _, revertErr := s.paymentRepo.TransitionStatus(payment.ID,
		[]string{constants.PaymentStatusVerifying},
		constants.PaymentStatusRegistered,
		nil,
	); revertErr != nil {
		log.Errorw("payment_easypay_revert_failed", "error", revertErr)
	}
	metrics.ObservePayment(constants.PaymentProviderEasyPay, "verify", "error")
	log.Errorw("payment_easypay_verify_failed", "error", err)
	if errors.Is(err, easypay.ErrConfigInvalid) {
		return ErrGatewayConfig
	}
	return ErrGatewayUnavailable
}

func (s *PaymentService) markVerifyFailed(paymentID uint, code, message string) {
	if _, err := s.paymentRepo.TransitionStatus(paymentID,
		[]string{constants.PaymentStatusVerifying},
		constants.PaymentStatusFailed,
		map[string]interface{}{"result_code": code, "result_message": truncate(message, 512)},
	); err != nil {
		paymentLogger("payment_id", paymentID).Errorw("payment_mark_failed_failed", "error", err)
	}
}

func easyPayResultFromPayment(payment *models.Payment) *EasyPayVerifyResult {
	return &EasyPayVerifyResult{
		PaymentID:         payment.ID,
		ShopOrderNo:       payment.ShopOrderNo,
		ProviderPaymentID: payment.ProviderRef,
		Amount:            payment.Amount,
		AuthDate:          payment.AuthDate,
		AuthTime:          payment.AuthTime,
		MethodType:        payment.MethodType,
		MethodName:        payment.MethodName,
		Status:            payment.Status,
	}
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
