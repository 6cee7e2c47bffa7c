package service

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/payment/easypay"
	"github.com/theunion-shop/internal/payment/paypal"
	"github.com/theunion-shop/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxShopOrderNoAttempts = 3
	defaultVerifyLease     = 5 * time.Minute
)

// PaymentService 支付服务（EasyPay / PayPal）
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	easypayCfg  config.EasyPayConfig
	paypalCfg   config.PaypalConfig
	httpClient  *http.Client
	verifyLease time.Duration
	now         func() time.Time
}

// NewPaymentService 创建支付服务
func NewPaymentService(cfg *config.PaymentConfig, paymentRepo repository.PaymentRepository) *PaymentService {
	s := &PaymentService{
		paymentRepo: paymentRepo,
		verifyLease: defaultVerifyLease,
		now:         time.Now,
	}
	if cfg != nil {
		s.easypayCfg = cfg.EasyPay
		s.paypalCfg = cfg.Paypal
		if cfg.VerifyLeaseSeconds > 0 {
			s.verifyLease = time.Duration(cfg.VerifyLeaseSeconds) * time.Second
		}
	}
	return s
}

// SetHTTPClient 替换网关请求使用的 HTTP 客户端
func (s *PaymentService) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

// EasyPayFrontendCallbackURL 前端回调页地址
func (s *PaymentService) EasyPayFrontendCallbackURL() string {
	return strings.TrimSpace(s.easypayCfg.FrontendCallbackURL)
}

// GetPaymentByShopOrderNo 按商户订单号查询支付
func (s *PaymentService) GetPaymentByShopOrderNo(shopOrderNo string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByShopOrderNo(shopOrderNo)
	if err != nil {
		return nil, ErrPersistence
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) easypayConfig() *easypay.Config {
	return &easypay.Config{
		MallID:            s.easypayCfg.MallID,
		APIKey:            s.easypayCfg.APIKey,
		APIURL:            s.easypayCfg.APIURL,
		ReturnURL:         s.easypayCfg.ReturnURL,
		PayMethodTypeCode: s.easypayCfg.PayMethodTypeCode,
		Timeout:           time.Duration(s.easypayCfg.TimeoutSeconds) * time.Second,
		HTTPClient:        s.httpClient,
	}
}

func (s *PaymentService) paypalConfig() *paypal.Config {
	cfg := &paypal.Config{
		ClientID:     s.paypalCfg.ClientID,
		ClientSecret: s.paypalCfg.ClientSecret,
		BaseURL:      s.paypalCfg.BaseURL,
		ReturnURL:    s.paypalCfg.ReturnURL,
		CancelURL:    s.paypalCfg.CancelURL,
		BrandName:    s.paypalCfg.BrandName,
		Timeout:      time.Duration(s.paypalCfg.TimeoutSeconds) * time.Second,
		HTTPClient:   s.httpClient,
	}
	if tokenCache := cache.NewPaypalTokenCache(); tokenCache != nil {
		cfg.TokenCache = tokenCache
	}
	return cfg
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// createWithUniqueShopOrderNo 写入支付记录，商户订单号冲突时重新生成
func (s *PaymentService) createWithUniqueShopOrderNo(payment *models.Payment, prefix string) error {
	var lastErr error
	for attempt := 0; attempt < maxShopOrderNoAttempts; attempt++ {
		ref, err := easypay.NewShopOrderNo(s.now())
		if err != nil {
			return err
		}
		payment.ID = 0
		payment.ShopOrderNo = prefix + ref
		err = s.paymentRepo.Create(payment)
		if err == nil {
			return nil
		}
		if !isDuplicateKeyError(err) {
			return err
		}
		lastErr = err
		paymentLogger("shop_order_no", payment.ShopOrderNo, "attempt", attempt+1).
			Warnw("payment_shop_order_no_collision")
	}
	return lastErr
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "duplicate entry")
}

func cloneRaw(raw map[string]interface{}) models.JSON {
	if raw == nil {
		return models.JSON{}
	}
	out := make(models.JSON, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// claimVerification 将支付记录占用为 verifying，保证同一笔支付同时只有一个确认流程。
// 停留在 verifying 超过租约的记录视为确认流程中断，可被重新占用，此时 resumed 为 true。
// 未能占用时返回最新记录 current，由调用方按其状态响应。
func (s *PaymentService) claimVerification(paymentID uint, from []string, updates map[string]interface{}) (resumed bool, current *models.Payment, err error) {
	claimed, err := s.paymentRepo.TransitionStatus(paymentID, from, constants.PaymentStatusVerifying, updates)
	if err != nil {
		return false, nil, ErrPersistence
	}
	if claimed {
		return false, nil, nil
	}
	current, err = s.paymentRepo.GetByID(paymentID)
	if err != nil || current == nil {
		return false, nil, ErrPersistence
	}
	if current.Status != constants.PaymentStatusVerifying {
		return false, current, nil
	}
	staleBefore := s.now().Add(-s.verifyLease)
	if !current.UpdatedAt.Before(staleBefore) {
		return false, current, nil
	}
	reclaimed, err := s.paymentRepo.ReclaimStale(paymentID, constants.PaymentStatusVerifying, staleBefore, updates)
	if err != nil {
		return false, nil, ErrPersistence
	}
	if !reclaimed {
		return false, current, nil
	}
	paymentLogger("payment_id", paymentID, "stale_since", current.UpdatedAt).Warnw("payment_verify_lease_reclaimed")
	return true, nil, nil
}

// unclaimedError 未占用到确认流程时的错误
func unclaimedError(current *models.Payment) error {
	if current != nil && current.Status == constants.PaymentStatusExpired {
		return ErrPaymentExpired
	}
	return ErrPaymentInProgress
}

// isPaidStatus 支付是否已确认
func isPaidStatus(payment *models.Payment) bool {
	if payment == nil {
		return false
	}
	switch payment.Provider {
	case constants.PaymentProviderEasyPay:
		return payment.Status == constants.PaymentStatusApproved
	case constants.PaymentProviderPaypal:
		return payment.Status == constants.PaymentStatusCaptured
	}
	return false
}

// ExpireStalePayments 将未完成且未绑定订单的过期支付置为 expired。
// verifying 记录不在此列，它们可能已在网关侧扣款，由租约接管继续确认。
func (s *PaymentService) ExpireStalePayments(maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	before := s.now().Add(-maxAge)
	affected, err := s.paymentRepo.ExpireStale(
		[]string{constants.PaymentStatusRegistered, constants.PaymentStatusCreated, constants.PaymentStatusFailed},
		before,
		constants.PaymentStatusExpired,
	)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		paymentLogger("before", before, "count", affected).Infow("payment_stale_expired")
	}
	return affected, nil
}
