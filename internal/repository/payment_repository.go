package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/theunion-shop/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByShopOrderNo(shopOrderNo string) (*models.Payment, error)
	GetByProviderRef(provider, providerRef string) (*models.Payment, error)
	TransitionStatus(id uint, from []string, to string, updates map[string]interface{}) (bool, error)
	ReclaimStale(id uint, status string, staleBefore time.Time, updates map[string]interface{}) (bool, error)
	BindOrder(paymentID, orderID uint) (bool, error)
	ExpireStale(statuses []string, before time.Time, to string) (int64, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付记录
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByShopOrderNo 根据商户订单号获取支付记录
func (r *GormPaymentRepository) GetByShopOrderNo(shopOrderNo string) (*models.Payment, error) {
	shopOrderNo = strings.TrimSpace(shopOrderNo)
	if shopOrderNo == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("shop_order_no = ?", shopOrderNo).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// GetByProviderRef 根据提供方与第三方单号获取最新支付记录
func (r *GormPaymentRepository) GetByProviderRef(provider, providerRef string) (*models.Payment, error) {
	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return nil, nil
	}
	var payment models.Payment
	result := r.db.Where("provider = ? AND provider_ref = ?", provider, providerRef).Order("id desc").Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// TransitionStatus 条件状态迁移：仅当当前状态属于 from 时写入 to
func (r *GormPaymentRepository) TransitionStatus(id uint, from []string, to string, updates map[string]interface{}) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	values := map[string]interface{}{}
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to
	values["updated_at"] = time.Now()
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReclaimStale 接管停留在 status 且最后更新早于 staleBefore 的记录，同时刷新 updated_at
func (r *GormPaymentRepository) ReclaimStale(id uint, status string, staleBefore time.Time, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{}
	for k, v := range updates {
		values[k] = v
	}
	values["updated_at"] = time.Now()
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ? AND updated_at < ?", id, status, staleBefore).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// BindOrder 绑定订单，已绑定的支付记录不会被覆盖
func (r *GormPaymentRepository) BindOrder(paymentID, orderID uint) (bool, error) {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND order_id IS NULL", paymentID).
		Updates(map[string]interface{}{
			"order_id":   orderID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireStale 将创建早于 before 且仍处于 statuses 的记录置为 to
func (r *GormPaymentRepository) ExpireStale(statuses []string, before time.Time, to string) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Payment{}).
		Where("status IN ? AND created_at < ? AND order_id IS NULL", statuses, before).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
