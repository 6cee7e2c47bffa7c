package repository

import (
	"errors"
	"strings"

	"github.com/theunion-shop/internal/models"

	"gorm.io/gorm"
)

// DeliveryMethodRepository 配送方式数据访问接口
type DeliveryMethodRepository interface {
	List() ([]models.DeliveryMethod, error)
	GetByID(id uint) (*models.DeliveryMethod, error)
	GetByCode(code string) (*models.DeliveryMethod, error)
	WithTx(tx *gorm.DB) *GormDeliveryMethodRepository
}

// GormDeliveryMethodRepository GORM 实现
type GormDeliveryMethodRepository struct {
	db *gorm.DB
}

// NewDeliveryMethodRepository 创建配送方式仓库
func NewDeliveryMethodRepository(db *gorm.DB) *GormDeliveryMethodRepository {
	return &GormDeliveryMethodRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDeliveryMethodRepository) WithTx(tx *gorm.DB) *GormDeliveryMethodRepository {
	if tx == nil {
		return r
	}
	return &GormDeliveryMethodRepository{db: tx}
}

// List 获取全部配送方式
func (r *GormDeliveryMethodRepository) List() ([]models.DeliveryMethod, error) {
	var methods []models.DeliveryMethod
	if err := r.db.Order("id asc").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// GetByID 根据 ID 获取配送方式
func (r *GormDeliveryMethodRepository) GetByID(id uint) (*models.DeliveryMethod, error) {
	var method models.DeliveryMethod
	if err := r.db.First(&method, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

// GetByCode 根据编码获取配送方式
func (r *GormDeliveryMethodRepository) GetByCode(code string) (*models.DeliveryMethod, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var method models.DeliveryMethod
	if err := r.db.Where("code = ?", code).First(&method).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}
