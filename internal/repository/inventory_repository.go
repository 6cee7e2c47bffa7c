package repository

import (
	"errors"
	"time"

	"github.com/theunion-shop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 库存与库存告警数据访问接口
type InventoryRepository interface {
	GetByVariantMethod(variantID, methodID uint) (*models.InventoryStock, error)
	CompareAndSwap(id uint, expected, next int) (bool, error)
	Upsert(variantID, methodID uint, quantity int) error
	CreateWarnings(warnings []models.InventoryWarning) error
	ListUnresolvedWarnings(orderID uint) ([]models.InventoryWarning, error)
	MarkWarningResolved(id uint, at time.Time) (bool, error)
	WithTx(tx *gorm.DB) InventoryRepository
}

// GormInventoryRepository GORM 实现
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	if tx == nil {
		return r
	}
	return &GormInventoryRepository{db: tx}
}

// GetByVariantMethod 读取规格在配送方式下的库存行
func (r *GormInventoryRepository) GetByVariantMethod(variantID, methodID uint) (*models.InventoryStock, error) {
	var stock models.InventoryStock
	err := r.db.Where("variant_id = ? AND method_id = ?", variantID, methodID).First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

// CompareAndSwap 仅当库存仍为 expected 时写入 next，返回是否生效
func (r *GormInventoryRepository) CompareAndSwap(id uint, expected, next int) (bool, error) {
	if next < 0 {
		return false, nil
	}
	result := r.db.Model(&models.InventoryStock{}).
		Where("id = ? AND quantity_available = ?", id, expected).
		Updates(map[string]interface{}{
			"quantity_available": next,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Upsert 设置库存数量（种子数据与测试使用）
func (r *GormInventoryRepository) Upsert(variantID, methodID uint, quantity int) error {
	if quantity < 0 {
		quantity = 0
	}
	stock := models.InventoryStock{
		VariantID:         variantID,
		MethodID:          methodID,
		QuantityAvailable: quantity,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "method_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity_available", "updated_at"}),
	}).Create(&stock).Error
}

// CreateWarnings 批量写入库存告警
func (r *GormInventoryRepository) CreateWarnings(warnings []models.InventoryWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	return r.db.Create(&warnings).Error
}

// ListUnresolvedWarnings 获取订单下未处理的库存告警
func (r *GormInventoryRepository) ListUnresolvedWarnings(orderID uint) ([]models.InventoryWarning, error) {
	var warnings []models.InventoryWarning
	query := r.db.Where("resolved_at IS NULL")
	if orderID != 0 {
		query = query.Where("order_id = ?", orderID)
	}
	if err := query.Order("id asc").Find(&warnings).Error; err != nil {
		return nil, err
	}
	return warnings, nil
}

// MarkWarningResolved 标记告警已处理
func (r *GormInventoryRepository) MarkWarningResolved(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.InventoryWarning{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
