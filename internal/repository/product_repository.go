package repository

import (
	"errors"

	"github.com/theunion-shop/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品目录数据访问接口
type ProductRepository interface {
	ListCatalog() ([]models.Product, error)
	GetCatalogByID(id uint) (*models.Product, error)
	GetByID(id uint) (*models.Product, error)
	GetVariantByID(id uint) (*models.ProductVariant, error)
	ListVariantsByProduct(productID uint) ([]models.ProductVariant, error)
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// withCatalog 预加载规格、规格值、图片与库存
func (r *GormProductRepository) withCatalog(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc, id asc")
		}).
		Preload("Variants.OptionMaps").
		Preload("Variants.OptionMaps.OptionValue").
		Preload("Variants.OptionMaps.OptionValue.OptionType").
		Preload("Variants.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc, id asc")
		}).
		Preload("Variants.Stocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("method_id asc")
		}).
		Preload("Variants.Stocks.DeliveryMethod")
}

// ListCatalog 获取完整商品目录
func (r *GormProductRepository) ListCatalog() ([]models.Product, error) {
	var products []models.Product
	if err := r.withCatalog(r.db).Order("sort_order asc, id asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetCatalogByID 获取单个商品目录树
func (r *GormProductRepository) GetCatalogByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.withCatalog(r.db).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByID 获取商品基础信息
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetVariantByID 获取规格及其商品、规格值与图片
func (r *GormProductRepository) GetVariantByID(id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.
		Preload("Product").
		Preload("OptionMaps.OptionValue.OptionType").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc, id asc")
		}).
		First(&variant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

// ListVariantsByProduct 获取商品下的全部规格
func (r *GormProductRepository) ListVariantsByProduct(productID uint) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.
		Preload("Product").
		Preload("OptionMaps.OptionValue.OptionType").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc, id asc")
		}).
		Where("product_id = ?", productID).
		Order("sort_order asc, id asc").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}
