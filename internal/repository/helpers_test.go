package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/theunion-shop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupRepositoryTestDB 创建独立的内存数据库并迁移全部表
func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := models.Open("sqlite", dsn, models.DBPoolConfig{}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := models.EnsureDeliveryMethods(db); err != nil {
		t.Fatalf("seed delivery methods failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func money(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func createTestProduct(t *testing.T, db *gorm.DB, name string, basePrice int64) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, BasePrice: money(basePrice)}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createTestVariant(t *testing.T, db *gorm.DB, productID uint, sku string, adjustment int64, sortOrder int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID:       productID,
		SKU:             sku,
		PriceAdjustment: money(adjustment),
		SortOrder:       sortOrder,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	return variant
}
