package main

import (
	"errors"
	"fmt"

	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedVariant struct {
	SKU        string
	Adjustment int64
	Options    map[string]string
	Images     []string
	Stock      map[uint]int
}

type seedProduct struct {
	Name        string
	Description string
	BasePrice   int64
	Variants    []seedVariant
}

var demoCatalog = []seedProduct{
	{
		Name:        "The Union 공식 응원봉",
		Description: "블루투스 연동 공식 응원봉",
		BasePrice:   45000,
		Variants: []seedVariant{
			{
				SKU:    "TU-LS-01",
				Images: []string{"/images/lightstick-main.jpg", "/images/lightstick-side.jpg"},
				Stock: map[uint]int{
					constants.DeliveryMethodDomesticID:      120,
					constants.DeliveryMethodInternationalID: 40,
					constants.DeliveryMethodOnsiteID:        300,
				},
			},
		},
	},
	{
		Name:        "The Union 투어 티셔츠",
		Description: "2026 월드투어 기념 티셔츠",
		BasePrice:   35000,
		Variants: []seedVariant{
			{
				SKU:     "TU-TS-BK-M",
				Options: map[string]string{"Color": "Black", "Size": "M"},
				Images:  []string{"/images/tshirt-black.jpg"},
				Stock: map[uint]int{
					constants.DeliveryMethodDomesticID: 50,
					constants.DeliveryMethodOnsiteID:   80,
				},
			},
			{
				SKU:     "TU-TS-BK-L",
				Options: map[string]string{"Color": "Black", "Size": "L"},
				Images:  []string{"/images/tshirt-black.jpg"},
				Stock: map[uint]int{
					constants.DeliveryMethodDomesticID: 40,
					constants.DeliveryMethodOnsiteID:   60,
				},
			},
			{
				SKU:        "TU-TS-WH-XL",
				Adjustment: 2000,
				Options:    map[string]string{"Color": "White", "Size": "XL"},
				Images:     []string{"/images/tshirt-white.jpg"},
				Stock: map[uint]int{
					constants.DeliveryMethodDomesticID:      20,
					constants.DeliveryMethodInternationalID: 10,
				},
			},
		},
	},
	{
		Name:        "The Union 포토카드 세트",
		Description: "멤버별 랜덤 포토카드 8종",
		BasePrice:   12000,
		Variants: []seedVariant{
			{
				SKU:    "TU-PC-SET",
				Images: []string{"/images/photocard.jpg"},
				Stock: map[uint]int{
					constants.DeliveryMethodDomesticID:      500,
					constants.DeliveryMethodInternationalID: 200,
				},
			},
		},
	},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.EnsureDeliveryMethods(models.DB); err != nil {
		stdLog.Fatalf("Failed to seed delivery methods: %v", err)
	}

	created, err := seedCatalog(models.DB, demoCatalog)
	if err != nil {
		stdLog.Fatalf("Failed to seed catalog: %v", err)
	}
	stdLog.Printf("Seed completed: %d products created", created)
}

// seedCatalog 写入演示目录，同名商品已存在时跳过
func seedCatalog(db *gorm.DB, catalog []seedProduct) (int, error) {
	created := 0
	for _, item := range catalog {
		var existing models.Product
		err := db.Where("name = ?", item.Name).First(&existing).Error
		if err == nil {
			logger.Infow("seed_product_exists", "name", item.Name)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return createProduct(tx, item)
		}); err != nil {
			return created, fmt.Errorf("create product %s: %w", item.Name, err)
		}
		created++
		logger.Infow("seed_product_created", "name", item.Name, "variants", len(item.Variants))
	}
	return created, nil
}

func createProduct(tx *gorm.DB, item seedProduct) error {
	product := &models.Product{
		Name:        item.Name,
		Description: item.Description,
		BasePrice:   models.NewMoneyFromDecimal(decimal.NewFromInt(item.BasePrice)),
	}
	if err := tx.Create(product).Error; err != nil {
		return err
	}
	for i, spec := range item.Variants {
		variant := &models.ProductVariant{
			ProductID:       product.ID,
			SKU:             spec.SKU,
			PriceAdjustment: models.NewMoneyFromDecimal(decimal.NewFromInt(spec.Adjustment)),
			SortOrder:       i,
		}
		if err := tx.Create(variant).Error; err != nil {
			return err
		}
		for typeName, value := range spec.Options {
			optionValue, err := ensureOptionValue(tx, typeName, value)
			if err != nil {
				return err
			}
			if err := tx.Create(&models.VariantOptionMap{VariantID: variant.ID, OptionValueID: optionValue.ID}).Error; err != nil {
				return err
			}
		}
		for j, url := range spec.Images {
			image := &models.VariantImage{VariantID: variant.ID, ImageURL: url, SortOrder: j, IsMain: j == 0}
			if err := tx.Create(image).Error; err != nil {
				return err
			}
		}
		for methodID, qty := range spec.Stock {
			stock := &models.InventoryStock{VariantID: variant.ID, MethodID: methodID, QuantityAvailable: qty}
			if err := tx.Create(stock).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureOptionValue(tx *gorm.DB, typeName, value string) (*models.OptionValue, error) {
	optionType := models.OptionType{Name: typeName}
	if err := tx.Where("name = ?", typeName).FirstOrCreate(&optionType).Error; err != nil {
		return nil, err
	}
	optionValue := models.OptionValue{OptionTypeID: optionType.ID, Value: value}
	if err := tx.Where("option_type_id = ? AND value = ?", optionType.ID, value).FirstOrCreate(&optionValue).Error; err != nil {
		return nil, err
	}
	return &optionValue, nil
}
