package repository

import (
	"testing"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/models"
)

func TestProductRepositoryListCatalogPreloadsTree(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)

	product := createTestProduct(t, db, "응원봉", 30000)
	second := createTestVariant(t, db, product.ID, "LS-B", 0, 2)
	first := createTestVariant(t, db, product.ID, "LS-A", 1000, 1)

	color := &models.OptionType{Name: "color"}
	if err := db.Create(color).Error; err != nil {
		t.Fatalf("create option type failed: %v", err)
	}
	black := &models.OptionValue{OptionTypeID: color.ID, Value: "black"}
	if err := db.Create(black).Error; err != nil {
		t.Fatalf("create option value failed: %v", err)
	}
	if err := db.Create(&models.VariantOptionMap{VariantID: first.ID, OptionValueID: black.ID}).Error; err != nil {
		t.Fatalf("create option map failed: %v", err)
	}
	images := []models.VariantImage{
		{VariantID: first.ID, ImageURL: "b.png", SortOrder: 2},
		{VariantID: first.ID, ImageURL: "a.png", SortOrder: 1, IsMain: true},
	}
	if err := db.Create(&images).Error; err != nil {
		t.Fatalf("create images failed: %v", err)
	}
	if err := NewInventoryRepository(db).Upsert(first.ID, constants.DeliveryMethodOnsiteID, 5); err != nil {
		t.Fatalf("upsert stock failed: %v", err)
	}

	products, err := repo.ListCatalog()
	if err != nil {
		t.Fatalf("list catalog failed: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("want 1 product got %d", len(products))
	}
	variants := products[0].Variants
	if len(variants) != 2 {
		t.Fatalf("want 2 variants got %d", len(variants))
	}
	if variants[0].ID != first.ID || variants[1].ID != second.ID {
		t.Fatalf("variants not ordered by sort_order: %d, %d", variants[0].ID, variants[1].ID)
	}
	if len(variants[0].OptionMaps) != 1 || variants[0].OptionMaps[0].OptionValue == nil || variants[0].OptionMaps[0].OptionValue.OptionType == nil {
		t.Fatalf("option tree not preloaded: %+v", variants[0].OptionMaps)
	}
	if variants[0].OptionMaps[0].OptionValue.OptionType.Name != "color" {
		t.Fatalf("want color got %s", variants[0].OptionMaps[0].OptionValue.OptionType.Name)
	}
	if len(variants[0].Images) != 2 || variants[0].Images[0].ImageURL != "a.png" {
		t.Fatalf("images not ordered: %+v", variants[0].Images)
	}
	if len(variants[0].Stocks) != 1 || variants[0].Stocks[0].DeliveryMethod == nil {
		t.Fatalf("stocks not preloaded: %+v", variants[0].Stocks)
	}
	if variants[0].Stocks[0].DeliveryMethod.Code != constants.DeliveryMethodOnsite {
		t.Fatalf("want onsite got %s", variants[0].Stocks[0].DeliveryMethod.Code)
	}
}

func TestProductRepositoryGetCatalogByIDMissing(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)

	product, err := repo.GetCatalogByID(999)
	if err != nil {
		t.Fatalf("get catalog failed: %v", err)
	}
	if product != nil {
		t.Fatalf("want nil product got %+v", product)
	}
	products, err := repo.ListCatalog()
	if err != nil {
		t.Fatalf("list empty catalog failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("want empty catalog got %d", len(products))
	}
}

func TestProductRepositoryListVariantsByProduct(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewProductRepository(db)
	product := createTestProduct(t, db, "포토카드", 5000)
	variant := createTestVariant(t, db, product.ID, "PC-1", 0, 0)

	variants, err := repo.ListVariantsByProduct(product.ID)
	if err != nil {
		t.Fatalf("list variants failed: %v", err)
	}
	if len(variants) != 1 || variants[0].ID != variant.ID {
		t.Fatalf("unexpected variants: %+v", variants)
	}
	if variants[0].Product == nil || variants[0].Product.Name != "포토카드" {
		t.Fatalf("product not preloaded: %+v", variants[0].Product)
	}

	loaded, err := repo.GetVariantByID(variant.ID)
	if err != nil || loaded == nil {
		t.Fatalf("get variant failed: %v", err)
	}
	if loaded.SKU != "PC-1" {
		t.Fatalf("want PC-1 got %s", loaded.SKU)
	}
}
