package service

import (
	"context"
	"errors"
	"testing"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"
)

func TestSortImages(t *testing.T) {
	images := []models.VariantImage{
		{ID: 3, ImageURL: "c.jpg", SortOrder: 2},
		{ID: 2, ImageURL: "b.jpg", SortOrder: 1, IsMain: true},
		{ID: 1, ImageURL: "a.jpg", SortOrder: 1},
	}
	got := sortImages(images)
	want := []uint{1, 2, 3}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: want id %d got %d", i, id, got[i].ID)
		}
	}
	view := VariantView{Images: got}
	if view.MainImageURL() != "b.jpg" {
		t.Fatalf("want main image b.jpg got %s", view.MainImageURL())
	}
}

func TestEffectivePrice(t *testing.T) {
	price, clamped := effectivePrice(krw(30000), krw(5000))
	if clamped || !price.EqualAmount(krw(35000)) {
		t.Fatalf("want 35000 got %s clamped=%v", price.String(), clamped)
	}
	price, clamped = effectivePrice(krw(1000), krw(-3000))
	if !clamped || !price.EqualAmount(krw(0)) {
		t.Fatalf("negative price should clamp to 0, got %s", price.String())
	}
}

func TestVariantOptionLabel(t *testing.T) {
	view := VariantView{Options: []OptionView{{Value: "Black"}, {Value: " "}, {Value: "M"}}}
	if got := view.OptionLabel(); got != "Black / M" {
		t.Fatalf("want %q got %q", "Black / M", got)
	}
}

func TestCatalogServiceListAndGet(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Hoodie", 45000, map[uint]int{constants.DeliveryMethodDomesticID: 7})
	color := &models.OptionType{Name: "color"}
	db.Create(color)
	black := &models.OptionValue{OptionTypeID: color.ID, Value: "Black"}
	db.Create(black)
	db.Create(&models.VariantOptionMap{VariantID: fx.variant.ID, OptionValueID: black.ID})
	db.Create(&models.VariantImage{VariantID: fx.variant.ID, ImageURL: "back.jpg", SortOrder: 2})
	db.Create(&models.VariantImage{VariantID: fx.variant.ID, ImageURL: "front.jpg", SortOrder: 1, IsMain: true})

	svc := NewCatalogService(repository.NewProductRepository(db), repository.NewDeliveryMethodRepository(db))
	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 1 || len(products[0].Variants) != 1 {
		t.Fatalf("unexpected catalog: %+v", products)
	}
	variant := products[0].Variants[0]
	if variant.OptionLabel() != "Black" || variant.Images[0].ImageURL != "front.jpg" {
		t.Fatalf("unexpected variant view: %+v", variant)
	}
	if len(variant.InventoryStock) != 1 || variant.InventoryStock[0].QuantityAvailable != 7 {
		t.Fatalf("unexpected stock view: %+v", variant.InventoryStock)
	}

	product, err := svc.GetProductByRawID(context.Background(), "abc")
	if !errors.Is(err, ErrProductNotFound) || product != nil {
		t.Fatalf("want ErrProductNotFound for bad id got %v", err)
	}
	if _, err := svc.GetProduct(context.Background(), fx.product.ID+100); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound got %v", err)
	}

	methods, err := svc.ListDeliveryMethods(context.Background())
	if err != nil || len(methods) != 3 {
		t.Fatalf("want 3 delivery methods got %d (%v)", len(methods), err)
	}
}

func TestCatalogServiceEmpty(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCatalogService(repository.NewProductRepository(db), repository.NewDeliveryMethodRepository(db))
	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("want empty non-nil slice got %#v", products)
	}
}

func TestResolveDeliveryMethodID(t *testing.T) {
	cases := map[string]uint{
		"국내배송":            constants.DeliveryMethodDomesticID,
		"해외배송":            constants.DeliveryMethodInternationalID,
		"팬미팅현장수령":         constants.DeliveryMethodOnsiteID,
		" International ": constants.DeliveryMethodInternationalID,
	}
	for name, want := range cases {
		got, err := ResolveDeliveryMethodID(name)
		if err != nil || got != want {
			t.Fatalf("%q: want %d got %d (%v)", name, want, got, err)
		}
	}
	if _, err := ResolveDeliveryMethodID("택배"); !errors.Is(err, ErrInvalidDeliveryMethod) {
		t.Fatalf("unknown method: want ErrInvalidDeliveryMethod got %v", err)
	}
}
