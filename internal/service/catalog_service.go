package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/theunion-shop/internal/cache"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"
)

// OptionView 规格值视图
type OptionView struct {
	OptionTypeID  uint   `json:"option_type_id"`
	OptionType    string `json:"option_type"`
	OptionValueID uint   `json:"option_value_id"`
	Value         string `json:"value"`
}

// ImageView 规格图片视图
type ImageView struct {
	ID        uint   `json:"id"`
	ImageURL  string `json:"image_url"`
	SortOrder int    `json:"sort_order"`
	IsMain    bool   `json:"is_main"`
}

// StockView 规格在某配送方式下的库存
type StockView struct {
	MethodID          uint                   `json:"method_id"`
	QuantityAvailable int                    `json:"quantity_available"`
	DeliveryMethod    *models.DeliveryMethod `json:"delivery_method,omitempty"`
}

// VariantView 规格视图
type VariantView struct {
	ID              uint         `json:"id"`
	SKU             string       `json:"sku"`
	PriceAdjustment models.Money `json:"price_adjustment"`
	EffectivePrice  models.Money `json:"effective_price"`
	SortOrder       int          `json:"sort_order"`
	Options         []OptionView `json:"options"`
	Images          []ImageView  `json:"images"`
	InventoryStock  []StockView  `json:"inventory_stock"`
}

// ProductView 商品目录视图
type ProductView struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	BasePrice   models.Money  `json:"base_price"`
	Variants    []VariantView `json:"variants"`
}

// OptionLabel 规格值拼接的展示标签，如 "Black / M"
func (v VariantView) OptionLabel() string {
	parts := make([]string, 0, len(v.Options))
	for _, opt := range v.Options {
		if value := strings.TrimSpace(opt.Value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " / ")
}

// MainImageURL 主图地址，没有主图时取排序第一张
func (v VariantView) MainImageURL() string {
	for _, img := range v.Images {
		if img.IsMain {
			return img.ImageURL
		}
	}
	if len(v.Images) > 0 {
		return v.Images[0].ImageURL
	}
	return ""
}

// CatalogService 商品目录读取服务
type CatalogService struct {
	productRepo  repository.ProductRepository
	deliveryRepo repository.DeliveryMethodRepository
}

// NewCatalogService 创建目录服务
func NewCatalogService(productRepo repository.ProductRepository, deliveryRepo repository.DeliveryMethodRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo, deliveryRepo: deliveryRepo}
}

// ListProducts 获取完整商品目录
func (s *CatalogService) ListProducts(ctx context.Context) ([]ProductView, error) {
	var cached []ProductView
	if hit, err := cache.GetCatalogList(ctx, &cached); err != nil {
		logger.Warnw("catalog_cache_get_failed", "error", err)
	} else if hit {
		return cached, nil
	}

	products, err := s.productRepo.ListCatalog()
	if err != nil {
		logger.Errorw("catalog_list_failed", "error", err)
		return nil, ErrProductFetchFailed
	}
	views := make([]ProductView, 0, len(products))
	for i := range products {
		views = append(views, buildProductView(&products[i]))
	}
	if err := cache.SetCatalogList(ctx, views); err != nil {
		logger.Warnw("catalog_cache_set_failed", "error", err)
	}
	return views, nil
}

// GetProduct 获取单个商品
func (s *CatalogService) GetProduct(_ context.Context, id uint) (*ProductView, error) {
	if id == 0 {
		return nil, ErrProductNotFound
	}
	product, err := s.productRepo.GetCatalogByID(id)
	if err != nil {
		logger.Errorw("catalog_get_failed", "product_id", id, "error", err)
		return nil, ErrProductFetchFailed
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	view := buildProductView(product)
	return &view, nil
}

// GetProductByRawID 解析路径参数后获取商品，非法 ID 视为不存在
func (s *CatalogService) GetProductByRawID(ctx context.Context, raw string) (*ProductView, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return nil, ErrProductNotFound
	}
	return s.GetProduct(ctx, uint(id))
}

// ListDeliveryMethods 获取固定配送方式列表
func (s *CatalogService) ListDeliveryMethods(_ context.Context) ([]models.DeliveryMethod, error) {
	methods, err := s.deliveryRepo.List()
	if err != nil {
		logger.Errorw("delivery_method_list_failed", "error", err)
		return nil, ErrDeliveryFetchFailed
	}
	return methods, nil
}

func buildProductView(product *models.Product) ProductView {
	view := ProductView{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		BasePrice:   product.BasePrice,
		Variants:    make([]VariantView, 0, len(product.Variants)),
	}
	seenOptionSets := make(map[string]uint, len(product.Variants))
	for i := range product.Variants {
		variant := buildVariantView(product, &product.Variants[i])
		if key := optionSetKey(variant.Options); key != "" {
			if other, ok := seenOptionSets[key]; ok {
				logger.Warnw("catalog_variant_option_conflict",
					"product_id", product.ID,
					"variant_id", variant.ID,
					"conflicts_with", other,
				)
			} else {
				seenOptionSets[key] = variant.ID
			}
		}
		view.Variants = append(view.Variants, variant)
	}
	return view
}

func buildVariantView(product *models.Product, variant *models.ProductVariant) VariantView {
	price, clamped := effectivePrice(product.BasePrice, variant.PriceAdjustment)
	if clamped {
		logger.Warnw("catalog_variant_negative_price",
			"product_id", product.ID,
			"variant_id", variant.ID,
			"base_price", product.BasePrice.String(),
			"price_adjustment", variant.PriceAdjustment.String(),
		)
	}

	view := VariantView{
		ID:              variant.ID,
		SKU:             variant.SKU,
		PriceAdjustment: variant.PriceAdjustment,
		EffectivePrice:  price,
		SortOrder:       variant.SortOrder,
		Options:         make([]OptionView, 0, len(variant.OptionMaps)),
		Images:          sortImages(variant.Images),
		InventoryStock:  make([]StockView, 0, len(variant.Stocks)),
	}
	for _, m := range variant.OptionMaps {
		if m.OptionValue == nil {
			continue
		}
		opt := OptionView{
			OptionTypeID:  m.OptionValue.OptionTypeID,
			OptionValueID: m.OptionValue.ID,
			Value:         m.OptionValue.Value,
		}
		if m.OptionValue.OptionType != nil {
			opt.OptionType = m.OptionValue.OptionType.Name
		}
		view.Options = append(view.Options, opt)
	}
	sort.SliceStable(view.Options, func(i, j int) bool {
		return view.Options[i].OptionTypeID < view.Options[j].OptionTypeID
	})
	for _, stock := range variant.Stocks {
		view.InventoryStock = append(view.InventoryStock, StockView{
			MethodID:          stock.MethodID,
			QuantityAvailable: stock.QuantityAvailable,
			DeliveryMethod:    stock.DeliveryMethod,
		})
	}

	if len(view.Images) > 0 {
		mainCount := 0
		for _, img := range view.Images {
			if img.IsMain {
				mainCount++
			}
		}
		if mainCount != 1 {
			logger.Warnw("catalog_variant_main_image_invalid",
				"variant_id", variant.ID,
				"main_images", mainCount,
			)
		}
	}
	return view
}

// sortImages 按 sort_order 升序排序，相同时按 id
func sortImages(images []models.VariantImage) []ImageView {
	out := make([]ImageView, 0, len(images))
	for _, img := range images {
		out = append(out, ImageView{
			ID:        img.ID,
			ImageURL:  img.ImageURL,
			SortOrder: img.SortOrder,
			IsMain:    img.IsMain,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// effectivePrice 基础价 + 调整价，负数时归零
func effectivePrice(base, adjustment models.Money) (models.Money, bool) {
	sum := base.Add(adjustment)
	if sum.Decimal.IsNegative() {
		return models.NewMoneyFromInt(0), true
	}
	return sum, false
}

func optionSetKey(options []OptionView) string {
	if len(options) == 0 {
		return ""
	}
	ids := make([]string, 0, len(options))
	for _, opt := range options {
		ids = append(ids, strconv.FormatUint(uint64(opt.OptionValueID), 10))
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
