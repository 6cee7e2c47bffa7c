package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/theunion-shop/internal/cart"
	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/logger"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultCartSessionTTL = 72 * time.Hour

// CartSessionClaims 购物车会话令牌声明
type CartSessionClaims struct {
	jwt.RegisteredClaims
}

// CartSummary 购物车汇总
type CartSummary struct {
	SessionID string       `json:"-"`
	Items     []cart.Item  `json:"items"`
	Total     models.Money `json:"total"`
	Count     int          `json:"count"`
}

// AddCartItemInput 加入购物车输入
type AddCartItemInput struct {
	ProductID      uint
	VariantID      uint
	OptionLabel    string
	Quantity       int
	DeliveryMethod string
}

// CartService 购物车服务
type CartService struct {
	secret       []byte
	ttl          time.Duration
	storage      cart.Storage
	productRepo  repository.ProductRepository
	inventoryRep repository.InventoryRepository
}

// NewCartService 创建购物车服务
func NewCartService(cfg *config.SessionConfig, storage cart.Storage, productRepo repository.ProductRepository, inventoryRepo repository.InventoryRepository) *CartService {
	ttl := defaultCartSessionTTL
	secret := ""
	if cfg != nil {
		if cfg.TTLHours > 0 {
			ttl = time.Duration(cfg.TTLHours) * time.Hour
		}
		secret = cfg.Secret
	}
	return &CartService{
		secret:       []byte(secret),
		ttl:          ttl,
		storage:      storage,
		productRepo:  productRepo,
		inventoryRep: inventoryRepo,
	}
}

// IssueSession 签发新的购物车会话
func (s *CartService) IssueSession() (string, string, error) {
	sessionID := uuid.NewString()
	now := time.Now()
	claims := CartSessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return sessionID, token, nil
}

// ParseSession 校验会话令牌并返回会话 ID
func (s *CartService) ParseSession(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrCartSessionInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &CartSessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", ErrCartSessionInvalid
	}
	claims, ok := token.Claims.(*CartSessionClaims)
	if !ok || !token.Valid {
		return "", ErrCartSessionInvalid
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrCartSessionInvalid
	}
	return claims.Subject, nil
}

// ResolveSession 解析令牌，缺失或无效时签发新会话（issued=true）
func (s *CartService) ResolveSession(tokenString string) (sessionID, token string, issued bool, err error) {
	if sessionID, err = s.ParseSession(tokenString); err == nil {
		return sessionID, strings.TrimSpace(tokenString), false, nil
	}
	sessionID, token, err = s.IssueSession()
	if err != nil {
		return "", "", false, err
	}
	return sessionID, token, true, nil
}

// Summary 获取购物车
func (s *CartService) Summary(ctx context.Context, sessionID string) *CartSummary {
	return summarize(cart.Open(ctx, sessionID, s.storage))
}

// AddItem 加入购物车，价格与名称以服务端目录为准
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddCartItemInput) (*CartSummary, error) {
	if input.ProductID == 0 && input.VariantID == 0 {
		return nil, ErrCartItemInvalid
	}
	if input.Quantity < 0 {
		return nil, ErrCartItemInvalid
	}

	variant, err := s.resolveVariant(input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}
	product := variant.Product
	if product == nil {
		return nil, ErrProductNotFound
	}

	store := cart.Open(ctx, sessionID, s.storage)
	view := buildVariantView(product, variant)
	optionLabel := strings.TrimSpace(input.OptionLabel)
	if optionLabel == "" {
		optionLabel = view.OptionLabel()
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}

	method := strings.TrimSpace(input.DeliveryMethod)
	if method != "" {
		methodID, err := ResolveDeliveryMethodID(method)
		if err != nil {
			return nil, err
		}
		if err := s.checkStock(store, product.ID, optionLabel, variant.ID, methodID, quantity); err != nil {
			return nil, err
		}
	}

	variantID := variant.ID
	item := cart.Item{
		ProductID:      product.ID,
		OptionLabel:    optionLabel,
		VariantID:      &variantID,
		ProductName:    product.Name,
		Price:          view.EffectivePrice,
		Quantity:       quantity,
		DeliveryMethod: method,
		ImageURL:       view.MainImageURL(),
	}
	if err := store.Add(ctx, item); err != nil {
		if errors.Is(err, cart.ErrInvalidItem) {
			return nil, ErrCartItemInvalid
		}
		return nil, err
	}
	return summarize(store), nil
}

// SetQuantity 修改数量
func (s *CartService) SetQuantity(ctx context.Context, sessionID string, productID uint, optionLabel string, quantity int) (*CartSummary, error) {
	if productID == 0 {
		return nil, ErrCartItemInvalid
	}
	store := cart.Open(ctx, sessionID, s.storage)
	store.SetQuantity(ctx, productID, optionLabel, quantity)
	return summarize(store), nil
}

// RemoveItem 删除购物车行
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID uint, optionLabel string) (*CartSummary, error) {
	if productID == 0 {
		return nil, ErrCartItemInvalid
	}
	store := cart.Open(ctx, sessionID, s.storage)
	store.Remove(ctx, productID, optionLabel)
	return summarize(store), nil
}

// SetDeliveryMethod 设置配送方式
func (s *CartService) SetDeliveryMethod(ctx context.Context, sessionID, method string) (*CartSummary, error) {
	if _, err := ResolveDeliveryMethodID(method); err != nil {
		return nil, err
	}
	store := cart.Open(ctx, sessionID, s.storage)
	store.SetDeliveryMethod(ctx, method)
	return summarize(store), nil
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context, sessionID string) *CartSummary {
	store := cart.Open(ctx, sessionID, s.storage)
	store.Clear(ctx)
	return summarize(store)
}

func (s *CartService) resolveVariant(productID, variantID uint) (*models.ProductVariant, error) {
	if variantID != 0 {
		variant, err := s.productRepo.GetVariantByID(variantID)
		if err != nil {
			logger.Errorw("cart_variant_fetch_failed", "variant_id", variantID, "error", err)
			return nil, ErrProductFetchFailed
		}
		if variant == nil || (productID != 0 && variant.ProductID != productID) {
			return nil, ErrCartItemInvalid
		}
		return variant, nil
	}
	variants, err := s.productRepo.ListVariantsByProduct(productID)
	if err != nil {
		logger.Errorw("cart_variant_fetch_failed", "product_id", productID, "error", err)
		return nil, ErrProductFetchFailed
	}
	if len(variants) == 0 {
		return nil, ErrProductNotFound
	}
	if len(variants) != 1 {
		return nil, ErrCartItemInvalid
	}
	return &variants[0], nil
}

func (s *CartService) checkStock(store *cart.Store, productID uint, optionLabel string, variantID, methodID uint, adding int) error {
	if s.inventoryRep == nil {
		return nil
	}
	stock, err := s.inventoryRep.GetByVariantMethod(variantID, methodID)
	if err != nil {
		logger.Warnw("cart_stock_check_failed", "variant_id", variantID, "method_id", methodID, "error", err)
		return nil
	}
	if stock == nil {
		return nil
	}
	requested := adding
	for _, item := range store.Items() {
		if item.ProductID == productID && item.OptionLabel == optionLabel {
			requested += item.Quantity
		}
	}
	if stock.QuantityAvailable < requested {
		return ErrInsufficientStock
	}
	return nil
}

func summarize(store *cart.Store) *CartSummary {
	items := store.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return &CartSummary{
		SessionID: store.SessionID(),
		Items:     items,
		Total:     store.Total(),
		Count:     store.Count(),
	}
}
