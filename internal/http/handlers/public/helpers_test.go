package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/theunion-shop/internal/config"
	handlershared "github.com/theunion-shop/internal/http/handlers/shared"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func (e envelope) dataMap(t *testing.T) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return out
	}
	if err := json.Unmarshal(e.Data, &out); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	return out
}

type handlerTestEnv struct {
	db      *gorm.DB
	handler *Handler
	engine  *gin.Engine
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{Secret: "handler-test-secret", TTLHours: 1},
		Order:   config.OrderConfig{Currency: "KRW", StockCASMaxRetries: 3, StockCASBackoffMS: 1},
		Payment: config.PaymentConfig{
			EasyPay: config.EasyPayConfig{FrontendCallbackURL: "https://shop.example.com/payment/callback"},
		},
	}
}

// setupHandlerTest 创建内存库、容器与路由
func setupHandlerTest(t *testing.T, cfg *config.Config) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handlershared.RegisterValidators()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:pub_%s?mode=memory&cache=shared", name)
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
	previous := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = previous
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if cfg == nil {
		cfg = handlerTestConfig()
	}
	h := New(provider.NewContainer(cfg))

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/delivery-methods", h.ListDeliveryMethods)
	api.GET("/cart", h.GetCart)
	api.POST("/cart/items", h.AddCartItem)
	api.PUT("/cart/items", h.UpdateCartItem)
	api.DELETE("/cart/items", h.RemoveCartItem)
	api.PUT("/cart/delivery-method", h.SetCartDeliveryMethod)
	api.DELETE("/cart", h.ClearCart)
	api.POST("/payments/easypay/register", h.RegisterEasyPay)
	api.POST("/payments/easypay/callback", h.EasyPayCallback)
	api.GET("/payments/easypay/callback", h.EasyPayCallback)
	api.POST("/payments/easypay/approve", h.ApproveEasyPay)
	api.GET("/payments/easypay/status", h.GetEasyPayStatus)
	api.POST("/payments/paypal/orders", h.CreatePayPalOrder)
	api.POST("/payments/paypal/orders/:id/capture", h.CapturePayPalOrder)
	api.POST("/orders", h.CreateOrder)

	return &handlerTestEnv{db: db, handler: h, engine: r}
}

func (env *handlerTestEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
		}
	}
	if w.Code != http.StatusOK && w.Code != http.StatusFound {
		t.Fatalf("unexpected http status %d", w.Code)
	}
	return w, resp
}

func krw(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

// seedVariant 写入单规格商品及库存
func seedVariant(t *testing.T, db *gorm.DB, name string, price int64, stocks map[uint]int) (*models.Product, *models.ProductVariant) {
	t.Helper()
	product := &models.Product{Name: name, BasePrice: krw(price)}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	variant := &models.ProductVariant{ProductID: product.ID, SKU: name + "-SKU"}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	for methodID, qty := range stocks {
		if err := db.Create(&models.InventoryStock{VariantID: variant.ID, MethodID: methodID, QuantityAvailable: qty}).Error; err != nil {
			t.Fatalf("create stock failed: %v", err)
		}
	}
	return product, variant
}

func seedPayment(t *testing.T, db *gorm.DB, shopOrderNo, status string, amount int64) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		Provider:    "easypay",
		ShopOrderNo: shopOrderNo,
		Amount:      krw(amount),
		Currency:    "KRW",
		Status:      status,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}
