package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupServiceTestDB 创建独立内存库并替换全局 models.DB
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
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
	return db
}

func krw(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

type catalogFixture struct {
	product *models.Product
	variant *models.ProductVariant
}

// seedProduct 写入一个单规格商品并设置各配送方式的库存
func seedProduct(t *testing.T, db *gorm.DB, name string, basePrice int64, stocks map[uint]int) catalogFixture {
	t.Helper()
	product := &models.Product{Name: name, BasePrice: krw(basePrice)}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	variant := &models.ProductVariant{ProductID: product.ID, SKU: name + "-SKU"}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("create variant failed: %v", err)
	}
	for methodID, qty := range stocks {
		stock := &models.InventoryStock{VariantID: variant.ID, MethodID: methodID, QuantityAvailable: qty}
		if err := db.Create(stock).Error; err != nil {
			t.Fatalf("create stock failed: %v", err)
		}
	}
	return catalogFixture{product: product, variant: variant}
}

func stockOf(t *testing.T, db *gorm.DB, variantID, methodID uint) int {
	t.Helper()
	var stock models.InventoryStock
	if err := db.Where("variant_id = ? AND method_id = ?", variantID, methodID).First(&stock).Error; err != nil {
		t.Fatalf("load stock failed: %v", err)
	}
	return stock.QuantityAvailable
}

type serviceSet struct {
	payment *PaymentService
	order   *OrderService
}

func newServiceSet(db *gorm.DB, paymentCfg *config.PaymentConfig) serviceSet {
	paymentRepo := repository.NewPaymentRepository(db)
	return serviceSet{
		payment: NewPaymentService(paymentCfg, paymentRepo),
		order: NewOrderService(
			&config.OrderConfig{StockCASMaxRetries: 3, StockCASBackoffMS: 1},
			repository.NewOrderRepository(db),
			repository.NewProductRepository(db),
			repository.NewInventoryRepository(db),
			paymentRepo,
			nil,
		),
	}
}

// fakeEasyPay 模拟 EasyPay 网关
type fakeEasyPay struct {
	registerCode string
	approvalCode string
	queryCode    string
	amount       int64
	approvals    int32
	queries      int32
}

func (g *fakeEasyPay) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ep9/trades/webpay", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		resp := map[string]interface{}{"resCd": g.registerCode, "resMsg": "register"}
		if g.registerCode == "0000" {
			resp["authPageUrl"] = fmt.Sprintf("https://pay.example.com/auth/%v", body["shopOrderNo"])
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/ep9/trades/approval", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.approvals, 1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if g.approvalCode != "0000" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"resCd": g.approvalCode, "resMsg": "approval failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"resCd":             "0000",
			"resMsg":            "ok",
			"shopOrderNo":       body["shopOrderNo"],
			"paymentId":         "PG-PAY-1",
			"amount":            g.amount,
			"authDate":          "20260101",
			"authTime":          "120000",
			"payMethodType":     "11",
			"payMethodTypeName": "신용카드",
		})
	})
	mux.HandleFunc("/api/trades/query", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.queries, 1)
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if g.queryCode != "0000" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"resCd": g.queryCode, "resMsg": "query failed"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"resCd":       "0000",
			"shopOrderNo": body["shopOrderNo"],
			"paymentId":   "PG-QUERY-1",
			"amount":      fmt.Sprintf("%d", g.amount),
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func easyPayTestConfig(serverURL string) *config.PaymentConfig {
	return &config.PaymentConfig{
		EasyPay: config.EasyPayConfig{
			MallID:    "T0001",
			APIKey:    "test-key",
			APIURL:    serverURL,
			ReturnURL: "https://shop.example.com/api/v1/payments/easypay/callback",
		},
	}
}
