package worker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/provider"
	"github.com/theunion-shop/internal/queue"
	"github.com/theunion-shop/internal/repository"
	"github.com/theunion-shop/internal/service"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupWorkerTest(t *testing.T) (*gorm.DB, *Consumer) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open("sqlite", fmt.Sprintf("file:worker_%s?mode=memory&cache=shared", name), models.DBPoolConfig{}, gormlogger.Silent)
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

	cfg := &config.Config{Order: config.OrderConfig{PaymentExpireHours: 1}}
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	container := &provider.Container{
		Config:         cfg,
		OrderRepo:      orderRepo,
		PaymentRepo:    paymentRepo,
		PaymentService: service.NewPaymentService(&cfg.Payment, paymentRepo),
		OrderService: service.NewOrderService(&cfg.Order, orderRepo,
			repository.NewProductRepository(db),
			repository.NewInventoryRepository(db),
			paymentRepo, nil),
		EmailService: service.NewEmailService(&cfg.Email),
	}
	container.OrderService.SetEmailService(container.EmailService)
	return db, NewConsumer(container)
}

func TestHandleOrderCreatedSkipsWhenEmailDisabled(t *testing.T) {
	_, consumer := setupWorkerTest(t)
	task, err := queue.NewOrderCreatedTask(queue.OrderCreatedPayload{OrderID: 42, Locale: "ko-KR"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if err := consumer.handleOrderCreated(context.Background(), task); err != nil {
		t.Fatalf("disabled email should be skipped, got %v", err)
	}
	if err := consumer.handleOrderCreated(context.Background(), asynq.NewTask(queue.TaskOrderCreated, []byte("{"))); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleInventoryReconcile(t *testing.T) {
	db, consumer := setupWorkerTest(t)
	product := &models.Product{Name: "Scarf", BasePrice: models.NewMoneyFromInt(800)}
	db.Create(product)
	variant := &models.ProductVariant{ProductID: product.ID, SKU: "SCARF"}
	db.Create(variant)
	db.Create(&models.InventoryStock{VariantID: variant.ID, MethodID: constants.DeliveryMethodDomesticID, QuantityAvailable: 5})
	warning := &models.InventoryWarning{OrderID: 7, VariantID: variant.ID, MethodID: constants.DeliveryMethodDomesticID, Reason: constants.InventoryWarningUpdateFailed, Requested: 2}
	if err := db.Create(warning).Error; err != nil {
		t.Fatalf("seed warning failed: %v", err)
	}

	task, _ := queue.NewInventoryReconcileTask(queue.InventoryReconcilePayload{OrderID: 7})
	if err := consumer.handleInventoryReconcile(context.Background(), task); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	var stock models.InventoryStock
	db.Where("variant_id = ?", variant.ID).First(&stock)
	if stock.QuantityAvailable != 3 {
		t.Fatalf("want stock 3 got %d", stock.QuantityAvailable)
	}
	var reloaded models.InventoryWarning
	db.First(&reloaded, warning.ID)
	if reloaded.ResolvedAt == nil {
		t.Fatalf("warning should be resolved")
	}
}

func TestPaymentMaxAge(t *testing.T) {
	_, consumer := setupWorkerTest(t)
	svc := &Service{consumer: consumer}
	if got := svc.paymentMaxAge(); got != time.Hour {
		t.Fatalf("want 1h got %s", got)
	}
	consumer.Config.Order.PaymentExpireHours = 0
	if got := svc.paymentMaxAge(); got != defaultPaymentExpireHours*time.Hour {
		t.Fatalf("want default got %s", got)
	}
}

func TestNewServiceRequiresQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}); err == nil {
		t.Fatalf("disabled queue should fail")
	}
}
