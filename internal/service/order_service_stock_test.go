package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/theunion-shop/internal/config"
	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"

	"gorm.io/gorm"
)

// casConflicts 记录剩余的模拟冲突次数与 CAS 调用次数
type casConflicts struct {
	remaining int32
	calls     int32
}

// conflictingInventoryRepo 在前 remaining 次 CompareAndSwap 时模拟并发写入导致的失败
type conflictingInventoryRepo struct {
	repository.InventoryRepository
	state *casConflicts
}

func (r conflictingInventoryRepo) WithTx(tx *gorm.DB) repository.InventoryRepository {
	return conflictingInventoryRepo{InventoryRepository: r.InventoryRepository.WithTx(tx), state: r.state}
}

func (r conflictingInventoryRepo) CompareAndSwap(id uint, expected, next int) (bool, error) {
	atomic.AddInt32(&r.state.calls, 1)
	if atomic.AddInt32(&r.state.remaining, -1) >= 0 {
		return false, nil
	}
	return r.InventoryRepository.CompareAndSwap(id, expected, next)
}

func newConflictingOrderService(db *gorm.DB, conflicts int32, retries int) (*OrderService, *casConflicts) {
	state := &casConflicts{remaining: conflicts}
	svc := NewOrderService(
		&config.OrderConfig{StockCASMaxRetries: retries, StockCASBackoffMS: 1},
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		conflictingInventoryRepo{InventoryRepository: repository.NewInventoryRepository(db), state: state},
		repository.NewPaymentRepository(db),
		nil,
	)
	return svc, state
}

func TestCreateOrderRetriesStockConflicts(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Slogan Towel", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	svc, state := newConflictingOrderService(db, 2, 3)

	result, err := svc.CreateOrder(context.Background(), baseOrderInput(
		CreateOrderItem{VariantID: fx.variant.ID, Quantity: 2, Price: krw(1000)},
	))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if len(result.InventoryWarnings) != 0 {
		t.Fatalf("want no warnings got %+v", result.InventoryWarnings)
	}
	if got := atomic.LoadInt32(&state.calls); got != 3 {
		t.Fatalf("want 3 CAS attempts got %d", got)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 3 {
		t.Fatalf("want stock 3 got %d", got)
	}
}

func TestCreateOrderWarnsWhenStockConflictsExhaustRetries(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Light Stick", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	svc, state := newConflictingOrderService(db, 3, 3)

	result, err := svc.CreateOrder(context.Background(), baseOrderInput(
		CreateOrderItem{VariantID: fx.variant.ID, Quantity: 1, Price: krw(1000)},
	))
	if err != nil {
		t.Fatalf("order must be created despite conflicts: %v", err)
	}
	if len(result.InventoryWarnings) != 1 {
		t.Fatalf("want exactly one warning got %+v", result.InventoryWarnings)
	}
	warning := result.InventoryWarnings[0]
	if warning.Reason != constants.InventoryWarningConflict || warning.VariantID != fx.variant.ID || warning.Requested != 1 {
		t.Fatalf("unexpected warning: %+v", warning)
	}
	if got := atomic.LoadInt32(&state.calls); got != 3 {
		t.Fatalf("want 3 CAS attempts got %d", got)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 5 {
		t.Fatalf("stock must stay 5 got %d", got)
	}
	var persisted []models.InventoryWarning
	db.Where("order_id = ?", result.OrderID).Find(&persisted)
	if len(persisted) != 1 || persisted[0].Reason != constants.InventoryWarningConflict {
		t.Fatalf("want 1 persisted conflict warning got %+v", persisted)
	}
}
