package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/theunion-shop/internal/constants"
	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/payment/easypay"
)

func baseOrderInput(items ...CreateOrderItem) CreateOrderInput {
	total := models.NewMoneyFromInt(0)
	for _, item := range items {
		total = total.Add(item.Price.Mul(item.Quantity))
	}
	return CreateOrderInput{
		CustomerName:    "홍길동",
		CustomerEmail:   "buyer@example.com",
		CustomerPhone:   "010-1234-5678",
		CustomerAddress: "Seoul",
		DeliveryMethod:  "국내배송",
		TotalAmount:     total,
		Items:           items,
	}
}

func TestCreateOrderUnknownDeliveryMethod(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Hoodie", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	set := newServiceSet(db, nil)

	input := baseOrderInput(CreateOrderItem{ProductID: fx.product.ID, VariantID: fx.variant.ID, Quantity: 1, Price: krw(1000)})
	input.DeliveryMethod = "우주배송"
	if _, err := set.order.CreateOrder(context.Background(), input); !errors.Is(err, ErrInvalidDeliveryMethod) {
		t.Fatalf("want ErrInvalidDeliveryMethod got %v", err)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("no order should be created, got %d", count)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	db := setupServiceTestDB(t)
	set := newServiceSet(db, nil)

	input := baseOrderInput()
	input.TotalAmount = krw(1000)
	if _, err := set.order.CreateOrder(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty items: want ErrValidation got %v", err)
	}
	input = baseOrderInput(CreateOrderItem{ProductID: 1, Quantity: 1, Price: krw(1000)})
	input.CustomerEmail = "not-an-email"
	_, err := set.order.CreateOrder(context.Background(), input)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "customer_email" {
		t.Fatalf("want customer_email validation error got %v", err)
	}
}

func TestCreateOrderDeductsStock(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Hoodie", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	set := newServiceSet(db, nil)

	result, err := set.order.CreateOrder(context.Background(), baseOrderInput(
		CreateOrderItem{ProductID: fx.product.ID, Quantity: 2, Price: krw(1000), OptionLabel: "Black / M"},
	))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !strings.HasPrefix(result.OrderNo, "TU") || len(result.InventoryWarnings) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 3 {
		t.Fatalf("want stock 3 got %d", got)
	}
	order, err := set.order.GetOrder(result.OrderID)
	if err != nil || order == nil {
		t.Fatalf("load order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.OrderPaymentStatusPaid {
		t.Fatalf("unexpected order status: %s/%s", order.Status, order.PaymentStatus)
	}
	if len(order.Items) != 1 || order.Items[0].SKUSnapshot != "Hoodie-SKU" || !order.Items[0].Subtotal.EqualAmount(krw(2000)) {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}
}

func TestCreateOrderWarnsOnInsufficientStock(t *testing.T) {
	db := setupServiceTestDB(t)
	inStock := seedProduct(t, db, "Cap", 500, map[uint]int{constants.DeliveryMethodDomesticID: 3})
	soldOut := seedProduct(t, db, "Tote", 700, map[uint]int{constants.DeliveryMethodDomesticID: 0})
	set := newServiceSet(db, nil)

	result, err := set.order.CreateOrder(context.Background(), baseOrderInput(
		CreateOrderItem{VariantID: inStock.variant.ID, Quantity: 1, Price: krw(500)},
		CreateOrderItem{VariantID: soldOut.variant.ID, Quantity: 2, Price: krw(700)},
	))
	if err != nil {
		t.Fatalf("order must be created despite stock shortage: %v", err)
	}
	if len(result.InventoryWarnings) != 1 {
		t.Fatalf("want exactly one warning got %+v", result.InventoryWarnings)
	}
	warning := result.InventoryWarnings[0]
	if warning.Reason != constants.InventoryWarningInsufficient || warning.VariantID != soldOut.variant.ID {
		t.Fatalf("unexpected warning: %+v", warning)
	}
	if warning.Available == nil || *warning.Available != 0 || warning.Requested != 2 {
		t.Fatalf("unexpected warning quantities: %+v", warning)
	}
	if got := stockOf(t, db, inStock.variant.ID, constants.DeliveryMethodDomesticID); got != 2 {
		t.Fatalf("in-stock item should be deducted, got %d", got)
	}
	var persisted []models.InventoryWarning
	db.Where("order_id = ?", result.OrderID).Find(&persisted)
	if len(persisted) != 1 {
		t.Fatalf("want 1 persisted warning got %d", len(persisted))
	}
}

func TestCreateOrderWarnsOnMissingStockRecord(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Poster", 300, map[uint]int{constants.DeliveryMethodDomesticID: 10})
	set := newServiceSet(db, nil)

	input := baseOrderInput(CreateOrderItem{VariantID: fx.variant.ID, Quantity: 1, Price: krw(300)})
	input.DeliveryMethod = "팬미팅현장수령"
	result, err := set.order.CreateOrder(context.Background(), input)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if len(result.InventoryWarnings) != 1 || result.InventoryWarnings[0].Reason != constants.InventoryWarningStockNotFound {
		t.Fatalf("want stock-not-found warning got %+v", result.InventoryWarnings)
	}
}

func TestCreateOrderRejectsAmbiguousProduct(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Jacket", 1000, nil)
	if err := db.Create(&models.ProductVariant{ProductID: fx.product.ID, SKU: "Jacket-L"}).Error; err != nil {
		t.Fatalf("create second variant failed: %v", err)
	}
	set := newServiceSet(db, nil)

	_, err := set.order.CreateOrder(context.Background(), baseOrderInput(CreateOrderItem{ProductID: fx.product.ID, Quantity: 1, Price: krw(1000)}))
	if !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("want ErrInvalidOrderItem got %v", err)
	}
}

func TestCreateOrderConcurrentLastUnit(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Limited", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 1})
	set := newServiceSet(db, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*CreateOrderResult
		errs    []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := set.order.CreateOrder(context.Background(), baseOrderInput(
				CreateOrderItem{VariantID: fx.variant.ID, Quantity: 1, Price: krw(1000)},
			))
			mu.Lock()
			defer mu.Unlock()
			results = append(results, result)
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	warnings := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("order %d failed: %v", i, err)
		}
		warnings += len(results[i].InventoryWarnings)
	}
	if warnings != 1 {
		t.Fatalf("want exactly one warning across both orders got %d", warnings)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 0 {
		t.Fatalf("want stock 0 got %d", got)
	}
}

func TestPlaceOrderRequiresVerifiedPayment(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Hoodie", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	gw := &fakeEasyPay{registerCode: "0000", amount: 1000}
	set := newServiceSet(db, easyPayTestConfig(gw.server(t).URL))
	registered := registerTestPayment(t, set.payment, 1000)

	_, err := set.order.PlaceOrder(context.Background(), PlaceOrderInput{
		Provider:    constants.PaymentProviderEasyPay,
		ShopOrderNo: registered.ShopOrderNo,
		Order:       baseOrderInput(CreateOrderItem{VariantID: fx.variant.ID, Quantity: 1, Price: krw(1000)}),
	})
	if !errors.Is(err, ErrPaymentNotVerified) {
		t.Fatalf("want ErrPaymentNotVerified got %v", err)
	}
}

func TestCheckoutEndToEnd(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Hoodie", 1000, map[uint]int{constants.DeliveryMethodDomesticID: 5})
	gw := &fakeEasyPay{registerCode: "0000", approvalCode: "0000", amount: 2000}
	set := newServiceSet(db, easyPayTestConfig(gw.server(t).URL))
	ctx := context.Background()

	registered := registerTestPayment(t, set.payment, 2000)
	if _, err := set.payment.HandleEasyPayCallback(ctx, easypay.CallbackPayload{
		ResCd:           "0000",
		ShopOrderNo:     registered.ShopOrderNo,
		AuthorizationID: "auth-1",
	}); err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if _, err := set.payment.VerifyEasyPay(ctx, VerifyEasyPayInput{ShopOrderNo: registered.ShopOrderNo, Amount: krw(2000)}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	orderInput := baseOrderInput(CreateOrderItem{VariantID: fx.variant.ID, Quantity: 2, Price: krw(1000)})
	mismatch := orderInput
	mismatch.TotalAmount = krw(1500)
	if _, err := set.order.PlaceOrder(ctx, PlaceOrderInput{Provider: constants.PaymentProviderEasyPay, ShopOrderNo: registered.ShopOrderNo, Order: mismatch}); !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("want ErrPaymentAmountMismatch got %v", err)
	}

	placed, err := set.order.PlaceOrder(ctx, PlaceOrderInput{Provider: constants.PaymentProviderEasyPay, ShopOrderNo: registered.ShopOrderNo, Order: orderInput})
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	again, err := set.order.PlaceOrder(ctx, PlaceOrderInput{Provider: constants.PaymentProviderEasyPay, ShopOrderNo: registered.ShopOrderNo, Order: orderInput})
	if err != nil {
		t.Fatalf("repeat place order failed: %v", err)
	}
	if again.OrderID != placed.OrderID {
		t.Fatalf("want same order for one payment, got %d and %d", placed.OrderID, again.OrderID)
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 1 {
		t.Fatalf("want 1 order got %d", count)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 3 {
		t.Fatalf("stock must be deducted once, got %d", got)
	}
	payment, _ := set.payment.GetPaymentByShopOrderNo(registered.ShopOrderNo)
	if payment.OrderID == nil || *payment.OrderID != placed.OrderID {
		t.Fatalf("payment not bound to order: %+v", payment.OrderID)
	}
	order, _ := set.order.GetOrder(placed.OrderID)
	if order.ShopOrderNo != registered.ShopOrderNo || order.Currency != constants.CurrencyKRW {
		t.Fatalf("unexpected order payment fields: %+v", order)
	}
}

func TestReconcileInventoryRetriesConflicts(t *testing.T) {
	db := setupServiceTestDB(t)
	fx := seedProduct(t, db, "Scarf", 800, map[uint]int{constants.DeliveryMethodDomesticID: 4})
	set := newServiceSet(db, nil)

	result, err := set.order.CreateOrder(context.Background(), baseOrderInput(CreateOrderItem{VariantID: fx.variant.ID, Quantity: 1, Price: krw(800)}))
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	warnings := []models.InventoryWarning{
		{OrderID: result.OrderID, VariantID: fx.variant.ID, MethodID: constants.DeliveryMethodDomesticID, Reason: constants.InventoryWarningConflict, Requested: 1},
		{OrderID: result.OrderID, VariantID: fx.variant.ID, MethodID: constants.DeliveryMethodDomesticID, Reason: constants.InventoryWarningInsufficient, Requested: 9},
	}
	if err := db.Create(&warnings).Error; err != nil {
		t.Fatalf("seed warnings failed: %v", err)
	}

	resolved, err := set.order.ReconcileInventory(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("want 1 resolved got %d", resolved)
	}
	if got := stockOf(t, db, fx.variant.ID, constants.DeliveryMethodDomesticID); got != 2 {
		t.Fatalf("want stock 2 got %d", got)
	}
	var open int64
	db.Model(&models.InventoryWarning{}).Where("order_id = ? AND resolved_at IS NULL", result.OrderID).Count(&open)
	if open != 1 {
		t.Fatalf("want 1 open warning got %d", open)
	}
}
