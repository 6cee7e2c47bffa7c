package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/theunion-shop/internal/models"
	"github.com/theunion-shop/internal/repository"

	gormlogger "gorm.io/gorm/logger"
)

type memoryStorage struct {
	data  map[string][]Item
	saves int
}

func (m *memoryStorage) Load(_ context.Context, sessionID string) ([]Item, error) {
	return append([]Item(nil), m.data[sessionID]...), nil
}

func (m *memoryStorage) Save(_ context.Context, sessionID string, items []Item) error {
	if m.data == nil {
		m.data = map[string][]Item{}
	}
	m.saves++
	m.data[sessionID] = append([]Item(nil), items...)
	return nil
}

func (m *memoryStorage) Clear(_ context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

type brokenStorage struct{}

func (brokenStorage) Load(context.Context, string) ([]Item, error) {
	return nil, errors.New("storage down")
}

func (brokenStorage) Save(context.Context, string, []Item) error {
	return errors.New("storage down")
}

func (brokenStorage) Clear(context.Context, string) error {
	return errors.New("storage down")
}

func item(productID uint, option string, price int64, qty int) Item {
	return Item{ProductID: productID, OptionLabel: option, Price: models.NewMoneyFromInt(price), Quantity: qty}
}

func TestAddMergesByProductAndOption(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, "s1", &memoryStorage{})

	if err := store.Add(ctx, item(1, "Black / M", 1000, 0)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := store.Add(ctx, item(1, "Black / M", 1000, 2)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := store.Add(ctx, item(1, "White / M", 1000, 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	items := store.Items()
	if len(items) != 2 {
		t.Fatalf("want 2 lines got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Fatalf("default quantity 1 plus 2 should be 3, got %d", items[0].Quantity)
	}
	if store.Count() != 4 {
		t.Fatalf("want count 4 got %d", store.Count())
	}
}

func TestAddRejectsInvalidItem(t *testing.T) {
	store := Open(context.Background(), "s1", nil)
	if err := store.Add(context.Background(), item(0, "", 1000, 1)); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("want ErrInvalidItem got %v", err)
	}
	if err := store.Add(context.Background(), item(1, "", -1, 1)); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("negative price should fail, got %v", err)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, "s1", &memoryStorage{})
	_ = store.Add(ctx, item(1, "A", 1000, 1))
	_ = store.Add(ctx, item(2, "", 500, 1))

	store.SetQuantity(ctx, 1, "A", 5)
	if got := store.Items()[0].Quantity; got != 5 {
		t.Fatalf("want quantity 5 got %d", got)
	}
	store.SetQuantity(ctx, 1, "A", 0)
	if len(store.Items()) != 1 {
		t.Fatalf("zero quantity should remove the line")
	}
	store.Remove(ctx, 99, "missing")
	if len(store.Items()) != 1 {
		t.Fatalf("removing an absent line should be a no-op")
	}
	store.Remove(ctx, 2, "")
	if len(store.Items()) != 0 {
		t.Fatalf("want empty cart")
	}
}

func TestTotalIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	lines := []Item{item(1, "A", 1200, 2), item(2, "", 350, 3), item(3, "B", 99, 1)}

	forward := Open(ctx, "", nil)
	for _, line := range lines {
		_ = forward.Add(ctx, line)
	}
	backward := Open(ctx, "", nil)
	for i := len(lines) - 1; i >= 0; i-- {
		_ = backward.Add(ctx, lines[i])
	}

	want := models.NewMoneyFromInt(1200*2 + 350*3 + 99)
	if !forward.Total().EqualAmount(want) || !backward.Total().EqualAmount(want) {
		t.Fatalf("want total %s got %s / %s", want, forward.Total(), backward.Total())
	}
}

func TestSetDeliveryMethodAndClear(t *testing.T) {
	ctx := context.Background()
	storage := &memoryStorage{}
	store := Open(ctx, "s1", storage)
	_ = store.Add(ctx, item(1, "A", 1000, 1))
	_ = store.Add(ctx, item(2, "", 500, 1))

	store.SetDeliveryMethod(ctx, "국내배송")
	for _, line := range store.Items() {
		if line.DeliveryMethod != "국내배송" {
			t.Fatalf("delivery method not applied: %+v", line)
		}
	}

	store.Clear(ctx)
	if store.Count() != 0 {
		t.Fatalf("want empty cart after clear")
	}
	if _, ok := storage.data["s1"]; ok {
		t.Fatalf("storage should be cleared")
	}
}

func TestStorageFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, "s1", brokenStorage{})
	if err := store.Add(ctx, item(1, "A", 1000, 2)); err != nil {
		t.Fatalf("storage errors must not surface, got %v", err)
	}
	if store.Count() != 2 {
		t.Fatalf("want count 2 got %d", store.Count())
	}
	store.Clear(ctx)
	if store.Count() != 0 {
		t.Fatalf("want empty cart after clear")
	}
}

func TestReopenRestoresPersistedCart(t *testing.T) {
	ctx := context.Background()
	storage := &memoryStorage{}
	first := Open(ctx, "s1", storage)
	_ = first.Add(ctx, item(1, "A", 1000, 2))

	second := Open(ctx, "s1", storage)
	if second.Count() != 2 {
		t.Fatalf("want restored count 2 got %d", second.Count())
	}
}

func TestDBStorageRoundTrip(t *testing.T) {
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := models.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), models.DBPoolConfig{}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	storage := NewDBStorage(repository.NewCartRepository(db))

	ctx := context.Background()
	store := Open(ctx, "session-db", storage)
	_ = store.Add(ctx, item(1, "A", 1000, 1))
	_ = store.Add(ctx, item(2, "", 500, 2))
	store.SetQuantity(ctx, 1, "A", 4)

	reloaded := Open(ctx, "session-db", storage)
	items := reloaded.Items()
	if len(items) != 2 || items[0].ProductID != 1 || items[0].Quantity != 4 {
		t.Fatalf("unexpected reloaded items: %+v", items)
	}
	if !reloaded.Total().EqualAmount(models.NewMoneyFromInt(5000)) {
		t.Fatalf("want total 5000 got %s", reloaded.Total())
	}
}
