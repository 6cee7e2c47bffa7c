package repository

import (
	"testing"

	"github.com/theunion-shop/internal/models"
)

func TestCartRepositoryReplaceSession(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCartRepository(db)

	items := []models.CartItem{
		{ProductID: 1, OptionLabel: "black / M", ProductName: "티셔츠", Price: money(25000), Quantity: 2},
		{ProductID: 2, OptionLabel: "", ProductName: "키링", Price: money(8000), Quantity: 1},
	}
	if err := repo.ReplaceSession("s-1", items); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := repo.ReplaceSession("s-1", items[:1]); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	loaded, err := repo.ListBySession("s-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ProductID != 1 || loaded[0].Quantity != 2 {
		t.Fatalf("unexpected cart rows: %+v", loaded)
	}
	other, _ := repo.ListBySession("s-2")
	if len(other) != 0 {
		t.Fatalf("sessions must be isolated, got %d rows", len(other))
	}
	if err := repo.ClearBySession("s-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	loaded, _ = repo.ListBySession("s-1")
	if len(loaded) != 0 {
		t.Fatalf("want empty cart got %d", len(loaded))
	}
}
