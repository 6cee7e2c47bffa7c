package models

import (
	"encoding/json"
	"testing"

	"github.com/theunion-shop/internal/constants"

	gormlogger "gorm.io/gorm/logger"
)

func TestMoneyJSONRoundsToTwoDecimals(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`1000.456`), &m); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"1000.46"` {
		t.Fatalf("want \"1000.46\" got %s", raw)
	}
	if err := json.Unmarshal([]byte(`"12.5"`), &m); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if m.String() != "12.50" {
		t.Fatalf("want 12.50 got %s", m.String())
	}
}

func TestMoneyArithmetic(t *testing.T) {
	price := NewMoneyFromInt(1500)
	total := price.Mul(3).Add(NewMoneyFromInt(500))
	if !total.EqualAmount(NewMoneyFromInt(5000)) {
		t.Fatalf("want 5000 got %s", total.String())
	}
}

func TestEnsureDeliveryMethodsIsIdempotent(t *testing.T) {
	db, err := Open("sqlite", "file:ensure_delivery?mode=memory&cache=shared", DBPoolConfig{}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := EnsureDeliveryMethods(db); err != nil {
			t.Fatalf("ensure delivery methods failed: %v", err)
		}
	}
	var count int64
	if err := db.Model(&DeliveryMethod{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("want 3 delivery methods got %d", count)
	}
	var onsite DeliveryMethod
	if err := db.First(&onsite, constants.DeliveryMethodOnsiteID).Error; err != nil {
		t.Fatalf("load onsite failed: %v", err)
	}
	if onsite.Code != constants.DeliveryMethodOnsite {
		t.Fatalf("want onsite got %s", onsite.Code)
	}
}

func TestOpenSQLiteKeepsSharedMemoryAcrossStatements(t *testing.T) {
	db, err := Open("sqlite", "file:open_zero_pool?mode=memory&cache=shared", DBPoolConfig{}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle failed: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("want max open 1 got %d", got)
	}
	if err := MigrateAll(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !db.Migrator().HasTable(&Product{}) || !db.Migrator().HasIndex(&Product{}, "idx_products_deleted_at") {
		t.Fatalf("want products table and deleted_at index after migrate")
	}
	if sqlDB.Stats().Idle != 1 {
		t.Fatalf("want 1 idle connection got %d", sqlDB.Stats().Idle)
	}
}
