package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	pricingdomain "github.com/openlotlabs/torii/internal/pricing/domain"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&lotdomain.Owner{}, &lotdomain.ParkingLot{}, &lotdomain.MaxPricingPeriod{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB) pricingdomain.Resolver {
	t.Helper()
	return NewResolver(Params{DB: db, Log: zap.NewNop()})
}

func insertOwner(t *testing.T, db *gorm.DB, id int64, unitMinutes, unitAmount int64) {
	t.Helper()
	owner := lotdomain.Owner{
		ID:                 snowflake.ID(id),
		Name:               "owner",
		Email:              "owner@example.com",
		DefaultUnitMinutes: unitMinutes,
		DefaultUnitAmount:  unitAmount,
	}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("insert owner: %v", err)
	}
}

func insertLot(t *testing.T, db *gorm.DB, lot lotdomain.ParkingLot) {
	t.Helper()
	if err := db.Create(&lot).Error; err != nil {
		t.Fatalf("insert lot: %v", err)
	}
}

func TestResolveFallsBackToOwnerDefaults(t *testing.T) {
	db := setupPricingTestDB(t)
	insertOwner(t, db, 1, 30, 200)
	insertLot(t, db, lotdomain.ParkingLot{ID: 10, OwnerID: 1, Name: "station front"})

	cfg, err := newTestResolver(t, db).Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.UnitMinutes != 30 || cfg.UnitAmount != 200 {
		t.Fatalf("got unit %d/%d, want owner defaults 30/200", cfg.UnitMinutes, cfg.UnitAmount)
	}
	if cfg.DailyCapEnabled {
		t.Fatal("daily cap should be disabled by default")
	}
}

func TestResolveLotOverridesWin(t *testing.T) {
	db := setupPricingTestDB(t)
	insertOwner(t, db, 1, 30, 200)
	unit := int64(60)
	amount := int64(300)
	insertLot(t, db, lotdomain.ParkingLot{
		ID: 10, OwnerID: 1, Name: "station front",
		PricingUnitMinutes:    &unit,
		PricingAmount:         &amount,
		MaxDailyAmount:        3000,
		MaxDailyAmountEnabled: true,
	})

	cfg, err := newTestResolver(t, db).Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.UnitMinutes != 60 || cfg.UnitAmount != 300 {
		t.Fatalf("got unit %d/%d, want lot overrides 60/300", cfg.UnitMinutes, cfg.UnitAmount)
	}
	if !cfg.DailyCapActive() || cfg.DailyCapAmount != 3000 {
		t.Fatalf("daily cap = %v/%d, want active 3000", cfg.DailyCapEnabled, cfg.DailyCapAmount)
	}
}

func TestResolvePeriodsKeepInsertionOrder(t *testing.T) {
	db := setupPricingTestDB(t)
	insertOwner(t, db, 1, 60, 300)
	insertLot(t, db, lotdomain.ParkingLot{ID: 10, OwnerID: 1, Name: "station front"})

	rows := []lotdomain.MaxPricingPeriod{
		{ID: 100, LotID: 10, StartHour: 5, EndHour: 19, MaxAmount: 3000},
		{ID: 101, LotID: 10, StartHour: 19, EndHour: 5, MaxAmount: 1300},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("insert period: %v", err)
		}
	}

	cfg, err := newTestResolver(t, db).Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(cfg.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(cfg.Periods))
	}
	if cfg.Periods[0].StartHour != 5 || cfg.Periods[1].StartHour != 19 {
		t.Fatalf("periods out of insertion order: %+v", cfg.Periods)
	}
}

func TestResolveUnknownLot(t *testing.T) {
	db := setupPricingTestDB(t)
	_, err := newTestResolver(t, db).Resolve(context.Background(), 999)
	if !errors.Is(err, pricingdomain.ErrLotNotFound) {
		t.Fatalf("got %v, want ErrLotNotFound", err)
	}
}

func TestResolveCachesUntilInvalidate(t *testing.T) {
	db := setupPricingTestDB(t)
	insertOwner(t, db, 1, 60, 300)
	insertLot(t, db, lotdomain.ParkingLot{ID: 10, OwnerID: 1, Name: "station front"})

	resolver := newTestResolver(t, db)
	first, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := db.Model(&lotdomain.ParkingLot{}).
		Where("id = ?", 10).
		Update("max_daily_amount_enabled", true).
		Update("max_daily_amount", 1500).Error; err != nil {
		t.Fatalf("update lot: %v", err)
	}

	cached, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if cached.DailyCapEnabled != first.DailyCapEnabled || cached.DailyCapAmount != first.DailyCapAmount {
		t.Fatalf("expected cached config before invalidate, got %+v", cached)
	}

	resolver.Invalidate(10)
	fresh, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("resolve fresh: %v", err)
	}
	if !fresh.DailyCapActive() || fresh.DailyCapAmount != 1500 {
		t.Fatalf("expected refreshed cap 1500, got %+v", fresh)
	}
}
