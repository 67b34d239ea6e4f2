package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	"github.com/openlotlabs/torii/internal/migration"
)

type noopInvalidator struct {
	invalidated []snowflake.ID
}

func (n *noopInvalidator) Invalidate(lotID snowflake.ID) {
	n.invalidated = append(n.invalidated, lotID)
}

func setupLotTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func newLotTestService(t *testing.T, db *gorm.DB) (*Service, *noopInvalidator) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	inv := &noopInvalidator{}
	return &Service{
		db:      db,
		log:     zap.NewNop(),
		genID:   node,
		pricing: inv,
	}, inv
}

func insertOwner(t *testing.T, db *gorm.DB) lotdomain.Owner {
	t.Helper()
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	owner := lotdomain.Owner{
		ID:                 node.Generate(),
		Name:               "Owner",
		Email:              "owner@example.com",
		DefaultUnitMinutes: 60,
		DefaultUnitAmount:  300,
	}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}
	return owner
}

func TestCreateLotProvisionsSpaces(t *testing.T) {
	db := setupLotTestDB(t)
	svc, _ := newLotTestService(t, db)
	owner := insertOwner(t, db)

	lot, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    owner.ID,
		Name:       "Central Lot",
		Address:    "Chiyoda",
		SpaceCount: 5,
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}

	spaces, err := svc.Spaces(context.Background(), lot.ID)
	if err != nil {
		t.Fatalf("spaces: %v", err)
	}
	if len(spaces) != 5 {
		t.Fatalf("expected 5 spaces, got %d", len(spaces))
	}
	for i, space := range spaces {
		if space.SpaceNumber != i+1 {
			t.Fatalf("expected space number %d, got %d", i+1, space.SpaceNumber)
		}
		if space.QRCode == "" {
			t.Fatal("expected a QR code")
		}
		if space.Status != lotdomain.SpaceStatusAvailable {
			t.Fatalf("expected available, got %q", space.Status)
		}
	}
}

func TestCreateLotValidation(t *testing.T) {
	db := setupLotTestDB(t)
	svc, _ := newLotTestService(t, db)
	owner := insertOwner(t, db)

	_, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    owner.ID,
		Name:       "",
		SpaceCount: 5,
	})
	if !errors.Is(err, lotdomain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	_, err = svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    owner.ID,
		Name:       "Lot",
		SpaceCount: 0,
	})
	if !errors.Is(err, lotdomain.ErrInvalidSpaceCnt) {
		t.Fatalf("expected ErrInvalidSpaceCnt, got %v", err)
	}

	_, err = svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    999,
		Name:       "Lot",
		SpaceCount: 5,
	})
	if !errors.Is(err, lotdomain.ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestUpdatePricingReplacesPeriods(t *testing.T) {
	db := setupLotTestDB(t)
	svc, inv := newLotTestService(t, db)
	owner := insertOwner(t, db)

	lot, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    owner.ID,
		Name:       "Priced Lot",
		SpaceCount: 2,
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}

	unitMinutes := int64(30)
	amount := int64(200)
	updated, err := svc.UpdatePricing(context.Background(), lot.ID, lotdomain.UpdatePricingRequest{
		PricingUnitMinutes:    &unitMinutes,
		PricingAmount:         &amount,
		MaxDailyAmount:        3000,
		MaxDailyAmountEnabled: true,
		Periods: []lotdomain.TimePeriodRequest{
			{StartHour: 5, EndHour: 19, MaxAmount: 3000},
			{StartHour: 19, EndHour: 5, MaxAmount: 1300},
		},
	})
	if err != nil {
		t.Fatalf("update pricing: %v", err)
	}
	if updated.PricingUnitMinutes == nil || *updated.PricingUnitMinutes != 30 {
		t.Fatalf("expected 30 minute unit, got %+v", updated.PricingUnitMinutes)
	}
	if !updated.MaxDailyAmountEnabled || updated.MaxDailyAmount != 3000 {
		t.Fatalf("expected daily cap 3000 enabled, got %d", updated.MaxDailyAmount)
	}

	var periods []lotdomain.MaxPricingPeriod
	if err := db.Where("lot_id = ?", lot.ID).Order("id ASC").Find(&periods).Error; err != nil {
		t.Fatalf("load periods: %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if periods[0].StartHour != 5 || periods[1].StartHour != 19 {
		t.Fatalf("unexpected period order: %+v", periods)
	}

	if len(inv.invalidated) == 0 || inv.invalidated[0] != lot.ID {
		t.Fatalf("expected pricing invalidation for lot %d, got %v", lot.ID, inv.invalidated)
	}
}

func TestUpdatePricingRejectsBadHours(t *testing.T) {
	db := setupLotTestDB(t)
	svc, _ := newLotTestService(t, db)
	owner := insertOwner(t, db)

	lot, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
		OwnerID:    owner.ID,
		Name:       "Hours Lot",
		SpaceCount: 1,
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}

	_, err = svc.UpdatePricing(context.Background(), lot.ID, lotdomain.UpdatePricingRequest{
		Periods: []lotdomain.TimePeriodRequest{{StartHour: 24, EndHour: 5, MaxAmount: 1000}},
	})
	if !errors.Is(err, lotdomain.ErrInvalidHourRange) {
		t.Fatalf("expected ErrInvalidHourRange, got %v", err)
	}
}

func TestListScopesByOwner(t *testing.T) {
	db := setupLotTestDB(t)
	svc, _ := newLotTestService(t, db)
	ownerA := insertOwner(t, db)

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}
	ownerB := lotdomain.Owner{ID: node.Generate(), Name: "Other", Email: "other@example.com"}
	if err := db.Create(&ownerB).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}

	for _, owner := range []snowflake.ID{ownerA.ID, ownerB.ID} {
		if _, err := svc.Create(context.Background(), lotdomain.CreateLotRequest{
			OwnerID:    owner,
			Name:       fmt.Sprintf("Lot %d", owner),
			SpaceCount: 1,
		}); err != nil {
			t.Fatalf("create lot: %v", err)
		}
	}

	scoped, err := svc.List(context.Background(), ownerA.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(scoped))
	}

	all, err := svc.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 lots, got %d", len(all))
	}
}
