package occupancy

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	"github.com/openlotlabs/torii/internal/migration"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

func setupOccupancyTestDB(t *testing.T) *gorm.DB {
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

func TestRunOnceCapturesOccupancy(t *testing.T) {
	db := setupOccupancyTestDB(t)
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	lot := lotdomain.ParkingLot{ID: node.Generate(), OwnerID: node.Generate(), Name: "Snapshot Lot"}
	if err := db.Create(&lot).Error; err != nil {
		t.Fatalf("create lot: %v", err)
	}
	statuses := []string{
		lotdomain.SpaceStatusOccupied,
		lotdomain.SpaceStatusOccupied,
		lotdomain.SpaceStatusAvailable,
	}
	for i, status := range statuses {
		space := lotdomain.ParkingSpace{
			ID:          node.Generate(),
			LotID:       lot.ID,
			SpaceNumber: i + 1,
			Status:      status,
			QRCode:      uuid.NewString(),
		}
		if err := db.Create(&space).Error; err != nil {
			t.Fatalf("create space: %v", err)
		}
	}
	session := sessiondomain.ParkingSession{
		ID:           node.Generate(),
		SpaceID:      node.Generate(),
		LotID:        lot.ID,
		SessionToken: uuid.NewString(),
		Status:       sessiondomain.StatusActive,
		EntryTime:    time.Now().UTC(),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	worker := &Worker{db: db, log: zap.NewNop(), genID: node, cfg: DefaultConfig().withDefaults()}
	if err := worker.RunOnce(); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var snapshot LotSnapshot
	if err := db.First(&snapshot, "lot_id = ?", lot.ID).Error; err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapshot.TotalSpaces != 3 || snapshot.OccupiedSpaces != 2 || snapshot.ActiveSessions != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	// A second run updates the existing row instead of inserting another.
	if err := db.Model(&lotdomain.ParkingSpace{}).
		Where("lot_id = ?", lot.ID).
		Update("status", lotdomain.SpaceStatusAvailable).Error; err != nil {
		t.Fatalf("release spaces: %v", err)
	}
	if err := worker.RunOnce(); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int64
	if err := db.Model(&LotSnapshot{}).Where("lot_id = ?", lot.ID).Count(&count).Error; err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one snapshot row, got %d", count)
	}
	if err := db.First(&snapshot, "lot_id = ?", lot.ID).Error; err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if snapshot.OccupiedSpaces != 0 {
		t.Fatalf("expected zero occupied, got %d", snapshot.OccupiedSpaces)
	}
}
