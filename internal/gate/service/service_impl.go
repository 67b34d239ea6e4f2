package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/clock"
	"github.com/openlotlabs/torii/internal/events"
	gatedomain "github.com/openlotlabs/torii/internal/gate/domain"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	"github.com/openlotlabs/torii/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	outbox *events.Outbox
}

func NewService(p Params) gatedomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("gate.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		outbox: p.Outbox,
	}
}

func (s *Service) Ingest(ctx context.Context, req gatedomain.IngestRequest) (*gatedomain.GateEvent, error) {
	if req.LotID == 0 {
		return nil, gatedomain.ErrInvalidLot
	}
	plate := normalizePlate(req.Plate)
	if plate == "" {
		return nil, gatedomain.ErrInvalidPlate
	}
	direction := strings.ToLower(strings.TrimSpace(req.Direction))
	if direction != gatedomain.DirectionEntry && direction != gatedomain.DirectionExit {
		return nil, gatedomain.ErrInvalidDirection
	}

	observedAt := req.ObservedAt
	if observedAt.IsZero() {
		observedAt = s.clock.Now()
	}
	observedAt = observedAt.UTC()

	event := &gatedomain.GateEvent{
		ID:         s.genID.Generate(),
		LotID:      req.LotID,
		Plate:      plate,
		Direction:  direction,
		ObservedAt: observedAt,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  time.Now().UTC(),
	}
	for key, value := range req.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		event.Metadata[key] = value
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot lotdomain.ParkingLot
		if err := tx.First(&lot, "id = ?", req.LotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gatedomain.ErrInvalidLot
			}
			return err
		}
		if event.Direction == gatedomain.DirectionExit {
			entryID, err := findUnpairedEntry(tx, event.LotID, event.Plate)
			if err != nil {
				return err
			}
			event.PairedEventID = entryID
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			LotID: event.LotID,
			Type:  events.EventGateObserved,
			Payload: events.GatePayload{
				GateEventID: event.ID.String(),
				LotID:       event.LotID.String(),
				Plate:       event.Plate,
				Direction:   event.Direction,
			}.ToMap(),
			DedupeKey: "gate:" + event.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Service) List(ctx context.Context, filter gatedomain.ListFilter) ([]gatedomain.GateEvent, pagination.PageInfo, error) {
	query := s.db.WithContext(ctx).Model(&gatedomain.GateEvent{})
	if filter.LotID != 0 {
		query = query.Where("lot_id = ?", filter.LotID)
	}
	if plate := normalizePlate(filter.Plate); plate != "" {
		query = query.Where("plate = ?", plate)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", strings.ToLower(filter.Direction))
	}

	page := filter.Page.Normalize()
	info := pagination.PageInfo{Page: page.Page, PageSize: page.PageSize}
	if err := query.Count(&info.TotalCount).Error; err != nil {
		return nil, info, err
	}

	var rows []gatedomain.GateEvent
	err := query.Order("observed_at DESC, id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, info, err
	}
	return rows, info, nil
}

// findUnpairedEntry returns the newest entry observation for the plate that
// no exit has claimed yet, or nil when every entry is already closed.
func findUnpairedEntry(tx *gorm.DB, lotID snowflake.ID, plate string) (*snowflake.ID, error) {
	var entry gatedomain.GateEvent
	err := tx.
		Where("lot_id = ? AND plate = ? AND direction = ?", lotID, plate, gatedomain.DirectionEntry).
		Where("id NOT IN (SELECT paired_event_id FROM gate_events WHERE paired_event_id IS NOT NULL)").
		Order("observed_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := entry.ID
	return &id, nil
}

// normalizePlate uppercases and strips interior whitespace so the same
// plate always compares equal regardless of camera formatting.
func normalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return strings.Join(strings.Fields(plate), "")
}
