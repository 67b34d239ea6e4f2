// Package occupancy maintains per-lot occupancy snapshots so dashboard
// reads never aggregate the space table on the hot path.
package occupancy

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Config Config `optional:"true"`
}

type Worker struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cfg   Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:    p.DB,
		log:   p.Log.Named("occupancy.snapshot"),
		genID: p.GenID,
		cfg:   cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("occupancy snapshot run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := w.processBatch(ctx, w.cfg.BatchSize)
	return err
}

type lotRollup struct {
	LotID          snowflake.ID
	TotalSpaces    int64
	OccupiedSpaces int64
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil || w.genID == nil {
		return 0, errors.New("occupancy_worker_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	processed := 0
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rollups []lotRollup
		err := tx.Raw(
			`SELECT l.id AS lot_id,
			        COUNT(s.id) AS total_spaces,
			        COUNT(CASE WHEN s.status = ? THEN 1 END) AS occupied_spaces
			 FROM parking_lots l
			 LEFT JOIN parking_spaces s ON s.lot_id = l.id
			 GROUP BY l.id
			 ORDER BY l.id
			 LIMIT ?`,
			lotdomain.SpaceStatusOccupied,
			limit,
		).Scan(&rollups).Error
		if err != nil {
			return err
		}
		if len(rollups) == 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, rollup := range rollups {
			var active int64
			err := tx.Model(&sessiondomain.ParkingSession{}).
				Where("lot_id = ? AND status = ?", rollup.LotID, sessiondomain.StatusActive).
				Count(&active).Error
			if err != nil {
				return err
			}

			snapshot := LotSnapshot{
				ID:             w.genID.Generate(),
				LotID:          rollup.LotID,
				TotalSpaces:    rollup.TotalSpaces,
				OccupiedSpaces: rollup.OccupiedSpaces,
				ActiveSessions: active,
				CapturedAt:     now,
			}
			err = tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "lot_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"total_spaces", "occupied_spaces", "active_sessions", "captured_at",
				}),
			}).Create(&snapshot).Error
			if err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return processed, err
	}
	return processed, nil
}
