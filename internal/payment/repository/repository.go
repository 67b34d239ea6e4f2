package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openlotlabs/torii/internal/payment/domain"
)

type repository struct{}

// Provide constructs the payment repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*domain.EventRecord, error) {
	var event domain.EventRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// InsertEvent stores the event, reporting false when another delivery of
// the same provider event already exists.
func (r *repository) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.EventRecord{}).
		Where("id = ?", id).
		Update("processed_at", processedAt).Error
}

func (r *repository) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindRecordBySession(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindRecordByCharge(ctx context.Context, db *gorm.DB, provider string, providerChargeID string) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_charge_id = ?", provider, providerChargeID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateRecordStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.PaymentRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}
