package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditservice "github.com/openlotlabs/torii/internal/audit/service"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	pricingdomain "github.com/openlotlabs/torii/internal/pricing/domain"
)

const maxSpacesPerLot = 2000

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Pricing  pricingdomain.Invalidator
	AuditSvc *auditservice.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	pricing  pricingdomain.Invalidator
	auditSvc *auditservice.Service
}

func NewService(p Params) lotdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("lot.service"),
		genID:    p.GenID,
		pricing:  p.Pricing,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req lotdomain.CreateLotRequest) (*lotdomain.ParkingLot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, lotdomain.ErrInvalidName
	}
	if req.SpaceCount <= 0 || req.SpaceCount > maxSpacesPerLot {
		return nil, lotdomain.ErrInvalidSpaceCnt
	}

	var lot *lotdomain.ParkingLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner lotdomain.Owner
		if err := tx.First(&owner, "id = ?", req.OwnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lotdomain.ErrOwnerNotFound
			}
			return err
		}

		now := time.Now().UTC()
		lot = &lotdomain.ParkingLot{
			ID:        s.genID.Generate(),
			OwnerID:   owner.ID,
			Name:      name,
			Address:   strings.TrimSpace(req.Address),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(lot).Error; err != nil {
			return err
		}

		spaces := make([]lotdomain.ParkingSpace, 0, req.SpaceCount)
		for number := 1; number <= req.SpaceCount; number++ {
			spaces = append(spaces, lotdomain.ParkingSpace{
				ID:          s.genID.Generate(),
				LotID:       lot.ID,
				SpaceNumber: number,
				Status:      lotdomain.SpaceStatusAvailable,
				QRCode:      uuid.NewString(),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		return tx.CreateInBatches(spaces, 200).Error
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		lotID := lot.ID
		targetID := lot.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &lotID, "", nil, "lot.create", "lot", &targetID, map[string]any{
			"name":        lot.Name,
			"space_count": req.SpaceCount,
		})
	}

	return lot, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*lotdomain.ParkingLot, error) {
	var lot lotdomain.ParkingLot
	err := s.db.WithContext(ctx).First(&lot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lotdomain.ErrLotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]lotdomain.ParkingLot, error) {
	query := s.db.WithContext(ctx).Order("id ASC")
	if ownerID != 0 {
		query = query.Where("owner_id = ?", ownerID)
	}
	var lots []lotdomain.ParkingLot
	if err := query.Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Service) Spaces(ctx context.Context, lotID snowflake.ID) ([]lotdomain.ParkingSpace, error) {
	if _, err := s.Get(ctx, lotID); err != nil {
		return nil, err
	}
	var spaces []lotdomain.ParkingSpace
	err := s.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("space_number ASC").
		Find(&spaces).Error
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *Service) UpdatePricing(ctx context.Context, lotID snowflake.ID, req lotdomain.UpdatePricingRequest) (*lotdomain.ParkingLot, error) {
	if err := validatePricing(req); err != nil {
		return nil, err
	}

	var lot lotdomain.ParkingLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lot, "id = ?", lotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return lotdomain.ErrLotNotFound
			}
			return err
		}

		now := time.Now().UTC()
		lot.PricingUnitMinutes = req.PricingUnitMinutes
		lot.PricingAmount = req.PricingAmount
		lot.MaxDailyAmount = req.MaxDailyAmount
		lot.MaxDailyAmountEnabled = req.MaxDailyAmountEnabled
		lot.UpdatedAt = now
		updates := map[string]any{
			"pricing_unit_minutes":     req.PricingUnitMinutes,
			"pricing_amount":           req.PricingAmount,
			"max_daily_amount":         req.MaxDailyAmount,
			"max_daily_amount_enabled": req.MaxDailyAmountEnabled,
			"updated_at":               now,
		}
		if err := tx.Model(&lotdomain.ParkingLot{}).Where("id = ?", lot.ID).Updates(updates).Error; err != nil {
			return err
		}

		// Periods are replaced wholesale so their insertion order stays
		// meaningful.
		if err := tx.Where("lot_id = ?", lot.ID).Delete(&lotdomain.MaxPricingPeriod{}).Error; err != nil {
			return err
		}
		for _, period := range req.Periods {
			row := lotdomain.MaxPricingPeriod{
				ID:        s.genID.Generate(),
				LotID:     lot.ID,
				StartHour: period.StartHour,
				EndHour:   period.EndHour,
				MaxAmount: period.MaxAmount,
				CreatedAt: now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.pricing != nil {
		s.pricing.Invalidate(lot.ID)
	}

	if s.auditSvc != nil {
		id := lot.ID
		targetID := lot.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &id, "", nil, "lot.update_pricing", "lot", &targetID, map[string]any{
			"max_daily_amount":         req.MaxDailyAmount,
			"max_daily_amount_enabled": req.MaxDailyAmountEnabled,
			"period_count":             len(req.Periods),
		})
	}

	return &lot, nil
}

func validatePricing(req lotdomain.UpdatePricingRequest) error {
	if req.PricingUnitMinutes != nil && *req.PricingUnitMinutes <= 0 {
		return lotdomain.ErrInvalidUnit
	}
	if req.PricingAmount != nil && *req.PricingAmount < 0 {
		return lotdomain.ErrInvalidAmount
	}
	if req.MaxDailyAmount < 0 {
		return lotdomain.ErrInvalidDailyCap
	}
	for _, period := range req.Periods {
		if period.StartHour < 0 || period.StartHour > 23 {
			return lotdomain.ErrInvalidHourRange
		}
		if period.EndHour < 0 || period.EndHour > 23 {
			return lotdomain.ErrInvalidHourRange
		}
		if period.MaxAmount < 0 {
			return lotdomain.ErrInvalidAmount
		}
	}
	return nil
}
