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
	"github.com/openlotlabs/torii/internal/clock"
	"github.com/openlotlabs/torii/internal/events"
	"github.com/openlotlabs/torii/internal/fee"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	pricingdomain "github.com/openlotlabs/torii/internal/pricing/domain"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Pricing    pricingdomain.Resolver
	Calculator *fee.Calculator
	PaymentSvc paymentdomain.Service
	AuditSvc   *auditservice.Service
	Outbox     *events.Outbox
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    pricingdomain.Resolver
	calculator *fee.Calculator
	paymentSvc paymentdomain.Service
	auditSvc   *auditservice.Service
	outbox     *events.Outbox
}

func NewService(p Params) sessiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("session.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		calculator: p.Calculator,
		paymentSvc: p.PaymentSvc,
		auditSvc:   p.AuditSvc,
		outbox:     p.Outbox,
	}
}

func (s *Service) CheckIn(ctx context.Context, qrCode string) (*sessiondomain.CheckInResult, error) {
	qrCode = strings.TrimSpace(qrCode)
	if qrCode == "" {
		return nil, sessiondomain.ErrInvalidQRCode
	}

	var (
		session *sessiondomain.ParkingSession
		space   lotdomain.ParkingSpace
		lot     lotdomain.ParkingLot
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("qr_code = ?", qrCode).First(&space).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return sessiondomain.ErrSpaceNotFound
			}
			return err
		}

		// The status flip is the claim. Losing the race leaves the row
		// untouched and RowsAffected at zero.
		claim := tx.Model(&lotdomain.ParkingSpace{}).
			Where("id = ? AND status = ?", space.ID, lotdomain.SpaceStatusAvailable).
			Update("status", lotdomain.SpaceStatusOccupied)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return sessiondomain.ErrSpaceOccupied
		}

		if err := tx.First(&lot, "id = ?", space.LotID).Error; err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		session = &sessiondomain.ParkingSession{
			ID:           s.genID.Generate(),
			SpaceID:      space.ID,
			LotID:        space.LotID,
			SessionToken: uuid.NewString(),
			Status:       sessiondomain.StatusActive,
			EntryTime:    now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			LotID: space.LotID,
			Type:  events.EventSessionCheckedIn,
			Payload: events.SessionPayload{
				SessionID: session.ID.String(),
				SpaceID:   space.ID.String(),
				LotID:     space.LotID.String(),
			}.ToMap(),
			DedupeKey: "checkin:" + session.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		lotID := session.LotID
		targetID := session.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &lotID, "", nil, "session.checkin", "session", &targetID, map[string]any{
			"space_number": space.SpaceNumber,
		})
	}

	return &sessiondomain.CheckInResult{
		Session:     session,
		SpaceNumber: space.SpaceNumber,
		LotName:     lot.Name,
	}, nil
}

func (s *Service) Quote(ctx context.Context, token string) (*sessiondomain.QuoteResult, error) {
	session, err := s.findByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if session.Status != sessiondomain.StatusActive {
		return nil, sessiondomain.ErrSessionCompleted
	}

	now := s.clock.Now().UTC()
	quote, err := s.price(ctx, session, now)
	if err != nil {
		return nil, err
	}

	return &sessiondomain.QuoteResult{
		SessionToken:    session.SessionToken,
		EntryTime:       session.EntryTime,
		QuotedAt:        now,
		DurationMinutes: quote.DurationMinutes,
		Amount:          quote.Amount,
		Currency:        paymentdomain.CurrencyJPY,
	}, nil
}

func (s *Service) Complete(ctx context.Context, token string, method string) (*sessiondomain.CheckoutResult, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	switch method {
	case paymentdomain.MethodCash, paymentdomain.MethodCard, paymentdomain.MethodQR:
	default:
		return nil, paymentdomain.ErrInvalidMethod
	}

	var result *sessiondomain.CheckoutResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.findByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if session.Status != sessiondomain.StatusActive {
			return sessiondomain.ErrSessionCompleted
		}

		now := s.clock.Now().UTC()
		quote, err := s.price(ctx, session, now)
		if err != nil {
			return err
		}

		// One winner per session. A concurrent checkout that lost the
		// race observes zero rows here.
		settle := tx.Model(&sessiondomain.ParkingSession{}).
			Where("id = ? AND status = ?", session.ID, sessiondomain.StatusActive).
			Updates(map[string]any{
				"status":     sessiondomain.StatusCompleted,
				"exit_time":  now,
				"updated_at": now,
			})
		if settle.Error != nil {
			return settle.Error
		}
		if settle.RowsAffected == 0 {
			return sessiondomain.ErrSessionCompleted
		}

		payment, err := s.paymentSvc.ChargeTx(ctx, tx, paymentdomain.ChargeParams{
			LotID:           session.LotID,
			SessionID:       session.ID,
			SessionToken:    session.SessionToken,
			Amount:          quote.Amount,
			DurationMinutes: quote.DurationMinutes,
			Method:          method,
		})
		if err != nil {
			return err
		}

		release := tx.Model(&lotdomain.ParkingSpace{}).
			Where("id = ?", session.SpaceID).
			Update("status", lotdomain.SpaceStatusAvailable)
		if release.Error != nil {
			return release.Error
		}

		session.Status = sessiondomain.StatusCompleted
		session.ExitTime = &now
		session.UpdatedAt = now

		amount := quote.Amount
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			LotID: session.LotID,
			Type:  events.EventSessionSettled,
			Payload: events.SessionPayload{
				SessionID: session.ID.String(),
				SpaceID:   session.SpaceID.String(),
				LotID:     session.LotID.String(),
				Amount:    &amount,
			}.ToMap(),
			DedupeKey: "settle:" + session.ID.String(),
		}); err != nil {
			return err
		}

		result = &sessiondomain.CheckoutResult{
			Session:         session,
			Amount:          quote.Amount,
			DurationMinutes: quote.DurationMinutes,
			Payment:         payment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		lotID := result.Session.LotID
		targetID := result.Session.ID.String()
		_ = s.auditSvc.AuditLog(ctx, &lotID, "", nil, "session.checkout", "session", &targetID, map[string]any{
			"amount":           result.Amount,
			"duration_minutes": result.DurationMinutes,
			"method":           method,
		})
	}

	return result, nil
}

func (s *Service) Settlement(ctx context.Context, token string) (*sessiondomain.SettlementDetail, error) {
	session, err := s.findByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if session.Status != sessiondomain.StatusCompleted {
		return nil, sessiondomain.ErrSessionActive
	}

	var payment paymentdomain.PaymentRecord
	if err := s.db.WithContext(ctx).Where("session_id = ?", session.ID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessiondomain.ErrSessionNotFound
		}
		return nil, err
	}

	var space lotdomain.ParkingSpace
	if err := s.db.WithContext(ctx).First(&space, "id = ?", session.SpaceID).Error; err != nil {
		return nil, err
	}
	var lot lotdomain.ParkingLot
	if err := s.db.WithContext(ctx).First(&lot, "id = ?", session.LotID).Error; err != nil {
		return nil, err
	}

	return &sessiondomain.SettlementDetail{
		Session:     session,
		Payment:     &payment,
		LotName:     lot.Name,
		LotAddress:  lot.Address,
		SpaceNumber: space.SpaceNumber,
	}, nil
}

func (s *Service) findByToken(ctx context.Context, db *gorm.DB, token string) (*sessiondomain.ParkingSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, sessiondomain.ErrInvalidToken
	}
	var session sessiondomain.ParkingSession
	err := db.WithContext(ctx).Where("session_token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sessiondomain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *Service) price(ctx context.Context, session *sessiondomain.ParkingSession, exit time.Time) (fee.Quote, error) {
	cfg, err := s.pricing.Resolve(ctx, session.LotID)
	if err != nil {
		return fee.Quote{}, err
	}
	quote, err := s.calculator.Compute(cfg, session.EntryTime, exit)
	if err != nil {
		if errors.Is(err, fee.ErrInvalidInterval) {
			return fee.Quote{}, sessiondomain.ErrInvalidInterval
		}
		return fee.Quote{}, err
	}
	return quote, nil
}
