package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/cache"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	pricingdomain "github.com/openlotlabs/torii/internal/pricing/domain"
	"github.com/openlotlabs/torii/pkg/repository"
)

// configTTL bounds how stale a resolved config may be when a pricing write
// bypasses Invalidate (e.g. direct SQL).
const configTTL = 30 * time.Second

type Resolver struct {
	lots    repository.Repository[lotdomain.ParkingLot]
	owners  repository.Repository[lotdomain.Owner]
	periods repository.Repository[lotdomain.MaxPricingPeriod]
	log     *zap.Logger
	cache   cache.Cache[snowflake.ID, pricingdomain.Config]
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

func NewResolver(p Params) pricingdomain.Resolver {
	return &Resolver{
		lots:    repository.ProvideStore[lotdomain.ParkingLot](p.DB),
		owners:  repository.ProvideStore[lotdomain.Owner](p.DB),
		periods: repository.ProvideStore[lotdomain.MaxPricingPeriod](p.DB),
		log:     p.Log.Named("pricing.resolver"),
		cache:   cache.NewTTLCache[snowflake.ID, pricingdomain.Config](),
	}
}

// Resolve returns the effective pricing for a lot: lot-level unit fields
// override owner defaults, the daily cap is lot-scoped, and period rows come
// back in insertion order.
func (r *Resolver) Resolve(ctx context.Context, lotID snowflake.ID) (pricingdomain.Config, error) {
	if cfg, ok := r.cache.Get(lotID); ok {
		return cfg, nil
	}

	lot, err := r.lots.First(ctx, "id = ?", lotID)
	if err != nil {
		return pricingdomain.Config{}, err
	}
	if lot == nil {
		return pricingdomain.Config{}, pricingdomain.ErrLotNotFound
	}

	owner, err := r.owners.First(ctx, "id = ?", lot.OwnerID)
	if err != nil {
		return pricingdomain.Config{}, err
	}
	if owner == nil {
		return pricingdomain.Config{}, pricingdomain.ErrOwnerNotFound
	}

	cfg := pricingdomain.Config{
		UnitMinutes:     owner.DefaultUnitMinutes,
		UnitAmount:      owner.DefaultUnitAmount,
		DailyCapEnabled: lot.MaxDailyAmountEnabled,
		DailyCapAmount:  lot.MaxDailyAmount,
	}
	if lot.PricingUnitMinutes != nil {
		cfg.UnitMinutes = *lot.PricingUnitMinutes
	}
	if lot.PricingAmount != nil {
		cfg.UnitAmount = *lot.PricingAmount
	}
	if cfg.UnitMinutes <= 0 || cfg.UnitAmount < 0 {
		r.log.Error("unusable pricing configuration",
			zap.String("lot_id", lotID.String()),
			zap.Int64("unit_minutes", cfg.UnitMinutes),
			zap.Int64("unit_amount", cfg.UnitAmount),
		)
		return pricingdomain.Config{}, pricingdomain.ErrInvalidConfig
	}

	rows, err := r.periods.Find(ctx, "id ASC", "lot_id = ?", lotID)
	if err != nil {
		return pricingdomain.Config{}, err
	}
	for _, row := range rows {
		cfg.Periods = append(cfg.Periods, pricingdomain.TimePeriod{
			StartHour: row.StartHour,
			EndHour:   row.EndHour,
			MaxAmount: row.MaxAmount,
		})
	}

	r.cache.Set(lotID, cfg, configTTL)
	return cfg, nil
}

// Invalidate drops the cached config after a pricing write.
func (r *Resolver) Invalidate(lotID snowflake.ID) {
	r.cache.Delete(lotID)
}
