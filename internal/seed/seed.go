// Package seed bootstraps the demo owner and lot for local setups.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	"gorm.io/gorm"
)

const (
	demoOwnerName  = "Demo Parking KK"
	demoOwnerEmail = "ops@demo.torii.dev"
	demoLotName    = "Demo Lot"
	demoLotAddress = "1-2-3 Sakuragaoka, Shibuya, Tokyo"
	demoSpaceCount = 12

	demoUnitMinutes = 60
	demoUnitAmount  = 300
	demoDailyCap    = 3000

	demoDayMaxAmount   = 3000
	demoNightMaxAmount = 1300
)

// EnsureDemoOwner seeds the default owner for startup bootstrap.
func EnsureDemoOwner(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureDemoOwnerTx(ctx, tx, node)
		return err
	})
}

// EnsureDemoOwnerAndLot seeds the default owner plus a fully priced demo
// lot: day and night price ceilings and the daily cap enabled.
func EnsureDemoOwnerAndLot(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := ensureDemoOwnerTx(ctx, tx, node)
		if err != nil {
			return err
		}

		var lot lotdomain.ParkingLot
		err = tx.WithContext(ctx).
			Where("owner_id = ? AND name = ?", owner.ID, demoLotName).
			First(&lot).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		unitMinutes := int64(demoUnitMinutes)
		unitAmount := int64(demoUnitAmount)
		lot = lotdomain.ParkingLot{
			ID:                    node.Generate(),
			OwnerID:               owner.ID,
			Name:                  demoLotName,
			Address:               demoLotAddress,
			PricingUnitMinutes:    &unitMinutes,
			PricingAmount:         &unitAmount,
			MaxDailyAmount:        demoDailyCap,
			MaxDailyAmountEnabled: true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := tx.WithContext(ctx).Create(&lot).Error; err != nil {
			return err
		}

		// Daytime and overnight ceilings; the second wraps past midnight.
		periods := []lotdomain.MaxPricingPeriod{
			{ID: node.Generate(), LotID: lot.ID, StartHour: 5, EndHour: 19, MaxAmount: demoDayMaxAmount, CreatedAt: now},
			{ID: node.Generate(), LotID: lot.ID, StartHour: 19, EndHour: 5, MaxAmount: demoNightMaxAmount, CreatedAt: now},
		}
		if err := tx.WithContext(ctx).Create(&periods).Error; err != nil {
			return err
		}

		spaces := make([]lotdomain.ParkingSpace, 0, demoSpaceCount)
		for i := 1; i <= demoSpaceCount; i++ {
			spaces = append(spaces, lotdomain.ParkingSpace{
				ID:          node.Generate(),
				LotID:       lot.ID,
				SpaceNumber: i,
				Status:      lotdomain.SpaceStatusAvailable,
				QRCode:      uuid.NewString(),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		return tx.WithContext(ctx).Create(&spaces).Error
	})
}

func ensureDemoOwnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (lotdomain.Owner, error) {
	var owner lotdomain.Owner
	err := tx.WithContext(ctx).Where("email = ?", demoOwnerEmail).First(&owner).Error
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return owner, err
	}

	now := time.Now().UTC()
	owner = lotdomain.Owner{
		ID:                 node.Generate(),
		Name:               demoOwnerName,
		Email:              demoOwnerEmail,
		DefaultUnitMinutes: demoUnitMinutes,
		DefaultUnitAmount:  demoUnitAmount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		return owner, err
	}
	return owner, nil
}
