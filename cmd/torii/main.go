package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openlotlabs/torii/internal/audit"
	"github.com/openlotlabs/torii/internal/auth"
	"github.com/openlotlabs/torii/internal/clock"
	"github.com/openlotlabs/torii/internal/config"
	"github.com/openlotlabs/torii/internal/events"
	"github.com/openlotlabs/torii/internal/fee"
	"github.com/openlotlabs/torii/internal/gate"
	"github.com/openlotlabs/torii/internal/lot"
	"github.com/openlotlabs/torii/internal/migration"
	"github.com/openlotlabs/torii/internal/observability"
	"github.com/openlotlabs/torii/internal/occupancy"
	"github.com/openlotlabs/torii/internal/payment"
	"github.com/openlotlabs/torii/internal/pricing"
	"github.com/openlotlabs/torii/internal/receipt"
	"github.com/openlotlabs/torii/internal/seed"
	"github.com/openlotlabs/torii/internal/server"
	"github.com/openlotlabs/torii/internal/session"
	"github.com/openlotlabs/torii/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Provide(func(cfg config.Config) *fee.Calculator {
			return fee.NewCalculator(cfg.Location())
		}),

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			if !cfg.IsCloud() && cfg.Bootstrap.EnsureDemoOwnerAndLot {
				return seed.EnsureDemoOwnerAndLot(conn)
			}
			return nil
		}),

		events.Module,
		audit.Module,
		auth.Module,
		pricing.Module,
		payment.Module,
		session.Module,
		lot.Module,
		gate.Module,
		occupancy.Module,
		receipt.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
