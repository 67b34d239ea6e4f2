// @title           Torii API
// @version         1.0
// @description     Torii parking kiosk API
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@torii.dev

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openlotlabs/torii/internal/audit"
	"github.com/openlotlabs/torii/internal/clock"
	"github.com/openlotlabs/torii/internal/config"
	"github.com/openlotlabs/torii/internal/events"
	"github.com/openlotlabs/torii/internal/fee"
	"github.com/openlotlabs/torii/internal/observability"
	"github.com/openlotlabs/torii/internal/payment"
	"github.com/openlotlabs/torii/internal/pricing"
	"github.com/openlotlabs/torii/internal/receipt"
	"github.com/openlotlabs/torii/internal/server"
	"github.com/openlotlabs/torii/internal/session"
	"github.com/openlotlabs/torii/pkg/db"
	"go.uber.org/fx"
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

		// Kiosk flows only: check-in, quote, checkout, receipt.
		events.Module,
		audit.Module,
		pricing.Module,
		payment.Module,
		session.Module,
		receipt.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
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
