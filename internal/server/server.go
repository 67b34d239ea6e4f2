// Package server exposes the HTTP surface for kiosks, gate cameras,
// payment providers and lot operators.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openlotlabs/torii/internal/auth"
	"github.com/openlotlabs/torii/internal/config"
	gatedomain "github.com/openlotlabs/torii/internal/gate/domain"
	lotdomain "github.com/openlotlabs/torii/internal/lot/domain"
	"github.com/openlotlabs/torii/internal/observability/logger"
	"github.com/openlotlabs/torii/internal/observability/metrics"
	paymentdomain "github.com/openlotlabs/torii/internal/payment/domain"
	"github.com/openlotlabs/torii/internal/receipt/render"
	sessiondomain "github.com/openlotlabs/torii/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server holds the handler dependencies. Optional services are nil when a
// binary wires only a subset of the domain modules.
type Server struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	resolver *auth.Resolver
	engine   *gin.Engine

	sessionSvc sessiondomain.Service
	lotSvc     lotdomain.Service
	gateSvc    gatedomain.Service
	paymentSvc paymentdomain.Service
	renderer   render.Renderer

	checkout *metrics.CheckoutMetrics
}

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Engine   *gin.Engine
	Resolver *auth.Resolver `optional:"true"`

	SessionSvc sessiondomain.Service   `optional:"true"`
	LotSvc     lotdomain.Service       `optional:"true"`
	GateSvc    gatedomain.Service      `optional:"true"`
	PaymentSvc paymentdomain.Service   `optional:"true"`
	Renderer   render.Renderer         `optional:"true"`
	Checkout   *metrics.CheckoutMetrics `optional:"true"`
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		resolver:   p.Resolver,
		engine:     p.Engine,
		sessionSvc: p.SessionSvc,
		lotSvc:     p.LotSvc,
		gateSvc:    p.GateSvc,
		paymentSvc: p.PaymentSvc,
		renderer:   p.Renderer,
		checkout:   p.Checkout,
	}
}

type EngineParams struct {
	fx.In

	Cfg         config.Config
	Log         *zap.Logger
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the logging and metrics middleware
// every binary shares.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    p.Log,
		SkipPaths: []string{"/healthz"},
	}))
	if p.HTTPMetrics != nil {
		engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return engine
}

// RegisterRoutes wires the full operator surface: kiosk flows plus lot
// management, dashboards and webhooks.
func (s *Server) RegisterRoutes() {
	s.RegisterAPIRoutes()

	api := s.engine.Group("/api")

	operator := api.Group("")
	operator.Use(s.AuthRequired())
	operator.GET("/lots", s.ListLots)
	operator.POST("/lots", s.CreateLot)
	operator.GET("/lots/:id", s.GetLot)
	operator.GET("/lots/:id/spaces", s.ListLotSpaces)
	operator.PUT("/lots/:id/pricing", s.UpdateLotPricing)
	operator.GET("/lots/:id/overview", s.GetLotOverview)
	operator.GET("/lots/:id/gate-events", s.ListGateEvents)

	api.POST("/gate/events", s.IngestGateEvent)
	api.POST("/webhooks/payments/:provider", s.PaymentWebhook)
	api.POST("/test/cleanup", s.TestCleanup)
}

// RegisterAPIRoutes wires the unauthenticated kiosk surface only. The QR
// token and session token are the credential.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/spaces/:qr/checkin", s.CheckIn)
	api.GET("/sessions/:token", s.GetSession)
	api.GET("/sessions/:token/quote", s.QuoteSession)
	api.POST("/sessions/:token/checkout", s.CheckoutSession)
	api.GET("/sessions/:token/receipt", s.SessionReceipt)
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(RunHTTP),
)
