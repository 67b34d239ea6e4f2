// Package db opens the gorm handle shared by every domain module.
package db

import (
	"strings"
	"time"

	"github.com/openlotlabs/torii/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Module provides the database connection to the fx graph.
var Module = fx.Module("db",
	fx.Provide(New),
)

// New opens a connection for the configured DSN. Postgres in deployment,
// sqlite for local development and tests.
func New(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dial := dialectorFor(cfg.DatabaseURL)

	conn, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("database connected", zap.String("dialect", dial.Name()))
	return conn, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}
