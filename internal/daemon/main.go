// Package daemon boots the service: database connection, schema migration,
// catalog seeding and the web server.
package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/dsn"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	cfg        *config.Config
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go d.webService.WaitShutdown()

	return d.webService.Start(addr)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.Member{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.MemberRole{},
		&models.RoleAssignmentLog{},
		&models.UserSession{},
		&models.PasswordPolicy{},
		&models.AccessLog{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	if err = seed(cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
		return nil
	}

	return &Daemon{
		webService: web.New(cfg, db),
		cfg:        cfg,
	}
}

// openDialector picks the gorm driver by the configured engine. The sqlite
// engine is for development and tests only.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case "postgres":
		return gormpostgres.Open(dsn.Create(cfg))
	case "sqlite":
		if !cfg.DevMode {
			log.Warn().Msg("sqlite engine selected outside dev mode")
		}

		return sqlite.Open(cfg.DB.Name)
	default:
		return gormmysql.Open(dsn.Create(cfg))
	}
}
