// Package daemon bootstraps the service: database, schema, seed data and the
// web service.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage/memory"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/dsn"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/web"
	"github.com/go-secadmin/go-secadmin/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown blocks until a termination signal arrives, then shuts the web
// service down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve database engine")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Group{},
		&models.Permission{},
		&models.ViewMenu{},
		&models.PermissionView{},
		&models.ApiKey{},
		&models.RegisterUser{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	// Initialize fiber session store
	session.Init(memory.New())

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}
