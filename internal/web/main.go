// Package web wires the fiber application: middleware, handler
// registration and graceful shutdown.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/config"
	loggeradapter "github.com/makrcave/makrcave-access/internal/logger/adapter/fiber"
	"github.com/makrcave/makrcave-access/internal/web/handler"
	assignmenthandler "github.com/makrcave/makrcave-access/internal/web/handler/assignment"
	"github.com/makrcave/makrcave-access/internal/web/handler/auditlog"
	"github.com/makrcave/makrcave-access/internal/web/handler/authn"
	permissionhandler "github.com/makrcave/makrcave-access/internal/web/handler/permission"
	policyhandler "github.com/makrcave/makrcave-access/internal/web/handler/policy"
	rolehandler "github.com/makrcave/makrcave-access/internal/web/handler/role"
	sessionhandler "github.com/makrcave/makrcave-access/internal/web/handler/session"
	"github.com/makrcave/makrcave-access/internal/web/handler/summary"
)

// HealthCheckURI is the liveness endpoint, excluded from access logging and
// authentication.
const HealthCheckURI = "/healthz"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: report unhealthy first, so the
	// load balancer removes this pod from active targets before we stop.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "makrcave-access",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	// access logging, skipping the health check
	app.Use(loggeradapter.New(loggeradapter.Config{
		Config:         cfg.Log,
		HealthCheckURI: HealthCheckURI,
	}))

	authService := auth.NewService(db, cfg)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}
	service.alive.Store(true)

	app.Get(HealthCheckURI, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendStatus(fiber.StatusOK)
	})

	// bearer-token authentication for the whole API surface; only the login
	// endpoint passes through unauthenticated
	app.Use(handler.RootPath, auth.Middleware(authService, authn.LoginPath))

	// init handlers (they register their own routes with permission checks)
	authn.Handler.Init(app, cfg, db, authService)
	permissionhandler.Handler.Init(app, cfg, db, authService)
	rolehandler.Handler.Init(app, cfg, db, authService)
	assignmenthandler.Handler.Init(app, cfg, db, authService)
	sessionhandler.Handler.Init(app, cfg, db, authService)
	policyhandler.Handler.Init(app, cfg, db, authService)
	auditlog.Handler.Init(app, cfg, db, authService)
	summary.Handler.Init(app, cfg, db, authService)

	return service
}
