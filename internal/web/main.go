// Package web wires the fiber application: middleware chain, authentication
// providers and the registered handler services.
package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	fiberlogger "github.com/go-secadmin/go-secadmin/internal/logger/adapter/fiber"
	"github.com/go-secadmin/go-secadmin/internal/ratelimit"
	"github.com/go-secadmin/go-secadmin/internal/security"
	"github.com/go-secadmin/go-secadmin/internal/web/handler/api"
	"github.com/go-secadmin/go-secadmin/internal/web/handler/login"
	authmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/auth"
	ratelimitmw "github.com/go-secadmin/go-secadmin/internal/web/middleware/ratelimit"
)

// checkAlivePath answers load balancer health checks.
const checkAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	store        *security.Store
	limiter      *ratelimit.Limiter
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	s.alive.Store(true)

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

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	s.limiter.Stop()

	// stop fiber http server
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

	store := security.NewStore(db, &cfg.Auth)

	providers, err := buildProviders(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize authentication providers")
	}

	registrar := auth.NewRegistrar(store)
	apiKeys := auth.NewAPIKeyService(store)

	// Bearer tokens stay disabled without a signing secret.
	var tokens *auth.TokenService

	if cfg.Auth.JWT.Secret != "" {
		if tokens, err = auth.NewTokenService(&cfg.Auth.JWT); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize token service")
		}
	} else {
		log.Warn().Msg("jwt secret not configured: bearer token auth disabled")
	}

	var remote *auth.RemoteUserProvider
	if p, ok := providers[auth.MethodRemoteUser].(*auth.RemoteUserProvider); ok {
		remote = p
	}

	mw := authmw.New(store, tokens, apiKeys, remote, cfg)
	limiter := ratelimit.New(cfg.Auth.RateLimit)

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: checkAlivePath,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(ratelimitmw.New(limiter))
	app.Use(mw.Authenticate)

	service := &Service{
		cfg:     cfg,
		App:     app,
		db:      db,
		store:   store,
		limiter: limiter,
	}

	app.Get(checkAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	// init handlers (they register their own routes with permission checks)
	if err = login.Handler.Init(app, cfg, providers, registrar); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize login handler")
	}

	if err = api.Handler.Init(app, cfg, store, providers, registrar, tokens, apiKeys, mw); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize api handler")
	}

	return service
}

// Store exposes the security store backing the service.
func (s *Service) Store() *security.Store {
	return s.store
}

// buildProviders constructs every authentication provider the configuration
// enables. The db provider is always available so the seeded admin account
// can log in regardless of the primary method.
func buildProviders(cfg *config.Config, store *security.Store) (map[auth.Method]auth.Provider, error) {
	providers := map[auth.Method]auth.Provider{
		auth.MethodDB: auth.NewDBProvider(store),
	}

	if cfg.Auth.Type == config.AuthTypeLDAP || cfg.Auth.LDAP.Server != "" {
		ldapProvider, err := auth.NewLDAPProvider(store, &cfg.Auth.LDAP)
		if err != nil {
			return nil, err
		}

		providers[auth.MethodLDAP] = ldapProvider
	}

	if len(cfg.Auth.OAuth) > 0 {
		oauthProvider, err := auth.NewOAuthProvider(context.Background(), cfg.Auth.OAuth)
		if err != nil {
			return nil, err
		}

		providers[auth.MethodOAuth] = oauthProvider
	}

	if cfg.Auth.Type == config.AuthTypeSAML {
		samlProvider, err := auth.NewSAMLProvider(&cfg.Auth.SAML, cfg.Webserver.URL)
		if err != nil {
			return nil, err
		}

		providers[auth.MethodSAML] = samlProvider
	}

	if cfg.Auth.Type == config.AuthTypeCAS {
		casProvider, err := auth.NewCASProvider(&cfg.Auth.CAS)
		if err != nil {
			return nil, err
		}

		providers[auth.MethodCAS] = casProvider
	}

	if cfg.Auth.Type == config.AuthTypeRemoteUser {
		providers[auth.MethodRemoteUser] = auth.NewRemoteUserProvider(&cfg.Auth.RemoteUser)
	}

	return providers, nil
}
