// Package login implements the browser session flows: credential login for
// the db and ldap methods, the OAuth, SAML and CAS redirect dances, and the
// transparent REMOTE_USER login. Every successful flow converges on one
// session-establishing path, so provisioning and role sync behave identically
// regardless of how the user arrived.
package login

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
	"github.com/go-secadmin/go-secadmin/internal/web/session"
)

const (
	// Path is the base path of the login flows.
	Path = "/login"

	// stateCookie carries the OAuth CSRF state between redirect and callback.
	stateCookie = "oauth_state"
)

// Service is the login handler service.
type Service struct {
	cfg       *config.Config
	providers map[auth.Method]auth.Provider
	registrar *auth.Registrar
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler and registers its routes.
func (s *Service) Init(
	app *fiber.App,
	cfg *config.Config,
	providers map[auth.Method]auth.Provider,
	registrar *auth.Registrar,
) error {
	if app == nil || cfg == nil || registrar == nil {
		return errors.New("app, cfg or registrar is nil")
	}

	s.cfg = cfg
	s.providers = providers
	s.registrar = registrar

	app.Route(Path, func(router fiber.Router) {
		router.Get("/", s.Get)
		router.Post("/", s.Post)
		router.Get("/oauth/:provider", s.OAuthRedirect)
		router.Get("/saml", s.SAMLRedirect)
		router.Get("/cas", s.CASRedirect)
		router.Get("/cas/authorized", s.CASAuthorized)
	})

	app.Get("/oauth-authorized/:provider", s.OAuthAuthorized)
	app.Post("/saml/acs", s.SAMLACS)
	app.Get("/logout", s.Logout)

	app.Post(RegisterPath, s.Register)
	app.Get(RegisterPath+"/activation/:hash", s.RegisterActivation)

	return nil
}

// Get describes the configured login methods. Under the remote_user method it
// instead logs the caller in transparently from the trusted header.
func (s *Service) Get(c *fiber.Ctx) error {
	if s.cfg.Auth.Type == config.AuthTypeRemoteUser {
		return s.remoteUserLogin(c)
	}

	oauthProviders := make([]string, 0, len(s.cfg.Auth.OAuth))
	for _, p := range s.cfg.Auth.OAuth {
		oauthProviders = append(oauthProviders, p.Name)
	}

	return c.JSON(fiber.Map{
		"method":          s.cfg.Auth.Type,
		"oauth_providers": oauthProviders,
	})
}

type credentialsForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	AuthType string `json:"auth_type" form:"auth_type"`
}

// Post handles db and ldap credential submission.
func (s *Service) Post(c *fiber.Ctx) error {
	var form credentialsForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, "invalid form data")
	}

	if form.Username == "" || form.Password == "" {
		return badRequest(c, "username and password are required")
	}

	method := auth.Method(form.AuthType)
	if form.AuthType == "" {
		method = auth.Method(s.cfg.Auth.Type)
	}

	if method != auth.MethodDB && method != auth.MethodLDAP {
		return badRequest(c, "invalid authentication method")
	}

	provider, ok := s.providers[method]
	if !ok {
		return badRequest(c, "authentication method not configured")
	}

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		Username: form.Username,
		Password: form.Password,
	})
	if err != nil {
		return s.loginError(c, err)
	}

	return s.completeLogin(c, identity)
}

// Logout destroys the session and clears the cookie.
func (s *Service) Logout(c *fiber.Ctx) error {
	if sessionID := c.Cookies("session"); sessionID != "" {
		if err := session.Destroy(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to destroy session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
	})

	return c.Redirect(Path)
}

func (s *Service) remoteUserLogin(c *fiber.Ctx) error {
	provider, ok := s.providers[auth.MethodRemoteUser]
	if !ok {
		return badRequest(c, "remote user authentication not configured")
	}

	remote, _ := provider.(*auth.RemoteUserProvider)

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		RemoteUser: c.Get(remote.Header()),
	})
	if err != nil {
		return s.loginError(c, err)
	}

	return s.completeLogin(c, identity)
}

// completeLogin funnels every successful authentication through registration
// and role sync, then establishes the session cookie.
func (s *Service) completeLogin(c *fiber.Ctx, identity *auth.Identity) error {
	user, err := s.registrar.Complete(identity)
	if err != nil {
		return s.loginError(c, err)
	}

	if err = s.establishSession(c, user, identity.Method); err != nil {
		log.Error().Err(err).Msg("failed to establish session")
		return fiber.ErrInternalServerError
	}

	return c.Redirect("/")
}

func (s *Service) establishSession(c *fiber.Ctx, user *models.User, method auth.Method) error {
	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return errors.Wrap(err, "failed to generate session ID")
	}

	userSession := &session.Data{
		User:   *user,
		Method: string(method),
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		return errors.Wrap(err, "failed to write session")
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Str("username", user.Username).Str("method", string(method)).Msg("user logged in")

	return nil
}

// loginError maps authentication failures to a uniform response. Credential
// and account-state failures are indistinguishable to the caller.
func (s *Service) loginError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrUserAccountDisabled),
		errors.Is(err, auth.ErrRegistrationDisabled),
		errors.Is(err, auth.ErrHeaderMissing),
		errors.Is(err, auth.ErrNoIDToken),
		errors.Is(err, auth.ErrTokenSignature),
		errors.Is(err, auth.ErrTokenClaims),
		errors.Is(err, auth.ErrAssertionInvalid),
		errors.Is(err, auth.ErrTicketInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid login. Please try again.",
		})
	case errors.Is(err, auth.ErrUpstreamUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "authentication service unavailable",
		})
	default:
		log.Error().Err(err).Msg("login failed")
		return fiber.ErrInternalServerError
	}
}

func (s *Service) serviceURL(path string) string {
	return strings.TrimSuffix(s.cfg.Webserver.URL, "/") + path
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
