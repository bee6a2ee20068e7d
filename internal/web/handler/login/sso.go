package login

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/auth"
)

func (s *Service) oauthProvider() (*auth.OAuthProvider, bool) {
	provider, ok := s.providers[auth.MethodOAuth].(*auth.OAuthProvider)
	return provider, ok
}

// OAuthRedirect starts the OAuth dance: a random state token goes into a
// short-lived cookie and the browser is sent to the identity provider.
func (s *Service) OAuthRedirect(c *fiber.Ctx) error {
	provider, ok := s.oauthProvider()
	if !ok {
		return badRequest(c, "oauth authentication not configured")
	}

	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate oauth state")
		return fiber.ErrInternalServerError
	}

	authURL, err := provider.AuthURL(c.Params("provider"), state)
	if err != nil {
		return badRequest(c, "unknown oauth provider")
	}

	stateCookieSettings := &fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   300,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}
	c.Cookie(stateCookieSettings)

	return c.Redirect(authURL)
}

// OAuthAuthorized is the OAuth callback: state check, code exchange, login.
func (s *Service) OAuthAuthorized(c *fiber.Ctx) error {
	provider, ok := s.oauthProvider()
	if !ok {
		return badRequest(c, "oauth authentication not configured")
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		log.Warn().Str("ip", c.IP()).Msg("oauth state mismatch")
		return badRequest(c, "state mismatch")
	}

	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", MaxAge: -1, HTTPOnly: true})

	code := c.Query("code")
	if code == "" {
		return badRequest(c, "missing authorization code")
	}

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		Provider: c.Params("provider"),
		Code:     code,
	})
	if err != nil {
		return s.loginError(c, err)
	}

	return s.completeLogin(c, identity)
}

// SAMLRedirect sends the browser to the identity provider with an AuthnRequest.
func (s *Service) SAMLRedirect(c *fiber.Ctx) error {
	provider, ok := s.providers[auth.MethodSAML].(*auth.SAMLProvider)
	if !ok {
		return badRequest(c, "saml authentication not configured")
	}

	authURL, err := provider.AuthURL("")
	if err != nil {
		log.Error().Err(err).Msg("failed to build saml auth url")
		return fiber.ErrInternalServerError
	}

	return c.Redirect(authURL)
}

// SAMLACS is the assertion consumer service endpoint the identity provider
// posts the signed response back to.
func (s *Service) SAMLACS(c *fiber.Ctx) error {
	provider, ok := s.providers[auth.MethodSAML].(*auth.SAMLProvider)
	if !ok {
		return badRequest(c, "saml authentication not configured")
	}

	samlResponse := c.FormValue("SAMLResponse")
	if samlResponse == "" {
		return badRequest(c, "missing SAMLResponse")
	}

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		SAMLResponse: samlResponse,
	})
	if err != nil {
		return s.loginError(c, err)
	}

	return s.completeLogin(c, identity)
}

// CASRedirect sends the browser to the CAS server's login page.
func (s *Service) CASRedirect(c *fiber.Ctx) error {
	provider, ok := s.providers[auth.MethodCAS].(*auth.CASProvider)
	if !ok {
		return badRequest(c, "cas authentication not configured")
	}

	return c.Redirect(provider.LoginURL(s.serviceURL(Path + "/cas/authorized")))
}

// CASAuthorized validates the service ticket the CAS server redirected back
// with.
func (s *Service) CASAuthorized(c *fiber.Ctx) error {
	provider, ok := s.providers[auth.MethodCAS].(*auth.CASProvider)
	if !ok {
		return badRequest(c, "cas authentication not configured")
	}

	ticket := c.Query("ticket")
	if ticket == "" {
		return badRequest(c, "missing ticket")
	}

	identity, err := provider.Authenticate(c.Context(), auth.Credentials{
		Ticket:     ticket,
		ServiceURL: s.serviceURL(Path + "/cas/authorized"),
	})
	if err != nil {
		return s.loginError(c, err)
	}

	return s.completeLogin(c, identity)
}
