package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

// oauthClient is one configured OAuth2/OIDC identity provider.
type oauthClient struct {
	cfg      config.OAuthProvider
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

// OAuthProvider authenticates via the OAuth2 authorization-code flow against
// one of the configured identity providers and normalizes the claims each
// provider family returns.
type OAuthProvider struct {
	clients map[string]*oauthClient
}

// NewOAuthProvider creates clients for every configured OAuth provider.
// Discovery runs once at startup, a provider that can not be discovered is
// a configuration error.
func NewOAuthProvider(ctx context.Context, cfgs []config.OAuthProvider) (*OAuthProvider, error) {
	if len(cfgs) == 0 {
		return nil, ErrNotConfigured
	}

	clients := make(map[string]*oauthClient, len(cfgs))

	for _, cfg := range cfgs {
		provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, errors.Wrapf(err, "oidc discovery failed for provider %s", cfg.Name)
		}

		verifier := newVerifier(ctx, cfg, provider)

		scopes := cfg.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "profile", "email"}
		}

		clients[cfg.Name] = &oauthClient{
			cfg:      cfg,
			provider: provider,
			verifier: verifier,
			oauth2: oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
				Endpoint:     provider.Endpoint(),
				Scopes:       scopes,
			},
		}
	}

	return &OAuthProvider{clients: clients}, nil
}

// newVerifier builds the id_token verifier, preferring an explicit JWKS URL
// when the provider publishes its keys outside of discovery.
func newVerifier(ctx context.Context, cfg config.OAuthProvider, provider *oidc.Provider) *oidc.IDTokenVerifier {
	oidcCfg := &oidc.Config{ClientID: cfg.ClientID}

	if !cfg.VerifySignature {
		oidcCfg.InsecureSkipSignatureCheck = true
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = defaultJWKSURL(cfg)
	}

	if jwksURL != "" {
		return oidc.NewVerifier(cfg.IssuerURL, oidc.NewRemoteKeySet(ctx, jwksURL), oidcCfg)
	}

	return provider.Verifier(oidcCfg)
}

// defaultJWKSURL returns the known key endpoint for providers whose discovery
// document does not cover the tokens they issue.
func defaultJWKSURL(cfg config.OAuthProvider) string {
	switch cfg.Name {
	case "azure":
		// the multi-tenant endpoint signs v1 tokens for every tenant
		return "https://login.microsoftonline.com/common/discovery/keys"
	case "authentik":
		return strings.TrimSuffix(cfg.IssuerURL, "/") + "/jwks/"
	default:
		return ""
	}
}

// Method implements Provider.
func (p *OAuthProvider) Method() Method { return MethodOAuth }

func (p *OAuthProvider) provider() {}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err //nolint:wrapcheck
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthURL returns the authorization URL for the named provider.
func (p *OAuthProvider) AuthURL(providerName, state string) (string, error) {
	client, ok := p.clients[providerName]
	if !ok {
		return "", ErrUnknownProvider
	}

	return client.oauth2.AuthCodeURL(state), nil
}

// Authenticate exchanges the authorization code, verifies the id_token and
// normalizes the provider claims into an Identity.
func (p *OAuthProvider) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	client, ok := p.clients[creds.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	oauth2Token, err := client.oauth2.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, errors.Wrap(ErrUpstreamUnavailable, err.Error())
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := client.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		// signature failures are reported apart from malformed claims
		return nil, errors.Wrap(ErrTokenSignature, err.Error())
	}

	var claims map[string]interface{}
	if err = idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(ErrTokenClaims, err.Error())
	}

	identity, err := identityFromOAuthClaims(client.cfg.Name, claims)
	if err != nil {
		return nil, err
	}

	return identity, nil
}

// identityFromOAuthClaims maps the claim layout of each provider family onto
// the normalized Identity.
func identityFromOAuthClaims(providerName string, claims map[string]interface{}) (*Identity, error) {
	identity := &Identity{
		Method:    MethodOAuth,
		Email:     claimString(claims, "email"),
		FirstName: claimString(claims, "given_name"),
		LastName:  claimString(claims, "family_name"),
		Userinfo:  claims,
	}

	switch providerName {
	case "azure":
		identity.Username = claimString(claims, "oid")
		if identity.Email == "" {
			identity.Email = claimString(claims, "upn")
		}

		identity.RoleKeys = claimStrings(claims, "roles")
	case "okta", "auth0":
		sub := claimString(claims, "sub")
		if sub != "" {
			identity.Username = providerName + "_" + sub
		}

		identity.RoleKeys = claimStrings(claims, "groups")
	case "keycloak":
		identity.Username = claimString(claims, "preferred_username")
		identity.RoleKeys = claimStrings(claims, "groups")
	case "authentik":
		identity.Username = claimString(claims, "nickname")
		if identity.Username == "" {
			identity.Username = claimString(claims, "preferred_username")
		}

		identity.RoleKeys = claimStrings(claims, "groups")
	default:
		identity.Username = claimString(claims, "preferred_username")
		if identity.Username == "" {
			identity.Username = claimString(claims, "sub")
		}

		identity.RoleKeys = claimStrings(claims, "groups")
	}

	if identity.Username == "" {
		log.Warn().Str("provider", providerName).Msg("oauth userinfo carries no usable username claim")
		return nil, ErrTokenClaims
	}

	return identity, nil
}

// UserInfo fetches additional claims from the provider's UserInfo endpoint.
func (p *OAuthProvider) UserInfo(ctx context.Context, providerName, accessToken string) (map[string]interface{}, error) {
	client, ok := p.clients[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	userInfo, err := client.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	}))
	if err != nil {
		return nil, errors.Wrap(ErrUpstreamUnavailable, err.Error())
	}

	var claims map[string]interface{}
	if err := userInfo.Claims(&claims); err != nil {
		return nil, errors.Wrap(ErrTokenClaims, err.Error())
	}

	return claims, nil
}

// LogoutURL constructs the provider's RP-initiated logout URL if supported.
// Returns an empty string when the provider has no end_session_endpoint.
func (p *OAuthProvider) LogoutURL(providerName, idToken, postLogoutRedirectURI string) string {
	client, ok := p.clients[providerName]
	if !ok {
		return ""
	}

	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}

	if err := client.provider.Claims(&claims); err != nil || claims.EndSessionEndpoint == "" {
		return ""
	}

	return fmt.Sprintf("%s?id_token_hint=%s&post_logout_redirect_uri=%s",
		claims.EndSessionEndpoint,
		idToken,
		postLogoutRedirectURI,
	)
}

// claimString reads a string claim, tolerating absence.
func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}

	return ""
}

// claimStrings reads a string list claim in either JSON decoding shape.
func claimStrings(claims map[string]interface{}, key string) []string {
	switch vv := claims[key].(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))

		for _, v := range vv {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
