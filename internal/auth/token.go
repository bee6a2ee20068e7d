package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

// Token kinds carried in the token_type claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims are the JWT claims issued for API access.
type Claims struct {
	UserID    uint64 `json:"uid"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is one issued access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService issues and validates HS256 signed access and refresh tokens.
type TokenService struct {
	cfg *config.JWT
}

// NewTokenService creates the JWT service.
func NewTokenService(cfg *config.JWT) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrNotConfigured
	}

	if cfg.AccessExpiry == 0 {
		cfg.AccessExpiry = 15 * time.Minute
	}

	if cfg.RefreshExpiry == 0 {
		cfg.RefreshExpiry = 24 * time.Hour
	}

	return &TokenService{cfg: cfg}, nil
}

// IssuePair creates a fresh access/refresh token pair for the user.
func (s *TokenService) IssuePair(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user, tokenTypeAccess, s.cfg.AccessExpiry)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(user, tokenTypeRefresh, s.cfg.RefreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessExpiry.Seconds()),
	}, nil
}

func (s *TokenService) sign(user *models.User, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// ValidateAccess parses and verifies an access token.
func (s *TokenService) ValidateAccess(token string) (*Claims, error) {
	return s.validate(token, tokenTypeAccess)
}

// ValidateRefresh parses and verifies a refresh token.
func (s *TokenService) ValidateRefresh(token string) (*Claims, error) {
	return s.validate(token, tokenTypeRefresh)
}

func (s *TokenService) validate(token, wantType string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrJWTInvalid
	}

	if claims.TokenType != wantType {
		return nil, ErrJWTInvalid
	}

	return claims, nil
}
