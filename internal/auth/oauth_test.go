package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

func TestIdentityFromOAuthClaims(t *testing.T) {
	tests := []struct {
		name         string
		provider     string
		claims       map[string]interface{}
		wantUsername string
		wantEmail    string
		wantRoleKeys []string
	}{
		{
			name:     "azure uses oid and upn fallback",
			provider: "azure",
			claims: map[string]interface{}{
				"oid":   "f1e2d3c4",
				"upn":   "alice@corp.example.com",
				"roles": []interface{}{"Reader", "Contributor"},
			},
			wantUsername: "f1e2d3c4",
			wantEmail:    "alice@corp.example.com",
			wantRoleKeys: []string{"Reader", "Contributor"},
		},
		{
			name:     "okta prefixes the subject",
			provider: "okta",
			claims: map[string]interface{}{
				"sub":    "00u1abcd",
				"email":  "alice@example.com",
				"groups": []interface{}{"Everyone"},
			},
			wantUsername: "okta_00u1abcd",
			wantEmail:    "alice@example.com",
			wantRoleKeys: []string{"Everyone"},
		},
		{
			name:     "auth0 prefixes the subject",
			provider: "auth0",
			claims: map[string]interface{}{
				"sub": "auth0|12345",
			},
			wantUsername: "auth0_auth0|12345",
		},
		{
			name:     "keycloak uses preferred_username",
			provider: "keycloak",
			claims: map[string]interface{}{
				"preferred_username": "alice",
				"groups":             []interface{}{"/admins"},
			},
			wantUsername: "alice",
			wantRoleKeys: []string{"/admins"},
		},
		{
			name:     "authentik prefers nickname",
			provider: "authentik",
			claims: map[string]interface{}{
				"nickname":           "ally",
				"preferred_username": "alice",
			},
			wantUsername: "ally",
		},
		{
			name:     "authentik falls back to preferred_username",
			provider: "authentik",
			claims: map[string]interface{}{
				"preferred_username": "alice",
			},
			wantUsername: "alice",
		},
		{
			name:     "generic falls back to sub",
			provider: "gitea",
			claims: map[string]interface{}{
				"sub": "17",
			},
			wantUsername: "17",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := identityFromOAuthClaims(tt.provider, tt.claims)
			require.NoError(t, err)

			assert.Equal(t, MethodOAuth, identity.Method)
			assert.Equal(t, tt.wantUsername, identity.Username)
			assert.Equal(t, tt.wantEmail, identity.Email)
			assert.Equal(t, tt.wantRoleKeys, identity.RoleKeys)
		})
	}
}

func TestIdentityFromOAuthClaimsMissingUsername(t *testing.T) {
	_, err := identityFromOAuthClaims("azure", map[string]interface{}{
		"email": "alice@example.com",
	})
	assert.ErrorIs(t, err, ErrTokenClaims)
}

func TestClaimString(t *testing.T) {
	claims := map[string]interface{}{
		"name":  "alice",
		"count": 3,
	}

	assert.Equal(t, "alice", claimString(claims, "name"))
	assert.Empty(t, claimString(claims, "count"))
	assert.Empty(t, claimString(claims, "missing"))
}

func TestClaimStrings(t *testing.T) {
	claims := map[string]interface{}{
		"typed":  []string{"a", "b"},
		"json":   []interface{}{"a", 1, "b"},
		"scalar": "a",
	}

	assert.Equal(t, []string{"a", "b"}, claimStrings(claims, "typed"))
	assert.Equal(t, []string{"a", "b"}, claimStrings(claims, "json"))
	assert.Nil(t, claimStrings(claims, "scalar"))
	assert.Nil(t, claimStrings(claims, "missing"))
}

func TestGenerateStateToken(t *testing.T) {
	one, err := GenerateStateToken()
	require.NoError(t, err)
	require.NotEmpty(t, one)

	two, err := GenerateStateToken()
	require.NoError(t, err)
	assert.NotEqual(t, one, two)
}

func TestDefaultJWKSURL(t *testing.T) {
	azure := config.OAuthProvider{
		Name:      "azure",
		IssuerURL: "https://login.microsoftonline.com/tid/v2.0",
	}
	assert.Equal(t, "https://login.microsoftonline.com/common/discovery/keys", defaultJWKSURL(azure))

	authentik := config.OAuthProvider{
		Name:      "authentik",
		IssuerURL: "https://sso.example.com/application/o/secadmin/",
	}
	assert.Equal(t, "https://sso.example.com/application/o/secadmin/jwks/", defaultJWKSURL(authentik))

	// other providers rely on discovery unless JWKSURL is set
	assert.Empty(t, defaultJWKSURL(config.OAuthProvider{Name: "keycloak", IssuerURL: "https://kc.example.com"}))
}
