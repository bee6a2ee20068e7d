package config

import "time"

// Authentication method names accepted in Auth.Type.
const (
	AuthTypeDB         = "db"
	AuthTypeLDAP       = "ldap"
	AuthTypeOAuth      = "oauth"
	AuthTypeSAML       = "saml"
	AuthTypeCAS        = "cas"
	AuthTypeRemoteUser = "remote_user"
)

// Auth holds everything the security layer needs: the active
// authentication method, role defaults, self registration behaviour and
// the per-provider connection settings.
type Auth struct {
	Type string // one of db, ldap, oauth, saml, cas, remote_user

	RoleAdmin  string // role that receives every registered permission
	RolePublic string // role evaluated for anonymous requests

	UserRegistration             bool   // auto-provision unknown users on first external login
	UserRegistrationRole         string // default role for auto-provisioned users
	UserRegistrationRoleJMESPath string // optional JMESPath expression over the provider userinfo

	RolesMapping         map[string][]string // provider group/claim key -> local role names
	RolesSyncAtLogin     bool                // replace user roles from provider keys on every login
	PartialRolesMatching bool                // substring match for RolesMapping keys

	APIKeyPrefix     string // printable prefix for generated API keys
	FakePasswordHash string // hash verified for unknown users to keep timing flat

	LDAP       LDAP
	OAuth      []OAuthProvider
	SAML       SAML
	CAS        CAS
	RemoteUser RemoteUser
	JWT        JWT
	RateLimit  RateLimit
}

// LDAP connection and schema settings.
type LDAP struct {
	Server          string // ldap:// or ldaps:// URL
	BindUser        string // service account DN, empty for direct bind
	BindPassword    string
	Search          string // base DN for user searches
	SearchFilter    string // extra filter ANDed with the uid match
	UIDField        string
	GroupField      string // attribute carrying group DNs, usually memberOf
	FirstNameField  string
	LastNameField   string
	EmailField      string
	UsernameFormat  string // e.g. "uid=%s,ou=users,dc=example,dc=com" for direct bind
	AppendDomain    string // append "@domain" to the login name before binding
	UseTLS          bool   // upgrade with StartTLS
	AllowSelfSigned bool
	TLSCACertFile   string
	TLSCertFile     string
	TLSKeyFile      string
	Timeout         time.Duration
}

// OAuthProvider describes one configured OAuth2/OIDC identity provider.
type OAuthProvider struct {
	Name            string // azure, okta, auth0, keycloak, authentik or generic
	ClientID        string
	ClientSecret    string
	IssuerURL       string
	RedirectURL     string
	Scopes          []string
	VerifySignature bool   // verify the id_token signature against the JWKS
	JWKSURL         string // override for providers without discovery
}

// SAML service-provider settings.
type SAML struct {
	EntityID         string
	SSOURL           string // IdP single-sign-on endpoint
	MetadataURL      string
	Certificate      string // IdP signing certificate, PEM
	SPCertificate    string
	SPPrivateKey     string
	AttributeMapping map[string]string // userinfo field -> SAML attribute name
	RoleKeysAttr     string            // attribute listing group/role keys
	SignRequests     bool
}

// CAS server settings.
type CAS struct {
	ServerURL string
}

// RemoteUser settings for header based auth behind a trusted proxy.
type RemoteUser struct {
	Header string // defaults to Remote-User
}

// JWT settings for API access and refresh tokens.
type JWT struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// RateLimit settings for the authentication endpoints.
type RateLimit struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}
