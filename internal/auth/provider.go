package auth

import (
	"context"
)

// Method names the authentication method a provider implements.
type Method string

// Supported authentication methods.
const (
	MethodDB         Method = "db"
	MethodLDAP       Method = "ldap"
	MethodOAuth      Method = "oauth"
	MethodSAML       Method = "saml"
	MethodCAS        Method = "cas"
	MethodRemoteUser Method = "remote_user"
)

// Credentials carries everything a provider may need to authenticate a
// request. Which fields are used depends on the provider.
type Credentials struct {
	Username string
	Password string

	// Provider selects the OAuth provider by name for MethodOAuth.
	Provider string
	// Code is the OAuth2 authorization code from the callback.
	Code string

	// SAMLResponse is the base64 encoded assertion posted to the ACS endpoint.
	SAMLResponse string

	// Ticket is the CAS service ticket from the callback.
	Ticket string
	// ServiceURL is the CAS service the ticket was issued for.
	ServiceURL string

	// RemoteUser is the value of the trusted proxy header.
	RemoteUser string
}

// Identity is the normalized result of a successful provider authentication,
// before the local user record is provisioned or refreshed.
type Identity struct {
	Method    Method
	Username  string
	Email     string
	FirstName string
	LastName  string

	// RoleKeys are the provider-side group/role identifiers used by the role
	// mapping engine (LDAP group DNs, OIDC groups claim, SAML role attributes).
	RoleKeys []string

	// Userinfo keeps the raw provider claims for JMESPath registration role
	// expressions.
	Userinfo map[string]interface{}
}

// Provider authenticates credentials for one method. The interface is closed,
// all implementations live in this package.
type Provider interface {
	Method() Method
	Authenticate(ctx context.Context, creds Credentials) (*Identity, error)

	provider()
}
