package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownAuthType error if config auth.type is not a known method.
	ErrUnknownAuthType = errors.New("toml config auth.type must be one of db, ldap, oauth, saml, cas, remote_user")

	// ErrLDAPServerEmpty error if LDAP auth is selected without a server.
	ErrLDAPServerEmpty = errors.New("toml config auth.ldap.server can not be empty")

	// ErrNoOAuthProviders error if OAuth auth is selected without providers.
	ErrNoOAuthProviders = errors.New("toml config auth.oauth needs at least one provider")

	// ErrSAMLEndpointEmpty error if SAML auth is selected without IdP endpoints.
	ErrSAMLEndpointEmpty = errors.New("toml config auth.saml needs ssourl or metadataurl")

	// ErrCASServerEmpty error if CAS auth is selected without a server.
	ErrCASServerEmpty = errors.New("toml config auth.cas.serverurl can not be empty")
)
