package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the username/password pair does not
	// match a local user. It deliberately does not distinguish between an
	// unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrRegistrationDisabled is returned when an externally authenticated user
	// has no local record and self registration is turned off.
	ErrRegistrationDisabled = errors.New("user registration is disabled")

	// ErrRegistrationNotFound is returned when a registration hash does not
	// match any pending self-registration.
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrUpstreamUnavailable is returned when the identity provider can not be
	// reached or answers with a transport level failure.
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")

	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	// This typically indicates a misconfigured OIDC provider or an incomplete authentication flow.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrTokenSignature is returned when an id_token signature does not verify
	// against the provider's published keys.
	ErrTokenSignature = errors.New("token signature verification failed")

	// ErrTokenClaims is returned when a verified token carries claims that can
	// not be decoded or are missing the subject.
	ErrTokenClaims = errors.New("token claims invalid")

	// ErrUnknownProvider is returned for an OAuth provider name that is not configured.
	ErrUnknownProvider = errors.New("unknown oauth provider")

	// ErrAssertionInvalid is returned when a SAML assertion fails validation.
	ErrAssertionInvalid = errors.New("saml assertion invalid")

	// ErrTicketInvalid is returned when a CAS service ticket fails validation.
	ErrTicketInvalid = errors.New("cas ticket invalid")

	// ErrHeaderMissing is returned when the trusted remote-user header is absent.
	ErrHeaderMissing = errors.New("remote user header missing")

	// ErrAPIKeyInvalid is returned when an API key is unknown, revoked or expired.
	ErrAPIKeyInvalid = errors.New("api key invalid")

	// ErrJWTInvalid is returned when a JWT access or refresh token fails validation.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrNotConfigured is returned when a provider is used without the required config.
	ErrNotConfigured = errors.New("authentication provider not configured")
)
