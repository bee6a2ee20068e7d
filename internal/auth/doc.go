// Package auth provides the authentication providers and token services.
//
// Each supported authentication method is a Provider that turns incoming
// credentials into a verified Identity:
//   - DBProvider: username/password against the local database with Argon2id
//     password hashing and login statistics bookkeeping.
//   - LDAPProvider: direct or indirect bind against LDAP/Active Directory
//     with group membership extraction for role mapping.
//   - OAuthProvider: OAuth2/OIDC authorization-code flow with per-provider
//     claim normalization (azure, okta, auth0, keycloak, authentik, generic).
//   - SAMLProvider: SAML2 service provider validating IdP assertions.
//   - CASProvider: CAS service-ticket validation.
//   - RemoteUserProvider: trusted proxy header lookup.
//
// All providers funnel through Registrar.Complete, which provisions or
// refreshes the local user record, synchronizes mapped roles and updates the
// login statistics. API keys and JWT access/refresh tokens are issued and
// validated here as well.
//
// Example usage:
//
//	provider := auth.NewDBProvider(store)
//	registrar := auth.NewRegistrar(store)
//
//	identity, err := provider.Authenticate(ctx, auth.Credentials{
//	    Username: "alice",
//	    Password: "secret",
//	})
//	if err != nil {
//	    // one of the auth.Err* sentinels
//	}
//
//	user, err := registrar.Complete(identity)
package auth
