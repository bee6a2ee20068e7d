package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-secadmin/go-secadmin/internal/config"
	"github.com/go-secadmin/go-secadmin/internal/security"
)

// LDAPProvider authenticates against an LDAP or Active Directory server.
//
// Two bind strategies are supported:
//   - direct bind: UsernameFormat or AppendDomain is set, the user's DN is
//     derived from the login name and bound immediately.
//   - indirect bind: a service account (BindUser) searches for the user entry
//     first, then the found DN is bound with the supplied password.
type LDAPProvider struct {
	store *security.Store
	cfg   *config.LDAP
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(store *security.Store, cfg *config.LDAP) (*LDAPProvider, error) {
	if cfg.Server == "" {
		return nil, ErrNotConfigured
	}

	// Set defaults
	if cfg.UIDField == "" {
		cfg.UIDField = "uid"
	}

	if cfg.EmailField == "" {
		cfg.EmailField = "mail"
	}

	if cfg.FirstNameField == "" {
		cfg.FirstNameField = "givenName"
	}

	if cfg.LastNameField == "" {
		cfg.LastNameField = "sn"
	}

	if cfg.GroupField == "" {
		cfg.GroupField = "memberOf"
	}

	return &LDAPProvider{store: store, cfg: cfg}, nil
}

// Method implements Provider.
func (p *LDAPProvider) Method() Method { return MethodLDAP }

func (p *LDAPProvider) provider() {}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	tlsConfig, err := p.tlsConfig()
	if err != nil {
		return nil, err
	}

	conn, err := ldap.DialURL(p.cfg.Server, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, errors.Wrap(ErrUpstreamUnavailable, err.Error())
	}

	// Upgrade to TLS if requested (for plain ldap:// connections)
	if p.cfg.UseTLS && !strings.HasPrefix(p.cfg.Server, "ldaps://") {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, errors.Wrap(ErrUpstreamUnavailable, errStartTLS.Error())
		}
	}

	if p.cfg.Timeout > 0 {
		conn.SetTimeout(p.cfg.Timeout)
	}

	return conn, nil
}

func (p *LDAPProvider) tlsConfig() (*tls.Config, error) {
	if !p.cfg.UseTLS && !strings.HasPrefix(p.cfg.Server, "ldaps://") {
		return nil, nil //nolint:nilnil // nil config means plaintext dial
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: p.cfg.AllowSelfSigned, //nolint:gosec // operator opt-in for self-signed IdPs
	}

	if p.cfg.TLSCACertFile != "" {
		pem, err := os.ReadFile(p.cfg.TLSCACertFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read LDAP CA certificate")
		}

		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(pem)
		tlsConfig.RootCAs = pool
	}

	if p.cfg.TLSCertFile != "" && p.cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(p.cfg.TLSCertFile, p.cfg.TLSKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load LDAP client certificate")
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Authenticate binds against LDAP and returns the normalized identity
// including the user's group DNs as role keys.
func (p *LDAPProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.directBind() {
		return p.authenticateDirect(conn, creds.Username, creds.Password)
	}

	return p.authenticateIndirect(conn, creds.Username, creds.Password)
}

// directBind reports whether the user DN can be derived from the login name.
func (p *LDAPProvider) directBind() bool {
	return p.cfg.BindUser == "" && (p.cfg.UsernameFormat != "" || p.cfg.AppendDomain != "")
}

// bindName derives the DN or UPN to bind as for a direct bind.
func (p *LDAPProvider) bindName(username string) string {
	if p.cfg.AppendDomain != "" {
		return username + "@" + p.cfg.AppendDomain
	}

	return fmt.Sprintf(p.cfg.UsernameFormat, username)
}

// authenticateDirect binds as the user first, then searches its own entry
// when a search base is configured. Without one the identity is built from
// the login name alone, there is nothing to look up attributes with.
func (p *LDAPProvider) authenticateDirect(conn *ldap.Conn, username, password string) (*Identity, error) {
	if err := conn.Bind(p.bindName(username), password); err != nil {
		log.Info().Str("username", username).Msg("ldap direct bind rejected")
		p.recordFailedLogin(username)

		return nil, ErrInvalidCredentials
	}

	return p.resolveDirectIdentity(conn, username)
}

// resolveDirectIdentity looks up the bound user's entry. With no search base
// configured the identity carries the login name alone.
func (p *LDAPProvider) resolveDirectIdentity(conn *ldap.Conn, username string) (*Identity, error) {
	if p.cfg.Search == "" {
		return &Identity{Method: MethodLDAP, Username: username}, nil
	}

	entry, err := p.searchUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	return p.identityFromEntry(username, entry), nil
}

// authenticateIndirect searches for the user with the service account, then
// re-binds with the found DN and the supplied password.
func (p *LDAPProvider) authenticateIndirect(conn *ldap.Conn, username, password string) (*Identity, error) {
	if p.cfg.BindUser != "" {
		if err := conn.Bind(p.cfg.BindUser, p.cfg.BindPassword); err != nil {
			return nil, errors.Wrap(ErrUpstreamUnavailable, "service account bind failed")
		}
	}

	entry, err := p.searchUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	if err := conn.Bind(entry.DN, password); err != nil {
		log.Info().Str("username", username).Msg("ldap user bind rejected")
		p.recordFailedLogin(username)

		return nil, ErrInvalidCredentials
	}

	return p.identityFromEntry(username, entry), nil
}

// recordFailedLogin bumps fail_login_count for a locally known user after a
// rejected bind. Unknown usernames are ignored.
func (p *LDAPProvider) recordFailedLogin(username string) {
	if p.store == nil {
		return
	}

	user, err := p.store.FindUser(username)
	if err != nil || user == nil {
		return
	}

	if errStat := p.store.UpdateUserAuthStat(user, false); errStat != nil {
		log.Error().Err(errStat).Uint64("user_id", user.ID).Msg("failed to update auth stats")
	}
}

// searchUserEntry searches LDAP for the given username and returns a single entry.
// Referral entries without a DN are skipped.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf("(%s=%s)", p.cfg.UIDField, ldap.EscapeFilter(username))
	if p.cfg.SearchFilter != "" {
		filter = fmt.Sprintf("(&%s%s)", p.cfg.SearchFilter, filter)
	}

	searchRequest := ldap.NewSearchRequest(
		p.cfg.Search,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		int(p.cfg.Timeout.Seconds()),
		false,
		filter,
		[]string{
			p.cfg.UIDField,
			p.cfg.EmailField,
			p.cfg.FirstNameField,
			p.cfg.LastNameField,
			p.cfg.GroupField,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, errors.Wrap(ErrUpstreamUnavailable, err.Error())
	}

	entries := make([]*ldap.Entry, 0, len(searchResult.Entries))

	for _, entry := range searchResult.Entries {
		// some servers return referral pseudo-entries without a DN
		if entry.DN == "" {
			continue
		}

		entries = append(entries, entry)
	}

	switch len(entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

func (p *LDAPProvider) identityFromEntry(username string, entry *ldap.Entry) *Identity {
	return &Identity{
		Method:    MethodLDAP,
		Username:  username,
		Email:     entry.GetAttributeValue(p.cfg.EmailField),
		FirstName: entry.GetAttributeValue(p.cfg.FirstNameField),
		LastName:  entry.GetAttributeValue(p.cfg.LastNameField),
		RoleKeys:  entry.GetAttributeValues(p.cfg.GroupField),
	}
}

// TestConnection tests the LDAP server connection and bind credentials.
// Returns nil if the connection and service account bind are successful.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.cfg.BindUser != "" {
		if err := conn.Bind(p.cfg.BindUser, p.cfg.BindPassword); err != nil {
			return errors.Wrap(ErrUpstreamUnavailable, "bind failed")
		}
	}

	return nil
}
