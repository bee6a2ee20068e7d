package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	cas "gopkg.in/cas.v2"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

// CASProvider validates CAS service tickets against the configured server.
type CASProvider struct {
	cfg       *config.CAS
	serverURL *url.URL
	validator *cas.ServiceTicketValidator
}

// NewCASProvider creates a new CAS provider.
func NewCASProvider(cfg *config.CAS) (*CASProvider, error) {
	if cfg.ServerURL == "" {
		return nil, ErrNotConfigured
	}

	serverURL, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid CAS server URL")
	}

	return &CASProvider{
		cfg:       cfg,
		serverURL: serverURL,
		validator: cas.NewServiceTicketValidator(http.DefaultClient, serverURL),
	}, nil
}

// Method implements Provider.
func (p *CASProvider) Method() Method { return MethodCAS }

func (p *CASProvider) provider() {}

// LoginURL builds the CAS login redirect for the given service URL.
func (p *CASProvider) LoginURL(serviceURL string) string {
	loginURL := *p.serverURL
	loginURL.Path = strings.TrimSuffix(loginURL.Path, "/") + "/login"

	q := loginURL.Query()
	q.Set("service", serviceURL)
	loginURL.RawQuery = q.Encode()

	return loginURL.String()
}

// Authenticate validates the service ticket and extracts the identity from
// the response attributes. Attribute names vary per CAS deployment, so each
// field is resolved from the first populated candidate.
func (p *CASProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.Ticket == "" {
		return nil, ErrTicketInvalid
	}

	serviceURL, err := url.Parse(creds.ServiceURL)
	if err != nil {
		return nil, errors.Wrap(ErrTicketInvalid, "invalid service URL")
	}

	resp, err := p.validator.ValidateTicket(serviceURL, creds.Ticket)
	if err != nil {
		return nil, errors.Wrap(ErrTicketInvalid, err.Error())
	}

	if resp.User == "" {
		return nil, ErrTicketInvalid
	}

	userinfo := make(map[string]interface{}, len(resp.Attributes))
	for name, values := range resp.Attributes {
		if len(values) == 1 {
			userinfo[name] = values[0]
		} else {
			userinfo[name] = values
		}
	}

	return &Identity{
		Method:    MethodCAS,
		Username:  resp.User,
		Email:     firstAttribute(resp.Attributes, "email", "mail", "e-mail"),
		FirstName: firstAttribute(resp.Attributes, "first_name", "firstname", "givenName"),
		LastName:  firstAttribute(resp.Attributes, "last_name", "lastname", "sn"),
		RoleKeys:  resp.Attributes["memberOf"],
		Userinfo:  userinfo,
	}, nil
}

// firstAttribute returns the first value of the first candidate attribute
// that is present.
func firstAttribute(attrs cas.UserAttributes, names ...string) string {
	for _, name := range names {
		if values := attrs[name]; len(values) > 0 {
			return values[0]
		}
	}

	return ""
}
