package auth

import (
	"context"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

// RemoteUserProvider trusts an upstream proxy to authenticate the user and
// forward the login name in a header.
type RemoteUserProvider struct {
	cfg *config.RemoteUser
}

// NewRemoteUserProvider creates the header based provider.
func NewRemoteUserProvider(cfg *config.RemoteUser) *RemoteUserProvider {
	return &RemoteUserProvider{cfg: cfg}
}

// Method implements Provider.
func (p *RemoteUserProvider) Method() Method { return MethodRemoteUser }

func (p *RemoteUserProvider) provider() {}

// Header returns the configured header name.
func (p *RemoteUserProvider) Header() string {
	if p.cfg.Header == "" {
		return "Remote-User"
	}

	return p.cfg.Header
}

// Authenticate accepts the forwarded login name as-is. The web layer only
// reads the header when the request arrived through the trusted proxy.
func (p *RemoteUserProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.RemoteUser == "" {
		return nil, ErrHeaderMissing
	}

	return &Identity{
		Method:   MethodRemoteUser,
		Username: creds.RemoteUser,
	}, nil
}
