package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

// SAMLProvider validates IdP assertions posted to the assertion consumer
// service endpoint and maps the configured attributes onto an Identity.
type SAMLProvider struct {
	cfg *config.SAML
	sp  *saml2.SAMLServiceProvider
}

// NewSAMLProvider creates the SAML service provider from the IdP settings.
func NewSAMLProvider(cfg *config.SAML, baseURL string) (*SAMLProvider, error) {
	if cfg.SSOURL == "" && cfg.MetadataURL == "" {
		return nil, ErrNotConfigured
	}

	certStore, err := idpCertificateStore(cfg.Certificate)
	if err != nil {
		return nil, err
	}

	keyStore, err := spKeyStore(cfg)
	if err != nil {
		return nil, err
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      cfg.SSOURL,
		IdentityProviderIssuer:      cfg.EntityID,
		ServiceProviderIssuer:       baseURL + "/saml/metadata",
		AssertionConsumerServiceURL: baseURL + "/saml/acs",
		SignAuthnRequests:           cfg.SignRequests,
		AudienceURI:                 baseURL,
		IDPCertificateStore:         certStore,
		SPKeyStore:                  keyStore,
	}

	return &SAMLProvider{cfg: cfg, sp: sp}, nil
}

// idpCertificateStore parses the IdP signing certificate.
func idpCertificateStore(certificate string) (*dsig.MemoryX509CertificateStore, error) {
	block, _ := pem.Decode([]byte(certificate))
	if block == nil {
		return nil, errors.New("failed to decode IdP certificate PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse IdP certificate")
	}

	return &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{cert}}, nil
}

// spKeyStore loads the SP signing key when request signing is configured.
func spKeyStore(cfg *config.SAML) (dsig.X509KeyStore, error) {
	if cfg.SPPrivateKey == "" {
		return dsig.RandomKeyStoreForTest(), nil
	}

	block, _ := pem.Decode([]byte(cfg.SPPrivateKey))
	if block == nil {
		return nil, errors.New("failed to decode SP private key PEM")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		pkcs8Key, errPKCS8 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if errPKCS8 != nil {
			return nil, errors.Wrap(errPKCS8, "failed to parse SP private key")
		}

		var ok bool
		if privateKey, ok = pkcs8Key.(*rsa.PrivateKey); !ok {
			return nil, errors.New("SP private key is not RSA")
		}
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  privateKey,
		Certificate: [][]byte{[]byte(cfg.SPCertificate)},
	}, nil
}

// Method implements Provider.
func (p *SAMLProvider) Method() Method { return MethodSAML }

func (p *SAMLProvider) provider() {}

// AuthURL builds the IdP redirect URL for SP initiated login.
func (p *SAMLProvider) AuthURL(relayState string) (string, error) {
	authURL, err := p.sp.BuildAuthURL(relayState)
	if err != nil {
		return "", errors.Wrap(err, "failed to build SAML auth URL")
	}

	return authURL, nil
}

// Authenticate validates the posted assertion and extracts the identity via
// the configured attribute mapping. The NameID is the username fallback, and
// doubles as email when it looks like an address.
func (p *SAMLProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.SAMLResponse == "" {
		return nil, ErrAssertionInvalid
	}

	assertionInfo, err := p.sp.RetrieveAssertionInfo(creds.SAMLResponse)
	if err != nil {
		return nil, errors.Wrap(ErrAssertionInvalid, err.Error())
	}

	if assertionInfo.WarningInfo != nil {
		if assertionInfo.WarningInfo.InvalidTime {
			return nil, errors.Wrap(ErrAssertionInvalid, "assertion outside validity window")
		}

		if assertionInfo.WarningInfo.NotInAudience {
			return nil, errors.Wrap(ErrAssertionInvalid, "assertion not in expected audience")
		}
	}

	identity := &Identity{
		Method:   MethodSAML,
		Userinfo: map[string]interface{}{},
	}

	mapping := p.cfg.AttributeMapping

	for _, attr := range assertionInfo.Values {
		if len(attr.Values) == 0 {
			continue
		}

		value := attr.Values[0].Value
		identity.Userinfo[attr.Name] = value

		switch attr.Name {
		case mapping["username"]:
			identity.Username = value
		case mapping["email"]:
			identity.Email = value
		case mapping["first_name"]:
			identity.FirstName = value
		case mapping["last_name"]:
			identity.LastName = value
		}

		if attr.Name == p.cfg.RoleKeysAttr {
			for _, v := range attr.Values {
				identity.RoleKeys = append(identity.RoleKeys, v.Value)
			}
		}
	}

	if identity.Username == "" {
		identity.Username = assertionInfo.NameID
	}

	if identity.Email == "" && strings.Contains(assertionInfo.NameID, "@") {
		identity.Email = assertionInfo.NameID
	}

	if identity.Username == "" {
		log.Warn().Msg("saml assertion carries no usable subject")
		return nil, ErrAssertionInvalid
	}

	return identity, nil
}
