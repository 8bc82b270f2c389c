// Package certprovision obtains TLS certificates from an ACME provider
// (Let's Encrypt by default) and writes them to disk so the container's
// server can load them as static TLS material. It performs no automatic
// renewal or background polling: Provision is called explicitly, once,
// before the server starts serving HTTPS.
package certprovision

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
)

// Option configures the Provisioner.
type Option func(*config) error

// WithCADirectoryURL overrides the ACME directory URL (defaults to Let's Encrypt production).
func WithCADirectoryURL(url string) Option {
	return func(cfg *config) error {
		cfg.caDirURL = strings.TrimSpace(url)
		return nil
	}
}

// WithHTTP01Address selects the bind address for the internal HTTP-01 challenge server (host:port).
// Leave empty to bind all interfaces on port 80.
func WithHTTP01Address(addr string) Option {
	return func(cfg *config) error {
		cfg.http01Address = strings.TrimSpace(addr)
		return nil
	}
}

// WithHTTP01ProxyHeader sets the header the challenge server inspects for host matching when behind a proxy.
func WithHTTP01ProxyHeader(header string) Option {
	return func(cfg *config) error {
		cfg.proxyHeader = strings.TrimSpace(header)
		return nil
	}
}

// WithKeyType overrides the key type used for the issued certificate's private key.
func WithKeyType(keyType certcrypto.KeyType) Option {
	return func(cfg *config) error {
		cfg.keyType = keyType
		return nil
	}
}

// WithBundle toggles whether the returned certificate includes the issuer chain concatenated to the leaf cert (default true).
func WithBundle(bundle bool) Option {
	return func(cfg *config) error {
		cfg.bundle = bundle
		return nil
	}
}

// Provisioner issues a certificate for the container's bind domain and
// stores the resulting artifacts on disk.
type Provisioner struct {
	cfg             config
	clientFactory   clientFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
}

type config struct {
	domain        string
	email         string
	outputDir     string
	caDirURL      string
	keyType       certcrypto.KeyType
	bundle        bool
	http01Address string
	http01Host    string
	http01Port    string
	proxyHeader   string
}

const (
	defaultDirectoryURL = lego.LEDirectoryProduction
	defaultHTTPPort     = "80"
)

// New constructs a Provisioner for the given domain and ACME account email.
// Certificates are written to outputDir as "<domain>.crt" / "<domain>.key".
func New(domain, email, outputDir string, opts ...Option) (*Provisioner, error) {
	cfg := config{
		domain:    strings.TrimSpace(domain),
		email:     strings.TrimSpace(email),
		outputDir: strings.TrimSpace(outputDir),
		caDirURL:  defaultDirectoryURL,
		keyType:   certcrypto.RSA2048,
		bundle:    true,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return &Provisioner{
		cfg:           cfg,
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
	}, nil
}

// Result captures the file paths of the provisioned certificate artifacts.
type Result struct {
	CertificatePath       string
	PrivateKeyPath        string
	IssuerCertificatePath string
}

// Provision completes an ACME HTTP-01 challenge and writes the issued
// certificate and private key to the configured output directory. It
// blocks for the duration of the challenge exchange, typically tens of
// seconds.
func (p *Provisioner) Provision(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accountKey, err := p.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}

	user := &accountUser{email: p.cfg.email, key: accountKey}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = p.cfg.caDirURL
	legoCfg.Certificate.KeyType = p.cfg.keyType

	client, err := p.clientFactory(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	provider := http01.NewProviderServer(p.cfg.http01Host, p.cfg.http01Port)
	if p.cfg.proxyHeader != "" {
		provider.SetProxyHeader(p.cfg.proxyHeader)
	}

	if err := client.SetHTTP01Provider(provider); err != nil {
		return nil, fmt.Errorf("configure http-01 provider: %w", err)
	}

	reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	user.registration = reg

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	certRes, err := client.Obtain(certificate.ObtainRequest{
		Domains:        []string{p.cfg.domain},
		Bundle:         p.cfg.bundle,
		EmailAddresses: []string{p.cfg.email},
	})
	if err != nil {
		return nil, fmt.Errorf("obtain certificate: %w", err)
	}

	return p.writeArtifacts(certRes)
}

func (p *Provisioner) writeArtifacts(certRes *certificate.Resource) (*Result, error) {
	if certRes == nil {
		return nil, errors.New("certificate resource is nil")
	}

	if err := os.MkdirAll(p.cfg.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	base := safeFileSegment(p.cfg.domain)
	certPath := filepath.Join(p.cfg.outputDir, base+".crt")
	keyPath := filepath.Join(p.cfg.outputDir, base+".key")
	issuerPath := filepath.Join(p.cfg.outputDir, base+"-issuer.crt")

	if len(certRes.PrivateKey) == 0 {
		return nil, errors.New("empty private key received from ACME server")
	}
	if err := os.WriteFile(keyPath, certRes.PrivateKey, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}

	if len(certRes.Certificate) == 0 {
		return nil, errors.New("empty certificate payload received from ACME server")
	}
	if err := os.WriteFile(certPath, certRes.Certificate, 0o644); err != nil {
		return nil, fmt.Errorf("write certificate: %w", err)
	}

	result := &Result{CertificatePath: certPath, PrivateKeyPath: keyPath}

	if len(certRes.IssuerCertificate) > 0 {
		if err := os.WriteFile(issuerPath, certRes.IssuerCertificate, 0o644); err != nil {
			return nil, fmt.Errorf("write issuer certificate: %w", err)
		}
		result.IssuerCertificatePath = issuerPath
	}

	return result, nil
}

func (cfg *config) applyDefaults() error {
	if cfg.domain == "" {
		return errors.New("domain is required")
	}
	if cfg.email == "" {
		return errors.New("email is required")
	}
	if cfg.outputDir == "" {
		return errors.New("output directory is required")
	}
	if cfg.caDirURL == "" {
		cfg.caDirURL = defaultDirectoryURL
	}

	host, port, err := parseHTTPAddress(cfg.http01Address)
	if err != nil {
		return err
	}
	if port == "" {
		port = defaultHTTPPort
	}
	cfg.http01Host = host
	cfg.http01Port = port

	if cfg.keyType == "" {
		cfg.keyType = certcrypto.RSA2048
	}

	if cfg.proxyHeader != "" {
		cfg.proxyHeader = http.CanonicalHeaderKey(cfg.proxyHeader)
	}

	return nil
}

func parseHTTPAddress(addr string) (string, string, error) {
	if strings.TrimSpace(addr) == "" {
		return "", "", nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", "", fmt.Errorf("invalid http-01 address %q: %w", addr, err)
	}

	return host, port, nil
}

func safeFileSegment(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "certificate"
	}

	var b strings.Builder
	b.Grow(len(value))

	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	sanitized := strings.Trim(b.String(), "._-")
	if sanitized == "" {
		return "certificate"
	}

	return sanitized
}

type clientFactory func(*lego.Config) (acmeClient, error)

type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetHTTP01Provider(provider challenge.Provider) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) SetHTTP01Provider(provider challenge.Provider) error {
	return l.client.Challenge.SetHTTP01Provider(provider)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string                        { return u.email }
func (u *accountUser) GetRegistration() *registration.Resource { return u.registration }
func (u *accountUser) GetPrivateKey() crypto.PrivateKey         { return u.key }
