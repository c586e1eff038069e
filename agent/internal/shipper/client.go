package shipper

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pspwatch/pspwatch/agent/internal/config"
)

const defaultClientTimeout = 10 * time.Second

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.auth.Mode == "apikey" {
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	}
	return t.base.RoundTrip(req)
}

// NewHTTPClient builds the client used for every call to the server's HTTP
// surface, carrying the configured auth and TLS settings.
func NewHTTPClient(cfg config.AgentConfig) (*http.Client, error) {
	tlsCfg, err := tlsConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: cfg.ServerAuth,
		},
		Timeout: defaultClientTimeout,
	}, nil
}

// tlsConfig builds the client TLS settings: optional verification skip and,
// in mtls mode, the client certificate and CA pool.
func tlsConfig(cfg config.AgentConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	if cfg.ServerAuth.Mode != "mtls" {
		return tlsCfg, nil
	}

	auth := cfg.ServerAuth
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}
	tlsCfg.Certificates = []tls.Certificate{cert}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
