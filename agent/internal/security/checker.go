package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/pspwatch/pspwatch/agent/internal/config"
)

// expiringWithin is the window in which a valid certificate is reported as
// expiring.
const expiringWithin = 30 * 24 * time.Hour

// Certificate statuses.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUnreachable = "unreachable"
)

// CertStatus describes the server's leaf certificate.
type CertStatus struct {
	Endpoint string
	AuthType string
	Status   string
	Issuer   string
	NotAfter string
	DaysLeft int
}

// Check dials the server named by cfg.ServerURL and returns a CertStatus
// describing its leaf certificate.
//
// Returns nil for non-HTTPS URLs. Uses a 10-second dial timeout so an
// unreachable host does not hold up agent startup.
func Check(ctx context.Context, cfg config.AgentConfig) *CertStatus {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{
		Endpoint: cfg.ServerURL,
		AuthType: cfg.ServerAuth.Mode,
	}
	if cs.AuthType == "" {
		cs.AuthType = "none"
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = StatusUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		return cs
	}

	leaf := peerCerts[0]
	left := time.Until(leaf.NotAfter)

	cs.NotAfter = leaf.NotAfter.UTC().Format(time.RFC3339)
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))
	cs.Status = classify(left)
	return cs
}

func classify(left time.Duration) string {
	switch {
	case left <= 0:
		return StatusExpired
	case left <= expiringWithin:
		return StatusExpiring
	default:
		return StatusValid
	}
}
