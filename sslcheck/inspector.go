// Package sslcheck inspects the leaf TLS certificate of each site and
// classifies it against expiry thresholds.
package sslcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/result"
	"github.com/lukemcguire/sitepulse/site"
)

const (
	DefaultWarningDays  = 30
	DefaultCriticalDays = 7
	DefaultTimeout      = 10 * time.Second

	day = 24 * time.Hour
)

// ErrNotHTTPS is reported for sites whose URL scheme is not https.
var ErrNotHTTPS = errors.New("certificate check requires an https URL")

// Config holds inspector configuration. CriticalDays is expected to be
// below WarningDays; the inspector does not enforce it.
type Config struct {
	WarningDays  int
	CriticalDays int
	Timeout      time.Duration // per handshake
	Logger       *zap.Logger
	Now          func() time.Time
}

// Inspector opens a TLS handshake per site and reads the peer certificate.
type Inspector struct {
	cfg    Config
	dialer *net.Dialer
}

// New creates an Inspector, filling unset fields with defaults.
func New(cfg Config) *Inspector {
	if cfg.WarningDays == 0 {
		cfg.WarningDays = DefaultWarningDays
	}
	if cfg.CriticalDays == 0 {
		cfg.CriticalDays = DefaultCriticalDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Inspector{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: cfg.Timeout},
	}
}

// Inspect checks one site. It never fails: network and handshake problems
// are reported as StatusError on the returned record.
func (i *Inspector) Inspect(ctx context.Context, s site.Site) result.CertificateResult {
	res := result.CertificateResult{
		SiteID:    s.ID,
		SiteName:  s.DisplayName(),
		URL:       s.URL,
		CheckedAt: i.cfg.Now().UTC(),
	}
	log := i.cfg.Logger.With(zap.String("site", s.ID), zap.String("url", s.URL))

	addr, host, err := dialAddress(s.URL)
	if err != nil {
		res.Status = result.StatusError
		res.Error = err.Error()
		log.Warn("certificate check skipped", zap.Error(err))
		return res
	}
	res.Host = host

	if ctx.Err() != nil {
		err := context.Cause(ctx)
		res.Status = result.StatusError
		res.Error = fmt.Sprintf("not checked: %v", err)
		return res
	}

	hsCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	tlsDialer := &tls.Dialer{
		NetDialer: i.dialer,
		Config: &tls.Config{
			ServerName: host,
			// Trust is out of scope; an expired or self-signed leaf must still
			// be readable so it can be classified.
			InsecureSkipVerify: true,
		},
	}

	conn, err := tlsDialer.DialContext(hsCtx, "tcp", addr)
	if err != nil {
		res.Status = result.StatusError
		res.Error = err.Error()
		log.Warn("tls handshake failed", zap.Error(err))
		return res
	}
	defer func() { _ = conn.Close() }()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		res.Status = result.StatusError
		res.Error = "unexpected connection type"
		return res
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		res.Status = result.StatusError
		res.Error = "server presented no certificate"
		return res
	}

	leaf := certs[0]
	now := i.cfg.Now()
	res.NotBefore = leaf.NotBefore.UTC()
	res.NotAfter = leaf.NotAfter.UTC()
	res.Issuer = leaf.Issuer.String()
	res.Subject = leaf.Subject.String()
	res.DaysRemaining = DaysRemaining(leaf.NotAfter, now)
	res.Expired = now.After(leaf.NotAfter)
	res.NotYetValid = now.Before(leaf.NotBefore)
	res.Valid = !res.Expired && !res.NotYetValid
	res.Status = Classify(leaf.NotBefore, leaf.NotAfter, now, i.cfg.WarningDays, i.cfg.CriticalDays)

	log.Debug("certificate inspected",
		zap.String("status", string(res.Status)),
		zap.Int("days_remaining", res.DaysRemaining),
		zap.Time("not_after", res.NotAfter),
	)
	return res
}

// DaysRemaining is floor((notAfter - now) / 1 day); negative once expired.
func DaysRemaining(notAfter, now time.Time) int {
	return int(math.Floor(float64(notAfter.Sub(now)) / float64(day)))
}

// Classify applies the expiry thresholds. First match wins:
// outside the validity window, then critical days, then warning days.
func Classify(notBefore, notAfter, now time.Time, warningDays, criticalDays int) result.Status {
	if now.After(notAfter) || now.Before(notBefore) {
		return result.StatusCritical
	}
	days := DaysRemaining(notAfter, now)
	switch {
	case days <= criticalDays:
		return result.StatusCritical
	case days <= warningDays:
		return result.StatusWarning
	default:
		return result.StatusOK
	}
}

// dialAddress returns host:port for the handshake. Port 443 unless the URL
// names one.
func dialAddress(rawURL string) (addr, host string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse URL %q: %w", rawURL, err)
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return "", "", fmt.Errorf("%w: got scheme %q", ErrNotHTTPS, parsed.Scheme)
	}
	host = parsed.Hostname()
	if host == "" {
		return "", "", fmt.Errorf("URL %q has no host", rawURL)
	}
	port := parsed.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(host, port), host, nil
}
