// Package tlsutil turns security.ClientTLSConfig into a *tls.Config for the
// HTTP, WebSocket and NATS sources.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/pkg/security"
)

// LoadClientTLSConfig builds the client config. Extra CA files are appended to
// the system pool. Every failure is fatal: a source must not start with a
// half-applied TLS setup.
func LoadClientTLSConfig(cfg security.ClientTLSConfig) (*tls.Config, error) {
	roots, err := rootPool(cfg.CAFiles)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "build root pool")
	}

	out := &tls.Config{
		MinVersion:         minVersion(cfg.MinVersion),
		RootCAs:            roots,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}

	if !cfg.MTLS.Enabled {
		return out, nil
	}
	pair, err := tls.LoadX509KeyPair(cfg.MTLS.CertFile, cfg.MTLS.KeyFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "load client key pair")
	}
	out.Certificates = append(out.Certificates, pair)
	return out, nil
}

func rootPool(files []string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("%s: no PEM certificates found", name)
		}
	}
	return pool, nil
}

// minVersion accepts "1.3"; anything else means TLS 1.2.
func minVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
