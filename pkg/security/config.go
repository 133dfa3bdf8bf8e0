// Package security provides the TLS settings shared by network sources.
package security

// ClientMTLSConfig holds the client certificate presented to servers that
// require mutual TLS.
type ClientMTLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file"`
}

// ClientTLSConfig holds TLS configuration for HTTP, WebSocket and NATS clients.
// The system CA bundle is always trusted; CAFiles are additional trusted CAs.
type ClientTLSConfig struct {
	CAFiles            []string `json:"ca_files,omitempty" yaml:"ca_files"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify"` // DEV/TEST ONLY
	MinVersion         string   `json:"min_version,omitempty" yaml:"min_version"`                   // "1.2" or "1.3"

	MTLS ClientMTLSConfig `json:"mtls,omitempty" yaml:"mtls"`
}

// Configured reports whether any setting differs from the Go defaults.
func (c ClientTLSConfig) Configured() bool {
	return len(c.CAFiles) > 0 || c.InsecureSkipVerify || c.MinVersion != "" || c.MTLS.Enabled
}
