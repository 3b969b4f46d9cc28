package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

// TLSConfig holds configuration for encrypted Bolt connections.
type TLSConfig struct {
	// RootCAs is the pool of trusted CA certificates used to verify the
	// server certificate. Nil means the host's system roots.
	RootCAs *x509.CertPool

	// ServerName is the expected server name for certificate verification.
	// Defaults to the host part of the dialed address.
	ServerName string

	// InsecureSkipVerify disables certificate verification.
	// Only for testing - never use in production!
	InsecureSkipVerify bool

	// VerifyPeerCertificate is an optional callback for custom certificate verification.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
}

// NewClientTLSConfig creates a TLS configuration for connecting to a Bolt server.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS12,

		// CA pool for verifying the server certificate
		RootCAs: cfg.RootCAs,

		// Server name for verification
		ServerName: cfg.ServerName,

		// Custom verification callback
		VerifyPeerCertificate: cfg.VerifyPeerCertificate,

		// For testing only
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, nil
}

// TLSTransport is the encrypted Transport variant.
type TLSTransport struct {
	NetTransport
	state tls.ConnectionState
}

// DialTLS opens an encrypted transport to the specified address. It fails
// if the socket cannot be opened, the TLS handshake fails, or certificate
// validation fails.
func DialTLS(ctx context.Context, address string, tlsCfg *TLSConfig, cfg Config) (*TLSTransport, error) {
	tlsConf, err := NewClientTLSConfig(tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS config: %w", err)
	}
	if tlsConf.ServerName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", address, err)
		}
		tlsConf.ServerName = host
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	tlsConn := tls.Client(conn, tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}

	return &TLSTransport{
		NetTransport: NetTransport{conn: tlsConn, cfg: cfg},
		state:        tlsConn.ConnectionState(),
	}, nil
}

// TLSState returns the TLS connection state.
func (t *TLSTransport) TLSState() tls.ConnectionState {
	return t.state
}

// Compile-time interface satisfaction check.
var _ Transport = (*TLSTransport)(nil)
