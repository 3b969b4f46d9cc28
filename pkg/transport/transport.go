package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Transport errors.
var (
	// ErrTransportClosed indicates the transport has been closed.
	ErrTransportClosed = errors.New("transport closed")
)

// Transport is an open bidirectional byte stream, plain or TLS.
// It is owned exclusively by one connection for its lifetime.
//
// ReadFull and WriteAll either transfer exactly the requested bytes or
// return an error; the io.ReadWriter facet exists so stream codecs can
// operate on the same deadline-aware stream.
type Transport interface {
	io.ReadWriter

	// ReadFull fills buf entirely. A peer close before the first byte
	// surfaces as io.EOF; a close mid-read as io.ErrUnexpectedEOF.
	ReadFull(buf []byte) error

	// WriteAll writes all of data or returns an error.
	WriteAll(data []byte) error

	// Close closes the underlying socket. Idempotent.
	Close() error

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr
}

// Config configures transport timeouts.
type Config struct {
	// ConnectTimeout bounds Dial when the context has no deadline (default: 30s).
	ConnectTimeout time.Duration

	// ReadTimeout is the per-read deadline (0 = no timeout).
	ReadTimeout time.Duration

	// WriteTimeout is the per-write deadline (0 = no timeout).
	WriteTimeout time.Duration
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
	}
}

// NetTransport is the plain TCP Transport variant.
type NetTransport struct {
	conn net.Conn
	cfg  Config

	closeOnce sync.Once
	closeErr  error
}

// Dial opens a plain TCP transport to the specified address.
func Dial(ctx context.Context, address string, cfg Config) (*NetTransport, error) {
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

	return NewNetTransport(conn, cfg), nil
}

// NewNetTransport wraps an already-connected socket.
func NewNetTransport(conn net.Conn, cfg Config) *NetTransport {
	return &NetTransport{conn: conn, cfg: cfg}
}

// Read reads from the socket, applying the configured read timeout.
func (t *NetTransport) Read(p []byte) (int, error) {
	if t.cfg.ReadTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
		defer t.conn.SetReadDeadline(time.Time{})
	}
	return t.conn.Read(p)
}

// Write writes to the socket, applying the configured write timeout.
func (t *NetTransport) Write(p []byte) (int, error) {
	if t.cfg.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return t.conn.Write(p)
}

// ReadFull fills buf entirely or returns an error.
func (t *NetTransport) ReadFull(buf []byte) error {
	_, err := io.ReadFull(t, buf)
	return err
}

// WriteAll writes all of data or returns an error.
func (t *NetTransport) WriteAll(data []byte) error {
	for len(data) > 0 {
		n, err := t.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Close closes the socket. It is safe to call Close multiple times.
func (t *NetTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// LocalAddr returns the local network address.
func (t *NetTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (t *NetTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// Compile-time interface satisfaction check.
var _ Transport = (*NetTransport)(nil)
