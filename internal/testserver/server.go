// Package testserver provides an in-process server speaking the graph wire
// protocol, for exercising clients in tests. It negotiates a version from a
// configurable supported set and answers chunked messages through a handler.
package testserver

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/bolt-protocol/bolt-go/pkg/transport"
	"github.com/bolt-protocol/bolt-go/pkg/version"
)

var preamble = [4]byte{0x60, 0x60, 0xB0, 0x17}

// Handler answers a single request message with zero or more responses.
// Returning an error closes the connection.
type Handler func(request []byte) ([][]byte, error)

// Echo answers every request with the request itself.
func Echo(request []byte) ([][]byte, error) {
	return [][]byte{request}, nil
}

// Config configures a test server.
type Config struct {
	// Supported is the set of versions the server accepts. Empty means all
	// default proposals are accepted.
	Supported []version.ProtocolVersion

	// Handler answers request messages. Nil means Echo.
	Handler Handler

	// ChooseVersion overrides version selection when non-nil. It receives
	// the client's proposals and returns the raw entry to send back, which
	// lets tests answer with versions the client never proposed.
	ChooseVersion func(proposed []version.ProtocolVersion) version.ProtocolVersion

	// TruncateReplies makes the server write only the first byte of each
	// reply's chunk header and then drop the connection.
	TruncateReplies bool

	// CloseAfterHandshake drops the connection as soon as negotiation is
	// done, before any message exchange.
	CloseAfterHandshake bool

	// TLS wraps accepted connections when non-nil.
	TLS *tls.Config
}

// Server is an in-process protocol server bound to a loopback listener.
type Server struct {
	cfg Config
	ln  net.Listener

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Start launches a server on an ephemeral loopback port.
func Start(cfg Config) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("testserver: listen: %w", err)
	}
	if cfg.TLS != nil {
		ln = tls.NewListener(ln, cfg.TLS)
	}
	if cfg.Handler == nil {
		cfg.Handler = Echo
	}
	if len(cfg.Supported) == 0 {
		cfg.Supported = version.DefaultProposed()
	}

	s := &Server{
		cfg:   cfg,
		ln:    ln,
		conns: make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener and drops all active connections.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ln.Close()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
	}
}

func (s *Server) serve(conn net.Conn) {
	chosen, err := s.negotiate(conn)
	if err != nil {
		return
	}
	if chosen.IsNull() || s.cfg.CloseAfterHandshake {
		return
	}

	r := transport.NewChunkReader(conn)
	w := transport.NewChunkWriter(conn)
	for {
		msg, err := r.ReadMessage()
		if err != nil {
			return
		}
		replies, err := s.cfg.Handler(msg)
		if err != nil {
			return
		}
		for _, reply := range replies {
			if s.cfg.TruncateReplies {
				conn.Write([]byte{byte(len(reply) >> 8)})
				return
			}
			if err := w.WriteMessage(reply); err != nil {
				return
			}
		}
	}
}

// negotiate runs the server side of the version handshake and returns the
// version it answered with.
func (s *Server) negotiate(conn net.Conn) (version.ProtocolVersion, error) {
	var head [4 + version.MaxProposed*version.EntrySize]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return version.Null, err
	}
	if !bytes.Equal(head[:4], preamble[:]) {
		return version.Null, errors.New("testserver: bad preamble")
	}

	proposed := make([]version.ProtocolVersion, 0, version.MaxProposed)
	for i := 0; i < version.MaxProposed; i++ {
		v := version.EntryFromBytes(head[4+i*version.EntrySize:])
		if !v.IsNull() {
			proposed = append(proposed, v)
		}
	}

	chosen := s.choose(proposed)
	var entry [version.EntrySize]byte
	chosen.PutEntry(entry[:])
	if _, err := conn.Write(entry[:]); err != nil {
		return version.Null, err
	}
	return chosen, nil
}

func (s *Server) choose(proposed []version.ProtocolVersion) version.ProtocolVersion {
	if s.cfg.ChooseVersion != nil {
		return s.cfg.ChooseVersion(proposed)
	}
	best := version.Null
	for _, p := range proposed {
		if !version.Contains(s.cfg.Supported, p) {
			continue
		}
		if best.IsNull() || best.Less(p) {
			best = p
		}
	}
	return best
}

// SelfSignedTLSConfig builds a server TLS config with an ephemeral
// self-signed certificate for 127.0.0.1, and a pool trusting it.
func SelfSignedTLSConfig() (*tls.Config, *x509.CertPool, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "testserver"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)

	srvCfg := &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
			Leaf:        leaf,
		}},
		MinVersion: tls.VersionTLS12,
	}
	return srvCfg, pool, nil
}
