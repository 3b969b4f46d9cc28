package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"testing"
	"time"
)

// generateTestCert creates a self-signed server certificate for 127.0.0.1.
func generateTestCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "bolt-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("certificate creation failed: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("certificate parsing failed: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, pool
}

func TestDialTLS(t *testing.T) {
	serverCert, pool := generateTestCert(t)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{serverCert},
	})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		conn.Write(buf)
	}()

	tr, err := DialTLS(context.Background(), ln.Addr().String(), &TLSConfig{RootCAs: pool}, DefaultConfig())
	if err != nil {
		t.Fatalf("DialTLS failed: %v", err)
	}
	defer tr.Close()

	if tr.TLSState().Version < tls.VersionTLS12 {
		t.Errorf("TLS version %x below 1.2", tr.TLSState().Version)
	}

	if err := tr.WriteAll([]byte("ping")); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	buf := make([]byte, 4)
	if err := tr.ReadFull(buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("got %q, want ping", buf)
	}
}

func TestDialTLS_UntrustedCert(t *testing.T) {
	serverCert, _ := generateTestCert(t)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{serverCert},
	})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	// Empty pool: the self-signed server certificate must be rejected.
	_, err = DialTLS(context.Background(), ln.Addr().String(), &TLSConfig{RootCAs: x509.NewCertPool()}, DefaultConfig())
	if err == nil {
		t.Fatal("DialTLS should fail certificate verification")
	}
}

func TestNewClientTLSConfig_NilConfig(t *testing.T) {
	if _, err := NewClientTLSConfig(nil); err == nil {
		t.Error("nil TLSConfig should return error")
	}
}
