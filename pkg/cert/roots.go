// Package cert loads trusted root certificates for encrypted Bolt
// connections.
package cert

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Trust-root errors.
var (
	// ErrInvalidPEM indicates data that does not contain a certificate block.
	ErrInvalidPEM = errors.New("invalid PEM data")

	// ErrNoCertificates indicates a source that yielded no certificates.
	ErrNoCertificates = errors.New("no certificates found")
)

// DecodeCertPEM decodes a PEM-encoded X.509 certificate.
func DecodeCertPEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrInvalidPEM
	}
	return x509.ParseCertificate(block.Bytes)
}

// EncodeCertPEM encodes an X.509 certificate to PEM format.
func EncodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert.Raw,
	})
}

// PoolFromPEM builds a certificate pool from PEM data that may contain
// multiple certificates.
func PoolFromPEM(data []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, ErrNoCertificates
	}
	return pool, nil
}

// LoadPoolFromFile builds a certificate pool from a PEM file.
func LoadPoolFromFile(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	pool, err := PoolFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pool, nil
}

// LoadPoolFromDir builds a certificate pool from all .pem and .crt files
// in a directory.
func LoadPoolFromDir(dir string) (*x509.CertPool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	pool := x509.NewCertPool()
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".pem") && !strings.HasSuffix(name, ".crt") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if pool.AppendCertsFromPEM(data) {
			found = true
		}
	}

	if !found {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoCertificates)
	}
	return pool, nil
}

// SystemPool returns the host's system certificate pool.
func SystemPool() (*x509.CertPool, error) {
	return x509.SystemCertPool()
}
