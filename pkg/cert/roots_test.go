package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func generateCert(t *testing.T, cn string) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
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
	return cert
}

func TestEncodeDecodeCertPEM(t *testing.T) {
	cert := generateCert(t, "root-a")

	data := EncodeCertPEM(cert)
	got, err := DecodeCertPEM(data)
	if err != nil {
		t.Fatalf("DecodeCertPEM failed: %v", err)
	}
	if got.Subject.CommonName != "root-a" {
		t.Errorf("CommonName = %q, want root-a", got.Subject.CommonName)
	}
}

func TestDecodeCertPEM_Invalid(t *testing.T) {
	if _, err := DecodeCertPEM([]byte("not pem")); !errors.Is(err, ErrInvalidPEM) {
		t.Errorf("expected ErrInvalidPEM, got %v", err)
	}
}

func TestLoadPoolFromFile(t *testing.T) {
	cert := generateCert(t, "root-b")
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, EncodeCertPEM(cert), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	pool, err := LoadPoolFromFile(path)
	if err != nil {
		t.Fatalf("LoadPoolFromFile failed: %v", err)
	}
	if pool == nil {
		t.Fatal("pool should not be nil")
	}
}

func TestLoadPoolFromFile_Missing(t *testing.T) {
	if _, err := LoadPoolFromFile(filepath.Join(t.TempDir(), "absent.pem")); err == nil {
		t.Error("missing file should return error")
	}
}

func TestLoadPoolFromDir(t *testing.T) {
	dir := t.TempDir()

	for i, name := range []string{"a.pem", "b.crt", "ignored.txt"} {
		cert := generateCert(t, name)
		if err := os.WriteFile(filepath.Join(dir, name), EncodeCertPEM(cert), 0644); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	pool, err := LoadPoolFromDir(dir)
	if err != nil {
		t.Fatalf("LoadPoolFromDir failed: %v", err)
	}
	if pool == nil {
		t.Fatal("pool should not be nil")
	}
}

func TestLoadPoolFromDir_Empty(t *testing.T) {
	if _, err := LoadPoolFromDir(t.TempDir()); !errors.Is(err, ErrNoCertificates) {
		t.Errorf("expected ErrNoCertificates, got %v", err)
	}
}
