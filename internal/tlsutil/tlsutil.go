// Package tlsutil loads or creates the self-signed certificate used when
// HTTPS is enabled without an operator-supplied key pair.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/wex/internal/logger"
)

const (
	CertFileName = "cert.pem"
	KeyFileName  = "key.pem"

	// Validity is the lifetime of a generated certificate.
	Validity = 365 * 24 * time.Hour
)

// DefaultHosts are the subject alternative names used when none are configured.
var DefaultHosts = []string{"localhost", "127.0.0.1", "::1"}

// DefaultDir returns the directory generated certificates live in:
// <user config dir>/wex/tls.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "wex", "tls"), nil
}

// LoadOrCreate returns the key pair stored in dir, generating a fresh
// self-signed one first when either file is missing, unreadable or the
// certificate has expired.
//
// Parameters:
//   - dir: Directory holding cert.pem and key.pem; created with 0700 if missing
//   - hosts: DNS names and IP addresses for the certificate (DefaultHosts if empty)
func LoadOrCreate(dir string, hosts []string) (tls.Certificate, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	certPath := filepath.Join(dir, CertFileName)
	keyPath := filepath.Join(dir, KeyFileName)

	regenerate, err := needsRegeneration(certPath, keyPath, time.Now())
	if err != nil {
		return tls.Certificate{}, err
	}

	if regenerate {
		logger.Info("Generating self-signed certificate in %s", dir)
		if err := Generate(certPath, keyPath, hosts, time.Now()); err != nil {
			return tls.Certificate{}, err
		}
	}

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load certificate: %w", err)
	}
	return pair, nil
}

func needsRegeneration(certPath, keyPath string, now time.Time) (bool, error) {
	if _, err := os.Stat(keyPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("failed to stat key: %w", err)
	}

	data, err := os.ReadFile(certPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		logger.Warn("Certificate %s is not PEM encoded, regenerating", certPath)
		return true, nil
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		logger.Warn("Certificate %s cannot be parsed, regenerating: %v", certPath, err)
		return true, nil
	}

	if now.After(cert.NotAfter) {
		logger.Info("Certificate %s expired on %s", certPath, cert.NotAfter.Format(time.RFC3339))
		return true, nil
	}
	return false, nil
}

// Generate writes a new self-signed ECDSA P-256 key pair valid from now for
// Validity. Existing files are replaced; the key is written with mode 0600.
func Generate(certPath, keyPath string, hosts []string, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"wex"},
			CommonName:   "wex self-signed",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}
	return nil
}
