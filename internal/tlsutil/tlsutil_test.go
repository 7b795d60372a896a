package tlsutil

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, dir string) *x509.Certificate {
	t.Helper()
	pair, err := LoadOrCreate(dir, nil)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	return cert
}

func TestLoadOrCreateGenerates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tls")

	cert := leaf(t, dir)
	assert.Contains(t, cert.DNSNames, "localhost")
	assert.Len(t, cert.IPAddresses, 2)
	assert.True(t, cert.NotAfter.After(time.Now()))

	info, err := os.Stat(filepath.Join(dir, KeyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreateReuses(t *testing.T) {
	dir := t.TempDir()

	first := leaf(t, dir)
	second := leaf(t, dir)
	assert.Equal(t, first.SerialNumber, second.SerialNumber)
}

func TestLoadOrCreateReplacesExpired(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, CertFileName)
	keyPath := filepath.Join(dir, KeyFileName)

	require.NoError(t, Generate(certPath, keyPath, nil, time.Now().Add(-2*Validity)))
	regenerate, err := needsRegeneration(certPath, keyPath, time.Now())
	require.NoError(t, err)
	assert.True(t, regenerate)

	cert := leaf(t, dir)
	assert.True(t, cert.NotAfter.After(time.Now()))
}

func TestLoadOrCreateReplacesCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CertFileName), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyFileName), []byte("garbage"), 0o600))

	cert := leaf(t, dir)
	assert.Equal(t, "wex self-signed", cert.Subject.CommonName)
}

func TestGenerateHosts(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, CertFileName)
	keyPath := filepath.Join(dir, KeyFileName)

	require.NoError(t, Generate(certPath, keyPath, []string{"files.lan", "10.0.0.7"}, time.Now()))

	cert := leaf(t, dir)
	assert.Equal(t, []string{"files.lan"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "10.0.0.7", cert.IPAddresses[0].String())
}
