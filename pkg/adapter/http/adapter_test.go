package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	fsstore "github.com/marmos91/wex/pkg/content/fs"
	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/listing"
	"github.com/marmos91/wex/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	adapter *Adapter
	base    string
	metrics *recordingMetrics
}

// newFixture serves:
//
//	<base>/docs/readme.txt  "hello"
//	<base>/photo.png        "png"
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "docs", "readme.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "photo.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(base), "secret.txt"), []byte("secret"), 0o644))

	root, err := sandbox.NewRoot(base)
	require.NoError(t, err)
	store, err := fsstore.New(context.Background(), root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := &recordingMetrics{}
	a := New(cfg, m)
	a.SetDispatcher(dispatch.New(root, store, dispatch.Config{SerializeWrites: true}, nil))

	return &fixture{adapter: a, base: root.Path(), metrics: m}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.adapter.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.base, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(rel string) bool {
	_, err := os.Lstat(filepath.Join(f.base, filepath.FromSlash(rel)))
	return err == nil
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := w.CreateFormFile(UploadField, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// ============================================================================
// GET
// ============================================================================

func TestGetFile(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/docs/readme.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, `inline; filename=readme.txt`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestGetFileUnknownExtension(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, os.WriteFile(filepath.Join(f.base, "blob.zzz"), []byte{1}, 0o644))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/blob.zzz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestRequestIDPropagated(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := f.do(req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestGetDirectoryHTML(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	req.Host = "files.local"
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "files.local")
	assert.Contains(t, body, `<a href="/docs/readme.txt">readme.txt</a>`)
}

func TestGetRootJSON(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var doc listing.JSONPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, ".", doc.Path)
	assert.Equal(t, []listing.JSONEntry{
		{Name: "docs", Type: "directory"},
		{Name: "photo.png", Type: "file"},
	}, doc.Entries)
}

func TestGetMissingAndEscapeLookTheSame(t *testing.T) {
	f := newFixture(t, Config{})

	missing := f.do(httptest.NewRequest(http.MethodGet, "/nope.txt", nil))
	escape := f.do(httptest.NewRequest(http.MethodGet, "/%2e%2e/secret.txt", nil))
	nested := f.do(httptest.NewRequest(http.MethodGet, "/docs/%2e%2e/%2e%2e/secret.txt", nil))

	for _, rec := range []*httptest.ResponseRecorder{missing, escape, nested} {
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not found", rec.Body.String())
	}
}

func TestErrorJSON(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept", "application/json")
	rec := f.do(req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"not found"}`, rec.Body.String())
}

func TestHead(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(httptest.NewRequest(http.MethodHead, "/photo.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

// ============================================================================
// Mutations
// ============================================================================

func TestPut(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodPut, "/docs/new.txt", strings.NewReader("v1")))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "v1", f.read(t, "docs/new.txt"))

	rec = f.do(httptest.NewRequest(http.MethodPut, "/docs/new.txt", strings.NewReader("v2")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "v2", f.read(t, "docs/new.txt"))
}

func TestPutOutsideRoot(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodPut, "/%2e%2e/evil.txt", strings.NewReader("x")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(f.base), "evil.txt"))
}

func TestPutTooLarge(t *testing.T) {
	f := newFixture(t, Config{MaxUploadSize: 8})

	rec := f.do(httptest.NewRequest(http.MethodPut, "/big.bin", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, f.exists("big.bin"))
}

func TestPutMissingParent(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(httptest.NewRequest(http.MethodPut, "/no/such/dir.txt", strings.NewReader("x")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMkdir(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodPost, "/a/b/c?op=mkdir", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.DirExists(t, filepath.Join(f.base, "a", "b", "c"))

	rec = f.do(httptest.NewRequest(http.MethodPost, "/a/b/c?op=mkdir", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/photo.png?op=mkdir", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostUnknownOp(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(httptest.NewRequest(http.MethodPost, "/x?op=chmod", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	f := newFixture(t, Config{})

	body, ctype := multipartBody(t, map[string]string{"a.txt": "A", "b.txt": "B"})
	req := httptest.NewRequest(http.MethodPost, "/docs", body)
	req.Header.Set("Content-Type", ctype)
	rec := f.do(req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "A", f.read(t, "docs/a.txt"))
	assert.Equal(t, "B", f.read(t, "docs/b.txt"))
}

func TestUploadFromBrowserRedirects(t *testing.T) {
	f := newFixture(t, Config{})

	body, ctype := multipartBody(t, map[string]string{"c.txt": "C"})
	req := httptest.NewRequest(http.MethodPost, "/docs/", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := f.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/docs", rec.Header().Get("Location"))
}

func TestUploadRedirectStaysLocal(t *testing.T) {
	f := newFixture(t, Config{})

	body, ctype := multipartBody(t, map[string]string{"c.txt": "C"})
	req := httptest.NewRequest(http.MethodPost, "//docs", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Accept", "text/html")
	rec := f.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/docs", rec.Header().Get("Location"))
}

func TestUploadRedirectUsesResolvedDirectory(t *testing.T) {
	f := newFixture(t, Config{})
	if err := os.Symlink(filepath.Join(f.base, "docs"), filepath.Join(f.base, "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	for _, target := range []string{"/alias", "/docs/./", "/docs/x/.."} {
		body, ctype := multipartBody(t, map[string]string{"c.txt": "C"})
		req := httptest.NewRequest(http.MethodPost, target, body)
		req.Header.Set("Content-Type", ctype)
		req.Header.Set("Accept", "text/html")
		rec := f.do(req)

		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
		assert.Equal(t, "/docs", rec.Header().Get("Location"), target)
	}
	assert.Equal(t, "C", f.read(t, "docs/c.txt"))
}

func TestUploadWithoutFiles(t *testing.T) {
	f := newFixture(t, Config{})

	body, ctype := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/docs", body)
	req.Header.Set("Content-Type", ctype)
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/docs", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestUploadIntoFile(t *testing.T) {
	f := newFixture(t, Config{})

	body, ctype := multipartBody(t, map[string]string{"x.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/photo.png", body)
	req.Header.Set("Content-Type", ctype)
	assert.Equal(t, http.StatusConflict, f.do(req).Code)
}

func TestMove(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodPatch, "/photo.png", strings.NewReader("docs/moved.png\n")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.exists("photo.png"))
	assert.Equal(t, "png", f.read(t, "docs/moved.png"))
}

func TestMoveErrors(t *testing.T) {
	f := newFixture(t, Config{})

	assert.Equal(t, http.StatusBadRequest,
		f.do(httptest.NewRequest(http.MethodPatch, "/photo.png", strings.NewReader("  "))).Code)
	assert.Equal(t, http.StatusForbidden,
		f.do(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader("elsewhere"))).Code)
	assert.Equal(t, http.StatusNotFound,
		f.do(httptest.NewRequest(http.MethodPatch, "/photo.png", strings.NewReader("../stolen.png"))).Code)
	assert.True(t, f.exists("photo.png"))
}

func TestDelete(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "operation not permitted on the root directory", rec.Body.String())

	assert.Equal(t, http.StatusNoContent, f.do(httptest.NewRequest(http.MethodDelete, "/docs", nil)).Code)
	assert.False(t, f.exists("docs"))

	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodDelete, "/docs", nil)).Code)
}

func TestNoDispatcher(t *testing.T) {
	a := New(Config{}, nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(httptest.NewRequest(http.MethodGet, "/photo.png", nil))
	f.do(httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, []string{"GET 200", "GET 404"}, f.metrics.snapshot())
	assert.Equal(t, 0, f.metrics.inFlight)
}

// ============================================================================
// Status mapping
// ============================================================================

func TestStatusCode(t *testing.T) {
	served := dispatch.Outcome{Status: dispatch.StatusServed}
	tests := []struct {
		out  dispatch.Outcome
		want int
	}{
		{dispatch.Outcome{Status: dispatch.StatusServed, Result: dispatch.ResultFile}, http.StatusOK},
		{dispatch.Outcome{Status: dispatch.StatusServed, Result: dispatch.ResultListing}, http.StatusOK},
		{dispatch.Outcome{Status: dispatch.StatusServed, Result: dispatch.ResultAccepted, Created: true}, http.StatusCreated},
		{dispatch.Outcome{Status: dispatch.StatusServed, Result: dispatch.ResultAccepted}, http.StatusNoContent},
		{dispatch.Outcome{Status: dispatch.StatusRejected, Error: dispatch.ErrorNotFound}, http.StatusNotFound},
		{dispatch.Outcome{Status: dispatch.StatusRejected, Error: dispatch.ErrorRootProtected}, http.StatusForbidden},
		{dispatch.Outcome{Status: dispatch.StatusRejected, Error: dispatch.ErrorBadRequest}, http.StatusBadRequest},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorNotFound}, http.StatusNotFound},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorPermissionDenied}, http.StatusForbidden},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorCrossVolume}, http.StatusConflict},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorNotADirectory}, http.StatusConflict},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorNotAFile}, http.StatusConflict},
		{dispatch.Outcome{Status: dispatch.StatusFailed, Error: dispatch.ErrorOther}, http.StatusInternalServerError},
		{served, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.out.Status, tt.out.Error), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.out))
		})
	}
}

// ============================================================================
// Config
// ============================================================================

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, int64(1<<30), cfg.MaxUploadSize)
	require.NoError(t, cfg.validate())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"PortTooLarge", func(c *Config) { c.Port = 70000 }},
		{"NegativeTimeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"TLSWithoutSource", func(c *Config) { c.TLS.Enabled = true }},
		{"TLSCertWithoutKey", func(c *Config) { c.TLS = TLSConfig{Enabled: true, CertFile: "c.pem"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.validate())
		})
	}

	c := valid()
	c.TLS = TLSConfig{Enabled: true, AutoGenerate: true}
	assert.NoError(t, c.validate())
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { New(Config{Port: -1, TLS: TLSConfig{Enabled: true}}, nil) })
}

// ============================================================================
// Lifecycle
// ============================================================================

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func serve(t *testing.T, f *fixture) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.adapter.Serve(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", fmt.Sprint(f.adapter.Port())))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return cancel, done
}

func TestServeAndShutdown(t *testing.T) {
	f := newFixture(t, Config{Bind: "127.0.0.1", Port: freePort(t)})
	cancel, done := serve(t, f)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/docs/readme.txt", f.adapter.Port()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "hello", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.NoError(t, f.adapter.Stop(context.Background()))
}

func TestStopBeforeServe(t *testing.T) {
	f := newFixture(t, Config{Bind: "127.0.0.1", Port: freePort(t)})
	require.NoError(t, f.adapter.Stop(context.Background()))
	assert.NoError(t, f.adapter.Serve(context.Background()))
}

func TestServeTLSAutoGenerate(t *testing.T) {
	f := newFixture(t, Config{
		Bind: "127.0.0.1",
		Port: freePort(t),
		TLS:  TLSConfig{Enabled: true, AutoGenerate: true, CertDir: t.TempDir()},
	})
	assert.Equal(t, "HTTPS", f.adapter.Protocol())

	cancel, done := serve(t, f)
	defer func() {
		cancel()
		<-done
	}()

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed test certificate
	}}
	defer client.CloseIdleConnections()

	resp, err := client.Get(fmt.Sprintf("https://127.0.0.1:%d/", f.adapter.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, resp.TLS)
}

func TestServeWithoutDispatcher(t *testing.T) {
	a := New(Config{}, nil)
	assert.Error(t, a.Serve(context.Background()))
}

// ============================================================================
// Helpers
// ============================================================================

type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
	inFlight int
}

func (m *recordingMetrics) RecordRequest(method string, code int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, fmt.Sprintf("%s %d", method, code))
}

func (m *recordingMetrics) RecordRequestStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
}

func (m *recordingMetrics) RecordRequestEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

func (m *recordingMetrics) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}
