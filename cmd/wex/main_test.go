package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "wex dev (none)\n", out)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wex.yaml")

	out, err := execute(context.Background(), "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(context.Background(), "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(context.Background(), "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(context.Background(), "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "wex Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has properties")
	for _, key := range []string{"logging", "server", "store", "dispatch", "adapters"} {
		assert.Contains(t, props, key)
	}

	path := filepath.Join(t.TempDir(), "schema.json")
	_, err = execute(context.Background(), "schema", path)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestStartFlagsOverrideConfig(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(t.TempDir(), "none.yaml")

	cmd := newStartCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", missing, "--root", root, "--port", "9999", "--bind", "127.0.0.1", "--log-level", "debug", "--tls",
	}))

	opts := &startOptions{
		configPath: missing,
		root:       root,
		bind:       "127.0.0.1",
		port:       9999,
		logLevel:   "debug",
		tls:        true,
	}
	cfg, err := loadStartConfig(opts, cmd.Flags())
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Store.Filesystem["path"])
	assert.Equal(t, 9999, cfg.Adapters.HTTP.Port)
	assert.Equal(t, "127.0.0.1", cfg.Adapters.HTTP.Bind)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.Adapters.HTTP.TLS.Enabled)
}

func TestStartFlagsAreValidated(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	_, err := execute(context.Background(), "start", "--config", missing, "--port", "70000")
	assert.ErrorContains(t, err, "invalid flags")
}

func TestStartMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	root := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := execute(context.Background(), "start", "--config", missing, "--root", root, "--port", fmt.Sprint(freePort(t)))
	assert.Error(t, err)
}

func TestStartServesRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644))

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  output: stderr\n  level: ERROR\n"), 0o644))

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := execute(ctx, "start", "--config", configPath, "--root", root,
			"--bind", "127.0.0.1", "--port", fmt.Sprint(port))
		done <- err
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	url := fmt.Sprintf("http://127.0.0.1:%d/hello.txt", port)

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "hi", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("start did not return after cancellation")
	}
}
