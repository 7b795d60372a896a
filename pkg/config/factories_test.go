package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/metrics"
)

func TestCreateStore_Filesystem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("Failed to seed root: %v", err)
	}

	cfg := &StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": dir}}
	store, root, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.Root() != root {
		t.Error("Store should serve the returned root")
	}

	d := CreateDispatcher(GetDefaultConfig(), root, store, nil)
	out := d.DispatchRequest(context.Background(), dispatch.Request{Method: dispatch.MethodRead, Path: "/hello.txt"})
	if out.Status != dispatch.StatusServed || string(out.Data) != "hi" {
		t.Errorf("Expected served 'hi', got status %v data %q", out.Status, out.Data)
	}
}

func TestCreateStore_Create(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	// String values come from environment overrides
	cfg := &StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": dir, "create": "true"}}
	store, _, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Expected %s to be created, got %v", dir, err)
	}
}

func TestCreateStore_MissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	cfg := &StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": dir}}
	if _, _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for a missing root without create")
	}
}

func TestCreateStore_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  StoreConfig
	}{
		{"unknown type", StoreConfig{Type: "s3"}},
		{"empty path", StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": ""}}},
		{"bad option type", StoreConfig{Type: "filesystem", Filesystem: map[string]any{"path": map[string]any{"nested": 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := CreateStore(context.Background(), &tt.cfg); err == nil {
				t.Fatal("Expected CreateStore to fail")
			}
		})
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Port = 18080

	adapters, err := CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 {
		t.Fatalf("Expected 1 adapter, got %d", len(adapters))
	}
	if adapters[0].Protocol() != "HTTP" {
		t.Errorf("Expected HTTP adapter, got %s", adapters[0].Protocol())
	}
	if adapters[0].Port() != 18080 {
		t.Errorf("Expected port 18080, got %d", adapters[0].Port())
	}

	cfg.Adapters.HTTP.TLS.Enabled = true
	adapters, err = CreateAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if adapters[0].Protocol() != "HTTPS" {
		t.Errorf("Expected HTTPS adapter, got %s", adapters[0].Protocol())
	}
}

func TestCreateAdapters_NoneEnabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Adapters.HTTP.Enabled = false

	if _, err := CreateAdapters(cfg, nil); err == nil {
		t.Fatal("Expected error when no adapters are enabled")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.Dispatch == nil || result.HTTP == nil {
		t.Fatal("Expected noop collectors when disabled")
	}

	// Noop collectors accept calls
	result.Dispatch.RecordBytes("in", 10)
	result.HTTP.RecordRequestStart()
	result.HTTP.RecordRequestEnd()
}

func TestInitializeMetrics_Enabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Metrics.Enabled = true
	cfg.Server.Metrics.Port = 19090

	result := InitializeMetrics(cfg)
	if result.Server == nil {
		t.Fatal("Expected a metrics server when enabled")
	}
	if result.Server.Port() != 19090 {
		t.Errorf("Expected metrics port 19090, got %d", result.Server.Port())
	}
	if !metrics.IsEnabled() {
		t.Error("Expected the global registry to be initialized")
	}

	// Collectors are registered once and shared
	again := InitializeMetrics(cfg)
	if again.Dispatch != result.Dispatch {
		t.Error("Expected dispatch collectors to be reused")
	}
}
