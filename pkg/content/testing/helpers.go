package testing

import (
	"errors"
	"testing"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// mustResolve resolves raw under root and fails the test on error.
func mustResolve(t *testing.T, root *sandbox.Root, raw string) sandbox.ResolvedPath {
	t.Helper()
	p, err := sandbox.Resolve(root, raw)
	require.NoError(t, err, "Resolve(%q) should succeed", raw)
	return p
}

// mustWrite writes a file and fails the test if it errors.
func mustWrite(t *testing.T, store content.FileStore, p sandbox.ResolvedPath, data []byte) {
	t.Helper()
	err := store.Write(testContext(), p, data)
	require.NoError(t, err, "Write should succeed")
}

// mustMkdir creates a directory tree and fails the test if it errors.
func mustMkdir(t *testing.T, store content.FileStore, p sandbox.ResolvedPath) {
	t.Helper()
	err := store.MkdirAll(testContext(), p)
	require.NoError(t, err, "MkdirAll should succeed")
}

// mustRead reads a file and fails the test if it errors.
func mustRead(t *testing.T, store content.FileStore, p sandbox.ResolvedPath) []byte {
	t.Helper()
	data, err := store.Read(testContext(), p)
	require.NoError(t, err, "Read should succeed")
	return data
}

// assertKind checks the entry kind reported by Stat.
func assertKind(t *testing.T, store content.FileStore, p sandbox.ResolvedPath, want content.EntryKind) {
	t.Helper()
	kind, err := store.Stat(testContext(), p)
	require.NoError(t, err, "Stat should succeed")
	assert.Equal(t, want, kind, "kind of %s", p)
}

// entryMap indexes a listing by name.
func entryMap(entries []content.EntryDescriptor) map[string]content.EntryKind {
	m := make(map[string]content.EntryKind, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Kind
	}
	return m
}
