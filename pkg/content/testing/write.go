package testing

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/wex/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes all Write and MkdirAll tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("Write_Basic", suite.testWriteBasic)
	t.Run("Write_Overwrite", suite.testWriteOverwrite)
	t.Run("Write_Empty", suite.testWriteEmpty)
	t.Run("Write_MissingParent", suite.testWriteMissingParent)
	t.Run("Write_Directory", suite.testWriteDirectory)
	t.Run("Write_SpecialFile", suite.testWriteSpecialFile)
	t.Run("MkdirAll_Nested", suite.testMkdirAllNested)
	t.Run("MkdirAll_Idempotent", suite.testMkdirAllIdempotent)
	t.Run("MkdirAll_OverFile", suite.testMkdirAllOverFile)
}

// ============================================================================
// Write Tests
// ============================================================================

func (suite *StoreTestSuite) testWriteBasic(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "hello.txt")

	mustWrite(t, store, p, []byte("Hello, World!"))

	assertKind(t, store, p, content.KindFile)
	assert.Equal(t, []byte("Hello, World!"), mustRead(t, store, p))
}

func (suite *StoreTestSuite) testWriteOverwrite(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "f.txt")

	mustWrite(t, store, p, []byte("old data that is longer"))
	mustWrite(t, store, p, []byte("new"))

	assert.Equal(t, []byte("new"), mustRead(t, store, p))
}

func (suite *StoreTestSuite) testWriteEmpty(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "empty")

	mustWrite(t, store, p, nil)

	assertKind(t, store, p, content.KindFile)
	assert.Empty(t, mustRead(t, store, p))
}

func (suite *StoreTestSuite) testWriteMissingParent(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "missing/dir/f.txt")

	err := store.Write(testContext(), p, []byte("x"))
	require.Error(t, err)
	AssertErrorIs(t, content.ErrNotFound, err)

	assertKind(t, store, mustResolve(t, root, "missing"), content.KindNone)
}

func (suite *StoreTestSuite) testWriteDirectory(t *testing.T) {
	store, root := suite.NewStore(t)
	dir := mustResolve(t, root, "d")
	mustMkdir(t, store, dir)

	err := store.Write(testContext(), dir, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, content.ErrNotAFile, content.KindOf(err))

	err = store.Write(testContext(), mustResolve(t, root, ""), []byte("x"))
	AssertErrorIs(t, content.ErrNotAFile, err)
}

func (suite *StoreTestSuite) testWriteSpecialFile(t *testing.T) {
	store, root := suite.NewStore(t)
	if err := mkfifo(filepath.Join(root.Path(), "pipe")); err != nil {
		t.Skipf("fifo unavailable: %v", err)
	}
	p := mustResolve(t, root, "pipe")

	done := make(chan error, 1)
	go func() { done <- store.Write(testContext(), p, []byte("x")) }()

	select {
	case err := <-done:
		require.Error(t, err)
		AssertErrorIs(t, content.ErrNotAFile, err)
	case <-time.After(2 * time.Second):
		t.Fatal("write to a fifo without a reader did not return")
	}

	assertKind(t, store, p, content.KindOther)
}

// ============================================================================
// MkdirAll Tests
// ============================================================================

func (suite *StoreTestSuite) testMkdirAllNested(t *testing.T) {
	store, root := suite.NewStore(t)

	mustMkdir(t, store, mustResolve(t, root, "a/b/c"))

	assertKind(t, store, mustResolve(t, root, "a"), content.KindDirectory)
	assertKind(t, store, mustResolve(t, root, "a/b"), content.KindDirectory)
	assertKind(t, store, mustResolve(t, root, "a/b/c"), content.KindDirectory)
}

func (suite *StoreTestSuite) testMkdirAllIdempotent(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "dir")

	mustMkdir(t, store, p)
	mustMkdir(t, store, p)
	mustMkdir(t, store, mustResolve(t, root, ""))

	assertKind(t, store, p, content.KindDirectory)
}

func (suite *StoreTestSuite) testMkdirAllOverFile(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "file")
	mustWrite(t, store, p, []byte("x"))

	err := store.MkdirAll(testContext(), p)
	require.Error(t, err)
	assert.Equal(t, content.ErrNotADirectory, content.KindOf(err))

	err = store.MkdirAll(testContext(), mustResolve(t, root, "file/child"))
	require.Error(t, err)
	assert.Equal(t, content.ErrNotADirectory, content.KindOf(err))
}
