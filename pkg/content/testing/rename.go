package testing

import (
	"testing"

	"github.com/marmos91/wex/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRenameTests executes all Rename tests.
func (suite *StoreTestSuite) RunRenameTests(t *testing.T) {
	t.Run("Rename_File", suite.testRenameFile)
	t.Run("Rename_Directory", suite.testRenameDirectory)
	t.Run("Rename_Replace", suite.testRenameReplace)
	t.Run("Rename_MissingSource", suite.testRenameMissingSource)
	t.Run("Rename_MissingDestinationParent", suite.testRenameMissingDestinationParent)
	t.Run("Rename_Root", suite.testRenameRoot)
}

func (suite *StoreTestSuite) testRenameFile(t *testing.T) {
	store, root := suite.NewStore(t)
	from := mustResolve(t, root, "a.txt")
	to := mustResolve(t, root, "b.txt")
	mustWrite(t, store, from, []byte("payload"))

	require.NoError(t, store.Rename(testContext(), from, to))

	assertKind(t, store, from, content.KindNone)
	assert.Equal(t, []byte("payload"), mustRead(t, store, to))
}

func (suite *StoreTestSuite) testRenameDirectory(t *testing.T) {
	store, root := suite.NewStore(t)
	mustMkdir(t, store, mustResolve(t, root, "src/inner"))
	mustWrite(t, store, mustResolve(t, root, "src/inner/f.txt"), []byte("x"))
	mustMkdir(t, store, mustResolve(t, root, "dst"))

	require.NoError(t, store.Rename(testContext(), mustResolve(t, root, "src"), mustResolve(t, root, "dst/moved")))

	assertKind(t, store, mustResolve(t, root, "src"), content.KindNone)
	assert.Equal(t, []byte("x"), mustRead(t, store, mustResolve(t, root, "dst/moved/inner/f.txt")))
}

func (suite *StoreTestSuite) testRenameReplace(t *testing.T) {
	store, root := suite.NewStore(t)
	from := mustResolve(t, root, "new.txt")
	to := mustResolve(t, root, "old.txt")
	mustWrite(t, store, from, []byte("new"))
	mustWrite(t, store, to, []byte("old"))

	require.NoError(t, store.Rename(testContext(), from, to))

	assert.Equal(t, []byte("new"), mustRead(t, store, to))
}

func (suite *StoreTestSuite) testRenameMissingSource(t *testing.T) {
	store, root := suite.NewStore(t)

	err := store.Rename(testContext(), mustResolve(t, root, "ghost"), mustResolve(t, root, "x"))
	AssertErrorIs(t, content.ErrNotFound, err)
}

func (suite *StoreTestSuite) testRenameMissingDestinationParent(t *testing.T) {
	store, root := suite.NewStore(t)
	from := mustResolve(t, root, "f.txt")
	mustWrite(t, store, from, []byte("x"))

	err := store.Rename(testContext(), from, mustResolve(t, root, "no/such/dir/f.txt"))
	AssertErrorIs(t, content.ErrNotFound, err)

	assertKind(t, store, from, content.KindFile)
}

func (suite *StoreTestSuite) testRenameRoot(t *testing.T) {
	store, root := suite.NewStore(t)
	mustMkdir(t, store, mustResolve(t, root, "d"))

	err := store.Rename(testContext(), mustResolve(t, root, ""), mustResolve(t, root, "d/x"))
	AssertErrorIs(t, content.ErrRootProtected, err)

	err = store.Rename(testContext(), mustResolve(t, root, "d"), mustResolve(t, root, ""))
	AssertErrorIs(t, content.ErrRootProtected, err)
}
