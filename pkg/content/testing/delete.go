package testing

import (
	"testing"

	"github.com/marmos91/wex/pkg/content"
	"github.com/stretchr/testify/require"
)

// RunDeleteTests executes all DeleteFile and DeleteTree tests.
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("DeleteFile_Success", suite.testDeleteFileSuccess)
	t.Run("DeleteFile_NotFound", suite.testDeleteFileNotFound)
	t.Run("DeleteTree_Recursive", suite.testDeleteTreeRecursive)
	t.Run("DeleteTree_NotFound", suite.testDeleteTreeNotFound)
	t.Run("Delete_RootRefused", suite.testDeleteRootRefused)
}

func (suite *StoreTestSuite) testDeleteFileSuccess(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "f.txt")
	mustWrite(t, store, p, []byte("x"))

	require.NoError(t, store.DeleteFile(testContext(), p))
	assertKind(t, store, p, content.KindNone)
}

func (suite *StoreTestSuite) testDeleteFileNotFound(t *testing.T) {
	store, root := suite.NewStore(t)

	err := store.DeleteFile(testContext(), mustResolve(t, root, "missing"))
	AssertErrorIs(t, content.ErrNotFound, err)
}

func (suite *StoreTestSuite) testDeleteTreeRecursive(t *testing.T) {
	store, root := suite.NewStore(t)
	mustMkdir(t, store, mustResolve(t, root, "tree/a/b"))
	mustWrite(t, store, mustResolve(t, root, "tree/a/b/f.txt"), []byte("x"))
	mustWrite(t, store, mustResolve(t, root, "tree/g.txt"), []byte("y"))
	mustWrite(t, store, mustResolve(t, root, "keep.txt"), []byte("z"))

	require.NoError(t, store.DeleteTree(testContext(), mustResolve(t, root, "tree")))

	assertKind(t, store, mustResolve(t, root, "tree"), content.KindNone)
	assertKind(t, store, mustResolve(t, root, "keep.txt"), content.KindFile)
}

func (suite *StoreTestSuite) testDeleteTreeNotFound(t *testing.T) {
	store, root := suite.NewStore(t)

	err := store.DeleteTree(testContext(), mustResolve(t, root, "missing"))
	AssertErrorIs(t, content.ErrNotFound, err)
}

func (suite *StoreTestSuite) testDeleteRootRefused(t *testing.T) {
	store, root := suite.NewStore(t)
	mustWrite(t, store, mustResolve(t, root, "f.txt"), []byte("x"))
	rootPath := mustResolve(t, root, "")

	AssertErrorIs(t, content.ErrRootProtected, store.DeleteTree(testContext(), rootPath))
	AssertErrorIs(t, content.ErrRootProtected, store.DeleteFile(testContext(), rootPath))

	assertKind(t, store, rootPath, content.KindDirectory)
	assertKind(t, store, mustResolve(t, root, "f.txt"), content.KindFile)
}
