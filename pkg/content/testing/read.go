package testing

import (
	"testing"

	"github.com/marmos91/wex/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReadTests executes all Stat, List and Read tests.
func (suite *StoreTestSuite) RunReadTests(t *testing.T) {
	t.Run("Stat_Missing", suite.testStatMissing)
	t.Run("Stat_Root", suite.testStatRoot)
	t.Run("List_Basic", suite.testListBasic)
	t.Run("List_Empty", suite.testListEmpty)
	t.Run("List_NotADirectory", suite.testListNotADirectory)
	t.Run("List_NotFound", suite.testListNotFound)
	t.Run("Read_Directory", suite.testReadDirectory)
	t.Run("Read_NotFound", suite.testReadNotFound)
}

func (suite *StoreTestSuite) testStatMissing(t *testing.T) {
	store, root := suite.NewStore(t)

	assertKind(t, store, mustResolve(t, root, "nothing"), content.KindNone)
	assertKind(t, store, mustResolve(t, root, "nothing/deeper"), content.KindNone)
}

func (suite *StoreTestSuite) testStatRoot(t *testing.T) {
	store, root := suite.NewStore(t)

	assertKind(t, store, mustResolve(t, root, ""), content.KindDirectory)
}

func (suite *StoreTestSuite) testListBasic(t *testing.T) {
	store, root := suite.NewStore(t)
	mustMkdir(t, store, mustResolve(t, root, "dir/sub"))
	mustWrite(t, store, mustResolve(t, root, "dir/a.txt"), []byte("a"))
	mustWrite(t, store, mustResolve(t, root, "dir/b.txt"), []byte("b"))

	entries, err := store.List(testContext(), mustResolve(t, root, "dir"))
	require.NoError(t, err)

	assert.Equal(t, map[string]content.EntryKind{
		"sub":   content.KindDirectory,
		"a.txt": content.KindFile,
		"b.txt": content.KindFile,
	}, entryMap(entries))
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	store, root := suite.NewStore(t)

	entries, err := store.List(testContext(), mustResolve(t, root, ""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func (suite *StoreTestSuite) testListNotADirectory(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "file.txt")
	mustWrite(t, store, p, []byte("x"))

	_, err := store.List(testContext(), p)
	AssertErrorIs(t, content.ErrNotADirectory, err)
}

func (suite *StoreTestSuite) testListNotFound(t *testing.T) {
	store, root := suite.NewStore(t)

	_, err := store.List(testContext(), mustResolve(t, root, "missing"))
	AssertErrorIs(t, content.ErrNotFound, err)
}

func (suite *StoreTestSuite) testReadDirectory(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "dir")
	mustMkdir(t, store, p)

	_, err := store.Read(testContext(), p)
	AssertErrorIs(t, content.ErrNotAFile, err)
}

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store, root := suite.NewStore(t)

	_, err := store.Read(testContext(), mustResolve(t, root, "missing.txt"))
	AssertErrorIs(t, content.ErrNotFound, err)
}
