package testing

import (
	"context"
	"testing"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
)

// StoreTestSuite is a test suite for FileStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across implementations.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) (content.FileStore, *sandbox.Root) {
//	            root, _ := sandbox.NewRoot(t.TempDir())
//	            return mystore.New(root), root
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh store over an empty root for each test.
	// Cleanup (closing the store) is registered on t by the factory.
	NewStore func(t *testing.T) (content.FileStore, *sandbox.Root)
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadOperations", suite.RunReadTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("DeleteOperations", suite.RunDeleteTests)
	t.Run("RenameOperations", suite.RunRenameTests)
	t.Run("Cancellation", suite.testCancelledContext)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store, root := suite.NewStore(t)
	p := mustResolve(t, root, "file.txt")

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := store.Stat(ctx, p)
	AssertErrorIs(t, context.Canceled, err)

	err = store.Write(ctx, p, []byte("x"))
	AssertErrorIs(t, context.Canceled, err)

	kind, err := store.Stat(testContext(), p)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if kind != content.KindNone {
		t.Errorf("cancelled write must not create the file, got %v", kind)
	}
}
