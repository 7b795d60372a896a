// Package fs implements the FileStore on the local filesystem.
//
// All access goes through an *os.Root opened on the sandbox root, so the
// operating system refuses any lookup that would leave the root even if a
// symbolic link is swapped in after a path was resolved. Each operation
// additionally re-runs sandbox containment on its arguments first.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
)

const (
	filePerm os.FileMode = 0o644
	dirPerm  os.FileMode = 0o755
)

// Store implements content.FileStore over a local directory tree.
//
// Thread Safety:
// Safe for concurrent use. The underlying *os.Root is shared by all calls;
// no file handle outlives the call that opened it.
type Store struct {
	root   *sandbox.Root
	fsRoot *os.Root
}

var _ content.FileStore = (*Store)(nil)

// New opens a filesystem store on root.
//
// Context Cancellation:
// This operation checks the context before opening the root directory.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - root: Sandbox root every path passed to the store must lie in
//
// Returns:
//   - *Store: Initialized store (must be closed)
//   - error: Returns error if the root cannot be opened or context is cancelled
func New(ctx context.Context, root *sandbox.Root) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fsRoot, err := os.OpenRoot(root.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", root.Path(), err)
	}

	return &Store{root: root, fsRoot: fsRoot}, nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.fsRoot.Close()
}

// Root returns the sandbox root this store serves.
func (s *Store) Root() *sandbox.Root {
	return s.root
}

// name converts a resolved path into a name relative to the *os.Root.
func name(p sandbox.ResolvedPath) string {
	return filepath.FromSlash(p.Rel())
}

// prepare checks the context and re-verifies containment of every path.
func (s *Store) prepare(ctx context.Context, paths ...sandbox.ResolvedPath) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range paths {
		if err := s.root.Verify(p); err != nil {
			return err
		}
	}
	return nil
}

// wrap attaches the classified sentinel and operation context to err.
func wrap(op string, p sandbox.ResolvedPath, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %w", op, p, content.KindOf(err), err)
}

// classify maps file info to an entry kind.
func classify(info os.FileInfo) content.EntryKind {
	switch {
	case info.IsDir():
		return content.KindDirectory
	case info.Mode().IsRegular():
		return content.KindFile
	default:
		return content.KindOther
	}
}
