package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"syscall"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
)

// Stat returns the kind of entry at p.
//
// Symbolic links are followed within the root. A missing entry, or a path
// running through a regular file, reports content.KindNone without error.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Resolved path to inspect
//
// Returns:
//   - content.EntryKind: Kind of the entry
//   - error: Returns error for filesystem failures or context cancellation
func (s *Store) Stat(ctx context.Context, p sandbox.ResolvedPath) (content.EntryKind, error) {
	if err := s.prepare(ctx, p); err != nil {
		return content.KindNone, err
	}

	info, err := s.fsRoot.Stat(name(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return content.KindNone, nil
		}
		return content.KindNone, wrap("stat", p, err)
	}

	return classify(info), nil
}

// List returns the children of directory p.
//
// The listing is fully materialized before the directory handle is closed.
// Symbolic link children are classified by their target when that target
// is reachable inside the root, and as content.KindOther otherwise.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Resolved path of the directory
//
// Returns:
//   - []content.EntryDescriptor: Children in directory order
//   - error: ErrNotFound, ErrNotADirectory, or another classified failure
func (s *Store) List(ctx context.Context, p sandbox.ResolvedPath) ([]content.EntryDescriptor, error) {
	// ========================================================================
	// Step 1: Check context and containment
	// ========================================================================

	if err := s.prepare(ctx, p); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Make sure the target is a directory
	// ========================================================================

	info, err := s.fsRoot.Stat(name(p))
	if err != nil {
		return nil, wrap("list", p, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: %w", p, content.ErrNotADirectory)
	}

	// ========================================================================
	// Step 3: Read all entries, closing the handle before returning
	// ========================================================================

	dir, err := s.fsRoot.Open(name(p))
	if err != nil {
		return nil, wrap("list", p, err)
	}
	entries, err := dir.ReadDir(-1)
	closeErr := dir.Close()
	if err != nil {
		return nil, wrap("list", p, err)
	}
	if closeErr != nil {
		return nil, wrap("list", p, closeErr)
	}

	// ========================================================================
	// Step 4: Classify children
	// ========================================================================

	result := make([]content.EntryDescriptor, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result = append(result, content.EntryDescriptor{
			Name: entry.Name(),
			Kind: s.entryKind(p, entry),
		})
	}

	return result, nil
}

func (s *Store) entryKind(dir sandbox.ResolvedPath, entry fs.DirEntry) content.EntryKind {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return content.KindDirectory
	case mode.IsRegular():
		return content.KindFile
	case mode&fs.ModeSymlink != 0:
		// os.Root refuses links leaving the root.
		info, err := s.fsRoot.Stat(path.Join(dir.Rel(), entry.Name()))
		if err != nil {
			return content.KindOther
		}
		return classify(info)
	default:
		return content.KindOther
	}
}

// Read returns the full contents of regular file p.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Resolved path of the file
//
// Returns:
//   - []byte: File contents
//   - error: ErrNotFound, ErrNotAFile, or another classified failure
func (s *Store) Read(ctx context.Context, p sandbox.ResolvedPath) ([]byte, error) {
	if err := s.prepare(ctx, p); err != nil {
		return nil, err
	}

	info, err := s.fsRoot.Stat(name(p))
	if err != nil {
		return nil, wrap("read", p, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("read %s: %w", p, content.ErrNotAFile)
	}

	data, err := s.fsRoot.ReadFile(name(p))
	if err != nil {
		return nil, wrap("read", p, err)
	}

	return data, nil
}
