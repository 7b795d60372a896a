package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
)

// Write creates or truncates p and writes data to it.
//
// Parent directories are never created.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Resolved path of the file
//   - data: Full new contents
//
// Returns:
//   - error: ErrNotFound for a missing parent, ErrNotAFile when p is a
//     directory or special file, or another classified failure
func (s *Store) Write(ctx context.Context, p sandbox.ResolvedPath, data []byte) error {
	if err := s.prepare(ctx, p); err != nil {
		return err
	}

	if p.IsRoot() {
		return fmt.Errorf("write %s: %w", p, content.ErrNotAFile)
	}

	// Opening a FIFO for writing blocks until a reader shows up, and
	// devices must never be truncated.
	if info, err := s.fsRoot.Stat(name(p)); err == nil && classify(info) == content.KindOther {
		return fmt.Errorf("write %s: %w", p, content.ErrNotAFile)
	}

	f, err := s.fsRoot.OpenFile(name(p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC|openNonblock, filePerm)
	if err != nil {
		return wrap("write", p, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return wrap("write", p, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", p, content.ErrNotAFile)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return wrap("write", p, err)
	}
	if err := f.Close(); err != nil {
		return wrap("write", p, err)
	}

	return nil
}

// MkdirAll creates p and any missing parents.
//
// An existing directory is not an error. An existing non-directory at p or
// at one of its ancestors yields ErrNotADirectory.
func (s *Store) MkdirAll(ctx context.Context, p sandbox.ResolvedPath) error {
	if err := s.prepare(ctx, p); err != nil {
		return err
	}

	if err := s.fsRoot.MkdirAll(name(p), dirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("mkdir %s: %w: %w", p, content.ErrNotADirectory, err)
		}
		return wrap("mkdir", p, err)
	}

	return nil
}

// DeleteFile removes the single entry at p.
//
// Returns ErrNotFound if nothing exists at p.
func (s *Store) DeleteFile(ctx context.Context, p sandbox.ResolvedPath) error {
	if err := s.prepare(ctx, p); err != nil {
		return err
	}

	if p.IsRoot() {
		return fmt.Errorf("delete %s: %w", p, content.ErrRootProtected)
	}

	if err := s.fsRoot.Remove(name(p)); err != nil {
		return wrap("delete", p, err)
	}

	return nil
}

// DeleteTree removes p and all of its contents.
//
// The root itself is refused with ErrRootProtected. Returns ErrNotFound if
// nothing exists at p.
func (s *Store) DeleteTree(ctx context.Context, p sandbox.ResolvedPath) error {
	// ========================================================================
	// Step 1: Check context, containment and root protection
	// ========================================================================

	if err := s.prepare(ctx, p); err != nil {
		return err
	}

	if p.IsRoot() {
		return fmt.Errorf("delete tree %s: %w", p, content.ErrRootProtected)
	}

	// ========================================================================
	// Step 2: Report a missing target instead of succeeding silently
	// ========================================================================

	if _, err := s.fsRoot.Lstat(name(p)); err != nil {
		return wrap("delete tree", p, err)
	}

	// ========================================================================
	// Step 3: Remove recursively
	// ========================================================================

	if err := s.fsRoot.RemoveAll(name(p)); err != nil {
		return wrap("delete tree", p, err)
	}

	return nil
}

// Rename atomically moves from to to.
//
// An existing file at to is replaced, following rename(2) semantics.
// Moving across devices yields ErrCrossVolume; no copy is attempted.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - from: Resolved source path
//   - to: Resolved destination path
//
// Returns:
//   - error: ErrRootProtected, ErrCrossVolume, ErrNotFound, or another
//     classified failure
func (s *Store) Rename(ctx context.Context, from, to sandbox.ResolvedPath) error {
	if err := s.prepare(ctx, from, to); err != nil {
		return err
	}

	if from.IsRoot() || to.IsRoot() {
		return fmt.Errorf("rename %s -> %s: %w", from, to, content.ErrRootProtected)
	}

	if err := s.fsRoot.Rename(name(from), name(to)); err != nil {
		return wrap("rename", from, err)
	}

	return nil
}
