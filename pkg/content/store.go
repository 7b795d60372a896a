package content

import (
	"context"

	"github.com/marmos91/wex/pkg/sandbox"
)

// ============================================================================
// Entry Types
// ============================================================================

// EntryKind classifies a filesystem entry.
type EntryKind int

const (
	// KindNone means nothing exists at the path. Only Stat returns it.
	KindNone EntryKind = iota

	// KindFile is a regular file.
	KindFile

	// KindDirectory is a directory.
	KindDirectory

	// KindOther covers devices, sockets, pipes and symbolic links that
	// cannot be followed inside the root.
	KindOther
)

func (k EntryKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "other"
	}
}

// EntryDescriptor describes one child of a listed directory.
type EntryDescriptor struct {
	// Name is the child's final path component.
	Name string

	// Kind is the child's type. Never KindNone.
	Kind EntryKind
}

// ============================================================================
// FileStore Interface
// ============================================================================

// FileStore performs filesystem operations on already resolved paths.
//
// The store never sees raw request paths: every argument is a
// sandbox.ResolvedPath. Implementations still re-check containment
// immediately before acting, since the filesystem may have changed since
// resolution.
//
// Each method performs exactly one filesystem effect and releases every
// handle it opened before returning. No state survives between calls.
//
// Context Cancellation:
// Every method checks the context before touching the filesystem. A
// cancelled context yields ctx.Err(). Partially written data is not rolled
// back.
//
// Errors:
// Failures wrap one of the sentinel errors in errors.go (ErrNotFound,
// ErrNotADirectory, ...) so callers can classify them with errors.Is or
// KindOf. The original OS error stays in the chain for logging.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent mutations
// of the same path have last-writer-wins semantics unless the caller
// serializes them.
type FileStore interface {
	// Stat returns the kind of entry at p, or KindNone if nothing exists.
	//
	// A missing entry is not an error.
	Stat(ctx context.Context, p sandbox.ResolvedPath) (EntryKind, error)

	// List returns the children of directory p in no particular order.
	//
	// Returns ErrNotADirectory if p is not a directory and ErrNotFound if
	// it does not exist.
	List(ctx context.Context, p sandbox.ResolvedPath) ([]EntryDescriptor, error)

	// Read returns the full contents of regular file p.
	//
	// Returns ErrNotAFile if p is a directory or special file.
	Read(ctx context.Context, p sandbox.ResolvedPath) ([]byte, error)

	// Write creates or truncates p and stores data in it.
	//
	// Parent directories are not created: a missing parent yields
	// ErrNotFound.
	Write(ctx context.Context, p sandbox.ResolvedPath, data []byte) error

	// MkdirAll creates p and any missing ancestors. Existing directories
	// are not an error.
	MkdirAll(ctx context.Context, p sandbox.ResolvedPath) error

	// DeleteFile removes a single non-directory entry.
	DeleteFile(ctx context.Context, p sandbox.ResolvedPath) error

	// DeleteTree removes p and everything below it.
	//
	// Returns ErrRootProtected when p is the root.
	DeleteTree(ctx context.Context, p sandbox.ResolvedPath) error

	// Rename atomically moves from to to.
	//
	// Returns ErrCrossVolume when the two paths live on different devices;
	// the store never falls back to copy and delete.
	Rename(ctx context.Context, from, to sandbox.ResolvedPath) error
}
