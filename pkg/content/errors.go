package content

import (
	"errors"
	"io/fs"
	"syscall"
)

// ============================================================================
// Standard File Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across FileStore implementations. The request dispatcher checks for these
// errors and maps them to caller-facing outcomes.
//
// Usage Pattern:
//
//	data, err := store.Read(ctx, p)
//	if err != nil {
//	    if errors.Is(err, content.ErrNotFound) {
//	        return notFound()
//	    }
//	    return internalError()
//	}
//
// Error Wrapping:
// Implementations wrap these errors together with the OS error:
//
//	return fmt.Errorf("read %s: %w: %w", p, content.ErrNotFound, osErr)

var (
	// ErrNotFound indicates the path (or a required parent) does not exist.
	//
	// Protocol Mapping:
	//   - HTTP: 404 Not Found
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory indicates a directory operation hit a non-directory,
	// or a path component used as a directory is a file.
	//
	// Protocol Mapping:
	//   - HTTP: 409 Conflict
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAFile indicates a file operation hit a directory or a special
	// file.
	//
	// Protocol Mapping:
	//   - HTTP: 409 Conflict
	ErrNotAFile = errors.New("not a regular file")

	// ErrCrossVolume indicates a rename between two devices. The store
	// never emulates it with copy and delete.
	//
	// Protocol Mapping:
	//   - HTTP: 409 Conflict
	ErrCrossVolume = errors.New("cross-volume move")

	// ErrPermissionDenied indicates the OS refused access.
	//
	// Protocol Mapping:
	//   - HTTP: 403 Forbidden
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRootProtected indicates an attempt to delete or move the root.
	//
	// Protocol Mapping:
	//   - HTTP: 403 Forbidden
	ErrRootProtected = errors.New("root is protected")

	// ErrOther covers every remaining I/O failure.
	//
	// Protocol Mapping:
	//   - HTTP: 500 Internal Server Error
	ErrOther = errors.New("i/o error")
)

// KindOf returns the sentinel error that classifies err.
//
// Errors already wrapping a sentinel return it unchanged; raw OS errors are
// classified by errno. Returns nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrRootProtected,
		ErrCrossVolume,
		ErrNotADirectory,
		ErrNotAFile,
		ErrNotFound,
		ErrPermissionDenied,
		ErrOther,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	switch {
	case errors.Is(err, syscall.EXDEV):
		return ErrCrossVolume
	case errors.Is(err, syscall.ENOTDIR):
		return ErrNotADirectory
	case errors.Is(err, syscall.EISDIR):
		return ErrNotAFile
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	default:
		return ErrOther
	}
}
