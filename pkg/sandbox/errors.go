package sandbox

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind int

const (
	// KindEscape means the request path points outside the root, either
	// structurally (".." past the root, volume prefixes) or through a
	// symbolic link whose target lies outside.
	KindEscape Kind = iota + 1

	// KindIO means the filesystem could not be consulted while
	// canonicalizing (permission denied on an ancestor, link loops, ...).
	KindIO

	// KindInvalid means the path contains bytes no filesystem accepts (NUL).
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindEscape:
		return "escape"
	case KindIO:
		return "io"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

var (
	// ErrEscape matches every PathError of kind KindEscape.
	//
	// Callers must not distinguish this from "not found" when reporting
	// to untrusted clients.
	ErrEscape = errors.New("path escapes root")

	// ErrInvalid matches every PathError of kind KindInvalid.
	ErrInvalid = errors.New("invalid path")

	// ErrTooManyLinks is wrapped by KindIO errors when symbolic link
	// resolution exceeds maxLinkHops.
	ErrTooManyLinks = errors.New("too many levels of symbolic links")
)

// PathError describes why a request path could not be resolved.
type PathError struct {
	Kind Kind
	// Path is the raw request path, for logging only.
	Path string
	// Err is the underlying filesystem error for KindIO.
	Err error
}

func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Path, e.Kind)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEscape) and errors.Is(err, ErrInvalid) match
// by kind.
func (e *PathError) Is(target error) bool {
	switch target {
	case ErrEscape:
		return e.Kind == KindEscape
	case ErrInvalid:
		return e.Kind == KindInvalid
	}
	return false
}

func escapeError(raw string) error {
	return &PathError{Kind: KindEscape, Path: raw}
}

func ioError(raw string, err error) error {
	return &PathError{Kind: KindIO, Path: raw, Err: err}
}
