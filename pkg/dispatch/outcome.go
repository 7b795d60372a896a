package dispatch

import (
	"errors"

	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/sandbox"
)

// Status is the coarse result of a dispatched operation.
type Status int

const (
	// StatusServed means the operation succeeded.
	StatusServed Status = iota + 1

	// StatusRejected means the request was refused by policy (path escape,
	// root protection, malformed input) or its target does not exist.
	StatusRejected

	// StatusFailed means the filesystem refused the operation.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusServed:
		return "served"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind is the caller-facing classification of a rejection or failure.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorNotFound
	ErrorRootProtected
	ErrorBadRequest
	ErrorNotADirectory
	ErrorNotAFile
	ErrorCrossVolume
	ErrorPermissionDenied
	ErrorOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return ""
	case ErrorNotFound:
		return "not_found"
	case ErrorRootProtected:
		return "root_protected"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorNotADirectory:
		return "not_a_directory"
	case ErrorNotAFile:
		return "not_a_file"
	case ErrorCrossVolume:
		return "cross_volume"
	case ErrorPermissionDenied:
		return "permission_denied"
	default:
		return "other"
	}
}

// Message returns the fixed, caller-safe text for k. It never contains
// host paths or OS error strings.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorNone:
		return ""
	case ErrorNotFound:
		return "not found"
	case ErrorRootProtected:
		return "operation not permitted on the root directory"
	case ErrorBadRequest:
		return "bad request"
	case ErrorNotADirectory:
		return "not a directory"
	case ErrorNotAFile:
		return "not a file"
	case ErrorCrossVolume:
		return "cannot move across volumes"
	case ErrorPermissionDenied:
		return "permission denied"
	default:
		return "internal error"
	}
}

// ResultKind tells which payload of a served Outcome is set.
type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultListing
	ResultFile
	ResultAccepted
)

// Listing is the payload of a served directory read.
type Listing struct {
	// Path is the directory relative to the root, "." for the root.
	Path    string
	Entries []content.EntryDescriptor
}

// Outcome is the result of Dispatch.
type Outcome struct {
	Status Status
	Result ResultKind

	// Listing is set for ResultListing.
	Listing *Listing

	// Data and Filename are set for ResultFile.
	Data     []byte
	Filename string

	// Created is set for ResultAccepted when a write or upload created at
	// least one new file or a mkdir created the directory.
	Created bool

	// Target is the resolved directory an upload wrote into, relative to
	// the root.
	Target string

	// Error and Message are set for StatusRejected and StatusFailed.
	Error   ErrorKind
	Message string
}

// OK reports whether the operation was served.
func (o Outcome) OK() bool {
	return o.Status == StatusServed
}

func listed(l *Listing) Outcome {
	return Outcome{Status: StatusServed, Result: ResultListing, Listing: l}
}

func file(data []byte, name string) Outcome {
	return Outcome{Status: StatusServed, Result: ResultFile, Data: data, Filename: name}
}

func accepted(created bool) Outcome {
	return Outcome{Status: StatusServed, Result: ResultAccepted, Created: created}
}

func rejected(kind ErrorKind) Outcome {
	return Outcome{Status: StatusRejected, Error: kind, Message: kind.Message()}
}

func failed(kind ErrorKind) Outcome {
	return Outcome{Status: StatusFailed, Error: kind, Message: kind.Message()}
}

// Classify maps a resolver or store error onto an ErrorKind.
//
// Escapes and invalid paths classify as ErrorNotFound so callers cannot
// probe what lies outside the root.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}

	if errors.Is(err, sandbox.ErrEscape) || errors.Is(err, sandbox.ErrInvalid) {
		return ErrorNotFound
	}

	switch content.KindOf(err) {
	case content.ErrNotFound:
		return ErrorNotFound
	case content.ErrNotADirectory:
		return ErrorNotADirectory
	case content.ErrNotAFile:
		return ErrorNotAFile
	case content.ErrCrossVolume:
		return ErrorCrossVolume
	case content.ErrPermissionDenied:
		return ErrorPermissionDenied
	case content.ErrRootProtected:
		return ErrorRootProtected
	default:
		return ErrorOther
	}
}
