package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// OpKind names a file operation.
type OpKind int

const (
	OpRead OpKind = iota + 1
	OpList
	OpWrite
	OpDelete
	OpMove
	OpCreateDirectory
	OpUpload
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "read"
	case OpList:
		return "list"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	case OpMove:
		return "move"
	case OpCreateDirectory:
		return "mkdir"
	case OpUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Part is one file of a multi-part upload.
type Part struct {
	// Filename is the client-supplied name. It must be a single path
	// component.
	Filename string
	Data     []byte
}

// Operation is a parsed request. Only the fields relevant to Kind are set.
type Operation struct {
	Kind OpKind

	// Path is the untrusted request path (target, or source for OpMove,
	// or target directory for OpUpload).
	Path string

	// Payload holds the bytes for OpWrite.
	Payload []byte

	// Destination is the untrusted destination path for OpMove.
	Destination string

	// Parts holds the files for OpUpload, written in order.
	Parts []Part
}

// Read returns an operation serving the file or directory listing at path.
func Read(path string) Operation {
	return Operation{Kind: OpRead, Path: path}
}

// List returns an operation listing the directory at path.
func List(path string) Operation {
	return Operation{Kind: OpList, Path: path}
}

// Write returns an operation replacing the file at path with data.
func Write(path string, data []byte) Operation {
	return Operation{Kind: OpWrite, Path: path, Payload: data}
}

// Delete returns an operation removing the file or tree at path.
func Delete(path string) Operation {
	return Operation{Kind: OpDelete, Path: path}
}

// Move returns an operation renaming from to to.
func Move(from, to string) Operation {
	return Operation{Kind: OpMove, Path: from, Destination: to}
}

// CreateDirectory returns an operation creating path and its parents.
func CreateDirectory(path string) Operation {
	return Operation{Kind: OpCreateDirectory, Path: path}
}

// Upload returns an operation storing parts inside directory dir.
func Upload(dir string, parts []Part) Operation {
	return Operation{Kind: OpUpload, Path: dir, Parts: parts}
}

// ============================================================================
// Request Parsing
// ============================================================================

// Transport-neutral method names accepted by ParseRequest.
const (
	MethodRead   = "READ"
	MethodList   = "LIST"
	MethodWrite  = "WRITE"
	MethodDelete = "DELETE"
	MethodMove   = "MOVE"
	MethodMkdir  = "MKDIR"
	MethodUpload = "UPLOAD"
)

var (
	// ErrUnknownMethod is returned by ParseRequest for unsupported methods.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrMissingDestination is returned for a move without destination.
	ErrMissingDestination = errors.New("missing destination")

	// ErrNoParts is returned for an upload without files.
	ErrNoParts = errors.New("no files to upload")
)

// Request is the transport-neutral form of an incoming request.
type Request struct {
	Method      string
	Path        string
	Payload     []byte
	Destination string
	Parts       []Part
}

// ParseRequest maps a request onto an Operation.
//
// Method names are case-insensitive. Paths are not validated here; that is
// the resolver's job.
func ParseRequest(req Request) (Operation, error) {
	switch strings.ToUpper(req.Method) {
	case MethodRead:
		return Read(req.Path), nil
	case MethodList:
		return List(req.Path), nil
	case MethodWrite:
		return Write(req.Path, req.Payload), nil
	case MethodDelete:
		return Delete(req.Path), nil
	case MethodMove:
		if req.Destination == "" {
			return Operation{}, ErrMissingDestination
		}
		return Move(req.Path, req.Destination), nil
	case MethodMkdir:
		return CreateDirectory(req.Path), nil
	case MethodUpload:
		if len(req.Parts) == 0 {
			return Operation{}, ErrNoParts
		}
		return Upload(req.Path, req.Parts), nil
	default:
		return Operation{}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}
}
