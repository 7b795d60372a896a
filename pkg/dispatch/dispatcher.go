// Package dispatch turns parsed requests into file store calls.
//
// The dispatcher is the only place that decides what a caller sees: it
// resolves every request path through the sandbox, enforces root
// protection, invokes the file store and folds every error into an Outcome
// carrying a status, a caller-safe message and, on success, a payload.
// Raw filesystem errors are logged, never returned to the caller.
package dispatch

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/wex/internal/logger"
	"github.com/marmos91/wex/pkg/content"
	"github.com/marmos91/wex/pkg/metrics"
	"github.com/marmos91/wex/pkg/sandbox"
)

// Config tunes the dispatcher.
type Config struct {
	// SerializeWrites enables per-path locking: mutations of a path are
	// exclusive, reads of it are shared. Without it concurrent requests on
	// the same path interleave with last-writer-wins semantics.
	SerializeWrites bool
}

// Dispatcher executes Operations against a FileStore confined to a Root.
//
// Thread Safety:
// Safe for concurrent use. Each call works on its own resolved paths; the
// only shared mutable state is the optional lock table.
type Dispatcher struct {
	root    *sandbox.Root
	store   content.FileStore
	locks   *pathLocks
	metrics metrics.DispatchMetrics
}

// New creates a dispatcher.
//
// Parameters:
//   - root: Sandbox root all request paths resolve into
//   - store: File store operating on that root
//   - cfg: Dispatcher options
//   - m: Metrics sink; nil disables metrics
func New(root *sandbox.Root, store content.FileStore, cfg Config, m metrics.DispatchMetrics) *Dispatcher {
	if m == nil {
		m = metrics.NewNoopDispatchMetrics()
	}

	d := &Dispatcher{
		root:    root,
		store:   store,
		metrics: m,
	}
	if cfg.SerializeWrites {
		d.locks = newPathLocks()
	}
	return d
}

// Root returns the sandbox root.
func (d *Dispatcher) Root() *sandbox.Root {
	return d.root
}

// DispatchRequest parses req and dispatches the resulting operation.
//
// A request that cannot be parsed is rejected with ErrorBadRequest.
func (d *Dispatcher) DispatchRequest(ctx context.Context, req Request) Outcome {
	op, err := ParseRequest(req)
	if err != nil {
		d.entry(ctx, Operation{}).Warn("policy: malformed request: %v", err)
		d.metrics.RecordPolicyRejection("bad_request")
		return rejected(ErrorBadRequest)
	}
	return d.Dispatch(ctx, op)
}

// Dispatch executes op and reports the outcome.
//
// Dispatch never panics on malformed input and never returns raw OS error
// text in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, op Operation) Outcome {
	start := time.Now()
	log := d.entry(ctx, op)

	var out Outcome
	switch op.Kind {
	case OpRead:
		out = d.read(ctx, log, op)
	case OpList:
		out = d.list(ctx, log, op)
	case OpWrite:
		out = d.write(ctx, log, op)
	case OpDelete:
		out = d.delete(ctx, log, op)
	case OpMove:
		out = d.move(ctx, log, op)
	case OpCreateDirectory:
		out = d.mkdir(ctx, log, op)
	case OpUpload:
		out = d.upload(ctx, log, op)
	default:
		log.Warn("policy: unknown operation %d", op.Kind)
		d.metrics.RecordPolicyRejection("bad_request")
		out = rejected(ErrorBadRequest)
	}

	d.metrics.RecordOperation(op.Kind.String(), out.Status.String(), out.Error.String(), time.Since(start))
	return out
}

func (d *Dispatcher) entry(ctx context.Context, op Operation) logger.Entry {
	e := logger.With("component", "dispatch")
	if op.Kind != 0 {
		e = e.With("op", op.Kind.String())
	}
	if id := RequestID(ctx); id != "" {
		e = e.With("request_id", id)
	}
	return e
}

// ============================================================================
// Resolution and error folding
// ============================================================================

// resolve maps raw into the root. On failure it returns the outcome to
// report and ok=false.
func (d *Dispatcher) resolve(log logger.Entry, raw string) (sandbox.ResolvedPath, Outcome, bool) {
	p, err := sandbox.Resolve(d.root, raw)
	if err == nil {
		return p, Outcome{}, true
	}

	var pe *sandbox.PathError
	if errors.As(err, &pe) && pe.Kind != sandbox.KindIO {
		// Escape and invalid paths look exactly like missing ones.
		log.Warn("policy: rejected path %q: %s", raw, pe.Kind)
		d.metrics.RecordPolicyRejection(pe.Kind.String())
		return sandbox.ResolvedPath{}, rejected(ErrorNotFound), false
	}

	log.Error("resolve %q: %v", raw, err)
	return sandbox.ResolvedPath{}, rejected(Classify(err)), false
}

// storeFailure folds a file store error into an outcome.
func (d *Dispatcher) storeFailure(log logger.Entry, action string, err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug("%s abandoned: %v", action, err)
		return failed(ErrorOther)

	case errors.Is(err, sandbox.ErrEscape), errors.Is(err, sandbox.ErrInvalid):
		// Containment changed between resolution and use.
		log.Warn("policy: %s: path left the root before use: %v", action, err)
		d.metrics.RecordPolicyRejection("escape")
		return rejected(ErrorNotFound)
	}

	kind := Classify(err)
	if kind == ErrorRootProtected {
		log.Warn("policy: %s: %v", action, err)
		return rejected(kind)
	}

	log.Error("%s failed: %v", action, err)
	return failed(kind)
}

func (d *Dispatcher) rootProtected(log logger.Entry, action string) Outcome {
	log.Warn("policy: refusing to %s the root directory", action)
	d.metrics.RecordPolicyRejection("root_protected")
	return rejected(ErrorRootProtected)
}

// ============================================================================
// Read operations
// ============================================================================

func (d *Dispatcher) read(ctx context.Context, log logger.Entry, op Operation) Outcome {
	p, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	defer d.locks.rlock(p.Abs())()

	kind, err := d.store.Stat(ctx, p)
	if err != nil {
		return d.storeFailure(log, "stat", err)
	}

	switch kind {
	case content.KindDirectory:
		return d.listResolved(ctx, log, p)

	case content.KindFile:
		data, err := d.store.Read(ctx, p)
		if err != nil {
			return d.storeFailure(log, "read", err)
		}
		d.metrics.RecordBytes("read", len(data))
		log.Debug("served %s (%d bytes)", p, len(data))
		return file(data, p.Base())

	case content.KindNone:
		log.Debug("not found: %s", p)
		return rejected(ErrorNotFound)

	default:
		log.Warn("refusing to serve special file %s", p)
		return failed(ErrorNotAFile)
	}
}

func (d *Dispatcher) list(ctx context.Context, log logger.Entry, op Operation) Outcome {
	p, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	defer d.locks.rlock(p.Abs())()

	return d.listResolved(ctx, log, p)
}

func (d *Dispatcher) listResolved(ctx context.Context, log logger.Entry, p sandbox.ResolvedPath) Outcome {
	entries, err := d.store.List(ctx, p)
	if err != nil {
		return d.storeFailure(log, "list", err)
	}
	log.Debug("listed %s (%d entries)", p, len(entries))
	return listed(&Listing{Path: p.Rel(), Entries: entries})
}

// ============================================================================
// Mutations
// ============================================================================

func (d *Dispatcher) write(ctx context.Context, log logger.Entry, op Operation) Outcome {
	p, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	defer d.locks.lock(p.Abs())()

	kind, err := d.store.Stat(ctx, p)
	if err != nil {
		return d.storeFailure(log, "stat", err)
	}
	if kind == content.KindOther {
		log.Warn("refusing to write special file %s", p)
		return failed(ErrorNotAFile)
	}

	if err := d.store.Write(ctx, p, op.Payload); err != nil {
		return d.storeFailure(log, "write", err)
	}

	d.metrics.RecordBytes("write", len(op.Payload))
	log.Info("wrote %s (%d bytes)", p, len(op.Payload))
	return accepted(kind == content.KindNone)
}

func (d *Dispatcher) delete(ctx context.Context, log logger.Entry, op Operation) Outcome {
	p, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	if p.IsRoot() {
		return d.rootProtected(log, "delete")
	}
	defer d.locks.lock(p.Abs())()

	kind, err := d.store.Stat(ctx, p)
	if err != nil {
		return d.storeFailure(log, "stat", err)
	}

	switch kind {
	case content.KindNone:
		log.Debug("not found: %s", p)
		return rejected(ErrorNotFound)
	case content.KindDirectory:
		err = d.store.DeleteTree(ctx, p)
	default:
		err = d.store.DeleteFile(ctx, p)
	}
	if err != nil {
		return d.storeFailure(log, "delete", err)
	}

	log.Info("deleted %s", p)
	return accepted(false)
}

func (d *Dispatcher) move(ctx context.Context, log logger.Entry, op Operation) Outcome {
	from, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	to, out, ok := d.resolve(log, op.Destination)
	if !ok {
		return out
	}
	if from.IsRoot() || to.IsRoot() {
		return d.rootProtected(log, "move")
	}
	defer d.locks.lock(from.Abs(), to.Abs())()

	if err := d.store.Rename(ctx, from, to); err != nil {
		return d.storeFailure(log, "move", err)
	}

	log.Info("moved %s to %s", from, to)
	return accepted(false)
}

func (d *Dispatcher) mkdir(ctx context.Context, log logger.Entry, op Operation) Outcome {
	p, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}
	defer d.locks.lock(p.Abs())()

	kind, err := d.store.Stat(ctx, p)
	if err != nil {
		return d.storeFailure(log, "stat", err)
	}
	if kind == content.KindDirectory {
		return accepted(false)
	}

	if err := d.store.MkdirAll(ctx, p); err != nil {
		return d.storeFailure(log, "mkdir", err)
	}

	log.Info("created directory %s", p)
	return accepted(true)
}

// upload stores every part inside the target directory, in order. The
// first failure stops the upload; parts already written are kept.
func (d *Dispatcher) upload(ctx context.Context, log logger.Entry, op Operation) Outcome {
	// ========================================================================
	// Step 1: Validate part names before touching anything
	// ========================================================================

	if len(op.Parts) == 0 {
		log.Warn("policy: upload without files")
		d.metrics.RecordPolicyRejection("bad_request")
		return rejected(ErrorBadRequest)
	}
	for _, part := range op.Parts {
		if !ValidFilename(part.Filename) {
			log.Warn("policy: rejected upload filename %q", part.Filename)
			d.metrics.RecordPolicyRejection("bad_request")
			return rejected(ErrorBadRequest)
		}
	}

	// ========================================================================
	// Step 2: Resolve and check the target directory
	// ========================================================================

	dir, out, ok := d.resolve(log, op.Path)
	if !ok {
		return out
	}

	kind, err := d.store.Stat(ctx, dir)
	if err != nil {
		return d.storeFailure(log, "stat", err)
	}
	switch kind {
	case content.KindNone:
		return rejected(ErrorNotFound)
	case content.KindDirectory:
	default:
		return failed(ErrorNotADirectory)
	}

	// ========================================================================
	// Step 3: Write each part
	// ========================================================================

	created := false
	for _, part := range op.Parts {
		// The child may itself be a link leaving the root.
		child, out, ok := d.resolve(log, path.Join(dir.Rel(), part.Filename))
		if !ok {
			return out
		}

		isNew, out, ok := d.writePart(ctx, log, child, part.Data)
		if !ok {
			return out
		}
		created = created || isNew
	}

	log.Info("uploaded %d file(s) to %s", len(op.Parts), dir)
	out = accepted(created)
	out.Target = dir.Rel()
	return out
}

func (d *Dispatcher) writePart(ctx context.Context, log logger.Entry, p sandbox.ResolvedPath, data []byte) (bool, Outcome, bool) {
	defer d.locks.lock(p.Abs())()

	kind, err := d.store.Stat(ctx, p)
	if err != nil {
		return false, d.storeFailure(log, "stat", err), false
	}
	if kind == content.KindOther {
		log.Warn("refusing to upload onto special file %s", p)
		return false, failed(ErrorNotAFile), false
	}
	if err := d.store.Write(ctx, p, data); err != nil {
		return false, d.storeFailure(log, "upload", err), false
	}

	d.metrics.RecordBytes("write", len(data))
	return kind == content.KindNone, Outcome{}, true
}

// ValidFilename reports whether name can be used as a single path
// component for an uploaded file.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filepath.VolumeName(name) == ""
}
