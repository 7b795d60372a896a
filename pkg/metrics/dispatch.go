package metrics

import "time"

// DispatchMetrics observes file operations handled by the request dispatcher.
//
// Example usage:
//
//	// With metrics enabled
//	d := dispatch.New(root, store, cfg, prometheus.NewDispatchMetrics())
//
//	// Without metrics (no-op)
//	d := dispatch.New(root, store, cfg, nil)
type DispatchMetrics interface {
	// RecordOperation records a completed operation.
	//
	// Parameters:
	//   - operation: operation name ("read", "write", "move", ...)
	//   - status: outcome status ("served", "rejected", "failed")
	//   - kind: error kind ("" when served)
	//   - duration: time spent in the dispatcher
	RecordOperation(operation, status, kind string, duration time.Duration)

	// RecordBytes records file bytes moved by an operation.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: number of bytes
	RecordBytes(direction string, bytes int)

	// RecordPolicyRejection counts requests refused before touching the
	// filesystem ("escape", "invalid", "root_protected", "bad_request").
	RecordPolicyRejection(reason string)
}

// NewNoopDispatchMetrics returns a DispatchMetrics that discards everything.
func NewNoopDispatchMetrics() DispatchMetrics {
	return noopDispatchMetrics{}
}

type noopDispatchMetrics struct{}

func (noopDispatchMetrics) RecordOperation(string, string, string, time.Duration) {}
func (noopDispatchMetrics) RecordBytes(string, int)                               {}
func (noopDispatchMetrics) RecordPolicyRejection(string)                          {}
