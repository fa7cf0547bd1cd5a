// Package sim is the boundary to the external process-simulation
// application. The simulator exposes its flowsheet as a tree of nodes
// addressed by backslash-separated paths; this package defines the session
// interface, the path constructors and the snapshot-based implementation
// used for offline extraction and tests.
package sim

import (
	"context"
	"errors"
)

// Sentinel errors for node access. Callers treat ErrPathNotFound on optional
// properties as "value not reported", never as a failure.
var (
	ErrPathNotFound = errors.New("simulation path not found")
	ErrTypeMismatch = errors.New("simulation value has unexpected type")
	ErrNotConnected = errors.New("simulation session is closed")
)

// Connector opens sessions against a simulation source. One session is held
// exclusively per extraction run.
type Connector interface {
	Connect(ctx context.Context, filePath string) (Session, error)
}

// Session is an open handle on a loaded flowsheet. Implementations are not
// safe for concurrent use; the pipeline is strictly sequential. Close must be
// called on every exit path so the underlying automation lock is released.
type Session interface {
	// ReadFloat resolves a node path to a numeric value.
	ReadFloat(path string) (float64, error)
	// ReadString resolves a node path to a text value.
	ReadString(path string) (string, error)
	// Children lists the direct child node names under a path, sorted.
	Children(path string) ([]string, error)
	// Close releases the session. Safe to call more than once.
	Close() error
}
