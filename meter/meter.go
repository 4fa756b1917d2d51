// Package meter defines the contract shared by every telemetry source. The
// acquisition loop is written against this contract only, so the physical
// meter and the simulator are interchangeable by configuration.
package meter

import (
	"context"
	"errors"
	"fmt"

	"github.com/emusa/energymon/telemetry"
)

// Source is the capability set of a telemetry source. Implementations are
// not safe for concurrent use: the acquisition loop owns the source
// exclusively and never overlaps calls.
type Source interface {
	// Connect establishes the link. For the physical meter this includes the
	// port/slave discovery phase; for the simulator it is a no-op.
	Connect(ctx context.Context) error

	// ReadAll performs one polling cycle. A partial response is not an
	// error: quantities that could not be read are simply absent from the
	// sample.
	ReadAll(ctx context.Context) (telemetry.RawSample, error)

	// Close releases the link. Safe to call when not connected.
	Close() error
}

// ErrNoDeviceFound means no candidate port/slave combination produced a
// valid handshake within the probe budget.
var ErrNoDeviceFound = errors.New("no meter found on any candidate port")

// ConnectError wraps a failure to establish the link. Recoverable: the
// acquisition loop backs off and retries.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect meter: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReadErrorKind classifies a failed polling cycle.
type ReadErrorKind string

const (
	ReadTimeout  ReadErrorKind = "timeout"  // link silent, retry then reconnect
	ReadProtocol ReadErrorKind = "protocol" // garbled or rejected response
)

// ReadError means a whole polling cycle failed. Individual register failures
// degrade to a partial RawSample instead.
type ReadError struct {
	Kind ReadErrorKind
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read meter (%s): %v", e.Kind, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsReadTimeout reports whether err is a ReadError of kind timeout.
func IsReadTimeout(err error) bool {
	var re *ReadError
	return errors.As(err, &re) && re.Kind == ReadTimeout
}
