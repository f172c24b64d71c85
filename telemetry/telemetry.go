// Package telemetry defines the structured event stream emitted by vram.
//
// The core reports resource lifecycle events (allocations, pool growth,
// stalls, device loss) through a generic Sink. Transport and format are
// the application's concern: the default sink discards everything, and
// LogSink adapts any slog.Logger.
package telemetry

import (
	"log/slog"
	"time"
)

// Kind identifies an event type.
type Kind uint8

const (
	// AllocationCreated is emitted when a backing allocation is created.
	AllocationCreated Kind = iota + 1

	// AllocationReleased is emitted when a backing allocation is returned
	// to the backend.
	AllocationReleased

	// PoolGrown is emitted when a multibuffer pool adds a backing
	// allocation to avoid a write stall.
	PoolGrown

	// StallIncurred is emitted when an acquisition had to wait for a
	// backing allocation to retire.
	StallIncurred

	// DeviceLost is emitted once when a resource is poisoned by a
	// backend device failure.
	DeviceLost
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case AllocationCreated:
		return "allocation_created"
	case AllocationReleased:
		return "allocation_released"
	case PoolGrown:
		return "pool_grown"
	case StallIncurred:
		return "stall_incurred"
	case DeviceLost:
		return "device_lost"
	default:
		return "unknown"
	}
}

// Event is one structured telemetry record.
type Event struct {
	// Kind is the event type.
	Kind Kind

	// Resource is the debug name of the resource involved.
	Resource string

	// Backend is the name of the backend device.
	Backend string

	// Bytes is the allocation size, for allocation and growth events.
	Bytes uint64

	// Generation is the resource generation at emission time, when known.
	Generation uint64

	// Wait is the time spent blocked, for stall events.
	Wait time.Duration
}

// Sink consumes telemetry events. Implementations must be safe for
// concurrent use; Emit is called from arbitrary goroutines and must not
// block for long.
type Sink interface {
	Emit(Event)
}

// nopSink discards all events.
type nopSink struct{}

func (nopSink) Emit(Event) {}

// Nop returns a sink that discards all events.
func Nop() Sink { return nopSink{} }

// logSink forwards events to a slog.Logger.
type logSink struct {
	l *slog.Logger
}

// LogSink returns a sink that reports events through l. Stalls and
// device loss are logged at Warn, everything else at Debug.
func LogSink(l *slog.Logger) Sink {
	if l == nil {
		return Nop()
	}
	return logSink{l: l}
}

func (s logSink) Emit(e Event) {
	attrs := []any{
		"resource", e.Resource,
		"backend", e.Backend,
	}
	if e.Bytes != 0 {
		attrs = append(attrs, "bytes", e.Bytes)
	}
	if e.Generation != 0 {
		attrs = append(attrs, "generation", e.Generation)
	}
	if e.Wait != 0 {
		attrs = append(attrs, "wait", e.Wait)
	}
	switch e.Kind {
	case StallIncurred, DeviceLost:
		s.l.Warn(e.Kind.String(), attrs...)
	default:
		s.l.Debug(e.Kind.String(), attrs...)
	}
}
