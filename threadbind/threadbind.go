// Package threadbind guards backend handles against access from an
// unexpected execution context.
//
// Some platforms require all GPU-affine work on one fixed thread; others
// allow any. Rather than spreading platform checks across call sites,
// every backend handle is wrapped in a Guard configured with one of two
// strategies chosen at device-open time:
//
//   - Relaxed records the creating goroutine for diagnostics only.
//   - Tracked compares the current goroutine against the recorded owner
//     on every access and fails fast with ErrThreadViolation on a
//     mismatch, surfacing the bug immediately instead of risking an
//     unexplained hang inside the driver.
//
// Which strategy to use is policy, not mechanism: callers pass it in as
// configuration (typically from their windowing layer's knowledge of the
// platform), it is never derived here.
package threadbind

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/internal/gid"
)

// ErrThreadViolation is returned under the Tracked strategy when a bound
// handle is accessed from a goroutine other than its owner.
var ErrThreadViolation = errors.New("threadbind: cross-goroutine access to bound handle")

// Strategy selects how strictly a guard enforces ownership.
type Strategy uint8

const (
	// Relaxed records the owning goroutine for diagnostics only;
	// cross-goroutine access is permitted.
	Relaxed Strategy = iota

	// Tracked rejects access from any goroutine other than the owner.
	Tracked
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Relaxed:
		return "relaxed"
	case Tracked:
		return "tracked"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// Guard tracks which goroutine owns a backend handle.
//
// A guard starts unbound and binds to the first goroutine that touches
// it. Further accesses either pass (owner match, or Relaxed strategy) or
// fail with ErrThreadViolation (Tracked mismatch). Guards are safe for
// concurrent use; binding races resolve to exactly one owner.
type Guard struct {
	strategy Strategy
	owner    atomic.Uint64 // 0 = unbound
}

// NewGuard creates an unbound guard with the given strategy.
func NewGuard(strategy Strategy) *Guard {
	return &Guard{strategy: strategy}
}

// Strategy returns the guard's strategy.
func (g *Guard) Strategy() Strategy { return g.strategy }

// Owner returns the owning goroutine ID, or 0 if still unbound.
// Diagnostic only; the value may be stale by the time it is read.
func (g *Guard) Owner() uint64 { return g.owner.Load() }

// Check binds the guard on first access and validates ownership on
// every later one. Under Tracked, a mismatch returns ErrThreadViolation.
func (g *Guard) Check() error {
	id := gid.ID()
	if g.owner.CompareAndSwap(0, id) {
		return nil // Unbound -> Bound
	}
	owner := g.owner.Load()
	if owner == id || g.strategy == Relaxed {
		return nil
	}
	return fmt.Errorf("%w: bound to goroutine %d, accessed from %d", ErrThreadViolation, owner, id)
}

// MustCheck is Check for call sites that cannot return an error.
// A Tracked violation panics; on the platforms Tracked exists for, the
// alternative is a silent hang inside the driver.
func (g *Guard) MustCheck() {
	if err := g.Check(); err != nil {
		panic(err)
	}
}

// Wrap decorates a backend device so that every call is checked against
// one shared guard. The guard binds to whichever goroutine touches the
// device first, which is normally the goroutine that opened it.
func Wrap(dev backend.Device, strategy Strategy) backend.Device {
	return &guardedDevice{dev: dev, guard: NewGuard(strategy)}
}

// guardedDevice checks a guard before delegating each call.
type guardedDevice struct {
	dev   backend.Device
	guard *Guard
}

func (d *guardedDevice) Name() string { return d.dev.Name() }

func (d *guardedDevice) Caps() backend.Caps { return d.dev.Caps() }

func (d *guardedDevice) Allocate(desc backend.AllocationDescriptor) (backend.Allocation, error) {
	if err := d.guard.Check(); err != nil {
		return nil, err
	}
	return d.dev.Allocate(desc)
}

func (d *guardedDevice) Write(a backend.Allocation, offset uint64, data []byte) error {
	if err := d.guard.Check(); err != nil {
		return err
	}
	return d.dev.Write(a, offset, data)
}

func (d *guardedDevice) SubmitCopy(src, dst backend.Allocation) (backend.Fence, error) {
	if err := d.guard.Check(); err != nil {
		return nil, err
	}
	return d.dev.SubmitCopy(src, dst)
}

func (d *guardedDevice) Read(ctx context.Context, a backend.Allocation) ([]byte, error) {
	if err := d.guard.Check(); err != nil {
		return nil, err
	}
	return d.dev.Read(ctx, a)
}

func (d *guardedDevice) Wait(ctx context.Context, f backend.Fence) error {
	// Fence waits are not handle accesses: the whole point of a fence
	// is to be observable from the coordinating context while the
	// device thread keeps submitting.
	return d.dev.Wait(ctx, f)
}

func (d *guardedDevice) Release(a backend.Allocation) {
	d.guard.MustCheck()
	d.dev.Release(a)
}

func (d *guardedDevice) Close() {
	d.guard.MustCheck()
	d.dev.Close()
}
