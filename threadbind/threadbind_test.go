package threadbind

import (
	"errors"
	"testing"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/backend/noop"
)

// onGoroutine runs f on a fresh goroutine and waits for it.
func onGoroutine(f func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	<-done
}

func TestStrategyString(t *testing.T) {
	if Relaxed.String() != "relaxed" || Tracked.String() != "tracked" {
		t.Errorf("String() = %q, %q", Relaxed.String(), Tracked.String())
	}
}

func TestGuardBindsOnFirstAccess(t *testing.T) {
	g := NewGuard(Tracked)
	if g.Owner() != 0 {
		t.Fatalf("new guard Owner() = %d, want 0 (unbound)", g.Owner())
	}
	if err := g.Check(); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	if g.Owner() == 0 {
		t.Fatal("guard still unbound after first Check()")
	}
}

func TestTrackedRejectsCrossGoroutine(t *testing.T) {
	g := NewGuard(Tracked)
	if err := g.Check(); err != nil {
		t.Fatalf("binding Check() error = %v", err)
	}

	var crossErr error
	onGoroutine(func() {
		crossErr = g.Check()
	})
	if !errors.Is(crossErr, ErrThreadViolation) {
		t.Errorf("cross-goroutine Check() = %v, want ErrThreadViolation", crossErr)
	}

	// The owner keeps working after a rejected access.
	if err := g.Check(); err != nil {
		t.Errorf("owner Check() after violation = %v", err)
	}
}

func TestRelaxedPermitsCrossGoroutine(t *testing.T) {
	g := NewGuard(Relaxed)
	if err := g.Check(); err != nil {
		t.Fatalf("binding Check() error = %v", err)
	}
	owner := g.Owner()

	var crossErr error
	onGoroutine(func() {
		crossErr = g.Check()
	})
	if crossErr != nil {
		t.Errorf("relaxed cross-goroutine Check() = %v, want nil", crossErr)
	}
	if g.Owner() != owner {
		t.Errorf("owner changed from %d to %d", owner, g.Owner())
	}
}

func TestMustCheckPanicsOnViolation(t *testing.T) {
	g := NewGuard(Tracked)
	g.MustCheck() // binds

	onGoroutine(func() {
		defer func() {
			if recover() == nil {
				t.Error("MustCheck() did not panic on cross-goroutine access")
			}
		}()
		g.MustCheck()
	})
}

func TestWrapTracked(t *testing.T) {
	dev := Wrap(noop.NewDevice(), Tracked)

	// Bind by allocating on this goroutine.
	a, err := dev.Allocate(backend.AllocationDescriptor{Label: "guarded", Size: 16})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	var writeErr error
	onGoroutine(func() {
		writeErr = dev.Write(a, 0, []byte{1, 2, 3})
	})
	if !errors.Is(writeErr, ErrThreadViolation) {
		t.Errorf("cross-goroutine Write() = %v, want ErrThreadViolation", writeErr)
	}

	// Owner is unaffected.
	if err := dev.Write(a, 0, []byte{1, 2, 3}); err != nil {
		t.Errorf("owner Write() = %v", err)
	}
}

func TestWrapRelaxed(t *testing.T) {
	dev := Wrap(noop.NewDevice(), Relaxed)

	a, err := dev.Allocate(backend.AllocationDescriptor{Label: "relaxed", Size: 16})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	var writeErr error
	onGoroutine(func() {
		writeErr = dev.Write(a, 0, []byte{1, 2, 3})
	})
	if writeErr != nil {
		t.Errorf("relaxed cross-goroutine Write() = %v, want nil", writeErr)
	}
}

func TestWrapPreservesBackendErrors(t *testing.T) {
	dev := Wrap(noop.NewDevice(), Tracked)
	a, err := dev.Allocate(backend.AllocationDescriptor{Label: "oob", Size: 8})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := dev.Write(a, 8, []byte{1}); !errors.Is(err, backend.ErrOutOfBounds) {
		t.Errorf("Write() past capacity = %v, want ErrOutOfBounds", err)
	}
}
