package noop

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/vram/backend"
)

func TestDeviceName(t *testing.T) {
	d := NewDevice()
	if d.Name() != "noop" {
		t.Errorf("Name() = %q, want %q", d.Name(), "noop")
	}
}

func TestCapsFidelity(t *testing.T) {
	caps := NewDevice().Caps()
	if caps.CopyAlignment == 0 {
		t.Error("CopyAlignment = 0, upper layers would divide by it")
	}
	if caps.MaxAllocation == 0 {
		t.Error("MaxAllocation = 0")
	}
}

func TestAllocateAndWrite(t *testing.T) {
	d := NewDevice()
	a, err := d.Allocate(backend.AllocationDescriptor{Label: "buf", Size: 64})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if a.Size() != 64 {
		t.Errorf("Size() = %d, want 64", a.Size())
	}
	if a.Label() != "buf" {
		t.Errorf("Label() = %q, want %q", a.Label(), "buf")
	}

	if err := d.Write(a, 0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := d.Read(context.Background(), a)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("Read() = %v, want 1 2 3 4 prefix", got[:4])
	}
}

func TestAllocateZeroSize(t *testing.T) {
	d := NewDevice()
	_, err := d.Allocate(backend.AllocationDescriptor{Size: 0})
	if !errors.Is(err, backend.ErrAllocationFailed) {
		t.Errorf("Allocate(0) error = %v, want ErrAllocationFailed", err)
	}
}

func TestWriteBounds(t *testing.T) {
	d := NewDevice()
	a, err := d.Allocate(backend.AllocationDescriptor{Label: "bounds", Size: 16})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	tests := []struct {
		name   string
		offset uint64
		data   []byte
		oob    bool
	}{
		{"full capacity", 0, make([]byte, 16), false},
		{"tail", 15, []byte{1}, false},
		{"one past end", 16, []byte{1}, true},
		{"straddles end", 8, make([]byte, 9), true},
		{"offset wraps uint64", ^uint64(0), []byte{1}, true},
		{"offset plus length wraps uint64", ^uint64(0) - 2, make([]byte, 8), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Write(a, tt.offset, tt.data)
			if tt.oob && !errors.Is(err, backend.ErrOutOfBounds) {
				t.Errorf("Write() error = %v, want ErrOutOfBounds", err)
			}
			if !tt.oob && err != nil {
				t.Errorf("Write() error = %v, want nil", err)
			}
		})
	}
}

func TestSubmitCopy(t *testing.T) {
	d := NewDevice()
	src, _ := d.Allocate(backend.AllocationDescriptor{Label: "src", Size: 8})
	dst, _ := d.Allocate(backend.AllocationDescriptor{Label: "dst", Size: 8})

	if err := d.Write(src, 0, []byte{9, 8, 7, 6, 5, 4, 3, 2}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := d.SubmitCopy(src, dst)
	if err != nil {
		t.Fatalf("SubmitCopy() error = %v", err)
	}
	if err := d.Wait(context.Background(), f); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	got, _ := d.Read(context.Background(), dst)
	if !bytes.Equal(got, []byte{9, 8, 7, 6, 5, 4, 3, 2}) {
		t.Errorf("copy destination = %v", got)
	}
}

func TestHeldFences(t *testing.T) {
	d := NewDevice()
	src, _ := d.Allocate(backend.AllocationDescriptor{Label: "src", Size: 4})
	dst, _ := d.Allocate(backend.AllocationDescriptor{Label: "dst", Size: 4})

	d.HoldFences()
	f, err := d.SubmitCopy(src, dst)
	if err != nil {
		t.Fatalf("SubmitCopy() error = %v", err)
	}
	if f.Signaled() {
		t.Fatal("held fence reports signaled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx, f); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on held fence = %v, want deadline exceeded", err)
	}

	d.SignalFences()
	if !f.Signaled() {
		t.Fatal("fence not signaled after SignalFences")
	}
	if err := d.Wait(context.Background(), f); err != nil {
		t.Errorf("Wait() after signal = %v", err)
	}
}

func TestLose(t *testing.T) {
	d := NewDevice()
	a, _ := d.Allocate(backend.AllocationDescriptor{Label: "a", Size: 4})

	d.HoldFences()
	src, _ := d.Allocate(backend.AllocationDescriptor{Label: "src", Size: 4})
	f, _ := d.SubmitCopy(src, a)

	done := make(chan error, 1)
	go func() {
		done <- d.Wait(context.Background(), f)
	}()

	d.Lose()

	if err := <-done; !errors.Is(err, backend.ErrDeviceLost) {
		t.Errorf("in-flight Wait() after Lose = %v, want ErrDeviceLost", err)
	}
	if _, err := d.Allocate(backend.AllocationDescriptor{Size: 4}); !errors.Is(err, backend.ErrDeviceLost) {
		t.Errorf("Allocate() after Lose = %v, want ErrDeviceLost", err)
	}
	if err := d.Write(a, 0, []byte{1}); !errors.Is(err, backend.ErrDeviceLost) {
		t.Errorf("Write() after Lose = %v, want ErrDeviceLost", err)
	}
	if _, err := d.Read(context.Background(), a); !errors.Is(err, backend.ErrDeviceLost) {
		t.Errorf("Read() after Lose = %v, want ErrDeviceLost", err)
	}
}

func TestReleaseIsTerminal(t *testing.T) {
	d := NewDevice()
	a, _ := d.Allocate(backend.AllocationDescriptor{Label: "a", Size: 4})
	d.Release(a)
	if err := d.Write(a, 0, []byte{1}); !errors.Is(err, backend.ErrReleased) {
		t.Errorf("Write() after Release = %v, want ErrReleased", err)
	}
	// Releasing twice is a no-op.
	d.Release(a)
}

func TestRegisteredInRegistry(t *testing.T) {
	if !backend.IsRegistered("noop") {
		t.Fatal("noop backend not registered")
	}
	d, err := backend.Open("noop")
	if err != nil {
		t.Fatalf("Open(noop) error = %v", err)
	}
	defer d.Close()
	if d.Name() != "noop" {
		t.Errorf("Name() = %q", d.Name())
	}
}
