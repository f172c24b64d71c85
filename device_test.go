package vram

import (
	"errors"
	"testing"

	"github.com/gogpu/vram/backend"
)

func TestOpenBackendNoop(t *testing.T) {
	dev, err := OpenBackend("noop")
	if err != nil {
		t.Fatalf("OpenBackend(noop) error = %v", err)
	}
	defer dev.Close()
	if dev.Name() != "noop" {
		t.Errorf("Name() = %q, want noop", dev.Name())
	}
	if dev.Caps().CopyAlignment == 0 {
		t.Error("Caps().CopyAlignment = 0")
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	if _, err := OpenBackend("hoverboard"); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("OpenBackend(unknown) = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenDeviceFallsBackToNoop(t *testing.T) {
	// With no GPU present the priority chain lands on the no-op
	// backend; either way a usable device comes back.
	dev, err := OpenDevice()
	if err != nil {
		t.Fatalf("OpenDevice() error = %v", err)
	}
	defer dev.Close()
	if dev.Name() == "" {
		t.Error("Name() is empty")
	}
}
