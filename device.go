package vram

import (
	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/threadbind"

	// Register the bundled backends.
	_ "github.com/gogpu/vram/backend/noop"
)

// OpenDevice opens the best available backend device, preferring native
// GPU backends over the no-op stand-in, and wraps it with the
// configured thread-binding guard.
//
// The guard strategy is policy, not mechanism: pass
// WithThreadBinding(threadbind.Tracked) on platforms whose drivers
// require single-threaded handle access.
func OpenDevice(opts ...Option) (backend.Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dev, err := backend.Default()
	if err != nil {
		return nil, err
	}
	return threadbind.Wrap(dev, o.strategy), nil
}

// OpenBackend opens a specific registered backend by name and wraps it
// with the configured thread-binding guard.
func OpenBackend(name string, opts ...Option) (backend.Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dev, err := backend.Open(name)
	if err != nil {
		return nil, err
	}
	return threadbind.Wrap(dev, o.strategy), nil
}
