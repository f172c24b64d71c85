package wgpu

import "errors"

// Package errors for the wgpu backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("wgpu: no GPU adapter available")

	// ErrNoBackend is returned when no HAL backend is compiled in.
	ErrNoBackend = errors.New("wgpu: no HAL backend available")

	// ErrNilProvider is returned when OpenWith receives a nil provider.
	ErrNilProvider = errors.New("wgpu: nil device provider")

	// ErrForeignHandle is returned when a handle from another backend is
	// passed to a wgpu device.
	ErrForeignHandle = errors.New("wgpu: handle from another backend")
)
