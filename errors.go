package vram

import "errors"

// Package errors. Backend-level failures (ErrOutOfBounds, ErrDeviceLost,
// ErrAllocationFailed) are defined in the backend package and pass
// through unchanged; threadbind.ErrThreadViolation likewise.
var (
	// ErrInvalidDescriptor is returned when a descriptor fails
	// validation at construction.
	ErrInvalidDescriptor = errors.New("vram: invalid descriptor")

	// ErrNotImplemented is returned for declared but unbuilt axis
	// combinations (Reverse and Sideways directions).
	ErrNotImplemented = errors.New("vram: not implemented")

	// ErrStaticResource is returned when write access is requested on
	// a static resource.
	ErrStaticResource = errors.New("vram: static resource is immutable")

	// ErrClosed is returned when a resource is used after Close.
	ErrClosed = errors.New("vram: resource closed")
)
