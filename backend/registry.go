package backend

import (
	"fmt"
	"sync"
)

// Factory creates a new device instance. A factory returning an error
// marks the backend unavailable on this machine; Default skips it.
type Factory func() (Device, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// wgpu > noop (noop is the always-available fallback).
	priority = []string{"wgpu", "noop"}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// IsRegistered reports whether a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates a device by backend name.
// Returns ErrBackendNotAvailable if the backend is not registered.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, ErrBackendNotAvailable
	}
	return factory()
}

// Default opens the best available backend in priority order, falling
// back to any registered backend whose factory succeeds.
// Returns ErrBackendNotAvailable, wrapping the last factory error,
// if nothing is available.
func Default() (Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var lastErr error
	for _, name := range priority {
		if factory, ok := factories[name]; ok {
			d, err := factory()
			if err == nil {
				return d, nil
			}
			slogger().Debug("backend unavailable", "backend", name, "error", err)
			lastErr = err
		}
	}

	// Fallback: first registered backend that opens.
	for name, factory := range factories {
		d, err := factory()
		if err == nil {
			return d, nil
		}
		slogger().Debug("backend unavailable", "backend", name, "error", err)
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, lastErr)
	}
	return nil, ErrBackendNotAvailable
}

// MustDefault opens the default backend or panics.
func MustDefault() Device {
	d, err := Default()
	if err != nil {
		panic("backend: no backend available")
	}
	return d
}
