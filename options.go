package vram

import (
	"github.com/gogpu/vram/telemetry"
	"github.com/gogpu/vram/threadbind"
)

// Option configures resource and device construction.
// Use functional options to customize behavior.
//
// Example:
//
//	// Default pool policy
//	buf, err := vram.NewDynamicBuffer(dev, desc, init)
//
//	// Larger pool, telemetry enabled
//	buf, err := vram.NewDynamicBuffer(dev, desc, init,
//	    vram.WithMaxCopies(4),
//	    vram.WithTelemetry(sink))
type Option func(*options)

// options holds optional configuration.
type options struct {
	initialCopies int
	maxCopies     int
	sink          telemetry.Sink
	strategy      threadbind.Strategy
}

// defaultOptions returns the default configuration: double buffering
// with room for one growth step, no telemetry, relaxed thread binding.
func defaultOptions() options {
	return options{
		initialCopies: 2,
		maxCopies:     3,
		sink:          telemetry.Nop(),
		strategy:      threadbind.Relaxed,
	}
}

// WithInitialCopies sets how many backing allocations a dynamic
// resource starts with. Values below 2 are raised to 2.
func WithInitialCopies(n int) Option {
	return func(o *options) {
		o.initialCopies = n
	}
}

// WithMaxCopies bounds pool growth. Once the pool holds this many
// allocations, further write acquisitions block instead of growing.
// The bound trades memory for stall avoidance.
func WithMaxCopies(n int) Option {
	return func(o *options) {
		o.maxCopies = n
	}
}

// WithTelemetry routes structured events (allocations, growth, stalls,
// device loss) to the given sink.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithThreadBinding selects the goroutine-affinity strategy applied
// when OpenDevice wraps the backend device. The choice is fixed for
// the device's lifetime.
func WithThreadBinding(s threadbind.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}
