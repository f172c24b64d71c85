// Package multibuffer rotates N backing allocations per dynamic
// resource so the CPU can write the next version of a resource while
// the GPU still consumes a previous one.
//
// A Pool owns the allocations and is the sole authority over their
// lifecycle tags. At any moment each allocation is in exactly one of
// four states:
//
//	Idle        free, confirmed retired, available for a writer
//	CPUWriting  exclusively held by one WriteScope
//	Submitted   committed; published to GPU consumption, not yet retired
//	GPUReading  one or more read tokens are bound to it
//
// Commit publishes an allocation as the resource's current version and
// bumps a strictly increasing generation counter. Readers always get
// the current version and keep it for the whole pass even if a newer
// generation lands mid-pass. A committed allocation only returns to
// Idle once a fence-confirmed release of an equal-or-newer generation
// proves the GPU can never touch it again.
//
// Tag transitions are serialized under one mutex per pool; bulk data
// transfer never holds it. Pools never block each other.
package multibuffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/vram/backend"
	"github.com/gogpu/vram/telemetry"
)

// Pool errors.
var (
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("multibuffer: pool closed")

	// ErrNothingPublished is returned by AcquireRead before the first
	// commit.
	ErrNothingPublished = errors.New("multibuffer: no generation published")

	// ErrScopeFinished is returned when using a WriteScope after its
	// commit or discard.
	ErrScopeFinished = errors.New("multibuffer: write scope already finished")
)

// state is an allocation lifecycle tag.
type state uint8

const (
	stateIdle state = iota
	stateCPUWriting
	stateSubmitted
	stateGPUReading
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCPUWriting:
		return "cpu-writing"
	case stateSubmitted:
		return "submitted"
	case stateGPUReading:
		return "gpu-reading"
	default:
		return "invalid"
	}
}

// slot pairs one backing allocation with its lifecycle tag.
type slot struct {
	alloc   backend.Allocation
	state   state
	gen     uint64 // generation at last commit; 0 = never committed
	readers int    // outstanding read tokens
}

// Config tunes a pool. The zero value gives two initial copies, a
// maximum of three, and silent telemetry.
type Config struct {
	// InitialCopies is the number of allocations created up front.
	// Clamped to at least 2: one CPU-writable, one GPU-consumable.
	InitialCopies int

	// MaxCopies bounds pool growth. Acquisitions block once the pool
	// holds MaxCopies allocations and none is idle. Defaults to
	// InitialCopies+1, trading one allocation of memory for stall
	// avoidance in the steady state.
	MaxCopies int

	// Label names the resource in logs and telemetry.
	Label string

	// Sink receives telemetry events; nil discards them.
	Sink telemetry.Sink
}

// Pool owns the backing allocations of one dynamic resource.
type Pool struct {
	dev   backend.Device
	desc  backend.AllocationDescriptor
	label string
	max   int
	sink  telemetry.Sink

	mu       sync.Mutex
	slots    []*slot
	current  *slot // highest committed generation, nil before first commit
	gen      uint64
	writer   bool // a WriteScope is open
	waiters  []chan struct{}
	poisoned bool
	closed   bool

	dirty chan struct{} // capacity 1; signaled on every commit
}

// New creates a pool of backing allocations described by desc.
// Fails with the backend's allocation error; nothing is retained on
// failure.
func New(dev backend.Device, desc backend.AllocationDescriptor, cfg Config) (*Pool, error) {
	initial := cfg.InitialCopies
	if initial < 2 {
		initial = 2
	}
	max := cfg.MaxCopies
	if max < initial {
		max = initial + 1
	}
	sink := cfg.Sink
	if sink == nil {
		sink = telemetry.Nop()
	}
	label := cfg.Label
	if label == "" {
		label = desc.Label
	}

	p := &Pool{
		dev:   dev,
		desc:  desc,
		label: label,
		max:   max,
		sink:  sink,
		dirty: make(chan struct{}, 1),
	}
	for i := 0; i < initial; i++ {
		a, err := dev.Allocate(p.slotDesc(i))
		if err != nil {
			for _, s := range p.slots {
				dev.Release(s.alloc)
			}
			return nil, fmt.Errorf("multibuffer: pool %q: %w", label, err)
		}
		p.slots = append(p.slots, &slot{alloc: a})
		p.emit(telemetry.Event{Kind: telemetry.AllocationCreated, Bytes: a.Size()})
	}
	slogger().Debug("pool created", "pool", label, "copies", initial, "max", max, "bytes", desc.Size)
	return p, nil
}

func (p *Pool) slotDesc(i int) backend.AllocationDescriptor {
	d := p.desc
	if d.Label != "" {
		d.Label = fmt.Sprintf("%s[%d]", d.Label, i)
	}
	return d
}

// AcquireWrite returns a scope granting exclusive CPU write access to
// one idle allocation, preferring the oldest retired generation. If no
// allocation is idle the pool grows by one up to its maximum, after
// which AcquireWrite blocks cooperatively until a retirement or ctx is
// done. Only one scope per pool may be open at a time; a second
// AcquireWrite blocks until the first commits or discards.
func (p *Pool) AcquireWrite(ctx context.Context) (*WriteScope, error) {
	var stallStart time.Time

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if p.poisoned {
			p.mu.Unlock()
			return nil, backend.ErrDeviceLost
		}
		if !p.writer {
			if s := p.idleSlot(); s != nil {
				s.state = stateCPUWriting
				p.writer = true
				p.mu.Unlock()
				p.noteStall(stallStart)
				return &WriteScope{p: p, s: s}, nil
			}
			if len(p.slots) < p.max {
				s, err := p.grow()
				if err != nil {
					p.mu.Unlock()
					return nil, err
				}
				s.state = stateCPUWriting
				p.writer = true
				p.mu.Unlock()
				p.noteStall(stallStart)
				return &WriteScope{p: p, s: s}, nil
			}
		}

		ch := make(chan struct{})
		p.waiters = append(p.waiters, ch)
		p.mu.Unlock()

		if stallStart.IsZero() {
			stallStart = time.Now()
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		p.mu.Lock()
	}
}

// idleSlot returns the idle slot with the oldest generation, or nil.
func (p *Pool) idleSlot() *slot {
	var best *slot
	for _, s := range p.slots {
		if s.state != stateIdle {
			continue
		}
		if best == nil || s.gen < best.gen {
			best = s
		}
	}
	return best
}

// grow adds one allocation. Caller holds p.mu.
func (p *Pool) grow() (*slot, error) {
	a, err := p.dev.Allocate(p.slotDesc(len(p.slots)))
	if err != nil {
		if errors.Is(err, backend.ErrDeviceLost) {
			p.poisonLocked(err)
		}
		return nil, fmt.Errorf("multibuffer: pool %q grow: %w", p.label, err)
	}
	s := &slot{alloc: a}
	p.slots = append(p.slots, s)
	p.emit(telemetry.Event{Kind: telemetry.AllocationCreated, Bytes: a.Size()})
	p.emit(telemetry.Event{Kind: telemetry.PoolGrown, Bytes: a.Size(), Generation: p.gen})
	slogger().Debug("pool grown", "pool", p.label, "copies", len(p.slots))
	return s, nil
}

// AcquireRead returns a token bound to the current (highest committed)
// generation and tags its allocation GPUReading. Any number of tokens
// may be bound to the same allocation; acquiring never blocks a writer
// working on a different allocation.
func (p *Pool) AcquireRead() (*ReadToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.poisoned {
		return nil, backend.ErrDeviceLost
	}
	if p.current == nil {
		return nil, ErrNothingPublished
	}
	s := p.current
	s.readers++
	s.state = stateGPUReading
	return &ReadToken{p: p, s: s, gen: s.gen}, nil
}

// Generation returns the most recently committed generation, 0 before
// the first commit.
func (p *Pool) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Copies returns the number of backing allocations currently owned.
func (p *Pool) Copies() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Dirty returns a channel that receives after every commit. The signal
// is coalesced: a render loop that aggregates several pools can select
// over their dirty channels to learn when re-encoding is needed.
func (p *Pool) Dirty() <-chan struct{} { return p.dirty }

// Close releases every allocation to the backend. Open scopes and
// outstanding tokens must not be used afterwards; subsequent
// acquisitions fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	slots := p.slots
	p.slots = nil
	p.current = nil
	p.wakeAllLocked()
	p.mu.Unlock()

	for _, s := range slots {
		p.dev.Release(s.alloc)
		p.emit(telemetry.Event{Kind: telemetry.AllocationReleased, Bytes: s.alloc.Size()})
	}
}

// retire processes one fence-confirmed release of generation gen on
// slot s: the reader count drops, and every committed slot that is not
// current, has no readers, and is no newer than gen is provably beyond
// GPU reach, so it returns to Idle.
func (p *Pool) retire(s *slot, gen uint64) {
	p.mu.Lock()
	s.readers--
	if s.readers == 0 && s.state == stateGPUReading {
		s.state = stateSubmitted
	}
	woke := false
	for _, t := range p.slots {
		if t != p.current && t.state == stateSubmitted && t.readers == 0 && t.gen <= gen {
			t.state = stateIdle
			woke = true
		}
	}
	if woke {
		p.wakeAllLocked()
	}
	p.mu.Unlock()
}

// poison marks the pool permanently unusable after a device failure.
func (p *Pool) poison(cause error) {
	p.mu.Lock()
	p.poisonLocked(cause)
	p.mu.Unlock()
}

// poisonLocked requires p.mu.
func (p *Pool) poisonLocked(cause error) {
	if p.poisoned {
		return
	}
	p.poisoned = true
	p.wakeAllLocked()
	p.emit(telemetry.Event{Kind: telemetry.DeviceLost, Generation: p.gen})
	slogger().Warn("pool poisoned", "pool", p.label, "cause", cause)
}

// wakeAllLocked wakes every blocked acquisition. Requires p.mu.
func (p *Pool) wakeAllLocked() {
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
}

// noteStall reports time spent blocked in an acquisition, if any.
func (p *Pool) noteStall(start time.Time) {
	if start.IsZero() {
		return
	}
	wait := time.Since(start)
	p.emit(telemetry.Event{Kind: telemetry.StallIncurred, Wait: wait})
	slogger().Warn("write stalled on retirement", "pool", p.label, "wait", wait)
}

func (p *Pool) emit(e telemetry.Event) {
	e.Resource = p.label
	e.Backend = p.dev.Name()
	p.sink.Emit(e)
}
