package vram

import (
	"context"

	"github.com/gogpu/vram/multibuffer"
)

// RenderSide is the pass-facing half of a dynamic resource. A render
// loop holds it and binds per pass; the update loop never touches it.
type RenderSide struct {
	pool *multibuffer.Pool
}

// Bind acquires a read token for one render pass. The token stays
// bound to the newest generation committed before the pass began, even
// if a newer one is published mid-pass, and remains usable while a
// write scope for a future update is open on a different allocation.
//
// Release the token with the pass completion fence (or nil when the
// consumer finished synchronously).
func (r *RenderSide) Bind(ctx context.Context) (*multibuffer.ReadToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.pool.AcquireRead()
}

// Generation returns the newest committed generation.
func (r *RenderSide) Generation() uint64 { return r.pool.Generation() }

// Dirty signals after each commit; a render loop selects on it to
// schedule the next pass.
func (r *RenderSide) Dirty() <-chan struct{} { return r.pool.Dirty() }
