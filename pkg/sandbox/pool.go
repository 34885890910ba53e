package sandbox

import (
	"context"
	"fmt"
)

// Pool bounds the number of concurrently acquired sandboxes. It wraps
// another Provider and blocks Acquire until a slot is free or the
// context is done. Sandboxes are not reused across acquisitions; the
// pool only limits concurrency.
type Pool struct {
	inner Provider
	slots chan struct{}
}

// NewPool creates a Pool limiting the given provider to size concurrent
// sandboxes. A size of zero or less disables the bound.
func NewPool(inner Provider, size int) *Pool {
	var slots chan struct{}
	if size > 0 {
		slots = make(chan struct{}, size)
	}
	return &Pool{inner: inner, slots: slots}
}

// Acquire waits for a free slot, then acquires a sandbox from the
// wrapped provider. The returned release function frees the slot after
// tearing down the sandbox.
func (p *Pool) Acquire(ctx context.Context) (Sandbox, func(), error) {
	if p.slots == nil {
		return p.inner.Acquire(ctx)
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("waiting for sandbox slot: %w", ctx.Err())
	}

	sb, release, err := p.inner.Acquire(ctx)
	if err != nil {
		<-p.slots
		return nil, nil, err
	}

	return sb, func() {
		release()
		<-p.slots
	}, nil
}
