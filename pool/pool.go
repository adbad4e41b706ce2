// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// A Pool supplies recyclers to codec instances and reclaims them afterward.
// Implementations must be safe for concurrent use. Acquire never fails: when
// the pool is empty a fresh recycler is allocated. Release of a recycler that
// was never acquired, or was already released, is tolerated by the strategies
// in this package (the redundant release is discarded).
type Pool interface {
	// Acquire returns a recycler linked to the caller.
	Acquire() *Recycler

	// Release returns a recycler to the pool once its user is done with it.
	Release(*Recycler)

	// Clear drops all pooled recyclers and reports whether the strategy
	// supports clearing at all.
	Clear() bool

	// Len reports the number of recyclers currently pooled, or -1 if the
	// strategy cannot know (e.g. storage is managed by the runtime).
	Len() int
}

// NewNoOpPool returns a pool that allocates a fresh recycler on every
// Acquire and discards recyclers on Release. It never retains anything, so
// Clear trivially succeeds and Len is always 0.
func NewNoOpPool() Pool { return noOpPool{} }

type noOpPool struct{}

func (noOpPool) Acquire() *Recycler {
	r := NewRecycler()
	r.Link()
	return r
}

func (noOpPool) Release(r *Recycler) { r.Unlink() }
func (noOpPool) Clear() bool         { return true }
func (noOpPool) Len() int            { return 0 }

// NewTransientPool returns a pool backed by a sync.Pool. This is the Go
// analogue of a thread-local strategy: storage is per-P and reclaimed by the
// garbage collector, so the pool cannot enumerate or drop its contents.
// Clear reports false and Len reports -1.
func NewTransientPool() Pool {
	return &transientPool{p: sync.Pool{New: func() any { return NewRecycler() }}}
}

type transientPool struct{ p sync.Pool }

func (t *transientPool) Acquire() *Recycler {
	r := t.p.Get().(*Recycler)
	r.Link()
	return r
}

func (t *transientPool) Release(r *Recycler) {
	if !r.Unlink() {
		return // redundant release
	}
	t.p.Put(r)
}

func (t *transientPool) Clear() bool { return false }
func (t *transientPool) Len() int    { return -1 }

// NewConcurrentPool returns an unbounded lock-free pool implemented as a
// Treiber stack. Acquire pops the most recently released recycler, or
// allocates when the stack is empty.
func NewConcurrentPool() Pool { return new(concurrentPool) }

type concurrentPool struct {
	head atomic.Pointer[poolNode]
	n    atomic.Int64
}

type poolNode struct {
	r    *Recycler
	next *poolNode
}

func (c *concurrentPool) Acquire() *Recycler {
	for {
		top := c.head.Load()
		if top == nil {
			r := NewRecycler()
			r.Link()
			return r
		}
		if c.head.CompareAndSwap(top, top.next) {
			c.n.Add(-1)
			top.r.Link()
			return top.r
		}
	}
}

func (c *concurrentPool) Release(r *Recycler) {
	if !r.Unlink() {
		return // redundant release
	}
	node := &poolNode{r: r}
	for {
		top := c.head.Load()
		node.next = top
		if c.head.CompareAndSwap(top, node) {
			c.n.Add(1)
			return
		}
	}
}

func (c *concurrentPool) Clear() bool {
	for {
		top := c.head.Load()
		if c.head.CompareAndSwap(top, nil) {
			// The count is rebuilt from zero; releases racing with the swap
			// land on the fresh stack and are counted there.
			c.n.Store(0)
			return true
		}
	}
}

func (c *concurrentPool) Len() int { return int(c.n.Load()) }

// NewBoundedPool returns a pool that retains at most n recyclers. Releases
// beyond the capacity discard the recycler without blocking. NewBoundedPool
// panics if n < 1.
func NewBoundedPool(n int) Pool {
	if n < 1 {
		panic(fmt.Sprintf("pool: invalid bounded pool capacity %d", n))
	}
	return &boundedPool{ch: make(chan *Recycler, n)}
}

type boundedPool struct{ ch chan *Recycler }

func (b *boundedPool) Acquire() *Recycler {
	select {
	case r := <-b.ch:
		r.Link()
		return r
	default:
		r := NewRecycler()
		r.Link()
		return r
	}
}

func (b *boundedPool) Release(r *Recycler) {
	if !r.Unlink() {
		return // redundant release
	}
	select {
	case b.ch <- r:
	default:
		// At capacity; drop the recycler on the floor.
	}
}

func (b *boundedPool) Clear() bool {
	for {
		select {
		case <-b.ch:
		default:
			return true
		}
	}
}

func (b *boundedPool) Len() int { return len(b.ch) }
