// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Package pool provides reusable scratch buffers for parsers and generators,
// and a set of interchangeable pooling strategies for sharing them across
// codec instances.
package pool

import "sync/atomic"

// BufKind selects one of the scratch buffers held by a Recycler.
type BufKind int

// Constants defining the valid BufKind values.
const (
	ReadBuf   BufKind = iota // input chunk staging buffer
	WriteBuf                 // generator output buffer
	TextBuf                  // decoded token text
	NameBuf                  // property name bytes
	ConcatBuf                // value concatenation scratch
	Base64Buf                // binary encode/decode scratch

	numBufKinds
)

var bufLen = [numBufKinds]int{
	ReadBuf:   8 << 10,
	WriteBuf:  8 << 10,
	TextBuf:   4 << 10,
	NameBuf:   256,
	ConcatBuf: 2 << 10,
	Base64Buf: 2 << 10,
}

// A Recycler is a bundle of reusable scratch buffers. A recycler is linked to
// at most one live parser or generator at a time; the pooling strategy, not
// the recycler, is responsible for enforcing that protocol via Link and
// Unlink.
type Recycler struct {
	linked atomic.Bool
	bufs   [numBufKinds][]byte
}

// NewRecycler constructs an empty recycler. Buffers are allocated lazily on
// first Alloc of each kind.
func NewRecycler() *Recycler { return new(Recycler) }

// Alloc returns the scratch buffer of the given kind with length 0 and
// capacity at least min (or the kind's default, whichever is larger). The
// slot is emptied until the buffer is returned with Release.
func (r *Recycler) Alloc(kind BufKind, min int) []byte {
	buf := r.bufs[kind]
	r.bufs[kind] = nil
	if n := max(min, bufLen[kind]); cap(buf) < n {
		buf = make([]byte, 0, n)
	}
	return buf[:0]
}

// Release returns a buffer previously obtained from Alloc. Releasing a nil
// buffer is a no-op, so callers may release unconditionally during cleanup.
func (r *Recycler) Release(kind BufKind, buf []byte) {
	if buf == nil {
		return
	}
	// Keep the larger of the stored and returned buffers, so a buffer grown
	// during use is retained for the next user.
	if cap(buf) > cap(r.bufs[kind]) {
		r.bufs[kind] = buf[:0]
	}
}

// Link marks r as owned by a live codec instance. It reports false if r is
// already linked, which indicates a pooling bug (the same recycler handed to
// two instances at once).
func (r *Recycler) Link() bool { return r.linked.CompareAndSwap(false, true) }

// Unlink clears the ownership mark set by Link. It reports false if r was
// not linked, which indicates a redundant release.
func (r *Recycler) Unlink() bool { return r.linked.CompareAndSwap(true, false) }
