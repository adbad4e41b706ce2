// Copyright (C) 2025 The CirJSON Authors. All Rights Reserved.

// Package names implements the property-name canonicalizer: a shared intern
// table keyed by the UTF-8 bytes of a name, so that repeated occurrences of
// the same name decode to the same string instance.
//
// Name bytes are packed big-endian into 32-bit "quads". Names of up to three
// quads live directly in the hash area; longer names keep their quads in a
// separate overflow area referenced by offset. Slots are found through four
// tiers sized relative to the table: a primary tier (half the entries,
// direct hash), a secondary tier (a quarter, hash shifted right once), a
// tertiary tier (an eighth, hash shifted right twice, scanned in small
// sub-buckets), and a final linear spill tier for the rare total collision.
//
// A Root is shared across parses. Each parse works on a child Table that
// starts as a copy-on-write view of the root's current snapshot and only
// duplicates the backing arrays on first insertion. Releasing a child
// publishes its additions back to the root through a single atomic swap,
// so concurrent readers only ever observe fully formed snapshots.
package names

import (
	"encoding/binary"
	"math/rand/v2"
	"sync/atomic"
)

const (
	minBuckets = 64      // initial table size
	maxBuckets = 1 << 16 // growth stops here; spill keeps absorbing

	// Children holding more than this many entries are not merged back, to
	// keep a stream of per-parse-unique names from bloating the root.
	maxReuseEntries = 6000

	// Names longer than this are returned without being registered.
	maxInternBytes = 1024
)

// A snapshot is one immutable generation of the root table. Its arrays are
// never mutated once published.
type snapshot struct {
	seed      uint32
	size      int // bucket count, always a power of two
	count     int
	tertShift uint
	spillEnd  int
	hashArea  []uint32
	names     []string
	longQuads []uint32
}

// A Root is the shared canonicalizer for one codec configuration. Use Child
// to obtain a table for a single parse. Roots are safe for concurrent use.
type Root struct {
	snap atomic.Pointer[snapshot]
}

// NewRoot constructs an empty root table with a fresh random hash seed.
func NewRoot() *Root {
	r := new(Root)
	r.snap.Store(emptySnapshot(rand.Uint32(), minBuckets))
	return r
}

// Count reports the number of names currently interned in the root.
func (r *Root) Count() int { return r.snap.Load().count }

// Child returns a table for a single parse, seeded with the root's current
// contents. The table is not safe for concurrent use. Call Release when the
// parse completes to offer new names back to the root.
func (r *Root) Child() *Table {
	s := r.snap.Load()
	return &Table{
		root:      r,
		base:      s,
		seed:      s.seed,
		size:      s.size,
		count:     s.count,
		tertShift: s.tertShift,
		spillEnd:  s.spillEnd,
		hashArea:  s.hashArea,
		names:     s.names,
		longQuads: s.longQuads,
		shared:    true,
	}
}

// A Table interns names for one parse. The zero value is not usable; obtain
// tables from a Root.
type Table struct {
	root *Root
	base *snapshot

	seed      uint32
	size      int
	count     int
	tertShift uint
	spillEnd  int
	hashArea  []uint32
	names     []string
	longQuads []uint32
	shared    bool // backing arrays belong to the base snapshot

	qbuf []uint32 // quad scratch, reused across calls
}

// Count reports the number of names interned, including those inherited
// from the root.
func (t *Table) Count() int { return t.count }

// Intern returns the canonical string for the name bytes b, registering a
// new entry if the name has not been seen. The returned string is the same
// instance for every byte-equal call against this table.
func (t *Table) Intern(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if len(b) > maxInternBytes {
		return string(b)
	}
	t.qbuf = appendQuads(t.qbuf[:0], b)
	q := t.qbuf
	h := t.hash(q)
	if s, ok := t.lookup(h, q); ok {
		return s
	}
	return t.insert(h, q, string(b))
}

// Release offers the table's additions back to the root. The publication
// succeeds only if the root has not advanced past the snapshot this table
// started from; otherwise the additions are quietly dropped. The table must
// not be used after Release.
func (t *Table) Release() {
	if t.shared || t.root == nil {
		return // nothing added, or detached table
	}
	if t.count <= t.base.count || t.count > maxReuseEntries {
		return
	}
	next := &snapshot{
		seed:      t.seed,
		size:      t.size,
		count:     t.count,
		tertShift: t.tertShift,
		spillEnd:  t.spillEnd,
		hashArea:  t.hashArea,
		names:     t.names,
		longQuads: t.longQuads,
	}
	t.root.snap.CompareAndSwap(t.base, next)
}

func emptySnapshot(seed uint32, size int) *snapshot {
	return &snapshot{
		seed:      seed,
		size:      size,
		tertShift: tertShiftFor(size),
		spillEnd:  spillStart(size),
		hashArea:  make([]uint32, size*8), // 2*size entries of 4 words
		names:     nil,
		longQuads: nil,
	}
}

// Tier geometry. Entry slots are numbered [0, 2*size); each entry occupies
// four words of the hash area: up to three quads plus an info word packing
// the quad length and the 1-based name index.

func spillStart(size int) int { return 2*size - size/4 }

func tertShiftFor(size int) uint {
	switch {
	case size < 256:
		return 2 // 4-entry sub-buckets
	case size < 1024:
		return 3
	case size < 4096:
		return 4
	default:
		return 5
	}
}

const (
	infoIndexMask = 1<<20 - 1 // low bits: name index + 1
	infoLenShift  = 20        // high bits: quad count
)

func (t *Table) primarySlot(h uint32) int { return int(h & uint32(t.size-1)) }

func (t *Table) secondarySlot(h uint32) int {
	return t.size + int((h>>1)&uint32(t.size/2-1))
}

func (t *Table) tertiaryBucket(h uint32) int {
	buckets := uint32(t.size/4) >> t.tertShift
	return t.size + t.size/2 + int(((h>>2)&(buckets-1))<<t.tertShift)
}

func (t *Table) lookup(h uint32, q []uint32) (string, bool) {
	if s, ok := t.matchAt(t.primarySlot(h), h, q); ok {
		return s, true
	}
	if s, ok := t.matchAt(t.secondarySlot(h), h, q); ok {
		return s, true
	}
	start := t.tertiaryBucket(h)
	for i := start; i < start+1<<t.tertShift; i++ {
		if s, ok := t.matchAt(i, h, q); ok {
			return s, true
		}
	}
	for i := spillStart(t.size); i < t.spillEnd; i++ {
		if s, ok := t.matchAt(i, h, q); ok {
			return s, true
		}
	}
	return "", false
}

func (t *Table) matchAt(slot int, h uint32, q []uint32) (string, bool) {
	at := slot * 4
	info := t.hashArea[at+3]
	if info == 0 || int(info>>infoLenShift) != len(q) {
		return "", false
	}
	if len(q) <= 3 {
		for i, w := range q {
			if t.hashArea[at+i] != w {
				return "", false
			}
		}
	} else {
		if t.hashArea[at] != h {
			return "", false
		}
		off := int(t.hashArea[at+1])
		for i, w := range q {
			if t.longQuads[off+i] != w {
				return "", false
			}
		}
	}
	return t.names[info&infoIndexMask-1], true
}

func (t *Table) insert(h uint32, q []uint32, name string) string {
	if t.shared {
		t.unshare()
	}
	// Grow at three-quarters of entry capacity, or when the spill tier is
	// exhausted; past the maximum size the spill check is skipped and the
	// table accepts the slower linear scans.
	if t.size < maxBuckets && (t.count >= t.size+t.size/2 || t.spillEnd >= 2*t.size) {
		t.grow()
		h = t.hash(q)
	}

	slot, ok := t.freeSlot(h)
	if !ok {
		// Spill tier full at maximum size. Hand back an uninterned copy;
		// lookups for this name stay correct, just slower.
		return name
	}
	at := slot * 4
	if len(q) <= 3 {
		copy(t.hashArea[at:], q)
	} else {
		t.hashArea[at] = h
		t.hashArea[at+1] = uint32(len(t.longQuads))
		t.longQuads = append(t.longQuads, q...)
	}
	t.names = append(t.names, name)
	t.hashArea[at+3] = uint32(len(q))<<infoLenShift | uint32(len(t.names))
	t.count++
	return name
}

func (t *Table) freeSlot(h uint32) (int, bool) {
	if slot := t.primarySlot(h); t.hashArea[slot*4+3] == 0 {
		return slot, true
	}
	if slot := t.secondarySlot(h); t.hashArea[slot*4+3] == 0 {
		return slot, true
	}
	start := t.tertiaryBucket(h)
	for i := start; i < start+1<<t.tertShift; i++ {
		if t.hashArea[i*4+3] == 0 {
			return i, true
		}
	}
	if t.spillEnd < 2*t.size {
		slot := t.spillEnd
		t.spillEnd++
		return slot, true
	}
	return 0, false
}

func (t *Table) unshare() {
	t.hashArea = append([]uint32(nil), t.hashArea...)
	t.names = append([]string(nil), t.names...)
	t.longQuads = append([]uint32(nil), t.longQuads...)
	t.shared = false
}

// grow rebuilds the table at double capacity, rehashing every live name.
func (t *Table) grow() {
	old := t.names
	t.size *= 2
	t.tertShift = tertShiftFor(t.size)
	t.spillEnd = spillStart(t.size)
	t.hashArea = make([]uint32, t.size*8)
	t.names = t.names[:0:0]
	t.longQuads = t.longQuads[:0:0]
	t.count = 0

	var q []uint32
	for _, name := range old {
		q = appendQuads(q[:0], []byte(name))
		t.insert(t.hash(q), q, name)
	}
}

// appendQuads packs the bytes of b big-endian into 32-bit quads. A trailing
// partial quad holds just its remaining bytes, so byte-distinct names pack
// to distinct quad sequences. (The parser rejects NUL bytes in names, which
// rules out the one padding ambiguity.)
func appendQuads(dst []uint32, b []byte) []uint32 {
	for len(b) >= 4 {
		dst = append(dst, binary.BigEndian.Uint32(b))
		b = b[4:]
	}
	switch len(b) {
	case 1:
		dst = append(dst, uint32(b[0]))
	case 2:
		dst = append(dst, uint32(b[0])<<8|uint32(b[1]))
	case 3:
		dst = append(dst, uint32(b[0])<<16|uint32(b[1])<<8|uint32(b[2]))
	}
	return dst
}

// hash mixes the quads with the per-table seed. The seed randomizes slot
// selection between processes, so adversarial inputs cannot precompute a
// colliding name set.
func (t *Table) hash(q []uint32) uint32 {
	switch len(q) {
	case 1:
		h := q[0] ^ t.seed
		h += h >> 16
		h ^= h << 3
		h += h >> 12
		return h
	case 2:
		h := q[0] + q[0]>>15
		h ^= h >> 9
		h += q[1] * 65599
		h ^= t.seed
		h += h >> 16
		h ^= h >> 4
		return h
	case 3:
		h := q[0] ^ t.seed
		h += h >> 9
		h *= 31
		h += q[1]
		h *= 33
		h ^= h >> 15
		h += q[2]
		h ^= h >> 17
		return h
	default:
		h := q[0] ^ t.seed
		for _, w := range q[1:] {
			h += h >> 9
			h ^= h << 5
			h += w
		}
		h ^= h >> 15
		h += h << 7
		return h
	}
}
