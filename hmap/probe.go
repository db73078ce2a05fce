package hmap

import (
	"encoding/binary"

	"github.com/basekv/containers/internal/bitset"
)

// Metadata byte states. FULL occupies the non-negative half of the
// signed byte range (0..127, the H2 fingerprint); EMPTY and DELETED occupy
// the negative half. Stored and compared as unsigned bytes throughout.
const (
	emptyMeta   byte = 0b10000000
	deletedMeta byte = 0b11111110
	h2Mask           = 0x7f
)

// cloneWidth is the number of leading metadata bytes mirrored at the tail
// of the array so a 16-byte load starting at any slot in [0, capacity) never
// needs wrap-around arithmetic (the "clone region").
const cloneWidth = 15

// groupWidth is the number of metadata bytes scanned per probe step. It is
// implemented with two 64-bit SWAR word compares rather than real SIMD
// instructions, a portable fallback with identical results and only a
// throughput difference.
const groupWidth = 16

// group is a 16-byte metadata window loaded from idx via the clone region,
// held as two little-endian words: lo covers offsets 0-7 and hi covers
// offsets 8-15. forEachMatch and anyEqual scan both with bitset.MarkEqual.
type group struct {
	lo, hi uint64
}

func loadGroup(meta []byte, idx int) group {
	return group{
		lo: binary.LittleEndian.Uint64(meta[idx : idx+8]),
		hi: binary.LittleEndian.Uint64(meta[idx+8 : idx+16]),
	}
}

// forEachMatch calls fn with each byte offset in [0, groupWidth) that
// bitset.MarkEqual marks for b, in ascending order, stopping early if fn
// returns true. That is every byte equal to b, plus possibly a byte equal
// to b^1 directly above one; for a fingerprint b such an offset holds a
// FULL slot whose key the caller's equality check rejects. Returns true if
// fn ever returned true.
func (g group) forEachMatch(b byte, fn func(offset int) bool) bool {
	lo := bitset.MarkEqual(g.lo, b)
	for lo != 0 {
		i := bitset.FirstMarkedByteIndex(lo)
		lo &= lo - 1
		if fn(i) {
			return true
		}
	}
	hi := bitset.MarkEqual(g.hi, b)
	for hi != 0 {
		i := bitset.FirstMarkedByteIndex(hi)
		hi &= hi - 1
		if fn(8 + i) {
			return true
		}
	}
	return false
}

// anyEqual reports whether any byte in the group equals b.
func (g group) anyEqual(b byte) bool {
	return bitset.MarkEqual(g.lo, b) != 0 || bitset.MarkEqual(g.hi, b) != 0
}

// h1 is the starting probe slot for a 64-bit hash over a table of the
// given capacity (a power of two).
func h1(h uint64, capacity int) int {
	return int(h & uint64(capacity-1))
}

// h2 is the 7-bit fingerprint stored in a FULL metadata byte.
func h2(h uint64) byte {
	return byte(h>>57) & h2Mask
}

// capacityForSize returns the smallest power-of-two capacity, at least
// minCapacity, whose max-load-adjusted budget can hold size live entries.
func capacityForSize(size int) int {
	c := bitset.NextPowOf2(size*100/MaxLoadPercentage + 1)
	if c < minCapacity {
		c = minCapacity
	}
	return c
}
