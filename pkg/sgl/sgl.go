// Package sgl implements the scatter-gather list, the universal data
// container of the transport: an ordered sequence of (pointer, length)
// fragments with a cached total length (spec §3, §4.2).
package sgl

import (
	"fmt"

	"github.com/bluenviron/cdixfer/pkg/pool"
)

// Fragment is one node of a scatter-gather list: a byte slice and a
// forward link. Fragments may be externally owned (they wrap adapter
// receive buffers); FreeFragments returns the nodes to a pool without
// touching the bytes they point at.
type Fragment struct {
	Bytes []byte
	next  *Fragment
}

// List is a singly-linked list of fragments with cached head, tail and
// total size, matching spec §3's SGL invariants: total size equals the
// sum of fragment lengths; tail's forward link is nil; a non-empty list
// has a non-nil head and tail; an empty list has both nil.
type List struct {
	Head  *Fragment
	Tail  *Fragment
	Total int
}

// Append adds a fragment at the tail in O(1) and updates Total.
func (l *List) Append(f *Fragment) {
	f.next = nil

	if l.Tail == nil {
		l.Head = f
		l.Tail = f
	} else {
		l.Tail.next = f
		l.Tail = f
	}

	l.Total += len(f.Bytes)
}

// Prepend adds a fragment at the head in O(1) and updates Total.
func (l *List) Prepend(f *Fragment) {
	f.next = l.Head

	if l.Head == nil {
		l.Tail = f
	}
	l.Head = f

	l.Total += len(f.Bytes)
}

// SpliceAfter appends the contents of other onto l in O(1), leaving other
// empty. Used by the packet reorderer (spec §4.5) to merge adjacent runs.
func (l *List) SpliceAfter(other *List) {
	if other.Head == nil {
		return
	}

	if l.Tail == nil {
		l.Head = other.Head
	} else {
		l.Tail.next = other.Head
	}
	l.Tail = other.Tail
	l.Total += other.Total

	other.Head = nil
	other.Tail = nil
	other.Total = 0
}

// Empty reports whether the list has no fragments.
func (l *List) Empty() bool {
	return l.Head == nil
}

// FreeFragments returns every fragment node in the list to p and resets
// the list to empty (spec §4.2 "free_fragments").
func FreeFragments(p *pool.Pool, l *List) {
	f := l.Head
	for f != nil {
		next := f.next
		f.next = nil
		p.Put(f)
		f = next
	}
	l.Head = nil
	l.Tail = nil
	l.Total = 0
}

// Gather copies count bytes starting at byte offset from the list into
// dest, returning the number of bytes actually copied. It returns an
// error if [offset, offset+count) falls outside the list (spec §4.2).
func (l *List) Gather(offset int, dest []byte, count int) (int, error) {
	if offset < 0 || count < 0 || offset+count > l.Total {
		return 0, fmt.Errorf("sgl: gather range [%d,%d) out of bounds (total %d)", offset, offset+count, l.Total)
	}
	if len(dest) < count {
		return 0, fmt.Errorf("sgl: destination too small: need %d, have %d", count, len(dest))
	}

	copied := 0
	pos := 0
	for f := l.Head; f != nil && copied < count; f = f.next {
		flen := len(f.Bytes)
		fragEnd := pos + flen

		if fragEnd > offset {
			start := 0
			if pos < offset {
				start = offset - pos
			}
			end := flen
			if fragEnd > offset+count {
				end = offset + count - pos
			}

			n := copy(dest[copied:], f.Bytes[start:end])
			copied += n
		}

		pos = fragEnd
	}

	return copied, nil
}

// SliceRange returns the byte slices covering [offset, offset+count) in
// order, without copying: each returned slice aliases the underlying
// fragment bytes it comes from, so a range that spans N fragment
// boundaries yields N (or fewer) slices rather than one. Used by the
// transmit packetizer (spec §4.4 "does not copy payload bytes") to hand
// a unit_size-aligned packet slice straight to the adapter's vectorized
// submit operation.
func (l *List) SliceRange(offset, count int) ([][]byte, error) {
	if offset < 0 || count < 0 || offset+count > l.Total {
		return nil, fmt.Errorf("sgl: range [%d,%d) out of bounds (total %d)", offset, offset+count, l.Total)
	}

	var out [][]byte
	pos := 0
	for f := l.Head; f != nil && pos < offset+count; f = f.next {
		flen := len(f.Bytes)
		fragEnd := pos + flen

		if fragEnd > offset {
			start := 0
			if pos < offset {
				start = offset - pos
			}
			end := flen
			if fragEnd > offset+count {
				end = offset + count - pos
			}
			out = append(out, f.Bytes[start:end])
		}

		pos = fragEnd
	}

	return out, nil
}

// ForEachFragment walks the list in order, calling fn for each fragment's
// bytes, without copying them.
func (l *List) ForEachFragment(fn func(b []byte)) {
	for f := l.Head; f != nil; f = f.next {
		fn(f.Bytes)
	}
}
