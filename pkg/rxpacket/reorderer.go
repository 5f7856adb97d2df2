// Package rxpacket implements the Receive Packet Reorderer of spec
// §4.5: the per-payload run list that merges out-of-order packet
// fragments into contiguous sequence-number runs.
package rxpacket

import (
	"github.com/bluenviron/cdixfer/pkg/pool"
	"github.com/bluenviron/cdixfer/pkg/sgl"
)

// Run is one contiguous span of packet sequence numbers whose fragments
// have all arrived, kept in a doubly-linked list sorted by sequence
// number (spec §4.5).
type Run struct {
	Top, Bot uint16
	SGL      sgl.List

	prev, next *Run
}

// RunList is the sorted, doubly-linked run list for one in-progress
// payload.
type RunList struct {
	head, tail *Run
	count      int
}

// Count returns the number of runs currently in the list. A fully
// in-order payload settles to exactly one run.
func (l *RunList) Count() int {
	return l.count
}

// Head returns the first run in sequence-number order, or nil if the
// list is empty.
func (l *RunList) Head() *Run {
	return l.head
}

func (l *RunList) insertBefore(mark, n *Run) {
	n.prev = mark.prev
	n.next = mark
	if mark.prev != nil {
		mark.prev.next = n
	} else {
		l.head = n
	}
	mark.prev = n
	l.count++
}

func (l *RunList) pushBack(n *Run) {
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.count++
}

func (l *RunList) unlink(n *Run) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.count--
}

// Outcome reports what Insert did with a packet, driving the bookkeeping
// spec §4.6 layers on top (payload completion and byte accounting).
type Outcome int

// Insert outcomes.
const (
	// OutcomeAppended means the fragment extended or created a run.
	OutcomeAppended Outcome = iota
	// OutcomeDuplicate means the sequence number was already covered by
	// an existing run; the fragment was dropped and should be released
	// to its pool by the caller.
	OutcomeDuplicate
)

// Insert places a packet fragment into the run list per spec §4.5's
// four-step algorithm: locate, reject duplicates, extend-or-create, and
// merge adjacent runs. runPool supplies new Run nodes and takes back the
// Run node that a merge absorbs.
func Insert(l *RunList, runPool *pool.Pool, seq uint16, frag *sgl.Fragment) (Outcome, error) {
	// Walk forward to find the first run whose Top >= seq, or the tail.
	var at *Run
	for r := l.head; r != nil; r = r.next {
		if seqWithinOrBefore(seq, r) {
			at = r
			break
		}
	}

	if at != nil && seq >= at.Bot && seq <= at.Top {
		return OutcomeDuplicate, nil
	}

	if at != nil && at.Bot > 0 && seq == at.Bot-1 {
		at.SGL.Prepend(frag)
		at.Bot = seq

		if prev := at.prev; prev != nil && prev.Top == seq-1 {
			prev.SGL.SpliceAfter(&at.SGL)
			prev.Top = at.Top
			l.unlink(at)
			runPool.Put(at)
		}
		return OutcomeAppended, nil
	}

	if at != nil && at.prev != nil && at.prev.Top < 0xFFFF && seq == at.prev.Top+1 {
		// seq == at.Bot-1 was already ruled out above, so seq+1 != at.Bot
		// here: extending prev can never also border at.
		prior := at.prev
		prior.SGL.Append(frag)
		prior.Top = seq
		return OutcomeAppended, nil
	}

	if at == nil && l.tail != nil && l.tail.Top < 0xFFFF && seq == l.tail.Top+1 {
		l.tail.SGL.Append(frag)
		l.tail.Top = seq
		return OutcomeAppended, nil
	}

	item, err := runPool.Get()
	if err != nil {
		return 0, err
	}
	n := item.(*Run)
	n.Top = seq
	n.Bot = seq
	n.SGL = sgl.List{}
	n.SGL.Append(frag)
	n.prev = nil
	n.next = nil

	if at != nil {
		l.insertBefore(at, n)
	} else {
		l.pushBack(n)
	}

	return OutcomeAppended, nil
}

// seqWithinOrBefore reports whether r is the first run at or past seq:
// either seq falls inside [r.Bot, r.Top], or seq sorts before r.Bot.
func seqWithinOrBefore(seq uint16, r *Run) bool {
	return seq <= r.Top
}

// Complete reports whether the run list represents a fully assembled
// payload: exactly one run, starting at sequence 0, whose accumulated
// byte count matches the declared total (spec §4.5).
func Complete(l *RunList, dataBytesReceived, totalPayloadSize uint32) bool {
	return l.count == 1 && l.head.Bot == 0 && dataBytesReceived == totalPayloadSize
}

// Release returns every run's fragments and node to their pools and
// empties the list, used when a payload is abandoned as Error (spec
// §4.5 "Failure on pool exhaustion").
func Release(l *RunList, fragPool, runPool *pool.Pool) {
	r := l.head
	for r != nil {
		next := r.next
		sgl.FreeFragments(fragPool, &r.SGL)
		r.prev = nil
		r.next = nil
		runPool.Put(r)
		r = next
	}
	l.head = nil
	l.tail = nil
	l.count = 0
}
