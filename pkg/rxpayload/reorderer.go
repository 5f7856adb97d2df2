// Package rxpayload implements the Receive Payload Reorderer of spec
// §4.6: the per-endpoint array of in-progress payload states that
// delivers completed (or failed) payloads to the application in
// payload_num order.
package rxpayload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/cdixfer/internal/logging"
	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/pool"
	"github.com/bluenviron/cdixfer/pkg/rxpacket"
)

// Config configures an Endpoint. ArraySize must be a power of two and
// should exceed WindowSize (spec §4.6's "payload_state_array[1 << k]
// sized to exceed MAX_RX_PAYLOAD_OUT_OF_ORDER_BUFFER").
type Config struct {
	ArraySize       uint32
	WindowSize      uint32
	PayloadNumMax   uint32
	MaxPacketWindow uint64

	StatePool *pool.Pool
	RunPool   *pool.Pool
	FragPool  *pool.Pool
	Output    *Queue
	Router    *logging.Router
}

// Endpoint holds the reassembly state for every in-flight payload on one
// receive endpoint.
type Endpoint struct {
	mu sync.Mutex

	array []*PayloadState
	mask  uint32

	currentIndex  uint32
	payloadNumMax uint32
	windowSize    uint32

	bufferedPacketCount uint64
	maxPacketWindow     uint64
	totalPacketCount    uint64

	ignored map[uint32]struct{}

	statePool *pool.Pool
	runPool   *pool.Pool
	fragPool  *pool.Pool

	output *Queue
	router *logging.Router
}

// NewEndpoint allocates an Endpoint from cfg.
func NewEndpoint(cfg Config) (*Endpoint, error) {
	if cfg.ArraySize == 0 || (cfg.ArraySize&(cfg.ArraySize-1)) != 0 {
		return nil, fmt.Errorf("rxpayload: array size must be a power of two")
	}
	if cfg.WindowSize == 0 || cfg.WindowSize > cfg.ArraySize {
		return nil, fmt.Errorf("rxpayload: window size must be positive and at most array size")
	}

	return &Endpoint{
		array:           make([]*PayloadState, cfg.ArraySize),
		mask:            cfg.ArraySize - 1,
		payloadNumMax:   cfg.PayloadNumMax,
		windowSize:      cfg.WindowSize,
		maxPacketWindow: cfg.MaxPacketWindow,
		ignored:         make(map[uint32]struct{}),
		statePool:       cfg.StatePool,
		runPool:         cfg.RunPool,
		fragPool:        cfg.FragPool,
		output:          cfg.Output,
		router:          cfg.Router,
	}, nil
}

// Stats is a point-in-time snapshot of endpoint counters, surfaced by
// the facade's StatsSnapshot (spec §9 supplemental feature).
type Stats struct {
	CurrentIndex        uint32
	BufferedPacketCount uint64
	TotalPacketCount    uint64
	IgnoredCount        int
}

// Stats returns a snapshot of the endpoint's bookkeeping counters.
func (e *Endpoint) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		CurrentIndex:        e.currentIndex,
		BufferedPacketCount: e.bufferedPacketCount,
		TotalPacketCount:    e.totalPacketCount,
		IgnoredCount:        len(e.ignored),
	}
}

func (e *Endpoint) modulus() uint32 {
	return e.payloadNumMax + 1
}

func (e *Endpoint) inWindowLocked(payloadNum uint32) bool {
	modulus := e.modulus()
	dist := (payloadNum + modulus - e.currentIndex) % modulus
	return dist < e.windowSize
}

// advanceIndexLocked moves currentIndex to the next payload_num, wrapping
// at payloadNumMax+1 the same way the wire field itself wraps.
func (e *Endpoint) advanceIndexLocked() {
	e.currentIndex = (e.currentIndex + 1) % e.modulus()
}

// lookupOrCreate returns the slot for payloadNum, creating it if absent,
// per spec §4.6's lookup_or_create. ignore is true when the payload
// cannot be tracked (out of window) and must only be byte-accounted.
func (e *Endpoint) lookupOrCreate(payloadNum uint32) (st *PayloadState, ignore bool, err error) {
	idx := payloadNum & e.mask

	if slot := e.array[idx]; slot != nil {
		if slot.PayloadNum == payloadNum {
			return slot, false, nil
		}
		// Wrap collision: a new payload wants this slot while an old one
		// still lingers in it. Force the old one to Error and deliver it
		// immediately, out of the normal in-order drain.
		e.evictForCollisionLocked(idx, slot, payloadNum)
	}

	if _, skip := e.ignored[payloadNum]; skip {
		return nil, true, nil
	}

	if !e.inWindowLocked(payloadNum) {
		e.ignored[payloadNum] = struct{}{}
		return nil, true, nil
	}

	item, err := e.statePool.Get()
	if err != nil {
		return nil, false, err
	}
	st = item.(*PayloadState)
	*st = PayloadState{PayloadNum: payloadNum, State: StateInProgress, StartTime: time.Now()}
	e.array[idx] = st

	return st, false, nil
}

func (e *Endpoint) evictForCollisionLocked(idx uint32, old *PayloadState, newPayloadNum uint32) {
	e.bufferedPacketCount -= uint64(old.BufferedFragments)
	old.BufferedFragments = 0
	old.State = StateError
	old.ErrorReason = fmt.Sprintf("evicted by wrap collision with payload %d", newPayloadNum)
	e.router.Warn(logrus.Fields{"payload_num": old.PayloadNum, "evicted_by": newPayloadNum},
		&liberrors.ErrInvalidPayload{Reason: old.ErrorReason})
	e.deliverLocked(idx, old)
}

func (e *Endpoint) forceErrorLocked(st *PayloadState, reason string) {
	e.bufferedPacketCount -= uint64(st.BufferedFragments)
	rxpacket.Release(&st.Runs, e.fragPool, e.runPool)
	st.BufferedFragments = 0
	st.State = StateError
	st.ErrorReason = reason
}

// Ingest attaches one packet fragment to its payload's reassembly state
// and drains whatever is now ready for in-order delivery (spec §4.6
// "ingest").
func (e *Endpoint) Ingest(pkt Packet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.totalPacketCount++

	st, ignore, err := e.lookupOrCreate(pkt.PayloadNum)
	if err != nil {
		return err
	}
	if ignore {
		e.sendReadyPayloadsLocked()
		return nil
	}

	if st.State == StateError {
		e.sendReadyPayloadsLocked()
		return nil
	}

	if pkt.IsSeq0 {
		st.TotalPayloadSize = pkt.TotalPayloadSize
		st.MaxLatencyMicrosecs = pkt.MaxLatencyMicrosecs
		st.Seq0Seen = true
	}

	// The window is full when the count already equals the limit before
	// this packet is accounted; the packet then errors its payload.
	if e.bufferedPacketCount+1 > e.maxPacketWindow {
		e.router.Warn(logrus.Fields{"payload_num": pkt.PayloadNum},
			&liberrors.ErrArraySizeExceeded{What: "rxreorder_buffered_packet_count", Limit: int(e.maxPacketWindow)})
		e.forceErrorLocked(st, "rx packet reorder window exceeded")
	} else {
		outcome, insertErr := rxpacket.Insert(&st.Runs, e.runPool, pkt.SeqNum, pkt.Fragment)
		switch {
		case insertErr != nil:
			e.router.Error(logrus.Fields{"payload_num": pkt.PayloadNum}, insertErr)
			e.forceErrorLocked(st, fmt.Sprintf("reorder pool exhausted: %v", insertErr))
		case outcome == rxpacket.OutcomeDuplicate:
			e.fragPool.Put(pkt.Fragment)
			e.router.Warn(logrus.Fields{"payload_num": pkt.PayloadNum, "seq_num": pkt.SeqNum},
				&liberrors.ErrInvalidPayload{Reason: "duplicate packet sequence number"})
		default:
			e.bufferedPacketCount++
			st.BufferedFragments++
			st.DataBytesReceived += uint32(len(pkt.Fragment.Bytes))

			if st.Seq0Seen && rxpacket.Complete(&st.Runs, st.DataBytesReceived, st.TotalPayloadSize) {
				st.State = StateComplete
			}
		}
	}

	e.sendReadyPayloadsLocked()
	return nil
}

// sendReadyPayloadsLocked implements spec §4.6's send_ready_payloads.
func (e *Endpoint) sendReadyPayloadsLocked() {
	for {
		idx := e.currentIndex & e.mask
		slot := e.array[idx]

		if slot == nil {
			if _, wasIgnored := e.ignored[e.currentIndex]; wasIgnored {
				delete(e.ignored, e.currentIndex)
				e.advanceIndexLocked()
				continue
			}
			return
		}

		if slot.PayloadNum != e.currentIndex {
			// The slot holds a different, still-in-flight payload number
			// that has not yet reached currentIndex; nothing to drain.
			return
		}

		switch slot.State {
		case StateComplete, StateError:
			e.deliverLocked(idx, slot)
			e.advanceIndexLocked()

		case StateIgnore:
			e.array[idx] = nil
			e.statePool.Put(slot)
			e.advanceIndexLocked()

		case StateInProgress:
			if slot.MaxLatencyMicrosecs > 0 &&
				time.Since(slot.StartTime) > time.Duration(slot.MaxLatencyMicrosecs)*time.Microsecond {
				slot.State = StateError
				slot.ErrorReason = "timeout"
				e.bufferedPacketCount -= uint64(slot.BufferedFragments)
				rxpacket.Release(&slot.Runs, e.fragPool, e.runPool)
				slot.BufferedFragments = 0
				e.deliverLocked(idx, slot)
				e.advanceIndexLocked()
				continue
			}
			return
		}
	}
}

// Teardown releases every in-flight payload's buffered runs and state
// record back to the pools, per spec §5's "In-flight payloads in the
// reorderers are released to pools during teardown." It does not close
// the output queue; call CloseOutput separately once every producer
// (Ingest caller) has stopped.
func (e *Endpoint) Teardown(fragPool, runPool, statePool *pool.Pool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for idx, slot := range e.array {
		if slot == nil {
			continue
		}
		rxpacket.Release(&slot.Runs, fragPool, runPool)
		statePool.Put(slot)
		e.array[idx] = nil
	}
	e.ignored = map[uint32]struct{}{}
}

// CloseOutput makes every blocked and future Pull on the endpoint's
// delivery queue return false, unblocking the RX delivery goroutine.
func (e *Endpoint) CloseOutput() {
	e.output.Close()
}

// PullDelivery blocks until a Delivery is available, the endpoint's
// output queue is closed, or ctx is done. It is how the RX delivery
// thread of spec §5 drains one endpoint's completed payloads.
func (e *Endpoint) PullDelivery(ctx context.Context) (*Delivery, bool) {
	return e.output.Pull(ctx)
}

// deliverLocked hands slot's runs to the output queue and returns the
// slot itself to the pool. The caller must already have settled
// bufferedPacketCount for slot (subtracting BufferedFragments and
// zeroing it) on every path that forces an early Error; a payload that
// reaches here still Complete has not been accounted for yet, so it is
// subtracted here instead, once, as it leaves the in-flight set.
func (e *Endpoint) deliverLocked(idx uint32, slot *PayloadState) {
	e.bufferedPacketCount -= uint64(slot.BufferedFragments)
	slot.BufferedFragments = 0

	d := &Delivery{
		PayloadNum:  slot.PayloadNum,
		State:       slot.State,
		Runs:        slot.Runs,
		ErrorReason: slot.ErrorReason,
	}
	slot.Runs = rxpacket.RunList{}
	e.array[idx] = nil

	if !e.output.Push(d) {
		e.router.Warn(logrus.Fields{"payload_num": d.PayloadNum},
			fmt.Errorf("rx output queue full, dropping delivery"))
		rxpacket.Release(&d.Runs, e.fragPool, e.runPool)
	}

	e.statePool.Put(slot)
}
