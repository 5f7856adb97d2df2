package cdixfer

// TxStatus is the outcome reported to OnTxDone for one transmitted
// payload (spec §4.4: "status is ok on ack before deadline, late when
// the adapter-reported completion time exceeds start_time +
// max_latency_microsecs, or an adapter error").
type TxStatus int

// TX completion statuses.
const (
	TxStatusOK TxStatus = iota
	TxStatusLate
	TxStatusError
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusOK:
		return "ok"
	case TxStatusLate:
		return "late"
	case TxStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// TxResult is the completion descriptor for one submitted payload (spec
// §4.4: "{user_cb_param, status, tx_start_time}").
type TxResult struct {
	UserCBParam          interface{}
	EndpointID           string
	PayloadNum           uint32
	Status               TxStatus
	TxStartTimeMicrosecs uint64
	Err                  error
}

// txCompletionQueue dispatches TX completions from a single dedicated
// goroutine, decoupling callback invocation from whichever application
// goroutine called TxPayload (spec §5: "TX completion thread
// (adapter-driven)... Callbacks are invoked from this thread"). Adapted
// from gortsplib's asyncProcessor, which pairs a bounded buffer with a
// dedicated drain goroutine to the same end; a channel stands in for the
// hand-rolled ring buffer since it already gives bounded capacity plus
// blocking wakeup.
type txCompletionQueue struct {
	ch        chan *TxResult
	chStopped chan struct{}
}

func newTxCompletionQueue(size int, onDone func(*TxResult)) *txCompletionQueue {
	q := &txCompletionQueue{
		ch:        make(chan *TxResult, size),
		chStopped: make(chan struct{}),
	}

	go func() {
		defer close(q.chStopped)
		for r := range q.ch {
			onDone(r)
		}
	}()

	return q
}

// push enqueues r, returning false if the completion queue is full. The
// payload itself was already handed to the adapter successfully at this
// point; a full completion queue only means the application is not
// draining OnTxDone fast enough, so the result is dropped rather than
// blocking the TX application thread.
func (q *txCompletionQueue) push(r *TxResult) bool {
	select {
	case q.ch <- r:
		return true
	default:
		return false
	}
}

func (q *txCompletionQueue) close() {
	close(q.ch)
	<-q.chStopped
}
