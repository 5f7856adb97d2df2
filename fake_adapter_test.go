package cdixfer

import "sync"

// fakeAdapter records every packet submitted to it, copying the wire
// fragments since the packetizer reuses its header scratch buffers after
// Submit returns.
type fakeAdapter struct {
	mu      sync.Mutex
	packets [][]byte
	failN   int // when > 0, the next Submit call fails and decrements this
}

func (a *fakeAdapter) Submit(fragments [][]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failN > 0 {
		a.failN--
		return errQueueFullTest
	}

	var total int
	for _, f := range fragments {
		total += len(f)
	}
	pkt := make([]byte, 0, total)
	for _, f := range fragments {
		pkt = append(pkt, f...)
	}
	a.packets = append(a.packets, pkt)
	return nil
}

func (a *fakeAdapter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.packets)
}

type fakeAdapterError struct{}

func (fakeAdapterError) Error() string { return "fake adapter submit failure" }

var errQueueFullTest = fakeAdapterError{}
