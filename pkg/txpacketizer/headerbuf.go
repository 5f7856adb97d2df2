package txpacketizer

// HeaderBuffers implements software multi-buffering for packet header
// scratch space: a fixed ring of byte buffers handed out round-robin so
// the packetizer never allocates a new header buffer per packet, while
// still giving the adapter's async submit enough buffers in flight that
// an earlier packet's header is not overwritten before it is sent.
type HeaderBuffers struct {
	count   uint64
	buffers [][]byte
	cur     uint64
}

// NewHeaderBuffers allocates count buffers of size bytes each.
func NewHeaderBuffers(count, size uint64) *HeaderBuffers {
	buffers := make([][]byte, count)
	for i := uint64(0); i < count; i++ {
		buffers[i] = make([]byte, size)
	}

	return &HeaderBuffers{
		count:   count,
		buffers: buffers,
	}
}

// Next returns the current buffer and advances to the next one.
func (h *HeaderBuffers) Next() []byte {
	ret := h.buffers[h.cur%h.count]
	h.cur++
	return ret
}
