package txpacketizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderBuffersRoundRobin(t *testing.T) {
	h := NewHeaderBuffers(2, 4)

	b := h.Next()
	copy(b, []byte{1, 2, 3, 4})

	b = h.Next()
	copy(b, []byte{5, 6, 7, 8})

	b = h.Next()
	require.Equal(t, []byte{1, 2, 3, 4}, b)

	b = h.Next()
	require.Equal(t, []byte{5, 6, 7, 8}, b)
}
