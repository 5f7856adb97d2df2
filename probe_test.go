package cdixfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := &ProbeHeader{
		SendersVersion:    2,
		Command:           ProbeCommandPing,
		SendersIP:         "192.0.2.1",
		SendersStreamName: "cam1",
		RequiresAck:       true,
	}

	buf := make([]byte, 512)
	n, err := EncodeProbeHeader(h, buf)
	require.NoError(t, err)

	decoded, err := DecodeProbeHeader(buf[:n])
	require.NoError(t, err)
	require.Equal(t, h.SendersIP, decoded.SendersIP)
	require.Equal(t, h.SendersStreamName, decoded.SendersStreamName)
	require.True(t, decoded.RequiresAck)
	require.True(t, IsKnownProbeCommand(decoded.Command))
}

func TestProbeHeaderDecodeRejectsBadChecksum(t *testing.T) {
	h := &ProbeHeader{Command: ProbeCommandReset}
	buf := make([]byte, 512)
	n, err := EncodeProbeHeader(h, buf)
	require.NoError(t, err)

	corrupted := append([]byte(nil), buf[:n]...)
	corrupted[0] ^= 0xFF

	_, err = DecodeProbeHeader(corrupted)
	require.Error(t, err)
}
