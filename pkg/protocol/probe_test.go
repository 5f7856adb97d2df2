package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

func TestProbeRoundTrip(t *testing.T) {
	h := &ProbeHeader{
		SendersVersion:         2,
		Command:                ProbeCommandPing,
		SendersIP:              "10.0.0.5",
		SendersGID:             "gid-1234",
		SendersStreamName:      "camera-1",
		SendersControlDestPort: 48010,
		ControlPacketNum:       77,
		RequiresAck:            true,
	}

	buf := make([]byte, probeFixedSize)
	n, err := ProbeHeaderEncode(h, buf)
	require.NoError(t, err)
	require.Equal(t, probeFixedSize, n)

	decoded, err := ProbeHeaderDecode(buf)
	require.NoError(t, err)
	require.Equal(t, h.SendersVersion, decoded.SendersVersion)
	require.Equal(t, h.Command, decoded.Command)
	require.Equal(t, h.SendersIP, decoded.SendersIP)
	require.Equal(t, h.SendersGID, decoded.SendersGID)
	require.Equal(t, h.SendersStreamName, decoded.SendersStreamName)
	require.Equal(t, h.SendersControlDestPort, decoded.SendersControlDestPort)
	require.Equal(t, h.ControlPacketNum, decoded.ControlPacketNum)
	require.True(t, decoded.RequiresAck)
}

func TestProbeAckRoundTrip(t *testing.T) {
	h := &ProbeHeader{
		SendersVersion:      2,
		Command:             ProbeCommandAck,
		AckCommand:          ProbeCommandPing,
		AckControlPacketNum: 99,
	}

	buf := make([]byte, probeFixedSize)
	_, err := ProbeHeaderEncode(h, buf)
	require.NoError(t, err)

	decoded, err := ProbeHeaderDecode(buf)
	require.NoError(t, err)
	require.Equal(t, ProbeCommandPing, decoded.AckCommand)
	require.Equal(t, uint32(99), decoded.AckControlPacketNum)
}

func TestProbeCRCErrorOnBitFlip(t *testing.T) {
	h := &ProbeHeader{Command: ProbeCommandReset}
	buf := make([]byte, probeFixedSize)
	_, err := ProbeHeaderEncode(h, buf)
	require.NoError(t, err)

	buf[0] ^= 0x01

	_, err = ProbeHeaderDecode(buf)
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrProbePacketCRCError{}, err)
}

func TestProbeInvalidSize(t *testing.T) {
	_, err := ProbeHeaderDecode(make([]byte, 4))
	require.Error(t, err)
}

func TestKnownProbeCommand(t *testing.T) {
	require.True(t, IsKnownProbeCommand(ProbeCommandReset))
	require.False(t, IsKnownProbeCommand(ProbeCommand(200)))
}

func TestChecksumIdempotentRoundTrip(t *testing.T) {
	h := &ProbeHeader{
		SendersVersion:    1,
		Command:           ProbeCommandConnected,
		SendersStreamName: "s",
		RequiresAck:       false,
	}
	buf := make([]byte, probeFixedSize)
	_, err := ProbeHeaderEncode(h, buf)
	require.NoError(t, err)

	decoded, err := ProbeHeaderDecode(buf)
	require.NoError(t, err)
	require.Equal(t, h, decoded)

	flips := 0
	for bitIdx := 0; bitIdx < len(buf)*8; bitIdx++ {
		altered := append([]byte(nil), buf...)
		altered[bitIdx/8] ^= 1 << uint(bitIdx%8)
		_, err := ProbeHeaderDecode(altered)
		if err != nil {
			flips++
		}
	}
	// almost every single-bit flip must be caught by the checksum.
	require.Greater(t, flips, len(buf)*8-2)
}
