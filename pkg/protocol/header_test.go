package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitDecodeHeaderSeq0V2(t *testing.T) {
	ps := &PacketState{
		Version:           Version2,
		PayloadType:       PayloadTypeSequential,
		PacketSequenceNum: 0,
		PayloadNum:        7,
		PacketID:          1234,
		Seq0: &Seq0Fields{
			TotalPayloadSize:    9000,
			MaxLatencyMicrosecs: 50000,
			OriginationPTP:      PTPTimestamp{Seconds: 100, Nanoseconds: 200},
			PayloadUserData:     0xdeadbeefcafebabe,
			ExtraData:           []byte{1, 2, 3, 4},
		},
	}

	buf := make([]byte, 128)
	n, err := InitHeader(buf, ps)
	require.NoError(t, err)

	h, consumed, err := DecodeHeader(Version2, buf[:n])
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	require.Equal(t, uint32(7), h.PayloadNum)
	require.Equal(t, uint16(0), h.PacketSequenceNum)
	require.NotNil(t, h.Seq0)
	require.Equal(t, uint32(9000), h.Seq0.TotalPayloadSize)
	require.Equal(t, uint64(50000), h.Seq0.MaxLatencyMicrosecs)
	require.Equal(t, []byte{1, 2, 3, 4}, h.Seq0.ExtraData)
	require.Equal(t, uint64(0xdeadbeefcafebabe), h.Seq0.PayloadUserData)
}

func TestInitDecodeHeaderV1DataOffset(t *testing.T) {
	ps := &PacketState{
		Version:           Version1,
		PayloadType:       PayloadTypeDataOffset,
		PacketSequenceNum: 3,
		PayloadNum:        42,
		PayloadDataOffset: 6000,
	}

	buf := make([]byte, 32)
	n, err := InitHeader(buf, ps)
	require.NoError(t, err)
	require.Equal(t, v1CommonHeaderSize+dataOffsetSize, n)

	h, _, err := DecodeHeader(Version1, buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint32(42), h.PayloadNum)
	require.Equal(t, uint32(6000), h.PayloadDataOffset)
	require.Equal(t, PayloadTypeDataOffset, h.PayloadType)
}

func TestInitHeaderBufferTooSmall(t *testing.T) {
	ps := &PacketState{
		Version:           Version1,
		PayloadType:       PayloadTypeSequential,
		PacketSequenceNum: 1,
		PayloadNum:        1,
	}

	buf := make([]byte, 1)
	_, err := InitHeader(buf, ps)
	require.Error(t, err)
}

func TestDecodeHeaderTooSmall(t *testing.T) {
	_, _, err := DecodeHeader(Version1, []byte{0, 0})
	require.Error(t, err)
}

func TestRxReorderInfo(t *testing.T) {
	ps := &PacketState{
		Version:           Version2,
		PayloadType:       PayloadTypeSequential,
		PacketSequenceNum: 5,
		PayloadNum:        9,
		PacketID:          1,
	}
	buf := make([]byte, 32)
	n, err := InitHeader(buf, ps)
	require.NoError(t, err)

	info, err := RxReorderInfo(Version2, buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint32(9), info.PayloadNum)
	require.Equal(t, uint16(5), info.SeqNum)
}

func TestPayloadNumWrapMax(t *testing.T) {
	require.Equal(t, uint32(255), Version1.PayloadNumMax())
	require.Equal(t, uint32(65535), Version2.PayloadNumMax())
}

func TestExtraDataSizeClampRejected(t *testing.T) {
	ps := &PacketState{
		Version:           Version2,
		PayloadType:       PayloadTypeSequential,
		PacketSequenceNum: 0,
		PayloadNum:        1,
		Seq0: &Seq0Fields{
			TotalPayloadSize: 10,
			ExtraData:        []byte{1, 2},
		},
	}
	buf := make([]byte, 128)
	n, err := InitHeader(buf, ps)
	require.NoError(t, err)

	// corrupt extra_data_size to claim far more than the buffer holds.
	extraSizePos := v2CommonHeaderSize + 4 + 8 + 4 + 4 + 8
	buf[extraSizePos] = 0xFF
	buf[extraSizePos+1] = 0xFF

	_, _, err = DecodeHeader(Version2, buf[:n])
	require.Error(t, err)
}
