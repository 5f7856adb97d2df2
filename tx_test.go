package cdixfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/sgl"
)

func dataList(sizes ...int) *sgl.List {
	l := &sgl.List{}
	val := byte(0)
	for _, s := range sizes {
		b := make([]byte, s)
		for i := range b {
			b[i] = val
			val++
		}
		l.Append(&sgl.Fragment{Bytes: b})
	}
	return l
}

func TestTxPayloadRejectedInMultiEndpointMode(t *testing.T) {
	c, err := NewConnection(Config{MaxPacketDataSize: 1000, MultiEndpoint: true})
	require.NoError(t, err)
	defer c.Close()

	err = c.TxPayload(TxPayloadConfig{Data: dataList(10)})
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrInvalidHandle{}, err)
}

func TestEndpointTxPayloadRejectedInSingleEndpointMode(t *testing.T) {
	c, err := NewConnection(Config{MaxPacketDataSize: 1000, Adapter: &fakeAdapter{}})
	require.NoError(t, err)
	defer c.Close()

	err = c.EndpointTxPayload("cam1", TxPayloadConfig{Data: dataList(10)})
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrInvalidHandle{}, err)
}

func TestTxPayloadAssignsSequentialPayloadNumbers(t *testing.T) {
	a := &fakeAdapter{}
	done := make(chan *TxResult, 8)
	c, err := NewConnection(Config{
		Version:           protocol.Version1,
		MaxPacketDataSize: 1000,
		Adapter:           a,
		OnTxDone:          func(r *TxResult) { done <- r },
	})
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.TxPayload(TxPayloadConfig{UnitSize: 1, Data: dataList(4)}))
	}

	for i := uint32(0); i < 3; i++ {
		r := <-done
		require.Equal(t, i, r.PayloadNum)
		require.Equal(t, TxStatusOK, r.Status)
	}
}

func TestTxPayloadWrapsPayloadNumAtVersionMax(t *testing.T) {
	a := &fakeAdapter{}
	c, err := NewConnection(Config{
		Version:           protocol.Version1,
		MaxPacketDataSize: 1000,
		Adapter:           a,
	})
	require.NoError(t, err)
	defer c.Close()

	ep, err := c.endpoint(defaultEndpointID)
	require.NoError(t, err)
	ep.nextPayloadNum = 255

	require.NoError(t, c.TxPayload(TxPayloadConfig{UnitSize: 1, Data: dataList(1)}))
	require.Equal(t, uint32(0), ep.nextPayloadNum)

	hdr, _, err := protocol.DecodeHeader(protocol.Version1, a.packets[0])
	require.NoError(t, err)
	require.Equal(t, uint32(255), hdr.PayloadNum)
}

func TestTxPayloadReportsLateWhenAdapterExceedsDeadline(t *testing.T) {
	a := &fakeAdapter{}
	done := make(chan *TxResult, 1)
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 1000,
		Adapter:           a,
		OnTxDone:          func(r *TxResult) { done <- r },
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.TxPayload(TxPayloadConfig{
		UnitSize: 1, Data: dataList(1),
		MaxLatencyMicrosecs: 1,
	})
	require.NoError(t, err)

	r := <-done
	// a 1-microsecond deadline is already behind by the time the
	// packetizer returns, on any real scheduler.
	require.Equal(t, TxStatusLate, r.Status)
}

func TestTxPayloadPropagatesAdapterFailureWithoutCompletion(t *testing.T) {
	a := &fakeAdapter{failN: 1}
	called := false
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 1000,
		Adapter:           a,
		OnTxDone:          func(r *TxResult) { called = true },
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.TxPayload(TxPayloadConfig{UnitSize: 1, Data: dataList(1)})
	require.Error(t, err)
	require.Equal(t, 0, a.count())
	require.False(t, called)
}

func TestTxPayloadEncodesStreamIdentifierAndConfig(t *testing.T) {
	a := &fakeAdapter{}
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 1000,
		Adapter:           a,
	})
	require.NoError(t, err)
	defer c.Close()

	cfg := &GenericConfig{URI: "https://example.com/x", Data: []byte("k=v")}
	require.NoError(t, c.TxPayload(TxPayloadConfig{
		UnitSize: 1, Data: dataList(1),
		StreamIdentifier: 99, AVMConfig: cfg,
	}))

	hdr, _, err := protocol.DecodeHeader(protocol.Version2, a.packets[0])
	require.NoError(t, err)
	require.NotNil(t, hdr.Seq0)

	streamID, decoded, err := decodeAVMExtraData(hdr.Seq0.ExtraData)
	require.NoError(t, err)
	require.Equal(t, uint16(99), streamID)
	require.Equal(t, cfg, decoded)
}
