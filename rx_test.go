package cdixfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/cdixfer/pkg/baseline"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/rxpayload"
)

// txPackets runs one payload through a throwaway TX-only connection and
// returns the raw wire packets it produced, so RX tests can exercise
// ReceivePacket against bytes the real packetizer generated.
func txPackets(t *testing.T, cfg TxPayloadConfig) [][]byte {
	t.Helper()

	a := &fakeAdapter{}
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           a,
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.TxPayload(cfg))

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]byte, len(a.packets))
	copy(out, a.packets)
	return out
}

func TestReceivePacketSimpleInOrderDelivery(t *testing.T) {
	packets := txPackets(t, TxPayloadConfig{UnitSize: 1, Data: dataList(3000, 3000, 3000)})
	require.Len(t, packets, 3)

	deliveries := make(chan *RxDelivery, 1)
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           &fakeAdapter{},
		OnRxPayload:       func(d *RxDelivery) { deliveries <- d },
	})
	require.NoError(t, err)
	defer c.Close()

	for _, pkt := range packets {
		require.NoError(t, c.ReceivePacket(defaultEndpointID, pkt))
	}

	d := <-deliveries
	defer d.Free()
	require.Equal(t, rxpayload.StateComplete, d.State)
	require.Equal(t, 9000, d.SGL.Total)
}

func TestReceivePacketReordersOutOfOrderArrival(t *testing.T) {
	packets := txPackets(t, TxPayloadConfig{UnitSize: 1, Data: dataList(3000, 3000, 3000)})
	require.Len(t, packets, 3)

	deliveries := make(chan *RxDelivery, 1)
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           &fakeAdapter{},
		OnRxPayload:       func(d *RxDelivery) { deliveries <- d },
	})
	require.NoError(t, err)
	defer c.Close()

	order := []int{2, 0, 1}
	for _, i := range order {
		require.NoError(t, c.ReceivePacket(defaultEndpointID, packets[i]))
	}

	d := <-deliveries
	defer d.Free()
	require.Equal(t, rxpayload.StateComplete, d.State)
	require.Equal(t, 9000, d.SGL.Total)
}

func TestReceivePacketDeliversStreamIdentifierAndUserData(t *testing.T) {
	packets := txPackets(t, TxPayloadConfig{
		UnitSize: 1, Data: dataList(4),
		StreamIdentifier: 17, PayloadUserData: 0xabcd,
	})
	require.Len(t, packets, 1)

	deliveries := make(chan *RxDelivery, 1)
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           &fakeAdapter{},
		OnRxPayload:       func(d *RxDelivery) { deliveries <- d },
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.ReceivePacket(defaultEndpointID, packets[0]))

	d := <-deliveries
	defer d.Free()
	require.Equal(t, uint16(17), d.StreamIdentifier)
	require.Equal(t, uint64(0xabcd), d.PayloadUserData)
	require.Equal(t, AVMPayloadTypeNone, d.AVMPayloadType)
}

func TestReceivePacketAttachesConfigOnlyWhenChanged(t *testing.T) {
	cfg := BaselineVideoConfig(baseline.VideoConfig{
		Version: baseline.ProfileVersion{Major: 1, Minor: 0},
		Width:   1920, Height: 1080,
		Sampling: baseline.SamplingYCbCr422, Depth: 10,
		FrameRateNum: 30, FrameRateDen: 1,
		Colorimetry: baseline.ColorimetryBT709,
	})

	txAdapter := &fakeAdapter{}
	txConn, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           txAdapter,
	})
	require.NoError(t, err)
	defer txConn.Close()

	require.NoError(t, txConn.TxPayload(TxPayloadConfig{UnitSize: 1, Data: dataList(1), StreamIdentifier: 5, AVMConfig: cfg}))
	require.NoError(t, txConn.TxPayload(TxPayloadConfig{UnitSize: 1, Data: dataList(1), StreamIdentifier: 5, AVMConfig: cfg}))
	require.Len(t, txAdapter.packets, 2)
	firstPacket, secondPacket := txAdapter.packets[0], txAdapter.packets[1]

	deliveries := make(chan *RxDelivery, 2)
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           &fakeAdapter{},
		OnRxPayload:       func(d *RxDelivery) { deliveries <- d },
	})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.ReceivePacket(defaultEndpointID, firstPacket))
	d1 := <-deliveries
	require.Equal(t, AVMPayloadTypeVideo, d1.AVMPayloadType)
	require.NotNil(t, d1.AVMConfig)
	d1.Free()

	require.NoError(t, c.ReceivePacket(defaultEndpointID, secondPacket))
	d2 := <-deliveries
	require.Equal(t, AVMPayloadTypeVideo, d2.AVMPayloadType)
	require.Nil(t, d2.AVMConfig)
	d2.Free()
}

func TestReceivePacketMalformedHeaderIsAbsorbed(t *testing.T) {
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 3000,
		Adapter:           &fakeAdapter{},
	})
	require.NoError(t, err)
	defer c.Close()

	err = c.ReceivePacket(defaultEndpointID, []byte{1, 2})
	require.NoError(t, err)
}
