package cdixfer

import (
	"github.com/bluenviron/cdixfer/internal/logging"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/txpacketizer"
)

// Adapter is the vectorized submit operation a transmit endpoint drives
// (spec §1's out-of-scope collaborator, specified only as this narrow
// interface). Implementations typically wrap a libfabric or DPDK-style
// RDMA queue pair.
type Adapter = txpacketizer.Adapter

// defaults applied by NewConnection when the corresponding Config field
// is left at its zero value.
const (
	DefaultRxArraySize       = 64 // payloads in flight per endpoint; spec §6 "16-64"
	DefaultRxWindowSize      = 32
	DefaultRxMaxPacketWindow = 4096 // fragments; spec §6 "on the order of 1000s"
	DefaultRxQueueSize       = 64
	DefaultTxHeaderBufCount  = 8
	DefaultTxCompletionQueueSize = 64
)

// Config configures a Connection. All fields are optional except Adapter
// (or the per-endpoint adapters supplied later, in MultiEndpoint mode)
// and MaxPacketDataSize.
type Config struct {
	// Version is the negotiated protocol version used for every packet
	// on this connection. The probe/handshake state machine that
	// negotiates it is outside the core (spec §1); callers run their own
	// probe exchange and pass the result here.
	// It defaults to protocol.Version2.
	Version protocol.Version

	// MaxPacketDataSize bounds the data portion of a wire packet
	// (typically the path MTU minus header room). Required.
	MaxPacketDataSize int

	// MultiEndpoint selects endpoint_tx_payload semantics (spec §4.7):
	// TxPayload then always fails with ErrInvalidHandle, and callers
	// must address endpoints explicitly through EndpointTxPayload and
	// AddEndpoint. It defaults to false (single implicit endpoint,
	// reachable through TxPayload and through ReceivePacket with the empty
	// endpoint ID).
	MultiEndpoint bool

	// Adapter is the transmit adapter for the connection's single
	// implicit endpoint. Required unless MultiEndpoint is set.
	Adapter txpacketizer.Adapter

	// RxArraySize is the payload_state_array size per endpoint. Must be
	// a power of two. It defaults to DefaultRxArraySize.
	RxArraySize uint32

	// RxWindowSize bounds how far a payload_num may lead the endpoint's
	// current delivery position before it is ignored. It defaults to
	// DefaultRxWindowSize.
	RxWindowSize uint32

	// RxMaxPacketWindow bounds the number of buffered out-of-order
	// fragments across all in-flight payloads of one endpoint. It
	// defaults to DefaultRxMaxPacketWindow.
	RxMaxPacketWindow uint64

	// RxQueueSize is the depth of each endpoint's delivery queue. Must be
	// a power of two. It defaults to DefaultRxQueueSize.
	RxQueueSize uint64

	// TxHeaderBufCount is the size of the header scratch-buffer ring
	// shared by every endpoint's packetizer. It defaults to
	// DefaultTxHeaderBufCount.
	TxHeaderBufCount uint64

	// TxCompletionQueueSize bounds the number of TX completions allowed
	// to queue up for the completion-dispatch goroutine. It defaults to
	// DefaultTxCompletionQueueSize.
	TxCompletionQueueSize int

	// OnTxDone is invoked once per submitted payload from the
	// connection's dedicated TX completion goroutine (spec §5's "TX
	// completion thread"), except when TxCompletionQueueSize completions
	// are already waiting: that payload's result is then dropped and
	// OnTxDone is not called for it. May be nil.
	OnTxDone func(*TxResult)

	// OnRxPayload is invoked once per delivered payload from the
	// endpoint's RX delivery goroutine (spec §5's "RX delivery thread").
	// The callback must call d.Free() once it is done reading d.SGL.
	OnRxPayload func(*RxDelivery)

	// Router receives warnings and errors the core absorbs internally
	// (spec §7's propagation policy). May be nil, in which case the
	// process-wide default logger is used.
	Router *logging.Router
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = protocol.Version2
	}
	if c.RxArraySize == 0 {
		c.RxArraySize = DefaultRxArraySize
	}
	if c.RxWindowSize == 0 {
		c.RxWindowSize = DefaultRxWindowSize
	}
	if c.RxMaxPacketWindow == 0 {
		c.RxMaxPacketWindow = DefaultRxMaxPacketWindow
	}
	if c.RxQueueSize == 0 {
		c.RxQueueSize = DefaultRxQueueSize
	}
	if c.TxHeaderBufCount == 0 {
		c.TxHeaderBufCount = DefaultTxHeaderBufCount
	}
	if c.TxCompletionQueueSize == 0 {
		c.TxCompletionQueueSize = DefaultTxCompletionQueueSize
	}
	if c.Router == nil {
		c.Router = &logging.Router{}
	}
}
