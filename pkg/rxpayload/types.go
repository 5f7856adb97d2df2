package rxpayload

import (
	"time"

	"github.com/bluenviron/cdixfer/pkg/rxpacket"
	"github.com/bluenviron/cdixfer/pkg/sgl"
)

// State is the lifecycle of one payload's reassembly, per spec §4.6.
type State int

// Payload states.
const (
	StateInProgress State = iota
	StateComplete
	StateError
	// StateIgnore marks a payload the endpoint has decided not to
	// reassemble. It never occupies a pool-backed slot in this
	// implementation: out-of-window payloads are tracked in
	// Endpoint.ignored, while packet-window overflow and wrap-collision
	// losers end in StateError.
	StateIgnore
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// PayloadState is the per-payload reassembly record held in the
// endpoint's payload_state_array (spec §4.6).
type PayloadState struct {
	PayloadNum uint32
	State      State

	Runs              rxpacket.RunList
	BufferedFragments int

	DataBytesReceived   uint32
	TotalPayloadSize    uint32
	Seq0Seen            bool
	MaxLatencyMicrosecs uint64
	StartTime           time.Time
	ErrorReason         string
}

// Delivery is what the output queue carries to the application delivery
// thread: ownership of the payload's assembled (or partial, on error)
// run list transfers to the consumer, who must call rxpacket.Release on
// it once finished reading the bytes.
type Delivery struct {
	PayloadNum  uint32
	State       State
	Runs        rxpacket.RunList
	ErrorReason string
}

// Packet is one inbound packet fragment, already stripped of its wire
// header by the caller, handed to Endpoint.Ingest. IsSeq0 is set when
// this is packet 0 of the payload; TotalPayloadSize and
// MaxLatencyMicrosecs carry its sequence-0 extension fields and are read
// only when IsSeq0 is set.
type Packet struct {
	PayloadNum uint32
	SeqNum     uint16
	Fragment   *sgl.Fragment

	TotalPayloadSize    uint32
	MaxLatencyMicrosecs uint64
	IsSeq0              bool
}
