// Package txpacketizer implements the Transmit Packetizer of spec §4.4:
// it slices one payload's scatter-gather list into unit_size-aligned
// packets, stamps each with a wire header, and hands the result to the
// adapter's vectorized submit without copying payload bytes.
package txpacketizer

import (
	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/sgl"
)

// Adapter is the vectorized submit operation the packetizer drives. Each
// call carries the wire fragments of exactly one packet, header first.
// Implementations must not retain fragments beyond the call: header
// buffers come from a HeaderBuffers ring and are reused by later
// packets, and the payload fragments are
// owned by the caller's scatter-gather list.
type Adapter interface {
	Submit(fragments [][]byte) error
}

// Config configures a packetizer for one stream of payloads sharing a
// protocol version, payload type and unit size.
type Config struct {
	Version           protocol.Version
	PayloadType       protocol.PayloadType
	UnitSize          int
	MaxPacketDataSize int
	HeaderBufs        *HeaderBuffers
}

// Payload is one payload to transmit.
type Payload struct {
	PayloadNum           uint32
	MaxLatencyMicrosecs  uint64
	OriginationPTP       protocol.PTPTimestamp
	PayloadUserData      uint64
	ExtraData            []byte
	TxStartTimeMicrosecs uint64
	Data                 *sgl.List
}

// sliceSize returns the largest multiple of unitSize that fits within
// maxPacketDataSize, falling back to unitSize itself when the budget is
// smaller than one unit (spec §4.4: "slices are aligned to a multiple of
// unit_size").
func sliceSize(unitSize, maxPacketDataSize int) int {
	if unitSize <= 0 {
		return maxPacketDataSize
	}
	n := (maxPacketDataSize / unitSize) * unitSize
	if n == 0 {
		n = unitSize
	}
	return n
}

// Packetize slices p.Data into packets and submits each one through
// adapter in sequence-number order (spec §4.4's Sequential contract).
// Sequence numbers restart at 0 for every payload; payload_num wrap is
// the caller's responsibility (it owns the counter shared across
// payloads).
func Packetize(cfg Config, adapter Adapter, p *Payload) error {
	total := p.Data.Total
	step := sliceSize(cfg.UnitSize, cfg.MaxPacketDataSize)
	if step <= 0 {
		return &liberrors.ErrInvalidParameter{Name: "MaxPacketDataSize", Reason: "must be positive"}
	}

	seq := uint16(0)
	offset := 0

	for {
		n := step
		if offset+n > total {
			n = total - offset
		}

		if err := submitPacket(cfg, adapter, p, seq, offset, n, total); err != nil {
			return err
		}

		offset += n
		seq++

		if offset >= total {
			return nil
		}
	}
}

func submitPacket(cfg Config, adapter Adapter, p *Payload, seq uint16, offset, n, total int) error {
	ps := &protocol.PacketState{
		Version:           cfg.Version,
		PayloadType:       cfg.PayloadType,
		PacketSequenceNum: seq,
		PayloadNum:        p.PayloadNum,
	}

	switch {
	case seq == 0:
		ps.Seq0 = &protocol.Seq0Fields{
			TotalPayloadSize:     uint32(total),
			MaxLatencyMicrosecs:  p.MaxLatencyMicrosecs,
			OriginationPTP:       p.OriginationPTP,
			PayloadUserData:      p.PayloadUserData,
			ExtraData:            p.ExtraData,
			TxStartTimeMicrosecs: p.TxStartTimeMicrosecs,
		}
	case cfg.PayloadType == protocol.PayloadTypeDataOffset:
		ps.PayloadDataOffset = uint32(offset)
	}

	hdrBuf := cfg.HeaderBufs.Next()
	hdrLen, err := protocol.InitHeader(hdrBuf, ps)
	if err != nil {
		return err
	}

	fragments := make([][]byte, 0, 2)
	fragments = append(fragments, hdrBuf[:hdrLen])

	if n > 0 {
		dataSlices, err := p.Data.SliceRange(offset, n)
		if err != nil {
			return err
		}
		fragments = append(fragments, dataSlices...)
	}

	if err := adapter.Submit(fragments); err != nil {
		return &liberrors.ErrQueueFull{}
	}

	return nil
}
