// Package protocol implements the Protocol Codec of spec §4.3: the two
// wire-compatible versions of the packet framing header, and the
// probe-control packet codec of spec §6.
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

// PayloadType selects how a packet's data segment is positioned within
// its payload (spec §3).
type PayloadType uint8

// Payload types.
const (
	PayloadTypeSequential PayloadType = 0
	PayloadTypeDataOffset PayloadType = 1
)

// Version identifies which wire header layout is in effect.
type Version int

// Supported protocol versions.
const (
	Version1 Version = 1
	Version2 Version = 2
)

// PayloadNumMax returns the maximum payload_num value for a version, per
// spec §4.3; payload numbers wrap modulo PayloadNumMax()+1.
func (v Version) PayloadNumMax() uint32 {
	if v >= Version2 {
		return 65535
	}
	return 255
}

// fixed header sizes, in bytes, not counting the sequence-0 extension.
const (
	v1CommonHeaderSize = 4  // payload_type:8 | seq_num:16 | payload_num:8
	v2CommonHeaderSize = 9  // payload_type:8 | seq_num:16 | payload_num:16 | packet_id:32
	seq0FixedSize      = 4 + 8 + 4 + 4 + 8 + 2 // total_payload_size, max_latency, ptp{sec,ns}, user_data, extra_data_size
	v2Seq0ExtraSize    = 8                     // tx_start_time_microseconds
	dataOffsetSize     = 4
)

// PTPTimestamp is a (seconds, nanoseconds) pair carried verbatim with
// each payload; the transport never interprets it (spec §3, glossary).
type PTPTimestamp struct {
	Seconds     uint32
	Nanoseconds uint32
}

// Seq0Fields are the fields present only on packet_sequence_num == 0
// (spec §3).
type Seq0Fields struct {
	TotalPayloadSize     uint32
	MaxLatencyMicrosecs  uint64
	OriginationPTP       PTPTimestamp
	PayloadUserData      uint64
	ExtraData            []byte
	TxStartTimeMicrosecs uint64 // v2 only
}

// Header is the decoded form of a packet framing header, uniform across
// both wire versions per the design note in spec §9 ("do not specialize
// the rest of the core on version; keep decoded-header structs uniform").
type Header struct {
	Version           Version
	PayloadType       PayloadType
	PacketSequenceNum uint16
	PayloadNum        uint32 // 8 bits under v1, 16 bits under v2
	PacketID          uint32 // v2 only

	Seq0 *Seq0Fields // non-nil only when PacketSequenceNum == 0

	PayloadDataOffset uint32 // valid when PayloadType == DataOffset && seq > 0
}

// PacketState is what the transmit packetizer has on hand when building
// packet 0 of a payload: everything InitHeader needs to fill in the
// sequence-0 extension.
type PacketState struct {
	Version           Version
	PayloadType       PayloadType
	PacketSequenceNum uint16
	PayloadNum        uint32
	PacketID          uint32
	PayloadDataOffset uint32

	Seq0 *Seq0Fields
}

// requiredSize returns the number of header bytes InitHeader will write
// for the given packet state.
func requiredSize(ps *PacketState) int {
	var common int
	if ps.Version >= Version2 {
		common = v2CommonHeaderSize
	} else {
		common = v1CommonHeaderSize
	}

	if ps.PacketSequenceNum == 0 {
		extra := seq0FixedSize + len(ps.Seq0.ExtraData)
		if ps.Version >= Version2 {
			extra += v2Seq0ExtraSize
		}
		return common + extra
	}

	if ps.PayloadType == PayloadTypeDataOffset {
		return common + dataOffsetSize
	}

	return common
}

// InitHeader writes a wire header for ps into buf and returns the number
// of bytes written. It fails cleanly (returns an error, writes nothing
// past buf's bounds) when buf is too small, per spec §4.3's
// budget-check requirement.
func InitHeader(buf []byte, ps *PacketState) (int, error) {
	need := requiredSize(ps)
	if len(buf) < need {
		return 0, &liberrors.ErrBufferOverflow{Need: need, Have: len(buf)}
	}

	pos := 0
	buf[pos] = byte(ps.PayloadType)
	pos++
	binary.BigEndian.PutUint16(buf[pos:], ps.PacketSequenceNum)
	pos += 2

	if ps.Version >= Version2 {
		binary.BigEndian.PutUint16(buf[pos:], uint16(ps.PayloadNum))
		pos += 2
		binary.BigEndian.PutUint32(buf[pos:], ps.PacketID)
		pos += 4
	} else {
		buf[pos] = byte(ps.PayloadNum)
		pos++
	}

	switch {
	case ps.PacketSequenceNum == 0:
		s := ps.Seq0
		binary.BigEndian.PutUint32(buf[pos:], s.TotalPayloadSize)
		pos += 4
		binary.BigEndian.PutUint64(buf[pos:], s.MaxLatencyMicrosecs)
		pos += 8
		binary.BigEndian.PutUint32(buf[pos:], s.OriginationPTP.Seconds)
		pos += 4
		binary.BigEndian.PutUint32(buf[pos:], s.OriginationPTP.Nanoseconds)
		pos += 4
		binary.BigEndian.PutUint64(buf[pos:], s.PayloadUserData)
		pos += 8
		binary.BigEndian.PutUint16(buf[pos:], uint16(len(s.ExtraData)))
		pos += 2
		pos += copy(buf[pos:], s.ExtraData)

		if ps.Version >= Version2 {
			binary.BigEndian.PutUint64(buf[pos:], s.TxStartTimeMicrosecs)
			pos += 8
		}

	case ps.PayloadType == PayloadTypeDataOffset:
		binary.BigEndian.PutUint32(buf[pos:], ps.PayloadDataOffset)
		pos += 4
	}

	return pos, nil
}

// ErrTooSmall is returned by DecodeHeader when raw is shorter than the
// minimum common header.
type ErrTooSmall struct {
	Need, Have int
}

func (e *ErrTooSmall) Error() string {
	return fmt.Sprintf("packet too small to decode header: need at least %d bytes, have %d", e.Need, e.Have)
}

// DecodeHeader decodes a wire header of the given version from raw.
func DecodeHeader(version Version, raw []byte) (*Header, int, error) {
	common := v1CommonHeaderSize
	if version >= Version2 {
		common = v2CommonHeaderSize
	}
	if len(raw) < common {
		return nil, 0, &ErrTooSmall{Need: common, Have: len(raw)}
	}

	h := &Header{Version: version}
	pos := 0
	h.PayloadType = PayloadType(raw[pos])
	pos++
	h.PacketSequenceNum = binary.BigEndian.Uint16(raw[pos:])
	pos += 2

	if version >= Version2 {
		h.PayloadNum = uint32(binary.BigEndian.Uint16(raw[pos:]))
		pos += 2
		h.PacketID = binary.BigEndian.Uint32(raw[pos:])
		pos += 4
	} else {
		h.PayloadNum = uint32(raw[pos])
		pos++
	}

	if h.PacketSequenceNum == 0 {
		fixed := seq0FixedSize
		if len(raw) < pos+fixed {
			return nil, 0, &ErrTooSmall{Need: pos + fixed, Have: len(raw)}
		}

		s := &Seq0Fields{}
		s.TotalPayloadSize = binary.BigEndian.Uint32(raw[pos:])
		pos += 4
		s.MaxLatencyMicrosecs = binary.BigEndian.Uint64(raw[pos:])
		pos += 8
		s.OriginationPTP.Seconds = binary.BigEndian.Uint32(raw[pos:])
		pos += 4
		s.OriginationPTP.Nanoseconds = binary.BigEndian.Uint32(raw[pos:])
		pos += 4
		s.PayloadUserData = binary.BigEndian.Uint64(raw[pos:])
		pos += 8
		extraSize := int(binary.BigEndian.Uint16(raw[pos:]))
		pos += 2

		// spec §9 open question: v2 does not clamp extra_data_size
		// explicitly; bound it by the remaining declared header room and
		// reject packets that violate the bound rather than reading past
		// the buffer.
		maxExtra := len(raw) - pos
		if version >= Version2 {
			maxExtra -= v2Seq0ExtraSize
		}
		if extraSize < 0 || extraSize > maxExtra {
			return nil, 0, &liberrors.ErrInvalidPayload{Reason: "extra_data_size exceeds header bounds"}
		}

		if len(raw) < pos+extraSize {
			return nil, 0, &ErrTooSmall{Need: pos + extraSize, Have: len(raw)}
		}
		s.ExtraData = append([]byte(nil), raw[pos:pos+extraSize]...)
		pos += extraSize

		if version >= Version2 {
			if len(raw) < pos+v2Seq0ExtraSize {
				return nil, 0, &ErrTooSmall{Need: pos + v2Seq0ExtraSize, Have: len(raw)}
			}
			s.TxStartTimeMicrosecs = binary.BigEndian.Uint64(raw[pos:])
			pos += 8
		}

		h.Seq0 = s
	} else if h.PayloadType == PayloadTypeDataOffset {
		if len(raw) < pos+dataOffsetSize {
			return nil, 0, &ErrTooSmall{Need: pos + dataOffsetSize, Have: len(raw)}
		}
		h.PayloadDataOffset = binary.BigEndian.Uint32(raw[pos:])
		pos += dataOffsetSize
	}

	return h, pos, nil
}

// ReorderInfo is the minimal decode used by the receive side to route a
// packet to its payload before doing the full decode (spec §4.3
// "rx_reorder_info").
type ReorderInfo struct {
	PayloadNum uint32
	SeqNum     uint16
}

// RxReorderInfo extracts just the payload/sequence numbers from a raw
// packet, without decoding the (possibly large) sequence-0 extension.
func RxReorderInfo(version Version, raw []byte) (*ReorderInfo, error) {
	common := v1CommonHeaderSize
	if version >= Version2 {
		common = v2CommonHeaderSize
	}
	if len(raw) < common {
		return nil, &ErrTooSmall{Need: common, Have: len(raw)}
	}

	seq := binary.BigEndian.Uint16(raw[1:])

	var payloadNum uint32
	if version >= Version2 {
		payloadNum = uint32(binary.BigEndian.Uint16(raw[3:]))
	} else {
		payloadNum = uint32(raw[3])
	}

	return &ReorderInfo{PayloadNum: payloadNum, SeqNum: seq}, nil
}
