package protocol

import (
	"encoding/binary"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

// size limits from spec §6.
const (
	MaxStreamNameLengthV2 = 138
	MaxIPStringLengthV2   = 64
	MaxIPv6GIDLengthV2    = 32
)

// ProbeCommand identifies the purpose of a probe control packet
// (spec §4.3).
type ProbeCommand uint8

// Probe commands.
const (
	ProbeCommandReset           ProbeCommand = 0
	ProbeCommandPing            ProbeCommand = 1
	ProbeCommandConnected       ProbeCommand = 2
	ProbeCommandAck             ProbeCommand = 3
	ProbeCommandProtocolVersion ProbeCommand = 4
)

// knownProbeCommand reports whether cmd is one of the values this codec
// understands; unknown commands are dropped with a warning per spec §4.3.
func knownProbeCommand(cmd ProbeCommand) bool {
	switch cmd {
	case ProbeCommandReset, ProbeCommandPing, ProbeCommandConnected,
		ProbeCommandAck, ProbeCommandProtocolVersion:
		return true
	default:
		return false
	}
}

// ProbeHeader is the decoded form of a probe control packet (spec §4.3,
// §6). Exactly one of RequiresAck or the Ack* pair is meaningful,
// depending on Command.
type ProbeHeader struct {
	SendersVersion         uint8
	Command                ProbeCommand
	SendersIP              string // fixed-length, NUL-padded on the wire
	SendersGID             string // fixed-length, NUL-padded on the wire
	SendersStreamName      string // fixed-length, NUL-padded on the wire
	SendersControlDestPort uint16
	ControlPacketNum       uint32

	RequiresAck bool // meaningful for Reset/Ping/Connected/ProtocolVersion

	AckCommand          ProbeCommand // meaningful for Ack
	AckControlPacketNum uint32       // meaningful for Ack
}

// wire layout: fixed-length strings, NUL padded.
const (
	probeFixedSize = 1 + 1 + // senders_version, command
		MaxIPStringLengthV2 +
		MaxIPv6GIDLengthV2 +
		MaxStreamNameLengthV2 +
		2 + 4 + // control dest port, control packet num
		1 + 4 + // the larger of {requires_ack} / {ack_command, ack_control_packet_num}, padded to 5 bytes
		2 // checksum
)

func putFixedString(buf []byte, s string) {
	n := copy(buf, s)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func getFixedString(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// checksum16 computes the 16-bit ones-complement sum over buf, per
// spec §4.3 ("the entire control packet with the checksum field
// zeroed during computation").
func checksum16(buf []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(buf); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(buf[i:]))
	}
	if len(buf)%2 == 1 {
		sum += uint32(buf[len(buf)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// ProbeHeaderEncode serializes h into raw, returning the number of bytes
// written. raw must be at least probeFixedSize bytes.
func ProbeHeaderEncode(h *ProbeHeader, raw []byte) (int, error) {
	if len(raw) < probeFixedSize {
		return 0, &liberrors.ErrBufferOverflow{Need: probeFixedSize, Have: len(raw)}
	}

	pos := 0
	raw[pos] = h.SendersVersion
	pos++
	raw[pos] = byte(h.Command)
	pos++

	putFixedString(raw[pos:pos+MaxIPStringLengthV2], h.SendersIP)
	pos += MaxIPStringLengthV2
	putFixedString(raw[pos:pos+MaxIPv6GIDLengthV2], h.SendersGID)
	pos += MaxIPv6GIDLengthV2
	putFixedString(raw[pos:pos+MaxStreamNameLengthV2], h.SendersStreamName)
	pos += MaxStreamNameLengthV2

	binary.BigEndian.PutUint16(raw[pos:], h.SendersControlDestPort)
	pos += 2
	binary.BigEndian.PutUint32(raw[pos:], h.ControlPacketNum)
	pos += 4

	switch h.Command {
	case ProbeCommandAck:
		raw[pos] = byte(h.AckCommand)
		pos++
		binary.BigEndian.PutUint32(raw[pos:], h.AckControlPacketNum)
		pos += 4
	default:
		if h.RequiresAck {
			raw[pos] = 1
		} else {
			raw[pos] = 0
		}
		pos++
		binary.BigEndian.PutUint32(raw[pos:], 0)
		pos += 4
	}

	// checksum field, zeroed during computation.
	checksumPos := pos
	binary.BigEndian.PutUint16(raw[checksumPos:], 0)
	pos += 2

	cs := checksum16(raw[:pos])
	binary.BigEndian.PutUint16(raw[checksumPos:], cs)

	return pos, nil
}

// ProbeHeaderDecode parses a probe control packet. It returns
// ErrProbePacketInvalidSize when raw's length disagrees with the fixed
// layout, and ErrProbePacketCRCError when the checksum does not verify.
// An unknown command is not an error at this layer; callers must drop it
// with a warning per spec §4.3 and check knownProbeCommand-equivalent
// logic via h.Command.
func ProbeHeaderDecode(raw []byte) (*ProbeHeader, error) {
	if len(raw) != probeFixedSize {
		return nil, &liberrors.ErrProbePacketInvalidSize{Got: len(raw), Want: probeFixedSize}
	}

	buf := append([]byte(nil), raw...)
	checksumPos := probeFixedSize - 2
	got := binary.BigEndian.Uint16(buf[checksumPos:])
	binary.BigEndian.PutUint16(buf[checksumPos:], 0)
	want := checksum16(buf)
	if got != want {
		return nil, &liberrors.ErrProbePacketCRCError{}
	}

	h := &ProbeHeader{}
	pos := 0
	h.SendersVersion = raw[pos]
	pos++
	h.Command = ProbeCommand(raw[pos])
	pos++

	h.SendersIP = getFixedString(raw[pos : pos+MaxIPStringLengthV2])
	pos += MaxIPStringLengthV2
	h.SendersGID = getFixedString(raw[pos : pos+MaxIPv6GIDLengthV2])
	pos += MaxIPv6GIDLengthV2
	h.SendersStreamName = getFixedString(raw[pos : pos+MaxStreamNameLengthV2])
	pos += MaxStreamNameLengthV2

	h.SendersControlDestPort = binary.BigEndian.Uint16(raw[pos:])
	pos += 2
	h.ControlPacketNum = binary.BigEndian.Uint32(raw[pos:])
	pos += 4

	if h.Command == ProbeCommandAck {
		h.AckCommand = ProbeCommand(raw[pos])
		pos++
		h.AckControlPacketNum = binary.BigEndian.Uint32(raw[pos:])
		pos += 4
	} else {
		h.RequiresAck = raw[pos] != 0
		pos++
		pos += 4
	}

	return h, nil
}

// IsKnownProbeCommand reports whether cmd is recognized by this codec.
// Callers must drop packets with an unrecognized command and log a
// warning, per spec §4.3, rather than treating it as a decode error.
func IsKnownProbeCommand(cmd ProbeCommand) bool {
	return knownProbeCommand(cmd)
}
