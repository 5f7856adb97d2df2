package cdixfer

import "github.com/bluenviron/cdixfer/pkg/protocol"

// ProbeCommand identifies the purpose of a probe control packet (spec
// §4.3). The facade re-exports the protocol package's wire types so
// applications that implement their own probe/handshake state machine
// (spec §1's explicit Non-goal keeps that state machine out of this
// library) can encode and decode control packets without importing
// pkg/protocol directly.
type ProbeCommand = protocol.ProbeCommand

// Probe commands.
const (
	ProbeCommandReset           = protocol.ProbeCommandReset
	ProbeCommandPing            = protocol.ProbeCommandPing
	ProbeCommandConnected       = protocol.ProbeCommandConnected
	ProbeCommandAck             = protocol.ProbeCommandAck
	ProbeCommandProtocolVersion = protocol.ProbeCommandProtocolVersion
)

// ProbeHeader is the decoded form of a probe control packet (spec §4.3,
// §6).
type ProbeHeader = protocol.ProbeHeader

// EncodeProbeHeader serializes h into raw, returning the number of bytes
// written.
func EncodeProbeHeader(h *ProbeHeader, raw []byte) (int, error) {
	return protocol.ProbeHeaderEncode(h, raw)
}

// DecodeProbeHeader parses a probe control packet, verifying its
// checksum. The caller is responsible for dropping packets whose
// Command fails IsKnownProbeCommand, per spec §4.3.
func DecodeProbeHeader(raw []byte) (*ProbeHeader, error) {
	return protocol.ProbeHeaderDecode(raw)
}

// IsKnownProbeCommand reports whether cmd is recognized by this version
// of the codec.
func IsKnownProbeCommand(cmd ProbeCommand) bool {
	return protocol.IsKnownProbeCommand(cmd)
}
