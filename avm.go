package cdixfer

import (
	"encoding/binary"

	"github.com/bluenviron/cdixfer/pkg/baseline"
	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

// Size limits for the AVM generic configuration's uri[] and data[]
// fields, spec §6.
const (
	MaxURILength  = 256
	MaxDataLength = 1024
)

// GenericConfig is the AVM generic configuration of spec §4.7/§4.8: a
// URI selecting the media type and an opaque data blob (the baseline
// profile's serialized key=value string, for the three registered
// profiles).
type GenericConfig struct {
	URI  string
	Data []byte
}

// BaselineVideoConfig serializes c as a generic configuration carrying
// the baseline video profile.
func BaselineVideoConfig(c baseline.VideoConfig) *GenericConfig {
	return &GenericConfig{URI: baseline.URIVideo, Data: []byte(baseline.MakeVideoConfig(c))}
}

// BaselineAudioConfig serializes c as a generic configuration carrying
// the baseline audio profile.
func BaselineAudioConfig(c baseline.AudioConfig) *GenericConfig {
	return &GenericConfig{URI: baseline.URIAudio, Data: []byte(baseline.MakeAudioConfig(c))}
}

// BaselineAncillaryConfig serializes c as a generic configuration
// carrying the baseline ancillary-data profile.
func BaselineAncillaryConfig(c baseline.AncillaryConfig) *GenericConfig {
	return &GenericConfig{URI: baseline.URIAncillary, Data: []byte(baseline.MakeAncillaryConfig(c))}
}

// AVMPayloadType classifies what the RX callback found in a delivered
// payload's generic configuration (spec §4.7/§7).
type AVMPayloadType int

// AVM payload types.
const (
	// AVMPayloadTypeNone means packet 0 carried no generic configuration
	// at all (the transmitter attached only the compact stream
	// identifier).
	AVMPayloadTypeNone AVMPayloadType = iota
	// AVMPayloadTypeNotBaseline means a generic configuration was
	// present but did not match a registered profile, or failed to
	// parse; the raw GenericConfig is still delivered (spec §7).
	AVMPayloadTypeNotBaseline
	AVMPayloadTypeVideo
	AVMPayloadTypeAudio
	AVMPayloadTypeAncillary
)

// encodeAVMExtraData serializes the stream identifier and, when cfg is
// non-nil, the generic configuration into packet 0's extra_data (spec
// §4.7: "If avm_config is non-null, it is serialized into extra_data
// attached to packet 0; otherwise only the compact avm_extra_data
// (stream_identifier) is attached").
func encodeAVMExtraData(streamIdentifier uint16, cfg *GenericConfig) ([]byte, error) {
	uriLen, dataLen := 0, 0
	if cfg != nil {
		uriLen, dataLen = len(cfg.URI), len(cfg.Data)
		if uriLen > MaxURILength {
			return nil, &liberrors.ErrInvalidParameter{Name: "GenericConfig.URI", Reason: "exceeds 256 octets"}
		}
		if dataLen > MaxDataLength {
			return nil, &liberrors.ErrInvalidParameter{Name: "GenericConfig.Data", Reason: "exceeds 1024 octets"}
		}
	}

	buf := make([]byte, 2+2+uriLen+2+dataLen)
	binary.BigEndian.PutUint16(buf[0:], streamIdentifier)
	binary.BigEndian.PutUint16(buf[2:], uint16(uriLen))
	pos := 4
	if cfg != nil {
		pos += copy(buf[pos:], cfg.URI)
		binary.BigEndian.PutUint16(buf[pos:], uint16(dataLen))
		pos += 2
		pos += copy(buf[pos:], cfg.Data)
	}

	return buf, nil
}

// decodeAVMExtraData is the inverse of encodeAVMExtraData. A malformed
// extra_data blob is a wire-level error: absorbed by the caller per
// spec §7, never fatal to the payload.
func decodeAVMExtraData(raw []byte) (uint16, *GenericConfig, error) {
	if len(raw) < 4 {
		return 0, nil, &liberrors.ErrInvalidPayload{Reason: "avm_extra_data shorter than fixed header"}
	}
	streamIdentifier := binary.BigEndian.Uint16(raw[0:])
	uriLen := int(binary.BigEndian.Uint16(raw[2:]))

	if uriLen == 0 {
		return streamIdentifier, nil, nil
	}

	pos := 4
	if len(raw) < pos+uriLen+2 {
		return 0, nil, &liberrors.ErrInvalidPayload{Reason: "avm_extra_data truncated uri"}
	}
	uri := string(raw[pos : pos+uriLen])
	pos += uriLen

	dataLen := int(binary.BigEndian.Uint16(raw[pos:]))
	pos += 2
	if len(raw) < pos+dataLen {
		return 0, nil, &liberrors.ErrInvalidPayload{Reason: "avm_extra_data truncated data"}
	}
	data := append([]byte(nil), raw[pos:pos+dataLen]...)

	return streamIdentifier, &GenericConfig{URI: uri, Data: data}, nil
}

// parseAVMConfig resolves cfg's media type against the baseline registry
// and parses its data string. A nil cfg, an unrecognized URI, or a parse
// failure all return AVMPayloadTypeNotBaseline-or-None with no error:
// per spec §7, "Baseline-profile parse errors cause the AVM callback to
// see the raw generic configuration with payload_type = NotBaseline; the
// payload data is still delivered."
func parseAVMConfig(cfg *GenericConfig) (AVMPayloadType, interface{}, []string) {
	if cfg == nil {
		return AVMPayloadTypeNone, nil, nil
	}

	mt, ok := baseline.MediaTypeForURI(cfg.URI)
	if !ok {
		return AVMPayloadTypeNotBaseline, nil, nil
	}

	version, err := baseline.ParseProfileVersion(string(cfg.Data))
	if err != nil {
		return AVMPayloadTypeNotBaseline, nil, nil
	}

	vt, err := baseline.DefaultRegistry().Lookup(mt, version)
	if err != nil {
		return AVMPayloadTypeNotBaseline, nil, nil
	}

	parsed, unknown, err := vt.ParseConfig(string(cfg.Data))
	if err != nil {
		return AVMPayloadTypeNotBaseline, nil, nil
	}

	switch mt {
	case baseline.MediaTypeVideo:
		return AVMPayloadTypeVideo, parsed, unknown
	case baseline.MediaTypeAudio:
		return AVMPayloadTypeAudio, parsed, unknown
	case baseline.MediaTypeAncillary:
		return AVMPayloadTypeAncillary, parsed, unknown
	default:
		return AVMPayloadTypeNotBaseline, nil, nil
	}
}
