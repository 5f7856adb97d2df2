package baseline

import (
	"encoding/binary"
	"fmt"

	"github.com/bluenviron/cdixfer/pkg/bits"
)

// AncillaryConfig is the baseline ancillary-data configuration of
// spec §3: only a version is negotiated, the payload bytes then follow
// the fixed RFC 8331 / SMPTE ST 291 layout of spec §4.8.
type AncillaryConfig struct {
	Version ProfileVersion
}

var ancillaryKnownKeys = map[string]bool{
	"cdi_profile_version": true,
}

// MakeAncillaryConfig serializes c into the baseline ancillary-data
// configuration string.
func MakeAncillaryConfig(c AncillaryConfig) string {
	return formatProfileVersion(c.Version) + ";"
}

// ParseAncillaryConfig parses a baseline ancillary-data configuration
// string.
func ParseAncillaryConfig(data string) (AncillaryConfig, []string, error) {
	version, err := ParseProfileVersion(data)
	if err != nil {
		return AncillaryConfig{}, nil, err
	}
	return AncillaryConfig{Version: version}, unknownKeys(data, ancillaryKnownKeys), nil
}

// Field identifies which video field an ancillary payload belongs to.
type Field int

// Field values.
const (
	FieldUnspecified Field = 0
	FieldInvalid     Field = 1
	FieldFirst       Field = 2
	FieldSecond      Field = 3
)

// AncPacket is one SMPTE ST 291 ancillary data packet (spec §4.8).
type AncPacket struct {
	C                bool
	LineNumber       uint16 // 11 bits
	HorizontalOffset uint16 // 12 bits
	S                bool
	StreamNum        uint8 // 7 bits
	DID              uint8
	SDID             uint8
	UDW              []uint8

	// populated by Decode, not by the caller of Encode.
	ParityErrors   int
	ChecksumError  bool
}

// AncPayload is a full ancillary-data payload: the 32-bit payload header
// plus zero or more packets (spec §4.8).
type AncPayload struct {
	Field   Field
	Packets []AncPacket
}

// Encode serializes p into its RFC 8331 wire form, MSB-first,
// big-endian, each packet right-padded to a 32-bit word boundary.
func Encode(p *AncPayload) []byte {
	var buf []byte

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(p.Packets))<<16|uint32(p.Field)<<14)
	buf = append(buf, header...)

	for _, pkt := range p.Packets {
		buf = append(buf, encodePacket(pkt)...)
	}

	return buf
}

func encodePacket(pkt AncPacket) []byte {
	// C:1 | Line_Number:11 | Horizontal_Offset:12 | S:1 | StreamNum:7 = 32 bits
	// then DID:10 | SDID:10 | Data_Count:10 | UDW[n]*10 | Checksum:10,
	// padded to a 32-bit boundary.
	bitLen := 32 + 30 + len(pkt.UDW)*10 + 10
	byteLen := (bitLen + 31) / 32 * 4
	out := make([]byte, byteLen)
	pos := 0

	bits.WriteFlag(out, &pos, pkt.C)
	bits.WriteBits(out, &pos, uint64(pkt.LineNumber), 11)
	bits.WriteBits(out, &pos, uint64(pkt.HorizontalOffset), 12)
	bits.WriteFlag(out, &pos, pkt.S)
	bits.WriteBits(out, &pos, uint64(pkt.StreamNum), 7)

	didWord := bits.Make10BitWord(pkt.DID)
	sdidWord := bits.Make10BitWord(pkt.SDID)
	dcWord := bits.Make10BitWord(uint8(len(pkt.UDW)))

	preceding := make([]uint16, 0, 3+len(pkt.UDW))
	preceding = append(preceding, didWord, sdidWord, dcWord)

	bits.WriteBits(out, &pos, uint64(didWord), 10)
	bits.WriteBits(out, &pos, uint64(sdidWord), 10)
	bits.WriteBits(out, &pos, uint64(dcWord), 10)

	for _, udw := range pkt.UDW {
		word := bits.Make10BitWord(udw)
		preceding = append(preceding, word)
		bits.WriteBits(out, &pos, uint64(word), 10)
	}

	csWord := bits.MakeChecksumWord(bits.ChecksumWord9(preceding))
	bits.WriteBits(out, &pos, uint64(csWord), 10)

	return out
}

// Decode parses an RFC 8331 ancillary-data payload from raw. Parity and
// checksum mismatches are recorded per-packet (spec §4.8: "the decoder
// recomputes parity and increments a per-payload parity-error counter
// for each mismatch"), not treated as fatal decode errors.
func Decode(raw []byte) (*AncPayload, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("ancillary payload too small")
	}

	header := binary.BigEndian.Uint32(raw[:4])
	count := int(header >> 16)
	field := Field((header >> 14) & 0x03)

	p := &AncPayload{Field: field}
	pos := 4 * 8
	rawBits := len(raw) * 8

	for i := 0; i < count; i++ {
		pkt, newPos, err := decodePacket(raw, pos, rawBits)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
		p.Packets = append(p.Packets, pkt)
		pos = newPos
	}

	return p, nil
}

func decodePacket(raw []byte, pos, rawBits int) (AncPacket, int, error) {
	var pkt AncPacket

	if pos+30 > rawBits {
		return pkt, pos, fmt.Errorf("not enough bits for packet header")
	}

	pkt.C = bits.ReadFlagUnsafe(raw, &pos)
	lineNum := bits.ReadBitsUnsafe(raw, &pos, 11)
	hOffset := bits.ReadBitsUnsafe(raw, &pos, 12)
	pkt.S = bits.ReadFlagUnsafe(raw, &pos)
	streamNum := bits.ReadBitsUnsafe(raw, &pos, 7)

	pkt.LineNumber = uint16(lineNum)
	pkt.HorizontalOffset = uint16(hOffset)
	pkt.StreamNum = uint8(streamNum)

	if pos+30 > rawBits {
		return pkt, pos, fmt.Errorf("not enough bits for DID/SDID/Data_Count")
	}

	didWord := uint16(bits.ReadBitsUnsafe(raw, &pos, 10))
	sdidWord := uint16(bits.ReadBitsUnsafe(raw, &pos, 10))
	dcWord := uint16(bits.ReadBitsUnsafe(raw, &pos, 10))

	did, didOK := bits.Split10BitWord(didWord)
	sdid, sdidOK := bits.Split10BitWord(sdidWord)
	dataCount, dcOK := bits.Split10BitWord(dcWord)

	pkt.DID = did
	pkt.SDID = sdid

	preceding := []uint16{didWord, sdidWord, dcWord}
	for _, ok := range []bool{didOK, sdidOK, dcOK} {
		if !ok {
			pkt.ParityErrors++
		}
	}

	if pos+int(dataCount)*10+10 > rawBits {
		return pkt, pos, fmt.Errorf("not enough bits for UDWs/checksum")
	}

	pkt.UDW = make([]uint8, dataCount)
	for i := 0; i < int(dataCount); i++ {
		w := uint16(bits.ReadBitsUnsafe(raw, &pos, 10))
		data, ok := bits.Split10BitWord(w)
		pkt.UDW[i] = data
		preceding = append(preceding, w)
		if !ok {
			pkt.ParityErrors++
		}
	}

	csWord := uint16(bits.ReadBitsUnsafe(raw, &pos, 10))
	if !bits.VerifyChecksumWord(csWord, preceding) {
		pkt.ChecksumError = true
	}

	// skip padding to the next 32-bit boundary.
	if rem := pos % 32; rem != 0 {
		pos += 32 - rem
	}

	return pkt, pos, nil
}
