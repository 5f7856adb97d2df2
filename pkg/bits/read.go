// Package bits contains functions to read and write bits from and to
// byte buffers, plus the parity and checksum helpers the ancillary-data
// payload format (SMPTE ST 291 / RFC 8331) needs.
package bits

import (
	"fmt"
)

// HasSpace checks whether buf has space for n more bits starting at pos.
func HasSpace(buf []byte, pos int, n int) error {
	if n > ((len(buf) * 8) - pos) {
		return fmt.Errorf("not enough bits")
	}
	return nil
}

// ReadBits reads n bits starting at *pos and advances *pos.
func ReadBits(buf []byte, pos *int, n int) (uint64, error) {
	err := HasSpace(buf, *pos, n)
	if err != nil {
		return 0, err
	}

	return ReadBitsUnsafe(buf, pos, n), nil
}

// ReadBitsUnsafe reads n bits without bounds checking.
func ReadBitsUnsafe(buf []byte, pos *int, n int) uint64 {
	v := uint64(0)

	res := 8 - (*pos & 0x07)
	if n < res {
		v := uint64((buf[*pos>>0x03] >> (res - n)) & (1<<n - 1))
		*pos += n
		return v
	}

	v = (v << res) | uint64(buf[*pos>>0x03]&(1<<res-1))
	*pos += res
	n -= res

	for n >= 8 {
		v = (v << 8) | uint64(buf[*pos>>0x03])
		*pos += 8
		n -= 8
	}

	if n > 0 {
		v = (v << n) | uint64(buf[*pos>>0x03]>>(8-n))
		*pos += n
	}

	return v
}

// ReadFlag reads a single bit as a boolean.
func ReadFlag(buf []byte, pos *int) (bool, error) {
	err := HasSpace(buf, *pos, 1)
	if err != nil {
		return false, err
	}

	return ReadFlagUnsafe(buf, pos), nil
}

// ReadFlagUnsafe reads a single bit as a boolean without bounds checking.
func ReadFlagUnsafe(buf []byte, pos *int) bool {
	b := (buf[*pos>>0x03] >> (7 - (*pos & 0x07))) & 0x01
	*pos++
	return b == 1
}

// Parity8 returns the even parity bit of an 8-bit value: 1 if the number
// of set bits in v is odd, 0 if it is even. Used by the ancillary-data
// 10-bit word layout (8 data bits, P, ~P) in spec §4.8.
func Parity8(v uint8) uint8 {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 0x01
}

// Make10BitWord packs an 8-bit data value into the 10-bit
// {data:8, P:1, !P:1} word used throughout the ancillary-data payload.
func Make10BitWord(data uint8) uint16 {
	p := Parity8(data)
	return uint16(data)<<2 | uint16(p)<<1 | uint16(p^1)
}

// Split10BitWord extracts the data byte and parity-valid flag from a
// 10-bit ancillary word. parityOK is false when P and !P are inconsistent
// with the recomputed parity of the data byte.
func Split10BitWord(word uint16) (data uint8, parityOK bool) {
	data = uint8(word >> 2)
	p := uint8((word >> 1) & 0x01)
	notP := uint8(word & 0x01)
	want := Parity8(data)
	parityOK = p == want && notP == (want^1)
	return data, parityOK
}

// ChecksumWord9 computes the 9-bit running checksum (mod 512) used to
// build the ancillary packet's Checksum_Word field: sum of the 10-bit
// DID/SDID/Data_Count/UDW fields since DID, modulo 512. Each word is
// masked to its low 9 bits first, which leaves the sum modulo 512
// unchanged.
func ChecksumWord9(words []uint16) uint16 {
	var sum uint32
	for _, w := range words {
		sum += uint32(w & 0x1FF)
	}
	return uint16(sum % 512)
}

// MakeChecksumWord packs a 9-bit checksum value into the 10-bit
// {checksum:9, !bit8(checksum):1} word format spec.md §4.8 describes.
func MakeChecksumWord(checksum9 uint16) uint16 {
	bit8 := (checksum9 >> 8) & 0x01
	return (checksum9&0x1FF)<<1 | uint16(bit8^1)
}

// VerifyChecksumWord recomputes and compares a Checksum_Word against the
// running sum of the preceding 10-bit fields.
func VerifyChecksumWord(word uint16, precedingWords []uint16) bool {
	got := (word >> 1) & 0x1FF
	bit8 := word & 0x01
	want := ChecksumWord9(precedingWords)
	wantBit8 := (want >> 8) & 0x01
	return got == want && bit8 == (wantBit8^1)
}
