package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	buf := []byte{0xA8, 0xC7, 0xD6, 0xAA, 0xBB, 0x10}
	pos := 0
	v, err := ReadBits(buf, &pos, 6)
	require.NoError(t, err)
	require.Equal(t, uint64(0x2a), v)
	v, _ = ReadBits(buf, &pos, 6)
	require.Equal(t, uint64(0x0c), v)
	v, _ = ReadBits(buf, &pos, 6)
	require.Equal(t, uint64(0x1f), v)
	v, _ = ReadBits(buf, &pos, 8)
	require.Equal(t, uint64(0x5a), v)
	v, _ = ReadBits(buf, &pos, 20)
	require.Equal(t, uint64(0xaaec4), v)
}

func TestReadBitsError(t *testing.T) {
	buf := []byte{0xA8}
	pos := 0
	_, err := ReadBits(buf, &pos, 6)
	require.NoError(t, err)
	_, err = ReadBits(buf, &pos, 6)
	require.EqualError(t, err, "not enough bits")
}

func TestReadFlag(t *testing.T) {
	buf := []byte{0xFF}
	pos := 0
	v, err := ReadFlag(buf, &pos)
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestReadFlagError(t *testing.T) {
	buf := []byte{}
	pos := 0
	_, err := ReadFlag(buf, &pos)
	require.EqualError(t, err, "not enough bits")
}

func TestParity8(t *testing.T) {
	for v := 0; v < 256; v++ {
		data, ok := Split10BitWord(Make10BitWord(uint8(v)))
		require.Equal(t, uint8(v), data)
		require.True(t, ok)
	}
}

func TestParity8FlipBit(t *testing.T) {
	word := Make10BitWord(0x61)

	// flip the P bit.
	flipped := word ^ 0x02
	_, ok := Split10BitWord(flipped)
	require.False(t, ok)

	// flip the !P bit instead.
	flipped = word ^ 0x01
	_, ok = Split10BitWord(flipped)
	require.False(t, ok)
}

func TestChecksumWordRoundTrip(t *testing.T) {
	did := Make10BitWord(0x61)
	sdid := Make10BitWord(0x02)
	dataCount := Make10BitWord(2)
	udw0 := Make10BitWord(0x00)
	udw1 := Make10BitWord(0xFF)

	preceding := []uint16{did, sdid, dataCount, udw0, udw1}
	sum := ChecksumWord9(preceding)
	csWord := MakeChecksumWord(sum)

	require.True(t, VerifyChecksumWord(csWord, preceding))

	// flip a low bit of the checksum word, must no longer verify.
	require.False(t, VerifyChecksumWord(csWord^0x04, preceding))
}
