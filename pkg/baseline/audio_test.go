package baseline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioRoundTrip(t *testing.T) {
	c := AudioConfig{
		Version:    ProfileVersion{Major: 1, Minor: 0},
		Grouping:   Grouping51,
		SampleRate: SampleRate48kHz,
		Language:   "eng",
	}

	data := MakeAudioConfig(c)
	require.Equal(t, "cdi_profile_version=01.00; order=51; rate=48; language=eng;", data)

	parsed, unknown, err := ParseAudioConfig(data)
	require.NoError(t, err)
	require.Empty(t, unknown)
	require.Equal(t, c, parsed)
}

func TestAudioUnitSizes(t *testing.T) {
	require.Equal(t, 3, AudioUnitSize(AudioConfig{Grouping: GroupingM}))
	require.Equal(t, 6, AudioUnitSize(AudioConfig{Grouping: GroupingDM}))
	require.Equal(t, 18, AudioUnitSize(AudioConfig{Grouping: Grouping51}))
	require.Equal(t, 24, AudioUnitSize(AudioConfig{Grouping: Grouping71}))
	require.Equal(t, 72, AudioUnitSize(AudioConfig{Grouping: Grouping222}))
	require.Equal(t, 12, AudioUnitSize(AudioConfig{Grouping: GroupingSGRP}))
}

func TestAudioWireLanguage(t *testing.T) {
	c := AudioConfig{Language: "en"}
	wire := c.WireLanguage()
	require.Equal(t, [3]byte{'e', 'n', 0}, wire)

	var c2 AudioConfig
	c2.SetWireLanguage(wire)
	require.Equal(t, "en", c2.Language)
}

func TestAudioInvalidRate(t *testing.T) {
	_, _, err := ParseAudioConfig("cdi_profile_version=01.00; order=M; rate=44;")
	require.Error(t, err)
}
