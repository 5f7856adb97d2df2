package baseline

import (
	"fmt"
	"strings"
)

// Grouping enumerates audio channel groupings.
type Grouping int

// Grouping values.
const (
	GroupingM Grouping = iota
	GroupingDM
	GroupingST
	GroupingLtRt
	Grouping51
	Grouping71
	Grouping222
	GroupingSGRP
)

var groupingNames = map[Grouping]string{
	GroupingM:    "M",
	GroupingDM:   "DM",
	GroupingST:   "ST",
	GroupingLtRt: "LtRt",
	Grouping51:   "51",
	Grouping71:   "71",
	Grouping222:  "222",
	GroupingSGRP: "SGRP",
}

// groupingChannels is the channel count per grouping, used to derive the
// audio unit_size (spec §4.8: "channels × 3 bytes").
var groupingChannels = map[Grouping]int{
	GroupingM:    1,
	GroupingDM:   2,
	GroupingST:   2,
	GroupingLtRt: 2,
	Grouping51:   6,
	Grouping71:   8,
	Grouping222:  24,
	GroupingSGRP: 4,
}

func parseGrouping(s string) (Grouping, error) {
	for k, v := range groupingNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown audio order/grouping %q", s)
}

// SampleRate enumerates supported audio sample rates, in kHz.
type SampleRate int

// Sample rates.
const (
	SampleRate48kHz SampleRate = 48
	SampleRate96kHz SampleRate = 96
)

// AudioConfig is the baseline audio configuration of spec §3.
type AudioConfig struct {
	Version    ProfileVersion
	Grouping   Grouping
	SampleRate SampleRate
	Language   string // <=3 chars
}

var audioKnownKeys = map[string]bool{
	"cdi_profile_version": true,
	"order":               true,
	"rate":                true,
	"language":            true,
}

// MakeAudioConfig serializes c into the baseline audio string of spec §4.8.
func MakeAudioConfig(c AudioConfig) string {
	var tokens []string
	tokens = append(tokens, formatProfileVersion(c.Version))
	tokens = append(tokens, "order="+groupingNames[c.Grouping])
	tokens = append(tokens, fmt.Sprintf("rate=%d", c.SampleRate))

	if c.Language != "" {
		tokens = append(tokens, "language="+c.Language)
	}

	return strings.Join(tokens, "; ") + ";"
}

// ParseAudioConfig parses a baseline audio configuration string.
func ParseAudioConfig(data string) (AudioConfig, []string, error) {
	c := AudioConfig{}

	version, err := ParseProfileVersion(data)
	if err != nil {
		return AudioConfig{}, nil, err
	}
	c.Version = version

	m := parseTokenMap(data)

	orderStr, err := m.requireValue("order")
	if err != nil {
		return AudioConfig{}, nil, err
	}
	c.Grouping, err = parseGrouping(orderStr)
	if err != nil {
		return AudioConfig{}, nil, err
	}

	rate, err := m.requireInt("rate")
	if err != nil {
		return AudioConfig{}, nil, err
	}
	if rate != int(SampleRate48kHz) && rate != int(SampleRate96kHz) {
		return AudioConfig{}, nil, fmt.Errorf("invalid rate %d", rate)
	}
	c.SampleRate = SampleRate(rate)

	if v, ok := m.value("language"); ok {
		if len(v) > 3 {
			return AudioConfig{}, nil, fmt.Errorf("language %q exceeds 3 characters", v)
		}
		c.Language = v
	}

	return c, unknownKeys(data, audioKnownKeys), nil
}

// WireLanguage returns c.Language packed into the fixed 3-byte,
// zero-padded wire representation of spec §3 ("language[3] zero-padded").
func (c AudioConfig) WireLanguage() [3]byte {
	var out [3]byte
	copy(out[:], c.Language)
	return out
}

// SetWireLanguage sets c.Language from a fixed 3-byte, zero-padded wire
// representation.
func (c *AudioConfig) SetWireLanguage(b [3]byte) {
	n := 0
	for n < 3 && b[n] != 0 {
		n++
	}
	c.Language = string(b[:n])
}

// ChannelCount returns the number of discrete audio channels the
// grouping carries.
func (g Grouping) ChannelCount() int {
	return groupingChannels[g]
}
