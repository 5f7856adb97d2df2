package baseline

import (
	"fmt"
	"strconv"
	"strings"
)

// Sampling enumerates chroma/color sampling options.
type Sampling int

// Sampling values.
const (
	SamplingYCbCr444 Sampling = iota
	SamplingYCbCr422
	SamplingRGB
)

func (s Sampling) wireString() string {
	switch s {
	case SamplingYCbCr444:
		return "YCbCr-4:4:4"
	case SamplingYCbCr422:
		return "YCbCr-4:2:2"
	case SamplingRGB:
		return "RGB"
	default:
		return ""
	}
}

func parseSampling(s string) (Sampling, error) {
	switch s {
	case "YCbCr-4:4:4":
		return SamplingYCbCr444, nil
	case "YCbCr-4:2:2":
		return SamplingYCbCr422, nil
	case "RGB":
		return SamplingRGB, nil
	default:
		return 0, fmt.Errorf("unknown sampling %q", s)
	}
}

// AlphaMode indicates whether an alpha channel is carried.
type AlphaMode int

// Alpha modes.
const (
	AlphaUnused AlphaMode = iota
	AlphaUsed
)

// Colorimetry enumerates supported colorimetry standards.
type Colorimetry int

// Colorimetry values.
const (
	ColorimetryBT601 Colorimetry = iota
	ColorimetryBT709
	ColorimetryBT2020
	ColorimetryBT2100
	ColorimetryST2065_1
	ColorimetryST2065_3
	ColorimetryXYZ
)

var colorimetryNames = map[Colorimetry]string{
	ColorimetryBT601:    "BT601",
	ColorimetryBT709:    "BT709",
	ColorimetryBT2020:   "BT2020",
	ColorimetryBT2100:   "BT2100",
	ColorimetryST2065_1: "ST2065-1",
	ColorimetryST2065_3: "ST2065-3",
	ColorimetryXYZ:      "XYZ",
}

func parseColorimetry(s string) (Colorimetry, error) {
	for k, v := range colorimetryNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown colorimetry %q", s)
}

// TCS enumerates transfer characteristic systems.
type TCS int

// TCS values.
const (
	TCSSDR TCS = iota
	TCSPQ
	TCSHLG
	TCSLinear
	TCSBT2100LINPQ
	TCSBT2100LINHLG
	TCSST2065_1
	TCSST428_1
	TCSDensity
)

var tcsNames = map[TCS]string{
	TCSSDR:          "SDR",
	TCSPQ:           "PQ",
	TCSHLG:          "HLG",
	TCSLinear:       "Linear",
	TCSBT2100LINPQ:  "BT2100LINPQ",
	TCSBT2100LINHLG: "BT2100LINHLG",
	TCSST2065_1:     "ST2065-1",
	TCSST428_1:      "ST428-1",
	TCSDensity:      "Density",
}

func parseTCS(s string) (TCS, error) {
	for k, v := range tcsNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown TCS %q", s)
}

// Range enumerates signal range options.
type Range int

// Range values.
const (
	RangeNarrow Range = iota
	RangeFullProtect
	RangeFull
)

var rangeNames = map[Range]string{
	RangeNarrow:      "Narrow",
	RangeFullProtect: "FullProtect",
	RangeFull:        "Full",
}

func parseRange(s string) (Range, error) {
	for k, v := range rangeNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown RANGE %q", s)
}

// VideoConfig is the baseline video configuration of spec §3.
type VideoConfig struct {
	Version ProfileVersion

	Width, Height int
	Sampling      Sampling
	Alpha         AlphaMode
	Depth         int // 8, 10 or 12

	FrameRateNum, FrameRateDen int
	Colorimetry                Colorimetry

	Interlace bool
	Segmented bool
	TCS       TCS
	Range     Range

	PARWidth, PARHeight int

	StartVerticalPos, VerticalSize     int
	StartHorizontalPos, HorizontalSize int
}

// defaultVideoConfig returns the default values used to decide whether
// an optional key must be serialized (spec §4.8: "followed by optional
// keys only when they differ from defaults").
func defaultVideoConfig() VideoConfig {
	return VideoConfig{
		Interlace: false,
		Segmented: false,
		TCS:       TCSSDR,
		Range:     RangeNarrow,
		PARWidth:  1,
		PARHeight: 1,
		Alpha:     AlphaUnused,
	}
}

var videoKnownKeys = map[string]bool{
	"cdi_profile_version": true,
	"sampling":            true,
	"depth":               true,
	"width":               true,
	"height":              true,
	"exactframerate":      true,
	"colorimetry":         true,
	"interlace":           true,
	"segmented":           true,
	"TCS":                 true,
	"RANGE":               true,
	"PAR":                 true,
	"alpha_included":      true,
	"partial_frame":       true,
}

// MakeVideoConfig serializes c into the ASCII baseline video string of
// spec §4.8, emitting required keys first in the documented order,
// followed by optional keys only when they differ from their defaults.
func MakeVideoConfig(c VideoConfig) string {
	def := defaultVideoConfig()

	var tokens []string
	tokens = append(tokens, formatProfileVersion(c.Version))
	tokens = append(tokens, "sampling="+c.Sampling.wireString())
	tokens = append(tokens, fmt.Sprintf("depth=%d", c.Depth))
	tokens = append(tokens, fmt.Sprintf("width=%d, height=%d", c.Width, c.Height))

	if c.FrameRateDen == 1 || c.FrameRateDen == 0 {
		tokens = append(tokens, fmt.Sprintf("exactframerate=%d", c.FrameRateNum))
	} else {
		tokens = append(tokens, fmt.Sprintf("exactframerate=%d/%d", c.FrameRateNum, c.FrameRateDen))
	}

	tokens = append(tokens, "colorimetry="+colorimetryNames[c.Colorimetry])

	if c.Interlace != def.Interlace {
		tokens = append(tokens, "interlace")
	}
	if c.Segmented != def.Segmented {
		tokens = append(tokens, "segmented")
	}
	if c.TCS != def.TCS {
		tokens = append(tokens, "TCS="+tcsNames[c.TCS])
	}
	if c.Range != def.Range {
		tokens = append(tokens, "RANGE="+rangeNames[c.Range])
	}
	if (c.PARWidth != 0 || c.PARHeight != 0) && (c.PARWidth != def.PARWidth || c.PARHeight != def.PARHeight) {
		tokens = append(tokens, fmt.Sprintf("PAR=%d:%d", c.PARWidth, c.PARHeight))
	}
	if c.Alpha != def.Alpha {
		if c.Alpha == AlphaUsed {
			tokens = append(tokens, "alpha_included=enabled")
		} else {
			tokens = append(tokens, "alpha_included=disabled")
		}
	}
	if c.StartVerticalPos != 0 || c.VerticalSize != 0 || c.StartHorizontalPos != 0 || c.HorizontalSize != 0 {
		tokens = append(tokens, fmt.Sprintf("partial_frame=%dx%d+%d+%d",
			c.HorizontalSize, c.VerticalSize, c.StartHorizontalPos, c.StartVerticalPos))
	}

	return strings.Join(tokens, "; ") + ";"
}

// ParseVideoConfig parses a baseline video configuration string. Unknown
// keys are collected and returned alongside the config rather than
// failing parsing, per spec §4.8; missing required keys return an error.
func ParseVideoConfig(data string) (VideoConfig, []string, error) {
	c := defaultVideoConfig()

	version, err := ParseProfileVersion(data)
	if err != nil {
		return VideoConfig{}, nil, err
	}
	c.Version = version

	// width/height are serialized as a single "width=W, height=H" token;
	// split it out before generic tokenization so the rest can use the
	// ordinary "key=value" tokenMap.
	raw := splitTokens(data)
	var widthHeightTok string
	var rest []string
	for _, t := range raw {
		if strings.HasPrefix(t, "width=") && strings.Contains(t, ", height=") {
			widthHeightTok = t
			continue
		}
		rest = append(rest, t)
	}
	m := tokenMap{}
	for _, t := range rest {
		tok := parseToken(t)
		m[tok.key] = tok
	}

	if widthHeightTok == "" {
		return VideoConfig{}, nil, fmt.Errorf("missing required width/height")
	}
	parts := strings.SplitN(widthHeightTok, ", ", 2)
	wv := strings.TrimPrefix(parts[0], "width=")
	hv := strings.TrimPrefix(parts[1], "height=")
	c.Width, err = strconv.Atoi(wv)
	if err != nil {
		return VideoConfig{}, nil, fmt.Errorf("invalid width %q", wv)
	}
	c.Height, err = strconv.Atoi(hv)
	if err != nil {
		return VideoConfig{}, nil, fmt.Errorf("invalid height %q", hv)
	}

	samplingStr, err := m.requireValue("sampling")
	if err != nil {
		return VideoConfig{}, nil, err
	}
	c.Sampling, err = parseSampling(samplingStr)
	if err != nil {
		return VideoConfig{}, nil, err
	}

	c.Depth, err = m.requireInt("depth")
	if err != nil {
		return VideoConfig{}, nil, err
	}
	if c.Depth != 8 && c.Depth != 10 && c.Depth != 12 {
		return VideoConfig{}, nil, fmt.Errorf("invalid depth %d", c.Depth)
	}

	frStr, err := m.requireValue("exactframerate")
	if err != nil {
		return VideoConfig{}, nil, err
	}
	if idx := strings.IndexByte(frStr, '/'); idx >= 0 {
		num, err1 := strconv.Atoi(frStr[:idx])
		den, err2 := strconv.Atoi(frStr[idx+1:])
		if err1 != nil || err2 != nil {
			return VideoConfig{}, nil, fmt.Errorf("invalid exactframerate %q", frStr)
		}
		c.FrameRateNum, c.FrameRateDen = num, den
	} else {
		num, err := strconv.Atoi(frStr)
		if err != nil {
			return VideoConfig{}, nil, fmt.Errorf("invalid exactframerate %q", frStr)
		}
		c.FrameRateNum, c.FrameRateDen = num, 1
	}

	colStr, err := m.requireValue("colorimetry")
	if err != nil {
		return VideoConfig{}, nil, err
	}
	c.Colorimetry, err = parseColorimetry(colStr)
	if err != nil {
		return VideoConfig{}, nil, err
	}

	if m.has("interlace") {
		c.Interlace = true
	}
	if m.has("segmented") {
		c.Segmented = true
	}
	if v, ok := m.value("TCS"); ok {
		c.TCS, err = parseTCS(v)
		if err != nil {
			return VideoConfig{}, nil, err
		}
	}
	if v, ok := m.value("RANGE"); ok {
		c.Range, err = parseRange(v)
		if err != nil {
			return VideoConfig{}, nil, err
		}
	}
	if v, ok := m.value("PAR"); ok {
		parts := strings.SplitN(v, ":", 2)
		if len(parts) != 2 {
			return VideoConfig{}, nil, fmt.Errorf("invalid PAR %q", v)
		}
		c.PARWidth, _ = strconv.Atoi(parts[0])
		c.PARHeight, _ = strconv.Atoi(parts[1])
	}
	if v, ok := m.value("alpha_included"); ok {
		switch v {
		case "enabled":
			c.Alpha = AlphaUsed
		case "disabled":
			c.Alpha = AlphaUnused
		default:
			return VideoConfig{}, nil, fmt.Errorf("invalid alpha_included %q", v)
		}
	}
	if v, ok := m.value("partial_frame"); ok {
		var w, h, x, y int
		_, err := fmt.Sscanf(v, "%dx%d+%d+%d", &w, &h, &x, &y)
		if err != nil {
			return VideoConfig{}, nil, fmt.Errorf("invalid partial_frame %q", v)
		}
		c.HorizontalSize, c.VerticalSize, c.StartHorizontalPos, c.StartVerticalPos = w, h, x, y
	}

	return c, unknownKeys(data, videoKnownKeys), nil
}
