package baseline

import (
	"fmt"
	"strconv"
	"strings"
)

// token is one "key=value" or bare-flag entry of a baseline profile
// string.
type token struct {
	key      string
	value    string
	hasValue bool
}

// splitTokens splits a baseline profile data string on "; " boundaries.
func splitTokens(s string) []string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	if s == "" {
		return nil
	}
	return strings.Split(s, "; ")
}

// parseToken splits a single "key=value" or bare-flag token.
func parseToken(raw string) token {
	if idx := strings.IndexByte(raw, '='); idx >= 0 {
		return token{key: raw[:idx], value: raw[idx+1:], hasValue: true}
	}
	return token{key: raw}
}

// tokenMap indexes tokens by key, preserving the raw value string so
// callers can apply field-specific parsing (e.g. splitting "width=1920,
// height=1080" further).
type tokenMap map[string]token

func parseTokenMap(data string) tokenMap {
	m := tokenMap{}
	for _, raw := range splitTokens(data) {
		t := parseToken(raw)
		m[t.key] = t
	}
	return m
}

func (m tokenMap) has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m tokenMap) value(key string) (string, bool) {
	t, ok := m[key]
	if !ok || !t.hasValue {
		return "", false
	}
	return t.value, true
}

func (m tokenMap) requireValue(key string) (string, error) {
	v, ok := m.value(key)
	if !ok {
		return "", fmt.Errorf("missing required key %q", key)
	}
	return v, nil
}

func (m tokenMap) requireInt(key string) (int, error) {
	v, err := m.requireValue(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("key %q: invalid integer %q", key, v)
	}
	return n, nil
}

// ParseProfileVersion parses the mandatory leading
// "cdi_profile_version=<major>.<minor>" token.
func ParseProfileVersion(data string) (ProfileVersion, error) {
	m := parseTokenMap(data)
	v, err := m.requireValue("cdi_profile_version")
	if err != nil {
		return ProfileVersion{}, err
	}

	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return ProfileVersion{}, fmt.Errorf("invalid cdi_profile_version %q", v)
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return ProfileVersion{}, fmt.Errorf("invalid cdi_profile_version %q", v)
	}

	return ProfileVersion{Major: major, Minor: minor}, nil
}

func formatProfileVersion(v ProfileVersion) string {
	return fmt.Sprintf("cdi_profile_version=%02d.%02d", v.Major, v.Minor)
}

// unknownKeys returns every key in data not present in known, for the
// "unknown keys are logged as warnings but do not fail parsing" rule of
// spec §4.8.
func unknownKeys(data string, known map[string]bool) []string {
	var out []string
	for _, raw := range splitTokens(data) {
		t := parseToken(raw)
		if !known[t.key] {
			out = append(out, t.key)
		}
	}
	return out
}
