package protocol

// ProtocolVersion is the negotiated {version, major, probe} triple of
// spec §3. Negotiation applies a component-wise minimum, version
// dominating major dominating probe, as described there.
type ProtocolVersion struct {
	Version Version
	Major   int
	Probe   int

	// PayloadNumMax is derived from Version on Set: 255 for v1, 65535
	// for v>=2 (spec §4.3).
	PayloadNumMax uint32
}

func min3(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Set negotiates local (the receiver of the call) against remote,
// applying min() component-wise, and derives PayloadNumMax from the
// resulting Version.
func (pv *ProtocolVersion) Set(remote ProtocolVersion) {
	if int(remote.Version) < int(pv.Version) {
		pv.Version = remote.Version
	}
	pv.Major = min3(pv.Major, remote.Major)
	pv.Probe = min3(pv.Probe, remote.Probe)

	pv.PayloadNumMax = pv.Version.PayloadNumMax()
}
