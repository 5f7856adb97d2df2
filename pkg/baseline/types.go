// Package baseline implements the AVM baseline-profile configuration
// codec (spec §4.8): the textual key=value configuration string embedded
// in the generic configuration blob, for the three registered media
// types (video, audio, ancillary).
package baseline

// MediaType identifies which baseline profile a configuration string
// belongs to, selected by exact match of the generic configuration's
// uri[] field (spec §6).
type MediaType int

// Registered media types and their URIs (spec §6, exact match required).
const (
	MediaTypeVideo MediaType = iota
	MediaTypeAudio
	MediaTypeAncillary
)

// URIs, exact-match only.
const (
	URIVideo     = "https://cdi.elemental.com/specs/baseline-video"
	URIAudio     = "https://cdi.elemental.com/specs/baseline-audio"
	URIAncillary = "https://cdi.elemental.com/specs/baseline-ancillary-data"
)

// URIForMediaType returns the registered URI for a media type.
func URIForMediaType(mt MediaType) (string, bool) {
	switch mt {
	case MediaTypeVideo:
		return URIVideo, true
	case MediaTypeAudio:
		return URIAudio, true
	case MediaTypeAncillary:
		return URIAncillary, true
	default:
		return "", false
	}
}

// MediaTypeForURI returns the media type registered for uri, by exact
// match, per spec §6.
func MediaTypeForURI(uri string) (MediaType, bool) {
	switch uri {
	case URIVideo:
		return MediaTypeVideo, true
	case URIAudio:
		return MediaTypeAudio, true
	case URIAncillary:
		return MediaTypeAncillary, true
	default:
		return 0, false
	}
}

// ProfileVersion is the "cdi_profile_version=<major>.<minor>" value that
// must lead every baseline configuration string.
type ProfileVersion struct {
	Major int
	Minor int
}
