package baseline

import (
	"sync"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
)

// VTable is the set of operations the registry dispatches to for a given
// (media_type, version) pair (spec §4.8): "a profile registry maps
// (media_type, version) to a v-table of {make_config, parse_config,
// get_unit_size, key_array}."
//
// Config values are passed as opaque interface{} because the three media
// types carry unrelated struct shapes (VideoConfig, AudioConfig,
// AncillaryConfig); callers type-assert to the concrete type they
// registered.
type VTable struct {
	MakeConfig  func(cfg interface{}) string
	ParseConfig func(data string) (cfg interface{}, unknownKeys []string, err error)
	GetUnitSize func(cfg interface{}) int
	KeyArray    []string
}

type registryKey struct {
	mediaType MediaType
	version   ProfileVersion
}

// Registry is a process-wide, read-mostly v-table registry; the default
// one is populated by this package's init() (spec §5: "write-once at startup and read-only thereafter; a
// static initializer mutex guards first-use registration").
type Registry struct {
	mu      sync.RWMutex
	entries map[registryKey]VTable
}

var defaultRegistry = NewRegistry()

// NewRegistry allocates an empty registry. Most callers use the
// process-wide DefaultRegistry(), which is pre-populated by init().
func NewRegistry() *Registry {
	return &Registry{entries: map[registryKey]VTable{}}
}

// DefaultRegistry returns the process-wide registry, pre-populated with
// the video/audio/ancillary version-01.00 v-tables.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a v-table for (mediaType, version). Registering the same
// pair twice returns ErrDuplicateBaselineVersion and leaves the registry
// unchanged (spec §4.8: "Registration after first use must be rejected
// with a duplicate-version error.").
func (r *Registry) Register(mediaType MediaType, version ProfileVersion, vt VTable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{mediaType, version}
	if _, exists := r.entries[key]; exists {
		uri, _ := URIForMediaType(mediaType)
		return &liberrors.ErrDuplicateBaselineVersion{
			MediaType: uri,
			Version:   formatProfileVersion(version),
		}
	}

	r.entries[key] = vt
	return nil
}

// Lookup returns the v-table registered for (mediaType, version).
func (r *Registry) Lookup(mediaType MediaType, version ProfileVersion) (VTable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vt, ok := r.entries[registryKey{mediaType, version}]
	if !ok {
		uri, _ := URIForMediaType(mediaType)
		return VTable{}, &liberrors.ErrProfileNotSupported{
			MediaType: uri,
			Version:   formatProfileVersion(version),
		}
	}
	return vt, nil
}

func init() {
	v1 := ProfileVersion{Major: 1, Minor: 0}

	_ = defaultRegistry.Register(MediaTypeVideo, v1, VTable{
		MakeConfig: func(cfg interface{}) string {
			return MakeVideoConfig(cfg.(VideoConfig))
		},
		ParseConfig: func(data string) (interface{}, []string, error) {
			c, unknown, err := ParseVideoConfig(data)
			return c, unknown, err
		},
		GetUnitSize: func(cfg interface{}) int {
			return VideoUnitSize(cfg.(VideoConfig))
		},
		KeyArray: []string{
			"cdi_profile_version", "sampling", "depth", "width", "height",
			"exactframerate", "colorimetry", "interlace", "segmented",
			"TCS", "RANGE", "PAR", "alpha_included", "partial_frame",
		},
	})

	_ = defaultRegistry.Register(MediaTypeAudio, v1, VTable{
		MakeConfig: func(cfg interface{}) string {
			return MakeAudioConfig(cfg.(AudioConfig))
		},
		ParseConfig: func(data string) (interface{}, []string, error) {
			c, unknown, err := ParseAudioConfig(data)
			return c, unknown, err
		},
		GetUnitSize: func(cfg interface{}) int {
			return AudioUnitSize(cfg.(AudioConfig))
		},
		KeyArray: []string{"cdi_profile_version", "order", "rate", "language"},
	})

	_ = defaultRegistry.Register(MediaTypeAncillary, v1, VTable{
		MakeConfig: func(cfg interface{}) string {
			return MakeAncillaryConfig(cfg.(AncillaryConfig))
		},
		ParseConfig: func(data string) (interface{}, []string, error) {
			c, unknown, err := ParseAncillaryConfig(data)
			return c, unknown, err
		},
		GetUnitSize: func(cfg interface{}) int {
			return AncillaryUnitSize
		},
		KeyArray: []string{"cdi_profile_version"},
	})
}
