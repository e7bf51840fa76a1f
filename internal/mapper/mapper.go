// Package mapper converts depth frames into bounded lists of positioned
// audio source descriptors. Two interchangeable mappers exist: the zone
// mapper driven by the sound zone catalog, and the legacy tone mapper that
// renders distance as pitch. The mapper is selected once at startup and
// never switched mid-run.
package mapper

import (
	"fmt"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

// DepthFrame is a dense row-major grid of raw depth values produced by the
// depth estimation pipeline.
type DepthFrame struct {
	Width  int
	Height int
	Data   []float32 // len = Width*Height, row-major
}

// At returns the depth value at pixel (x, y).
func (f *DepthFrame) At(x, y int) float32 {
	return f.Data[y*f.Width+x]
}

// Valid reports whether the frame dimensions match its data.
func (f *DepthFrame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height
}

// Position locates a source in the listener's frame. X spans -1 (left) to
// +1 (right), Y spans -1 (bottom) to +1 (top). Z is 0 in stereo mode; in
// spatial mode it grows more negative with distance, listener at origin.
type Position struct {
	X float64
	Y float64
	Z float64
}

// CellKey identifies "the same" source across consecutive frames: the
// row-major grid cell index plus the zone it plays. Voices keyed on it keep
// their playback cursor when a source persists between frames.
type CellKey struct {
	Cell   int
	ZoneID string
}

// SourceDescriptor is one weighted audio source derived from a grid cell.
// Ephemeral: a fresh list is produced every frame.
type SourceDescriptor struct {
	ZoneID    string   // zone whose sample to play, empty for tone sources
	Pos       Position // normalized listener-frame position
	Loudness  float64  // 0..1
	Frequency float64  // tone sources only, Hz
	Key       CellKey
}

// Mapper turns one depth frame into a bounded source descriptor list.
type Mapper interface {
	Map(frame *DepthFrame) []SourceDescriptor
}

// New builds the configured mapper implementation.
func New(settings *conf.Settings, catalog *zones.Catalog, bank *samplebank.Bank) (Mapper, error) {
	switch settings.Mapper.Type {
	case conf.MapperZone:
		return NewZoneMapper(settings, catalog, bank), nil
	case conf.MapperTone:
		return NewToneMapper(settings), nil
	default:
		return nil, fmt.Errorf("unknown mapper type %q", settings.Mapper.Type)
	}
}
