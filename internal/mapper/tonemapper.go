package mapper

import (
	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/observability"
)

// ToneMapper is the legacy frequency mapper: every grid cell becomes a
// sine source whose pitch encodes distance (far = higher) and whose
// loudness equals its closeness. Kept as a drop-in alternative to the zone
// mapper for listeners used to the older sonification.
type ToneMapper struct {
	gridSize    int
	minDepth    float64
	maxDepth    float64
	inverse     bool
	minLoudness float64
	depthScale  float64
	spatial     bool
	baseFreq    float64
	freqSpan    float64
	maxSources  int
}

// NewToneMapper builds the legacy tone mapper from the settings.
func NewToneMapper(settings *conf.Settings) *ToneMapper {
	return &ToneMapper{
		gridSize:    settings.Mapper.GridSize,
		minDepth:    settings.Mapper.MinDepth,
		maxDepth:    settings.Mapper.MaxDepth,
		inverse:     settings.Mapper.Inverse,
		minLoudness: settings.Mapper.MinLoudness,
		depthScale:  settings.Mapper.DepthScale,
		spatial:     settings.Audio.Backend == conf.BackendSpatial,
		baseFreq:    settings.Mapper.BaseFrequency,
		freqSpan:    settings.Mapper.FrequencySpan,
		maxSources:  settings.Audio.MaxVoices,
	}
}

// Map produces one tone source per grid cell within the depth range.
func (m *ToneMapper) Map(frame *DepthFrame) []SourceDescriptor {
	cells := scanGrid(frame, m.gridSize, m.minDepth, m.maxDepth, m.inverse)

	candidates := make([]SourceDescriptor, 0, len(cells))
	for _, cell := range cells {
		if cell.closeness < m.minLoudness {
			continue
		}

		x, y := cellPosition(cell.gx, cell.gy, m.gridSize)
		pos := Position{X: x, Y: y}
		if m.spatial {
			pos.Z = -1.0 - (1.0-cell.closeness)*m.depthScale
		}

		candidates = append(candidates, SourceDescriptor{
			Pos:       pos,
			Loudness:  cell.closeness,
			Frequency: m.baseFreq + (1.0-cell.closeness)*m.freqSpan,
			Key:       CellKey{Cell: cell.gy*m.gridSize + cell.gx, ZoneID: "tone"},
		})
	}

	observability.FramesMapped.Inc()
	return limitLoudest(candidates, m.maxSources)
}
