package mapper

import (
	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/observability"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

// ZoneMapper maps depth frames to sources drawn from the sound zone
// catalog. Each grid cell resolves its closeness against the catalog and
// contributes one source per matching zone.
type ZoneMapper struct {
	catalog     *zones.Catalog
	bank        *samplebank.Bank
	gridSize    int
	minDepth    float64
	maxDepth    float64
	inverse     bool
	minLoudness float64
	depthScale  float64
	spatial     bool
	maxSources  int
}

// NewZoneMapper builds a zone mapper from the settings. The bank is used
// only to skip zones whose sample is unavailable; pass nil to emit sources
// for every configured zone.
func NewZoneMapper(settings *conf.Settings, catalog *zones.Catalog, bank *samplebank.Bank) *ZoneMapper {
	return &ZoneMapper{
		catalog:     catalog,
		bank:        bank,
		gridSize:    settings.Mapper.GridSize,
		minDepth:    settings.Mapper.MinDepth,
		maxDepth:    settings.Mapper.MaxDepth,
		inverse:     settings.Mapper.Inverse,
		minLoudness: settings.Mapper.MinLoudness,
		depthScale:  settings.Mapper.DepthScale,
		spatial:     settings.Audio.Backend == conf.BackendSpatial,
		maxSources:  settings.Audio.MaxVoices,
	}
}

// Map produces a fresh, bounded source descriptor list for one frame.
// Deterministic: the same frame and configuration always yield the same
// list.
func (m *ZoneMapper) Map(frame *DepthFrame) []SourceDescriptor {
	cells := scanGrid(frame, m.gridSize, m.minDepth, m.maxDepth, m.inverse)

	// A cell resolves each zone at most once, but duplicate (cell, zone)
	// pairs are still merged on maximum loudness so the list never
	// double-counts.
	merged := make(map[CellKey]SourceDescriptor, len(cells))

	for _, cell := range cells {
		weights := m.catalog.Resolve(cell.closeness)
		if len(weights) == 0 {
			continue
		}

		x, y := cellPosition(cell.gx, cell.gy, m.gridSize)
		pos := Position{X: x, Y: y}
		if m.spatial {
			// listener looks down -Z; farther cells sit deeper
			pos.Z = -1.0 - (1.0-cell.closeness)*m.depthScale
		}

		for _, zw := range weights {
			if zw.Weight < m.minLoudness {
				continue
			}
			if m.bank != nil {
				zone := m.catalog.Zone(zw.ZoneID)
				if zone == nil || m.bank.Get(zone.SampleFile) == nil {
					continue
				}
			}

			loudness := zw.Weight
			if loudness > 1 {
				loudness = 1
			}

			key := CellKey{Cell: cell.gy*m.gridSize + cell.gx, ZoneID: zw.ZoneID}
			if prev, ok := merged[key]; !ok || loudness > prev.Loudness {
				merged[key] = SourceDescriptor{
					ZoneID:   zw.ZoneID,
					Pos:      pos,
					Loudness: loudness,
					Key:      key,
				}
			}
		}
	}

	candidates := make([]SourceDescriptor, 0, len(merged))
	for _, sd := range merged {
		candidates = append(candidates, sd)
	}

	observability.FramesMapped.Inc()
	return limitLoudest(candidates, m.maxSources)
}
