// Package zones implements the sound zone catalog: a declarative mapping
// from closeness intervals to looping audio samples. Intervals may overlap;
// the overlap encodes the cross-fade between neighboring zones.
package zones

import (
	"fmt"
	"math"
	"sort"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/errors"
)

// Zone is an immutable sound zone descriptor.
type Zone struct {
	ID           string  // unique identifier, e.g. "ocean"
	MinCloseness float64 // lower closeness bound, inclusive
	MaxCloseness float64 // upper closeness bound, inclusive
	SampleFile   string  // audio file backing this zone
	BaseVolume   float64 // contribution at full intensity
	FadeDistance float64 // width of the linear edge ramp, 0 = hard cutoff
}

// Contains reports whether closeness falls within the zone interval.
func (z *Zone) Contains(closeness float64) bool {
	return closeness >= z.MinCloseness && closeness <= z.MaxCloseness
}

// Weight returns the fade-ramped contribution of this zone for the given
// closeness, in [0, BaseVolume]. Outside the interval the weight is zero.
// Inside it, the weight ramps linearly from 0 at the nearer interval edge to
// BaseVolume once the distance to that edge reaches FadeDistance.
func (z *Zone) Weight(closeness float64) float64 {
	if !z.Contains(closeness) {
		return 0
	}
	if z.FadeDistance <= 0 {
		return z.BaseVolume
	}
	edge := math.Min(closeness-z.MinCloseness, z.MaxCloseness-closeness)
	if edge >= z.FadeDistance {
		return z.BaseVolume
	}
	return z.BaseVolume * (edge / z.FadeDistance)
}

// ZoneWeight is one zone's contribution for a closeness value.
type ZoneWeight struct {
	ZoneID string
	Weight float64
}

// Catalog is an ordered, immutable set of zones. Built once at
// configuration time; swapped as a whole when switching soundscapes.
type Catalog struct {
	zones []Zone
	byID  map[string]*Zone
}

// NewCatalog validates the zone definitions and builds a catalog. Zones are
// kept in their configured order.
func NewCatalog(defs []conf.ZoneSettings) (*Catalog, error) {
	c := &Catalog{
		zones: make([]Zone, 0, len(defs)),
		byID:  make(map[string]*Zone, len(defs)),
	}

	var errs []error
	for i := range defs {
		z := Zone{
			ID:           defs[i].ID,
			MinCloseness: defs[i].MinCloseness,
			MaxCloseness: defs[i].MaxCloseness,
			SampleFile:   defs[i].SampleFile,
			BaseVolume:   defs[i].BaseVolume,
			FadeDistance: defs[i].FadeDistance,
		}
		if err := validateZone(&z); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.byID[z.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate zone id %q", z.ID))
			continue
		}
		c.zones = append(c.zones, z)
	}
	for i := range c.zones {
		c.byID[c.zones[i].ID] = &c.zones[i]
	}

	if len(errs) > 0 {
		return nil, errors.New(errors.Join(errs...)).
			Component("zones").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if len(c.zones) == 0 {
		return nil, errors.Newf("zone catalog is empty").
			Component("zones").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return c, nil
}

func validateZone(z *Zone) error {
	if z.ID == "" {
		return fmt.Errorf("zone with empty id")
	}
	for name, v := range map[string]float64{
		"mincloseness": z.MinCloseness,
		"maxcloseness": z.MaxCloseness,
		"basevolume":   z.BaseVolume,
		"fadedistance": z.FadeDistance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("zone %q: %s is not a finite number", z.ID, name)
		}
	}
	if z.MinCloseness < 0 || z.MinCloseness > 1 {
		return fmt.Errorf("zone %q: mincloseness %g outside [0,1]", z.ID, z.MinCloseness)
	}
	if z.MaxCloseness < 0 || z.MaxCloseness > 1 {
		return fmt.Errorf("zone %q: maxcloseness %g outside [0,1]", z.ID, z.MaxCloseness)
	}
	if z.MinCloseness >= z.MaxCloseness {
		return fmt.Errorf("zone %q: mincloseness %g must be below maxcloseness %g",
			z.ID, z.MinCloseness, z.MaxCloseness)
	}
	if z.BaseVolume <= 0 {
		return fmt.Errorf("zone %q: basevolume must be positive, got %g", z.ID, z.BaseVolume)
	}
	if z.FadeDistance < 0 {
		return fmt.Errorf("zone %q: fadedistance must not be negative, got %g", z.ID, z.FadeDistance)
	}
	return nil
}

// Resolve returns the weighted contributions of every zone whose interval
// contains the given closeness, in catalog order. Zones contributing zero
// weight are omitted. Multiple zones returning non-zero weight for the same
// closeness is expected in overlap regions.
func (c *Catalog) Resolve(closeness float64) []ZoneWeight {
	var out []ZoneWeight
	for i := range c.zones {
		if w := c.zones[i].Weight(closeness); w > 0 {
			out = append(out, ZoneWeight{ZoneID: c.zones[i].ID, Weight: w})
		}
	}
	return out
}

// Zone returns the zone with the given id, or nil.
func (c *Catalog) Zone(id string) *Zone {
	return c.byID[id]
}

// Zones returns the zones in catalog order. Callers must not mutate the
// returned slice.
func (c *Catalog) Zones() []Zone {
	return c.zones
}

// SampleFiles returns the distinct sample files referenced by the catalog,
// sorted for deterministic load order.
func (c *Catalog) SampleFiles() []string {
	seen := make(map[string]struct{}, len(c.zones))
	var files []string
	for i := range c.zones {
		f := c.zones[i].SampleFile
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
