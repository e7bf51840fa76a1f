// Package render implements the mixing/output engine: it reconciles each
// published source descriptor list against a bounded table of voices and
// continuously renders looped, panned sample playback into the output
// device. The render path is lock-free: the update side publishes immutable
// snapshots through an atomic pointer and reconciliation happens once per
// publish, on the render side.
package render

import (
	"log/slog"
	"sync/atomic"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/logging"
	"github.com/tphakala/soundscape-go/internal/mapper"
	"github.com/tphakala/soundscape-go/internal/observability"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

// Output is the backend contract the orchestrator drives. Implementations
// are chosen once at configuration time.
type Output interface {
	Start() error
	UpdateSources(sources []mapper.SourceDescriptor)
	Stop()
}

// snapshot is one immutable hand-off from the sensing cadence to the
// render cadence.
type snapshot struct {
	gen     uint64
	sources []mapper.SourceDescriptor
}

// Engine mixes the current voice table into interleaved stereo frames.
// It implements Output for both the stereo and the spatial backend; the
// spatial flag switches the positioning model.
type Engine struct {
	sampleRate     int
	maxVoices      int
	masterVolume   float32
	fadeOutSamples int
	rampCoeff      float32
	spatial        bool
	deviceName     string

	bank    *samplebank.Bank
	catalog *zones.Catalog

	voices  []voice
	scratch []float32 // per-voice mono block, render side only

	pending    atomic.Pointer[snapshot]
	publishGen atomic.Uint64
	applied    uint64 // render side only

	device *playbackDevice
	logger *slog.Logger
}

// NewEngine builds a mixing engine from the settings. The catalog maps
// zone ids to sample files; the bank supplies the decoded samples.
func NewEngine(settings *conf.Settings, catalog *zones.Catalog, bank *samplebank.Bank) *Engine {
	fadeOut := settings.Audio.SampleRate * settings.Audio.FadeOutMs / 1000
	if fadeOut < 1 {
		fadeOut = 1
	}
	rampSamples := settings.Audio.SampleRate * settings.Audio.GainRampMs / 1000
	if rampSamples < 1 {
		rampSamples = 1
	}

	return &Engine{
		sampleRate:     settings.Audio.SampleRate,
		maxVoices:      settings.Audio.MaxVoices,
		masterVolume:   float32(settings.Audio.MasterVolume),
		fadeOutSamples: fadeOut,
		rampCoeff:      1.0 / float32(rampSamples),
		spatial:        settings.Audio.Backend == conf.BackendSpatial,
		deviceName:     settings.Audio.Device,
		bank:           bank,
		catalog:        catalog,
		voices:         make([]voice, settings.Audio.MaxVoices),
		logger:         logging.ForService("render"),
	}
}

// UpdateSources publishes a new source list to the render path. The list
// must not be mutated afterwards; the mapper produces a fresh list per
// frame. Only the most recent publish is ever observed by the renderer.
func (e *Engine) UpdateSources(sources []mapper.SourceDescriptor) {
	snap := &snapshot{
		gen:     e.publishGen.Add(1),
		sources: sources,
	}
	e.pending.Store(snap)
	observability.SnapshotsPublished.Inc()
}

// RenderBlock fills out with interleaved stereo frames. Called from the
// device callback; also directly callable in tests. Applies at most one
// pending snapshot, then advances and mixes every live voice.
func (e *Engine) RenderBlock(out []float32) {
	if snap := e.pending.Load(); snap != nil && snap.gen != e.applied {
		e.reconcile(snap.sources)
		e.applied = snap.gen
	}

	for i := range out {
		out[i] = 0
	}

	frames := len(out) / conf.NumChannels
	if cap(e.scratch) < frames {
		e.scratch = make([]float32, frames)
	}
	live := 0
	for i := range e.voices {
		v := &e.voices[i]
		if v.state == voiceIdle {
			continue
		}
		v.mix(out, frames, e.scratch, e)
		if v.state != voiceIdle {
			live++
		}
	}
	observability.ActiveVoices.Set(float64(live))

	for i := range out {
		s := out[i] * e.masterVolume
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = s
	}
}

// reconcile drives the voice lifecycle for one published list: matching
// voices get new targets, unmatched descriptors claim idle slots, and
// voices with no matching descriptor start their fade-out.
func (e *Engine) reconcile(sources []mapper.SourceDescriptor) {
	matched := make([]bool, len(e.voices))

	// first pass: update voices whose grid-cell key persists
	remaining := sources[:0:0]
	for _, sd := range sources {
		idx := e.findVoice(sd.Key)
		if idx < 0 {
			remaining = append(remaining, sd)
			continue
		}
		amp, pan := e.targetsFor(sd)
		e.voices[idx].retarget(amp, pan)
		matched[idx] = true
	}

	// second pass: allocate idle slots for new descriptors. The mapper
	// already bounds the list, this is the engine's own hard ceiling.
	for _, sd := range remaining {
		idx := e.findIdle()
		if idx < 0 {
			break
		}
		if !e.startVoice(&e.voices[idx], sd) {
			continue
		}
		matched[idx] = true
	}

	// third pass: everything live but unmatched fades out
	for i := range e.voices {
		v := &e.voices[i]
		if matched[i] || v.state != voiceActive {
			continue
		}
		v.beginFadeOut(e.fadeOutSamples)
	}
}

func (e *Engine) findVoice(key mapper.CellKey) int {
	for i := range e.voices {
		if e.voices[i].state != voiceIdle && e.voices[i].key == key {
			return i
		}
	}
	return -1
}

func (e *Engine) findIdle() int {
	for i := range e.voices {
		if e.voices[i].state == voiceIdle {
			return i
		}
	}
	return -1
}

// startVoice binds a descriptor to an idle slot. Zone descriptors need
// their sample loaded; a zone whose sample is unavailable produces no
// voice. Tone descriptors synthesize and need no material.
func (e *Engine) startVoice(v *voice, sd mapper.SourceDescriptor) bool {
	var sample *samplebank.AudioSample
	if sd.ZoneID != "" && sd.Frequency == 0 {
		zone := e.catalog.Zone(sd.ZoneID)
		if zone == nil {
			return false
		}
		sample = e.bank.Get(zone.SampleFile)
		if sample == nil {
			return false
		}
	}
	amp, pan := e.targetsFor(sd)
	v.start(sd, sample, amp, pan)
	return true
}

// DrainVoices releases every live voice. Called on shutdown after the
// device has stopped, so no render tick can be in flight.
func (e *Engine) DrainVoices() {
	for i := range e.voices {
		e.voices[i] = voice{}
	}
	observability.ActiveVoices.Set(0)
}

// liveVoices returns the number of non-idle voices, for tests.
func (e *Engine) liveVoices() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].state != voiceIdle {
			n++
		}
	}
	return n
}
