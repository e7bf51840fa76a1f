package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/mapper"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

const testRate = 44100

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Audio = conf.AudioSettings{
		Backend:      conf.BackendStereo,
		SampleRate:   testRate,
		BufferFrames: 1024,
		MaxVoices:    8,
		FadeOutMs:    10,
		GainRampMs:   5,
		MasterVolume: 1.0,
	}
	return s
}

// writeConstWAV writes a mono 16-bit WAV holding a constant value.
func writeConstWAV(t *testing.T, path string, value float32, frames int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	enc := wav.NewEncoder(f, testRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:   make([]int, frames),
		Format: &audio.Format{SampleRate: testRate, NumChannels: 1},
	}
	for i := range buf.Data {
		buf.Data[i] = int(value * 32767)
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// newTestEngine builds an engine with one "loop" zone backed by a constant
// one-second sample.
func newTestEngine(t *testing.T, s *conf.Settings) (*Engine, *samplebank.Bank) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "loop.wav")
	writeConstWAV(t, path, 0.5, testRate)

	catalog, err := zones.NewCatalog([]conf.ZoneSettings{
		{ID: "loop", MinCloseness: 0, MaxCloseness: 1, SampleFile: path, BaseVolume: 1, FadeDistance: 0},
	})
	require.NoError(t, err)

	bank := samplebank.NewBank(testRate)
	require.NoError(t, bank.Preload(catalog.SampleFiles()))

	return NewEngine(s, catalog, bank), bank
}

func descriptor(cell int, loudness, x float64) mapper.SourceDescriptor {
	return mapper.SourceDescriptor{
		ZoneID:   "loop",
		Pos:      mapper.Position{X: x},
		Loudness: loudness,
		Key:      mapper.CellKey{Cell: cell, ZoneID: "loop"},
	}
}

func renderFrames(e *Engine, frames int) []float32 {
	out := make([]float32, frames*conf.NumChannels)
	e.RenderBlock(out)
	return out
}

func TestVoiceAllocatedForDescriptor(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{descriptor(3, 0.8, 0)})
	out := renderFrames(e, 1024)

	assert.Equal(t, 1, e.liveVoices())

	var energy float64
	for _, s := range out {
		energy += float64(s * s)
	}
	assert.Positive(t, energy, "an active voice must produce audible output")
}

func TestVoiceLifecycleActiveFadeOutIdle(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, 0)})
	renderFrames(e, 1024)
	require.Equal(t, 1, e.liveVoices())

	// descriptor disappears: voice must fade, then free its slot
	e.UpdateSources(nil)
	renderFrames(e, 256)
	assert.Equal(t, voiceFadingOut, e.voices[0].state, "voice must be fading after its source vanishes")

	// 10 ms fade = 441 frames at 44.1 kHz; this block finishes it
	renderFrames(e, 1024)
	assert.Equal(t, 0, e.liveVoices(), "faded voice must return its slot")
	assert.Equal(t, voiceIdle, e.voices[0].state)
}

func TestReappearingSourceKeepsGainContinuity(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, 0)})
	renderFrames(e, 2048)

	e.UpdateSources(nil)
	renderFrames(e, 128)
	require.Equal(t, voiceFadingOut, e.voices[0].state)
	gainMidFade := e.voices[0].gain
	require.Positive(t, gainMidFade)

	// source comes back before the fade finishes: same slot, same gain
	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, 0)})
	renderFrames(e, 1)

	v := &e.voices[0]
	assert.Equal(t, voiceActive, v.state)
	assert.InDelta(t, float64(gainMidFade), float64(v.gain), float64(gainMidFade)*0.05,
		"gain must resume from the fade point, not jump")
}

func TestVoiceCeilingEnforced(t *testing.T) {
	s := testSettings()
	s.Audio.MaxVoices = 4
	e, _ := newTestEngine(t, s)

	var sources []mapper.SourceDescriptor
	for i := 0; i < 16; i++ {
		sources = append(sources, descriptor(i, 0.5, 0))
	}
	e.UpdateSources(sources)
	renderFrames(e, 256)

	assert.Equal(t, 4, e.liveVoices(), "engine must never exceed its voice ceiling")
}

func TestMissingSampleProducesNoVoice(t *testing.T) {
	s := testSettings()
	catalog, err := zones.NewCatalog([]conf.ZoneSettings{
		{ID: "ghost", MinCloseness: 0, MaxCloseness: 1,
			SampleFile: filepath.Join(t.TempDir(), "nope.wav"),
			BaseVolume: 1, FadeDistance: 0},
	})
	require.NoError(t, err)

	bank := samplebank.NewBank(testRate)
	_ = bank.Preload(catalog.SampleFiles())

	e := NewEngine(s, catalog, bank)
	e.UpdateSources([]mapper.SourceDescriptor{{
		ZoneID:   "ghost",
		Loudness: 1,
		Key:      mapper.CellKey{Cell: 0, ZoneID: "ghost"},
	}})
	out := renderFrames(e, 256)

	assert.Equal(t, 0, e.liveVoices())
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestOnlyLatestSnapshotApplies(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{descriptor(1, 1.0, 0)})
	e.UpdateSources([]mapper.SourceDescriptor{descriptor(2, 1.0, 0)})
	renderFrames(e, 64)

	require.Equal(t, 1, e.liveVoices())
	assert.Equal(t, mapper.CellKey{Cell: 2, ZoneID: "loop"}, e.voices[0].key,
		"render must observe only the most recent publish")
}

func TestLoopCursorWraps(t *testing.T) {
	s := testSettings()

	path := filepath.Join(t.TempDir(), "short.wav")
	writeConstWAV(t, path, 0.5, 300) // shorter than one render block

	catalog, err := zones.NewCatalog([]conf.ZoneSettings{
		{ID: "loop", MinCloseness: 0, MaxCloseness: 1, SampleFile: path, BaseVolume: 1, FadeDistance: 0},
	})
	require.NoError(t, err)
	bank := samplebank.NewBank(testRate)
	require.NoError(t, bank.Preload(catalog.SampleFiles()))

	e := NewEngine(s, catalog, bank)
	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, 0)})
	renderFrames(e, 1024)

	v := &e.voices[0]
	require.Equal(t, voiceActive, v.state)
	assert.Less(t, v.cursor, 300, "cursor must wrap modulo the clip length")
	assert.Equal(t, 1024%300, v.cursor)

	// once the gain has settled, a block spanning several wraps must hold
	// the clip's constant level throughout: no gap at the loop seam
	var out []float32
	for i := 0; i < 8; i++ {
		out = renderFrames(e, 1024)
	}
	for f := 0; f < 1024; f++ {
		assert.Greater(t, out[2*f], float32(0.2), "left channel dips at frame %d", f)
		assert.Greater(t, out[2*f+1], float32(0.2), "right channel dips at frame %d", f)
	}
}

func TestStereoPanLaw(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	// hard left source: right channel stays silent
	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, -1.0)})
	var out []float32
	for i := 0; i < 8; i++ {
		out = renderFrames(e, 1024)
	}

	var left, right float64
	for f := 0; f < 1024; f++ {
		left += float64(out[2*f] * out[2*f])
		right += float64(out[2*f+1] * out[2*f+1])
	}
	assert.Positive(t, left)
	assert.InDelta(t, 0, right, 1e-6)
}

func TestToneVoiceSynthesizesWithoutSample(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{{
		Pos:       mapper.Position{X: 0},
		Loudness:  1.0,
		Frequency: 440,
		Key:       mapper.CellKey{Cell: 0, ZoneID: "tone"},
	}})

	var out []float32
	for i := 0; i < 4; i++ {
		out = renderFrames(e, 1024)
	}

	require.Equal(t, 1, e.liveVoices())
	var energy float64
	for _, s := range out {
		energy += float64(s * s)
	}
	assert.Positive(t, energy, "tone voices synthesize without sample material")
}

func TestSpatialAttenuationByDistance(t *testing.T) {
	s := testSettings()
	s.Audio.Backend = conf.BackendSpatial
	e, _ := newTestEngine(t, s)

	near, _ := e.targetsFor(mapper.SourceDescriptor{
		Loudness: 1.0, Pos: mapper.Position{X: 0, Y: 0, Z: -1},
	})
	far, _ := e.targetsFor(mapper.SourceDescriptor{
		Loudness: 1.0, Pos: mapper.Position{X: 0, Y: 0, Z: -2},
	})

	assert.InDelta(t, 1.0, float64(near), 1e-6, "reference distance plays at full loudness")
	assert.Less(t, far, near, "farther sources attenuate")
}

func TestStopWithoutStartDrainsVoices(t *testing.T) {
	e, _ := newTestEngine(t, testSettings())

	e.UpdateSources([]mapper.SourceDescriptor{descriptor(0, 1.0, 0)})
	renderFrames(e, 256)
	require.Equal(t, 1, e.liveVoices())

	e.Stop()
	assert.Equal(t, 0, e.liveVoices())
}

func TestMasterVolumeClampsOutput(t *testing.T) {
	s := testSettings()
	e, _ := newTestEngine(t, s)

	// many loud centered voices sum well past full scale
	var sources []mapper.SourceDescriptor
	for i := 0; i < 8; i++ {
		sources = append(sources, descriptor(i, 1.0, 0))
	}
	e.UpdateSources(sources)

	var out []float32
	for i := 0; i < 16; i++ {
		out = renderFrames(e, 1024)
	}
	for _, v := range out {
		assert.LessOrEqual(t, v, float32(1.0))
		assert.GreaterOrEqual(t, v, float32(-1.0))
	}
}
