package soundscape

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/depth"
	"github.com/tphakala/soundscape-go/internal/errors"
	"github.com/tphakala/soundscape-go/internal/mapper"
	"github.com/tphakala/soundscape-go/internal/render"
	"github.com/tphakala/soundscape-go/internal/zones"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubOutput stands in for the audio engine so the loop can run without a
// playback device.
type stubOutput struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	failure  error
	updates  int
	lastList []mapper.SourceDescriptor
}

func (o *stubOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failure != nil {
		return o.failure
	}
	o.started = true
	return nil
}

func (o *stubOutput) UpdateSources(sources []mapper.SourceDescriptor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates++
	o.lastList = sources
}

func (o *stubOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = true
}

func (o *stubOutput) snapshot() (started, stopped bool, updates int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started, o.stopped, o.updates
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loopSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Audio = conf.AudioSettings{
		Backend:      conf.BackendStereo,
		SampleRate:   44100,
		MaxVoices:    8,
		MasterVolume: 1.0,
	}
	s.Mapper = conf.MapperSettings{
		Type:        conf.MapperZone,
		GridSize:    4,
		MinDepth:    0.0,
		MaxDepth:    1.0,
		Inverse:     true,
		MinLoudness: 0.01,
		DepthScale:  1.0,
	}
	s.Realtime = conf.RealtimeSettings{
		FrameRate: 100, // fast ticks keep the tests short
		Provider:  conf.ProviderSynthetic,
	}
	s.Zones = conf.DefaultZones()
	return s
}

func newLoop(t *testing.T, s *conf.Settings, out render.Output) *Soundscape {
	t.Helper()

	catalog, err := zones.NewCatalog(s.Zones)
	require.NoError(t, err)
	m, err := mapper.New(s, catalog, nil)
	require.NoError(t, err)

	return &Soundscape{
		settings: s,
		provider: depth.NewSynthetic(),
		mapper:   m,
		output:   out,
		logger:   testLogger(),
	}
}

func TestRunPublishesMappedSources(t *testing.T) {
	out := &stubOutput{}
	s := newLoop(t, loopSettings(), out)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	started, stopped, updates := out.snapshot()
	assert.True(t, started, "output must be started before the first frame")
	assert.True(t, stopped, "output must be stopped on shutdown")
	assert.Greater(t, updates, 2, "the loop must publish once per frame")
}

func TestObserverReceivesZoneAndPositionOnly(t *testing.T) {
	out := &stubOutput{}
	s := newLoop(t, loopSettings(), out)

	var mu sync.Mutex
	var got []SourceEvent
	s.SetObserver(func(events []SourceEvent) {
		mu.Lock()
		defer mu.Unlock()
		if len(events) > 0 && got == nil {
			got = events
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got, "the synthetic blob must produce observable sources")
	for _, ev := range got {
		assert.NotEmpty(t, ev.ZoneID)
		assert.GreaterOrEqual(t, ev.Pos.X, -1.0)
		assert.LessOrEqual(t, ev.Pos.X, 1.0)
	}
}

func TestNewToleratesMissingZoneSamples(t *testing.T) {
	s := loopSettings()
	missing := t.TempDir()
	for i := range s.Zones {
		s.Zones[i].SampleFile = filepath.Join(missing, s.Zones[i].ID+".wav")
	}

	// unloadable samples silence their zones but must not abort startup
	sc, err := New(s)
	require.NoError(t, err)
	require.NotNil(t, sc)

	frame := &mapper.DepthFrame{Width: 20, Height: 20, Data: make([]float32, 400)}
	for i := range frame.Data {
		frame.Data[i] = 0.5
	}
	assert.Empty(t, sc.mapper.Map(frame),
		"zones without playable material contribute no sources")
}

func TestStartFailureAborts(t *testing.T) {
	out := &stubOutput{failure: errors.NewStd("no device")}
	s := newLoop(t, loopSettings(), out)

	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestSpatialFallbackToStereo(t *testing.T) {
	broken := &stubOutput{failure: errors.NewStd("spatial device missing")}
	fallback := &stubOutput{}

	s := newLoop(t, loopSettings(), broken)
	s.rebuildStereo = func() render.Output { return fallback }

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	started, stopped, updates := fallback.snapshot()
	assert.True(t, started, "fallback output must take over")
	assert.True(t, stopped)
	assert.Greater(t, updates, 0)
}

func TestFallbackFailureSurfacesError(t *testing.T) {
	broken := &stubOutput{failure: errors.NewStd("spatial device missing")}
	alsoBroken := &stubOutput{failure: errors.NewStd("stereo device missing")}

	s := newLoop(t, loopSettings(), broken)
	s.rebuildStereo = func() render.Output { return alsoBroken }

	err := s.Run(context.Background())
	assert.Error(t, err)
}
