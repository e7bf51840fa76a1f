// Package soundscape wires the depth provider, the mapper and the output
// engine into the sensing loop. The loop runs at the configured frame rate,
// publishes one source list per depth frame, and leaves all audio-rate work
// to the engine's device callback.
package soundscape

import (
	"context"
	"log/slog"
	"time"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/depth"
	"github.com/tphakala/soundscape-go/internal/errors"
	"github.com/tphakala/soundscape-go/internal/logging"
	"github.com/tphakala/soundscape-go/internal/mapper"
	"github.com/tphakala/soundscape-go/internal/render"
	"github.com/tphakala/soundscape-go/internal/samplebank"
	"github.com/tphakala/soundscape-go/internal/zones"
)

// SourceEvent is the externally visible shape of an active source: where it
// is and which zone it plays. Loudness and frequency stay internal.
type SourceEvent struct {
	ZoneID string
	Pos    mapper.Position
}

// Observer receives the source list after every mapped frame. Called from
// the sensing goroutine, so it must return quickly.
type Observer func([]SourceEvent)

// Soundscape owns the sensing loop and its pipeline stages.
type Soundscape struct {
	settings *conf.Settings
	provider depth.Provider
	mapper   mapper.Mapper
	output   render.Output
	observer Observer

	// rebuildStereo recreates the output with the stereo backend, set only
	// when the soundscape built its own engine and may fall back.
	rebuildStereo func() render.Output

	logger *slog.Logger
}

// New assembles the full pipeline from the settings: zone catalog, sample
// bank with every zone sample preloaded, depth provider, mapper and engine.
func New(settings *conf.Settings) (*Soundscape, error) {
	logger := logging.ForService("soundscape")
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := zones.NewCatalog(settings.Zones)
	if err != nil {
		return nil, err
	}

	// A zone whose sample cannot be loaded degrades to silence: the mapper
	// skips it and the engine starts no voice for it. Preload failures are
	// therefore advisory, not fatal.
	bank := samplebank.NewBank(settings.Audio.SampleRate)
	if err := bank.Preload(catalog.SampleFiles()); err != nil {
		logger.Warn("some zone samples unavailable, affected zones stay silent", "error", err)
	}

	provider, err := depth.New(settings)
	if err != nil {
		return nil, err
	}

	m, err := mapper.New(settings, catalog, bank)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	s := &Soundscape{
		settings: settings,
		provider: provider,
		mapper:   m,
		output:   render.NewEngine(settings, catalog, bank),
		logger:   logger,
	}
	if settings.Audio.Backend == conf.BackendSpatial {
		s.rebuildStereo = func() render.Output {
			stereo := *settings
			stereo.Audio.Backend = conf.BackendStereo
			return render.NewEngine(&stereo, catalog, bank)
		}
	}
	return s, nil
}

// SetObserver registers a source list observer. Must be called before Run.
func (s *Soundscape) SetObserver(obs Observer) {
	s.observer = obs
}

// Run starts the output and drives the sensing loop until ctx is canceled.
// On return the output has stopped, its voices are drained and the provider
// is closed.
func (s *Soundscape) Run(ctx context.Context) error {
	if err := s.startOutput(); err != nil {
		_ = s.provider.Close()
		return err
	}
	defer s.output.Stop()
	defer s.provider.Close() //nolint:errcheck

	rate := s.settings.Realtime.FrameRate
	if rate < 1 {
		rate = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	s.logger.Info("sensing loop started",
		"frame_rate", rate,
		"provider", s.settings.Realtime.Provider,
		"mapper", s.settings.Mapper.Type)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sensing loop stopping")
			return nil
		case <-ticker.C:
			if err := s.step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// step consumes one depth frame and publishes the mapped sources.
func (s *Soundscape) step(ctx context.Context) error {
	frame, err := s.provider.Next(ctx)
	if err != nil {
		return err
	}
	if !frame.Valid() {
		s.logger.Warn("skipping malformed depth frame",
			"width", frame.Width, "height", frame.Height, "values", len(frame.Data))
		return nil
	}

	sources := s.mapper.Map(frame)
	s.output.UpdateSources(sources)

	if s.observer != nil {
		events := make([]SourceEvent, len(sources))
		for i, sd := range sources {
			events[i] = SourceEvent{ZoneID: sd.ZoneID, Pos: sd.Pos}
		}
		s.observer(events)
	}
	return nil
}

// startOutput opens the audio output. A spatial backend that fails to start
// is retried once in stereo so a missing spatial device degrades instead of
// aborting the session.
func (s *Soundscape) startOutput() error {
	err := s.output.Start()
	if err == nil {
		return nil
	}
	if s.rebuildStereo == nil {
		return err
	}

	s.logger.Warn("spatial output unavailable, falling back to stereo", "error", err)
	s.output = s.rebuildStereo()
	if err := s.output.Start(); err != nil {
		return errors.Newf("stereo fallback failed too: %v", err).
			Component("soundscape").
			Category(errors.CategoryAudioDevice).
			Build()
	}
	return nil
}
