// validate.go validation of the loaded settings
package conf

import (
	"fmt"

	"github.com/tphakala/soundscape-go/internal/errors"
)

// ValidateSettings checks the numeric and enum fields of the settings.
// Zone interval validation happens when the zone catalog is built.
func ValidateSettings(s *Settings) error {
	var errs []error

	switch s.Audio.Backend {
	case BackendStereo, BackendSpatial:
	default:
		errs = append(errs, fmt.Errorf("audio.backend must be %q or %q, got %q",
			BackendStereo, BackendSpatial, s.Audio.Backend))
	}

	if s.Audio.SampleRate < 8000 || s.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.samplerate out of range: %d", s.Audio.SampleRate))
	}
	if s.Audio.BufferFrames < 64 || s.Audio.BufferFrames > 16384 {
		errs = append(errs, fmt.Errorf("audio.bufferframes out of range: %d", s.Audio.BufferFrames))
	}
	if s.Audio.MaxVoices < 1 {
		errs = append(errs, fmt.Errorf("audio.maxvoices must be positive, got %d", s.Audio.MaxVoices))
	}
	if s.Audio.FadeOutMs < 0 {
		errs = append(errs, fmt.Errorf("audio.fadeoutms must not be negative, got %d", s.Audio.FadeOutMs))
	}
	if s.Audio.MasterVolume < 0 || s.Audio.MasterVolume > 1 {
		errs = append(errs, fmt.Errorf("audio.mastervolume must be within [0,1], got %g", s.Audio.MasterVolume))
	}

	switch s.Mapper.Type {
	case MapperZone, MapperTone:
	default:
		errs = append(errs, fmt.Errorf("mapper.type must be %q or %q, got %q",
			MapperZone, MapperTone, s.Mapper.Type))
	}

	if s.Mapper.GridSize < 1 {
		errs = append(errs, fmt.Errorf("mapper.gridsize must be positive, got %d", s.Mapper.GridSize))
	}
	if s.Mapper.MinDepth >= s.Mapper.MaxDepth {
		errs = append(errs, fmt.Errorf("mapper.mindepth (%g) must be below mapper.maxdepth (%g)",
			s.Mapper.MinDepth, s.Mapper.MaxDepth))
	}
	if s.Mapper.MinLoudness < 0 || s.Mapper.MinLoudness > 1 {
		errs = append(errs, fmt.Errorf("mapper.minloudness must be within [0,1], got %g", s.Mapper.MinLoudness))
	}

	if s.Realtime.FrameRate < 1 || s.Realtime.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("realtime.framerate out of range: %d", s.Realtime.FrameRate))
	}

	switch s.Realtime.Provider {
	case ProviderSynthetic, ProviderFile:
	default:
		errs = append(errs, fmt.Errorf("realtime.provider must be %q or %q, got %q",
			ProviderSynthetic, ProviderFile, s.Realtime.Provider))
	}
	if s.Realtime.Provider == ProviderFile && s.Realtime.FramePath == "" {
		errs = append(errs, fmt.Errorf("realtime.framepath is required for the %q provider", ProviderFile))
	}

	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}
