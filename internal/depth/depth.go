// Package depth supplies depth frames to the sensing loop. A Provider is a
// pull-based frame source: the orchestrator calls Next at its own cadence
// and maps whatever frame comes back. Two providers ship with the engine: a
// synthetic generator for development without camera hardware, and a raw
// file reader for replaying recorded depth streams.
package depth

import (
	"context"

	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/errors"
	"github.com/tphakala/soundscape-go/internal/mapper"
)

// Provider produces one depth frame per call. Implementations may block
// until a frame is available; they must honor ctx cancellation.
type Provider interface {
	Next(ctx context.Context) (*mapper.DepthFrame, error)
	Close() error
}

// New builds the configured provider.
func New(settings *conf.Settings) (Provider, error) {
	switch settings.Realtime.Provider {
	case conf.ProviderSynthetic:
		return NewSynthetic(), nil
	case conf.ProviderFile:
		return OpenFrameFile(settings.Realtime.FramePath)
	default:
		return nil, errors.Newf("unknown depth provider %q", settings.Realtime.Provider).
			Component("depth").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
