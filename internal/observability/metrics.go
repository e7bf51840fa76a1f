// Package observability exposes the engine's prometheus metrics. Collectors
// are registered once on the default registry and updated from the mapper,
// the sample bank and the render engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesMapped counts depth frames turned into source lists.
	FramesMapped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundscape",
		Subsystem: "mapper",
		Name:      "frames_mapped_total",
		Help:      "Number of depth frames mapped into source descriptor lists.",
	})

	// SourcesDropped counts candidate sources truncated by the
	// loudest-wins capacity policy.
	SourcesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundscape",
		Subsystem: "mapper",
		Name:      "sources_dropped_total",
		Help:      "Candidate sources dropped by the loudest-wins limit.",
	})

	// SampleLoads counts successful sample decode attempts.
	SampleLoads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundscape",
		Subsystem: "samplebank",
		Name:      "loads_total",
		Help:      "Audio samples decoded and cached.",
	})

	// SampleLoadFailures counts failed sample loads.
	SampleLoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundscape",
		Subsystem: "samplebank",
		Name:      "load_failures_total",
		Help:      "Audio sample loads that failed and were marked unavailable.",
	})

	// ActiveVoices tracks the number of live voices in the mixer.
	ActiveVoices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "soundscape",
		Subsystem: "render",
		Name:      "active_voices",
		Help:      "Voices currently active or fading out.",
	})

	// SnapshotsPublished counts source list hand-offs to the render path.
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "soundscape",
		Subsystem: "render",
		Name:      "snapshots_published_total",
		Help:      "Source descriptor snapshots published to the render path.",
	})
)
