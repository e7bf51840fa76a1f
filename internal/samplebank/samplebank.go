// Package samplebank loads, decodes and caches the loop-able audio clips
// referenced by the zone catalog. Samples are decoded once, downmixed to
// mono, resampled to the engine's target rate and then published into a
// lock-free cache so the render path can look them up without blocking.
package samplebank

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/soundscape-go/internal/errors"
	"github.com/tphakala/soundscape-go/internal/logging"
	"github.com/tphakala/soundscape-go/internal/observability"
)

// AudioSample is a decoded, mono waveform at the bank's target sample rate.
// Immutable after load; shared read-only by every voice that plays it.
type AudioSample struct {
	Data       []float32
	SampleRate int
	Duration   time.Duration
}

// Len returns the number of samples in the clip.
func (s *AudioSample) Len() int {
	return len(s.Data)
}

// CopyLoop fills dst starting at the given cursor, wrapping modulo the clip
// length for seamless looping, and returns the cursor position after the
// copy. The clip must not be empty.
func (s *AudioSample) CopyLoop(cursor int, dst []float32) int {
	n := len(s.Data)
	cursor %= n
	for filled := 0; filled < len(dst); {
		c := copy(dst[filled:], s.Data[cursor:])
		filled += c
		cursor = (cursor + c) % n
	}
	return cursor
}

// Bank caches decoded samples keyed by file path. Loads happen at startup
// or on a background task; lookups are lock-free and never touch I/O.
type Bank struct {
	targetRate int

	mu       sync.Mutex
	failed   map[string]error
	snapshot atomic.Pointer[map[string]*AudioSample]

	loadCount atomic.Int64

	logger *slog.Logger
}

// NewBank creates a sample bank resampling everything to targetRate.
func NewBank(targetRate int) *Bank {
	b := &Bank{
		targetRate: targetRate,
		failed:     make(map[string]error),
		logger:     logging.ForService("samplebank"),
	}
	empty := make(map[string]*AudioSample)
	b.snapshot.Store(&empty)
	return b
}

// Load decodes, downmixes and resamples the file at path and caches the
// result. Idempotent: a second call with the same path returns the cached
// sample without re-decoding. A failed load is recorded and returned again
// on later calls without retrying the decode.
func (b *Bank) Load(path string) (*AudioSample, error) {
	if s := b.Get(path); s != nil {
		return s, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// re-check under the lock, another loader may have won
	if s := (*b.snapshot.Load())[path]; s != nil {
		return s, nil
	}
	if err, ok := b.failed[path]; ok {
		return nil, err
	}

	b.loadCount.Add(1)
	sample, err := b.decodeAndPrepare(path)
	if err != nil {
		ee := errors.New(err).
			Component("samplebank").
			Category(errors.CategorySampleLoad).
			Context("path", path).
			Build()
		b.failed[path] = ee
		observability.SampleLoadFailures.Inc()
		if b.logger != nil {
			b.logger.Warn("sample unavailable", "path", path, "error", err)
		}
		return nil, ee
	}

	b.publish(path, sample)
	observability.SampleLoads.Inc()
	if b.logger != nil {
		b.logger.Info("sample loaded",
			"path", path,
			"samples", sample.Len(),
			"duration", sample.Duration.Round(time.Millisecond))
	}
	return sample, nil
}

// publish replaces the snapshot with a copy including the new sample.
// Readers always observe either the old or the new complete map.
func (b *Bank) publish(path string, sample *AudioSample) {
	old := *b.snapshot.Load()
	next := make(map[string]*AudioSample, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[path] = sample
	b.snapshot.Store(&next)
}

// Get returns the cached sample for path, or nil when it has not been
// loaded or its load failed. Safe to call from the render path: no locks,
// no I/O.
func (b *Bank) Get(path string) *AudioSample {
	return (*b.snapshot.Load())[path]
}

// Preload loads every path, collecting failures. Missing samples degrade
// the soundscape but do not abort startup, so the joined error is advisory.
func (b *Bank) Preload(paths []string) error {
	var errs []error
	for _, p := range paths {
		if _, err := b.Load(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadCount returns how many decode attempts the bank has made.
func (b *Bank) LoadCount() int64 {
	return b.loadCount.Load()
}

// decodeAndPrepare runs the full load pipeline: decode, downmix to mono,
// resample to the target rate and smooth the loop point.
func (b *Bank) decodeAndPrepare(path string) (*AudioSample, error) {
	pcm, rate, channels, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, errors.NewStd("decoded audio is empty")
	}

	mono := downmixMono(pcm, channels)

	if rate != b.targetRate {
		mono, err = resample(mono, rate, b.targetRate)
		if err != nil {
			return nil, err
		}
	}

	prepareLoop(mono, b.targetRate)

	return &AudioSample{
		Data:       mono,
		SampleRate: b.targetRate,
		Duration:   time.Duration(len(mono)) * time.Second / time.Duration(b.targetRate),
	}, nil
}

// downmixMono averages interleaved channels into a mono buffer.
func downmixMono(pcm []float32, channels int) []float32 {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / channels
	mono := make([]float32, frames)
	inv := float32(1.0) / float32(channels)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += pcm[base+c]
		}
		mono[f] = sum * inv
	}
	return mono
}

// loopFadeMs is the length of the linear blend of the clip tail into its
// head so the modulo wrap of a looping cursor is click-free. A linear ramp
// keeps correlated loop material at constant level across the wrap.
const loopFadeMs = 10

func prepareLoop(data []float32, rate int) {
	fade := rate * loopFadeMs / 1000
	if fade*2 > len(data) {
		fade = len(data) / 2
	}
	if fade == 0 {
		return
	}
	tail := len(data) - fade
	for i := 0; i < fade; i++ {
		t := float32(i+1) / float32(fade+1)
		data[i] = data[i]*t + data[tail+i]*(1-t)
	}
}
