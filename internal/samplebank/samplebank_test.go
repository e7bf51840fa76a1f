package samplebank

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soundscape-go/internal/errors"
)

// writeTestWAV writes a 16-bit PCM WAV file with the given interleaved
// samples in [-1,1].
func writeTestWAV(t *testing.T, path string, samples []float32, rate, channels int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:   make([]int, len(samples)),
		Format: &audio.Format{SampleRate: rate, NumChannels: channels},
	}
	for i, s := range samples {
		buf.Data[i] = int(s * 32767)
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// sine returns n samples of a sine wave.
func sine(n int, freq float64, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestLoadIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loop.wav")
	writeTestWAV(t, path, sine(44100, 220, 44100), 44100, 1)

	bank := NewBank(44100)

	first, err := bank.Load(path)
	require.NoError(t, err)
	second, err := bank.Load(path)
	require.NoError(t, err)

	assert.Same(t, first, second, "second load must return the cached object")
	assert.EqualValues(t, 1, bank.LoadCount(), "file must be decoded exactly once")
}

func TestFailedLoadIsNotRetried(t *testing.T) {
	t.Parallel()

	bank := NewBank(44100)
	path := filepath.Join(t.TempDir(), "missing.wav")

	_, err := bank.Load(path)
	require.Error(t, err)
	_, err2 := bank.Load(path)
	require.Error(t, err2)

	assert.EqualValues(t, 1, bank.LoadCount(), "failed load must be cached, not retried")
	assert.Nil(t, bank.Get(path))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err2, &ee))
	assert.Equal(t, string(errors.CategorySampleLoad), ee.GetCategory())
}

func TestGetReturnsNilForUnknown(t *testing.T) {
	t.Parallel()

	bank := NewBank(44100)
	assert.Nil(t, bank.Get("never-loaded.wav"))
}

func TestStereoIsDownmixedToMono(t *testing.T) {
	t.Parallel()

	// constant L=0.5, R=0.25 over one second
	const frames = 44100
	interleaved := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		interleaved[2*f] = 0.5
		interleaved[2*f+1] = 0.25
	}
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, interleaved, 44100, 2)

	bank := NewBank(44100)
	sample, err := bank.Load(path)
	require.NoError(t, err)

	assert.Equal(t, frames, sample.Len())
	// check away from the loop blend region; a constant signal survives
	// the blend anyway, but the midpoint is unambiguous
	assert.InDelta(t, 0.375, float64(sample.Data[frames/2]), 0.001)
}

func TestLoadResamplesToTargetRate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "half.wav")
	writeTestWAV(t, path, sine(22050, 220, 22050), 22050, 1)

	bank := NewBank(44100)
	sample, err := bank.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, sample.SampleRate)
	assert.Equal(t, 44100, sample.Len())
}

func TestUnsupportedExtensionFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	bank := NewBank(44100)
	_, err := bank.Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported audio format")
}

func TestCopyLoopWrapsSeamlessly(t *testing.T) {
	t.Parallel()

	sample := &AudioSample{
		Data:       []float32{0, 1, 2, 3, 4},
		SampleRate: 44100,
	}

	dst := make([]float32, 8)
	cursor := sample.CopyLoop(3, dst)

	assert.Equal(t, []float32{3, 4, 0, 1, 2, 3, 4, 0}, dst)
	assert.Equal(t, 1, cursor)
}

func TestCopyLoopLongerThanClip(t *testing.T) {
	t.Parallel()

	sample := &AudioSample{Data: []float32{1, 2}, SampleRate: 44100}

	dst := make([]float32, 7)
	cursor := sample.CopyLoop(0, dst)

	assert.Equal(t, []float32{1, 2, 1, 2, 1, 2, 1}, dst)
	assert.Equal(t, 1, cursor)
}

func TestResampleDeterministic(t *testing.T) {
	t.Parallel()

	in := sine(4410, 440, 44100)
	a, err := resample(in, 44100, 48000)
	require.NoError(t, err)
	b, err := resample(in, 44100, 48000)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int(float64(len(in))*48000.0/44100.0), len(a))
}

func TestResampleRejectsTinyInput(t *testing.T) {
	t.Parallel()

	_, err := resample([]float32{1, 2, 3}, 44100, 48000)
	assert.Error(t, err)
}
