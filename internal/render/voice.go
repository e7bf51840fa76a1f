package render

import (
	"math"

	"github.com/tphakala/soundscape-go/internal/mapper"
	"github.com/tphakala/soundscape-go/internal/samplebank"
)

type voiceState int

const (
	voiceIdle voiceState = iota
	voiceActive
	voiceFadingOut
)

// toneAmp scales synthesized sine voices so a full grid of tones does not
// clip immediately.
const toneAmp = 0.25

// voice is one live playback instance: an independent cursor into a shared
// sample (or a sine phase for tone sources), with smoothed gain and pan.
// Voices are owned by the engine's render side; nothing else touches them.
type voice struct {
	state voiceState
	key   mapper.CellKey

	sample *samplebank.AudioSample // nil for tone voices
	cursor int
	phase  float64
	freq   float64

	gain       float32 // current, smoothed
	targetGain float32
	pan        float32 // current, smoothed, -1..1
	targetPan  float32
	fadeStep   float32 // per-frame gain decrement while fading out
}

// targetsFor derives the voice amplitude and pan targets from a
// descriptor. Stereo mode uses loudness directly; spatial mode folds in
// distance attenuation so sources beyond the reference distance get
// quieter.
func (e *Engine) targetsFor(sd mapper.SourceDescriptor) (amp, pan float32) {
	amp = float32(sd.Loudness)
	if e.spatial {
		dist := math.Sqrt(sd.Pos.X*sd.Pos.X + sd.Pos.Y*sd.Pos.Y + sd.Pos.Z*sd.Pos.Z)
		if dist > 1 {
			amp /= float32(dist)
		}
	}
	p := sd.Pos.X
	if p < -1 {
		p = -1
	} else if p > 1 {
		p = 1
	}
	return amp, float32(p)
}

// start binds a descriptor to this slot. The gain starts at zero and ramps
// up so a fresh voice never clicks; the pan starts on target since there is
// no previous position to sweep from.
func (v *voice) start(sd mapper.SourceDescriptor, sample *samplebank.AudioSample, amp, pan float32) {
	*v = voice{
		state:      voiceActive,
		key:        sd.Key,
		sample:     sample,
		freq:       sd.Frequency,
		targetGain: amp,
		pan:        pan,
		targetPan:  pan,
	}
}

// retarget moves an existing voice toward a descriptor's new gain and
// position. A voice caught mid fade-out returns to Active with its current
// gain, so a source flickering across frames never jumps audibly.
func (v *voice) retarget(amp, pan float32) {
	v.state = voiceActive
	v.targetGain = amp
	v.targetPan = pan
	v.fadeStep = 0
}

// beginFadeOut ramps the voice linearly to silence over fadeOutSamples
// frames, after which the slot is released.
func (v *voice) beginFadeOut(fadeOutSamples int) {
	if v.gain <= 0 {
		v.state = voiceIdle
		return
	}
	v.state = voiceFadingOut
	v.targetGain = 0
	v.fadeStep = v.gain / float32(fadeOutSamples)
}

// mix accumulates this voice's next block into the interleaved stereo
// buffer. Sample voices pull their block through the clip's looping copy
// into scratch; tone voices synthesize per frame. Gain and pan smooth one
// frame at a time either way.
func (v *voice) mix(out []float32, frames int, scratch []float32, e *Engine) {
	sampled := v.sample != nil
	if sampled {
		v.cursor = v.sample.CopyLoop(v.cursor, scratch[:frames])
	}
	phaseInc := v.freq / float64(e.sampleRate)

	for f := 0; f < frames; f++ {
		switch v.state {
		case voiceFadingOut:
			v.gain -= v.fadeStep
			if v.gain <= 0 {
				*v = voice{}
				return
			}
		case voiceActive:
			v.gain += (v.targetGain - v.gain) * e.rampCoeff
		}
		v.pan += (v.targetPan - v.pan) * e.rampCoeff

		var s float32
		if sampled {
			s = scratch[f]
		} else {
			s = toneAmp * float32(math.Sin(2*math.Pi*v.phase))
			v.phase += phaseInc
			if v.phase >= 1 {
				v.phase -= 1
			}
		}

		s *= v.gain
		out[2*f] += s * (1 - v.pan) * 0.5
		out[2*f+1] += s * (1 + v.pan) * 0.5
	}
}
