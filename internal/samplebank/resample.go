package samplebank

import "fmt"

// resample converts audio from originalRate to targetRate using cubic
// interpolation. Deterministic: the same input always produces the same
// output.
func resample(audio []float32, originalRate, targetRate int) ([]float32, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d -> %d", originalRate, targetRate)
	}
	if originalRate == targetRate {
		return audio, nil
	}
	if len(audio) < 4 {
		return nil, fmt.Errorf("audio too short to resample: %d samples", len(audio))
	}

	ratio := float64(targetRate) / float64(originalRate)
	newLength := int(float64(len(audio)) * ratio)
	resampled := make([]float32, newLength)

	lastIndex := len(audio) - 3

	for i := 0; i < newLength; i++ {
		origPos := float64(i) / ratio
		index := int(origPos)

		// clamp index so the 4-point stencil stays in bounds
		if index < 1 {
			index = 1
		} else if index > lastIndex {
			index = lastIndex
		}

		frac := float32(origPos) - float32(index)

		y0, y1, y2, y3 := audio[index-1], audio[index], audio[index+1], audio[index+2]
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2
		a3 := y1

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + a3
	}

	return resampled, nil
}
