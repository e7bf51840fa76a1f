package depth

import (
	"context"
	"math"

	"github.com/tphakala/soundscape-go/internal/mapper"
)

const (
	syntheticWidth  = 160
	syntheticHeight = 120

	// orbit period in frames; at 15 fps the blob circles in ~8 seconds
	orbitFrames = 120
)

// Synthetic generates frames containing a soft circular blob orbiting the
// image center against a distant background. The values follow the
// inverse-depth convention: larger means closer, background near zero.
type Synthetic struct {
	tick int
}

// NewSynthetic returns a generator starting at phase zero.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Next produces the next frame in the orbit. It never blocks.
func (p *Synthetic) Next(ctx context.Context) (*mapper.DepthFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := &mapper.DepthFrame{
		Width:  syntheticWidth,
		Height: syntheticHeight,
		Data:   make([]float32, syntheticWidth*syntheticHeight),
	}

	phase := 2 * math.Pi * float64(p.tick%orbitFrames) / orbitFrames
	p.tick++

	cx := float64(syntheticWidth)/2 + float64(syntheticWidth)/3*math.Cos(phase)
	cy := float64(syntheticHeight)/2 + float64(syntheticHeight)/3*math.Sin(phase)
	radius := float64(syntheticHeight) / 6

	for y := 0; y < syntheticHeight; y++ {
		for x := 0; x < syntheticWidth; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			d := math.Sqrt(dx*dx+dy*dy) / radius

			v := 0.05 // distant background
			if d < 2 {
				// closeness peaks at the blob center, falls off smoothly
				v += 0.9 * math.Exp(-d*d)
			}
			frame.Data[y*syntheticWidth+x] = float32(v)
		}
	}
	return frame, nil
}

// Close is a no-op for the generator.
func (p *Synthetic) Close() error { return nil }
