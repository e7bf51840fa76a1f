package mapper

import (
	"sort"

	"github.com/tphakala/soundscape-go/internal/observability"
)

// gridCell is one down-sampled cell of a depth frame.
type gridCell struct {
	gx, gy    int
	closeness float64
}

// scanGrid down-samples the frame onto a gridSize x gridSize grid and
// yields one closeness value per cell. Sampling is deterministic: each cell
// reports the depth of its physically nearest pixel (the maximum raw value
// when inverse, the minimum otherwise). Cells whose nearest pixel falls
// outside [minDepth, maxDepth] are skipped.
func scanGrid(frame *DepthFrame, gridSize int, minDepth, maxDepth float64, inverse bool) []gridCell {
	if !frame.Valid() {
		return nil
	}

	cellW := frame.Width / gridSize
	if cellW < 1 {
		cellW = 1
	}
	cellH := frame.Height / gridSize
	if cellH < 1 {
		cellH = 1
	}

	span := maxDepth - minDepth
	cells := make([]gridCell, 0, gridSize*gridSize)

	for gy := 0; gy < gridSize; gy++ {
		y0 := gy * cellH
		if y0 >= frame.Height {
			break
		}
		y1 := y0 + cellH
		if gy == gridSize-1 || y1 > frame.Height {
			y1 = frame.Height
		}
		for gx := 0; gx < gridSize; gx++ {
			x0 := gx * cellW
			if x0 >= frame.Width {
				break
			}
			x1 := x0 + cellW
			if gx == gridSize-1 || x1 > frame.Width {
				x1 = frame.Width
			}

			closest := float64(frame.At(x0, y0))
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					v := float64(frame.At(x, y))
					if inverse {
						if v > closest {
							closest = v
						}
					} else if v < closest {
						closest = v
					}
				}
			}

			if closest < minDepth || closest > maxDepth {
				continue
			}

			var closeness float64
			if inverse {
				closeness = (closest - minDepth) / span
			} else {
				closeness = (maxDepth - closest) / span
			}
			if closeness < 0 {
				closeness = 0
			} else if closeness > 1 {
				closeness = 1
			}

			cells = append(cells, gridCell{gx: gx, gy: gy, closeness: closeness})
		}
	}

	return cells
}

// cellPosition returns the normalized position of a cell centre.
func cellPosition(gx, gy, gridSize int) (x, y float64) {
	x = (float64(gx)+0.5)/float64(gridSize)*2.0 - 1.0
	y = 1.0 - (float64(gy)+0.5)/float64(gridSize)*2.0
	return x, y
}

// limitLoudest sorts candidates by loudness descending and keeps at most
// maxSources of them. Ties break on the grid-cell key (cell index, then
// zone id) so truncation is deterministic.
func limitLoudest(candidates []SourceDescriptor, maxSources int) []SourceDescriptor {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if a.Loudness != b.Loudness {
			return a.Loudness > b.Loudness
		}
		if a.Key.Cell != b.Key.Cell {
			return a.Key.Cell < b.Key.Cell
		}
		return a.Key.ZoneID < b.Key.ZoneID
	})
	if maxSources > 0 && len(candidates) > maxSources {
		observability.SourcesDropped.Add(float64(len(candidates) - maxSources))
		candidates = candidates[:maxSources]
	}
	return candidates
}
