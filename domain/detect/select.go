package detect

import "math"

// Select picks the box whose center is nearest (Euclidean) to the frame
// center. Ties keep the first box in input order. ok is false for an empty
// input.
func Select(boxes []Box, frameW, frameH int) (target Box, ok bool) {
	cx, cy := float64(frameW)/2, float64(frameH)/2
	best := math.Inf(1)
	for _, b := range boxes {
		bx, by := b.Center()
		d := math.Hypot(bx-cx, by-cy)
		if d < best {
			best = d
			target = b
			ok = true
		}
	}
	return target, ok
}
