package geometry

import (
	"image"
	"math"
)

// ClassifyEdge tags p (screen coordinates) against the borders of g. A point
// within margin of one side gets that side; within margin of a horizontal and
// a vertical side gets the diagonal tag. Points outside the window are EdgeNone.
func ClassifyEdge(p image.Point, g Geometry, margin int) Edge {
	lx, ly := p.X-g.X, p.Y-g.Y
	if lx < 0 || ly < 0 || lx > g.Width || ly > g.Height {
		return EdgeNone
	}
	var e Edge
	switch {
	case lx <= margin:
		e |= EdgeLeft
	case g.Width-lx <= margin:
		e |= EdgeRight
	}
	switch {
	case ly <= margin:
		e |= EdgeTop
	case g.Height-ly <= margin:
		e |= EdgeBottom
	}
	return e
}

// BeginResize opens a resize session. It returns nil for EdgeNone.
func BeginResize(edge Edge, press image.Point, start Geometry) *ResizeSession {
	if edge == EdgeNone {
		return nil
	}
	return &ResizeSession{Edge: edge, Press: press, Start: start}
}

// UpdateResize computes the next geometry for an active resize. The target
// size is derived from the session snapshot and the scaled pointer delta, then
// floored at lim.MinSize; the applied change is clamped to lim.MaxResizeStep
// relative to cur so repeated calls walk toward the target. Left/top resizes
// shift the origin so the opposite edge of cur stays put.
func UpdateResize(cur Geometry, s *ResizeSession, p image.Point, lim Limits) Geometry {
	if s == nil {
		return cur
	}
	lim = lim.normalized()
	cur = floorSize(cur, lim.MinSize)
	dx := float64(p.X-s.Press.X) * lim.Sensitivity
	dy := float64(p.Y-s.Press.Y) * lim.Sensitivity

	next := cur
	if s.Edge.Has(EdgeRight) || s.Edge.Has(EdgeLeft) {
		target := float64(s.Start.Width)
		if s.Edge.Has(EdgeRight) {
			target += dx
		} else {
			target -= dx
		}
		w := stepToward(cur.Width, floorAt(target, lim.MinSize), lim.MaxResizeStep)
		if s.Edge.Has(EdgeLeft) {
			next.X = cur.X + cur.Width - w
		}
		next.Width = w
	}
	if s.Edge.Has(EdgeBottom) || s.Edge.Has(EdgeTop) {
		target := float64(s.Start.Height)
		if s.Edge.Has(EdgeBottom) {
			target += dy
		} else {
			target -= dy
		}
		h := stepToward(cur.Height, floorAt(target, lim.MinSize), lim.MaxResizeStep)
		if s.Edge.Has(EdgeTop) {
			next.Y = cur.Y + cur.Height - h
		}
		next.Height = h
	}
	return next
}

// UpdateMove translates cur by the pointer delta since prev, clamped per axis
// to maxStep. Excess pointer travel is dropped rather than carried over.
func UpdateMove(cur Geometry, p, prev image.Point, maxStep int) Geometry {
	if maxStep <= 0 {
		maxStep = DefaultLimits().MaxMoveStep
	}
	cur.X += clampInt(p.X-prev.X, -maxStep, maxStep)
	cur.Y += clampInt(p.Y-prev.Y, -maxStep, maxStep)
	return cur
}

func floorSize(g Geometry, min int) Geometry {
	if g.Width < min {
		g.Width = min
	}
	if g.Height < min {
		g.Height = min
	}
	return g
}

func floorAt(v float64, min int) int {
	n := int(math.Round(v))
	if n < min {
		return min
	}
	return n
}

func stepToward(cur, target, step int) int {
	return cur + clampInt(target-cur, -step, step)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
