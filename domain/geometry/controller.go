package geometry

import (
	"image"
	"sync"
	"sync/atomic"
)

// Controller owns the overlay window geometry. Pointer input arrives on the UI
// thread (Press/Drag/Release); readers on other goroutines call Snapshot,
// which returns an immutable value swapped in atomically, so width, height and
// position are never observed torn.
type Controller struct {
	cur atomic.Pointer[Geometry]
	lim Limits

	mu       sync.Mutex // serializes pointer input
	session  *ResizeSession
	moving   bool
	lastMove image.Point
}

// NewController returns a controller starting at initial (floored at the
// minimum size).
func NewController(initial Geometry, lim Limits) *Controller {
	c := &Controller{lim: lim.normalized()}
	g := floorSize(initial, c.lim.MinSize)
	c.cur.Store(&g)
	return c
}

// Limits returns the normalized damping limits.
func (c *Controller) Limits() Limits { return c.lim }

// Snapshot returns the current geometry.
func (c *Controller) Snapshot() Geometry { return *c.cur.Load() }

// Set replaces the geometry, e.g. after the window manager repositioned the
// window. Size is floored at the minimum.
func (c *Controller) Set(g Geometry) {
	g = floorSize(g, c.lim.MinSize)
	c.cur.Store(&g)
}

// Classify tags p against the current geometry.
func (c *Controller) Classify(p image.Point) Edge {
	return ClassifyEdge(p, c.Snapshot(), c.lim.Margin)
}

// Press starts a drag at p: a resize when p is on an edge, otherwise a move.
// It returns the edge that was hit.
func (c *Controller) Press(p image.Point) Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.Snapshot()
	edge := ClassifyEdge(p, cur, c.lim.Margin)
	if s := BeginResize(edge, p, cur); s != nil {
		c.session = s
		c.moving = false
		return edge
	}
	c.session = nil
	c.moving = true
	c.lastMove = p
	return EdgeNone
}

// Drag applies one damped update for pointer position p and returns the new
// geometry. changed is false when no drag is active or nothing moved.
func (c *Controller) Drag(p image.Point) (g Geometry, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.Snapshot()
	switch {
	case c.session != nil:
		g = UpdateResize(cur, c.session, p, c.lim)
	case c.moving:
		g = UpdateMove(cur, p, c.lastMove, c.lim.MaxMoveStep)
		c.lastMove = p
	default:
		return cur, false
	}
	if g == cur {
		return cur, false
	}
	c.cur.Store(&g)
	return g, true
}

// Release ends any active drag and discards the resize session.
func (c *Controller) Release() {
	c.mu.Lock()
	c.session = nil
	c.moving = false
	c.mu.Unlock()
}

// Active reports the current drag: the resize edge, or EdgeNone with
// moving=true for a move.
func (c *Controller) Active() (edge Edge, dragging bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session.Edge, true
	}
	return EdgeNone, c.moving
}
