package geometry

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

// Geometry is the overlay window's top-left position and size in screen pixels.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Rect returns the window rectangle in screen coordinates.
func (g Geometry) Rect() image.Rectangle { return image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height) }

// String formats the geometry as a Tk geometry spec ("WxH+X+Y").
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.X, g.Y)
}

// Edge tags the window border(s) a pointer position is near. Corners combine
// one horizontal and one vertical bit.
type Edge uint8

// EdgeNone is the window interior.
const EdgeNone Edge = 0

const (
	EdgeLeft Edge = 1 << iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

const (
	EdgeTopLeft     = EdgeTop | EdgeLeft
	EdgeTopRight    = EdgeTop | EdgeRight
	EdgeBottomLeft  = EdgeBottom | EdgeLeft
	EdgeBottomRight = EdgeBottom | EdgeRight
)

// Has reports whether e includes all bits of other.
func (e Edge) Has(other Edge) bool { return other != EdgeNone && e&other == other }

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeTopLeft:
		return "top-left"
	case EdgeTopRight:
		return "top-right"
	case EdgeBottomLeft:
		return "bottom-left"
	case EdgeBottomRight:
		return "bottom-right"
	default:
		return "unknown"
	}
}

// Limits bounds how pointer input is turned into geometry changes.
type Limits struct {
	Margin        int     // edge hit-test distance
	Sensitivity   float64 // resize pointer-delta scale, in (0,1]
	MaxResizeStep int     // max width/height change per update
	MaxMoveStep   int     // max x/y translation per update
	MinSize       int     // width/height floor
}

// DefaultLimits returns the damped defaults used by the overlay window.
func DefaultLimits() Limits {
	return Limits{Margin: 8, Sensitivity: 0.1, MaxResizeStep: 2, MaxMoveStep: 20, MinSize: 100}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.Margin <= 0 {
		l.Margin = d.Margin
	}
	if l.Sensitivity <= 0 || l.Sensitivity > 1 {
		l.Sensitivity = d.Sensitivity
	}
	if l.MaxResizeStep <= 0 {
		l.MaxResizeStep = d.MaxResizeStep
	}
	if l.MaxMoveStep <= 0 {
		l.MaxMoveStep = d.MaxMoveStep
	}
	if l.MinSize <= 0 {
		l.MinSize = d.MinSize
	}
	return l
}

// ResizeSession is the state captured when a resize drag begins. It lives
// only between press and release.
type ResizeSession struct {
	Edge  Edge
	Press image.Point
	Start Geometry
}

// geomRe matches Tk geometry strings "WIDTHxHEIGHT+X+Y". Tk reports negative
// offsets as "+-N".
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)([+-]-?\d+)([+-]-?\d+)$`)

// Parse is the inverse of String. It rejects non-positive sizes.
func Parse(s string) (Geometry, bool) {
	m := geomRe.FindStringSubmatch(strings.TrimSpace(s))
	if len(m) != 5 {
		return Geometry{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, okX := parseOffset(m[3])
	y, okY := parseOffset(m[4])
	if w <= 0 || h <= 0 || !okX || !okY {
		return Geometry{}, false
	}
	return Geometry{X: x, Y: y, Width: w, Height: h}, true
}

func parseOffset(s string) (int, bool) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, false
	}
	return sign * n, true
}
