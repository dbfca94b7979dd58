package geometry

import (
	"image"
	"sync"
	"testing"
)

var base = Geometry{X: 100, Y: 100, Width: 400, Height: 300}

func TestClassifyEdge_SidesCornersAndInterior(t *testing.T) {
	cases := []struct {
		p    image.Point
		want Edge
	}{
		{image.Pt(300, 250), EdgeNone},
		{image.Pt(103, 250), EdgeLeft},
		{image.Pt(498, 250), EdgeRight},
		{image.Pt(300, 102), EdgeTop},
		{image.Pt(300, 400), EdgeBottom},
		{image.Pt(101, 101), EdgeTopLeft},
		{image.Pt(499, 105), EdgeTopRight},
		{image.Pt(104, 396), EdgeBottomLeft},
		{image.Pt(500, 400), EdgeBottomRight},
		{image.Pt(50, 250), EdgeNone}, // outside
		{image.Pt(300, 401), EdgeNone},
	}
	for _, c := range cases {
		if got := ClassifyEdge(c.p, base, 8); got != c.want {
			t.Errorf("ClassifyEdge(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestEdge_BitsAreDistinctSingleBits(t *testing.T) {
	want := map[Edge]Edge{EdgeLeft: 1, EdgeRight: 2, EdgeTop: 4, EdgeBottom: 8}
	for e, v := range want {
		if e != v {
			t.Errorf("%v = %d, want %d", e, e, v)
		}
	}
	if EdgeNone != 0 || EdgeTopLeft != 5 || EdgeBottomRight != 10 {
		t.Fatalf("unexpected corner values: topleft=%d bottomright=%d", EdgeTopLeft, EdgeBottomRight)
	}
	if !EdgeTopLeft.Has(EdgeLeft) || EdgeTopLeft.Has(EdgeRight) || EdgeLeft.Has(EdgeNone) {
		t.Fatalf("Has reports wrong membership")
	}
}

func TestUpdateResize_NeverBelowFloor(t *testing.T) {
	sens := []float64{0.01, 0.1, 0.5, 1}
	deltas := []int{-100000, -5000, -401, -3, 0, 7, 9000}
	edges := []Edge{EdgeLeft, EdgeRight, EdgeTop, EdgeBottom, EdgeTopLeft, EdgeBottomRight}
	for _, s := range sens {
		for _, d := range deltas {
			for _, e := range edges {
				lim := DefaultLimits()
				lim.Sensitivity = s
				start := Geometry{X: 0, Y: 0, Width: 101, Height: 100}
				sess := BeginResize(e, image.Pt(50, 50), start)
				cur := start
				for i := 0; i < 200; i++ {
					cur = UpdateResize(cur, sess, image.Pt(50+d, 50+d), lim)
					if cur.Width < 100 || cur.Height < 100 {
						t.Fatalf("below floor: sens=%v delta=%d edge=%v got %+v", s, d, e, cur)
					}
				}
			}
		}
	}
}

func TestUpdateResize_StepIsClamped(t *testing.T) {
	lim := DefaultLimits()
	sess := BeginResize(EdgeBottomRight, image.Pt(500, 400), base)
	cur := base
	for i := 0; i < 50; i++ {
		next := UpdateResize(cur, sess, image.Pt(5000, 4000), lim)
		if dw := next.Width - cur.Width; dw < -2 || dw > 2 {
			t.Fatalf("width step %d exceeds 2", dw)
		}
		if dh := next.Height - cur.Height; dh < -2 || dh > 2 {
			t.Fatalf("height step %d exceeds 2", dh)
		}
		cur = next
	}
	if cur.Width != base.Width+100 || cur.Height != base.Height+100 {
		t.Fatalf("expected 50 steps of 2px, got %+v", cur)
	}
}

func TestUpdateResize_ConvergesToScaledTarget(t *testing.T) {
	lim := DefaultLimits()
	sess := BeginResize(EdgeRight, image.Pt(500, 250), base)
	// +100px pointer travel at sensitivity 0.1 => +10px target.
	cur := base
	for i := 0; i < 20; i++ {
		cur = UpdateResize(cur, sess, image.Pt(600, 250), lim)
	}
	if cur.Width != 410 {
		t.Fatalf("expected width 410, got %d", cur.Width)
	}
	if cur.X != base.X || cur.Height != base.Height {
		t.Fatalf("right resize must not move origin or height: %+v", cur)
	}
}

func TestUpdateResize_LeftKeepsRightEdgeFixed(t *testing.T) {
	lim := DefaultLimits()
	sess := BeginResize(EdgeLeft, image.Pt(100, 250), base)
	cur := base
	right := base.X + base.Width
	for i := 0; i < 10; i++ {
		cur = UpdateResize(cur, sess, image.Pt(0, 250), lim) // drag left grows
		if cur.X+cur.Width != right {
			t.Fatalf("right edge moved: %+v", cur)
		}
	}
	if cur.Width != 410 {
		t.Fatalf("expected width 410 after growing left, got %d", cur.Width)
	}
}

func TestUpdateResize_TopShrinkStopsAtFloor(t *testing.T) {
	lim := DefaultLimits()
	lim.Sensitivity = 1
	start := Geometry{X: 0, Y: 0, Width: 200, Height: 104}
	sess := BeginResize(EdgeTop, image.Pt(10, 0), start)
	cur := start
	bottom := start.Y + start.Height
	for i := 0; i < 10; i++ {
		cur = UpdateResize(cur, sess, image.Pt(10, 500), lim)
		if cur.Y+cur.Height != bottom {
			t.Fatalf("bottom edge moved: %+v", cur)
		}
	}
	if cur.Height != 100 {
		t.Fatalf("expected floor height 100, got %d", cur.Height)
	}
}

func TestUpdateMove_ClampsPerUpdate(t *testing.T) {
	got := UpdateMove(base, image.Pt(1000, -1000), image.Pt(0, 0), 20)
	if got.X != base.X+20 || got.Y != base.Y-20 {
		t.Fatalf("expected clamp to ±20, got %+v", got)
	}
	got = UpdateMove(base, image.Pt(5, 3), image.Pt(0, 0), 20)
	if got.X != base.X+5 || got.Y != base.Y+3 {
		t.Fatalf("small delta should apply directly, got %+v", got)
	}
	if got.Width != base.Width || got.Height != base.Height {
		t.Fatalf("move changed size: %+v", got)
	}
}

func TestController_PressDragRelease(t *testing.T) {
	c := NewController(base, DefaultLimits())
	if e := c.Press(image.Pt(300, 250)); e != EdgeNone {
		t.Fatalf("interior press should start a move, got %v", e)
	}
	g, changed := c.Drag(image.Pt(400, 250))
	if !changed || g.X != 120 {
		t.Fatalf("expected clamped move to x=120, got %+v changed=%v", g, changed)
	}
	// Pointer reference advanced to 400; a second identical event is a no-op.
	if _, changed := c.Drag(image.Pt(400, 250)); changed {
		t.Fatalf("repeated pointer position should not move")
	}
	c.Release()
	if _, dragging := c.Active(); dragging {
		t.Fatalf("release should end drag")
	}
	if _, changed := c.Drag(image.Pt(900, 900)); changed {
		t.Fatalf("drag without press must not change geometry")
	}

	snap := c.Snapshot()
	right := image.Pt(snap.X+snap.Width, snap.Y+snap.Height/2)
	if e := c.Press(right); e != EdgeRight {
		t.Fatalf("expected right edge, got %v", e)
	}
	g, _ = c.Drag(right.Add(image.Pt(1000, 0)))
	if g.Width != snap.Width+2 {
		t.Fatalf("resize step should be 2, got %d -> %d", snap.Width, g.Width)
	}
}

func TestController_FloorsInitialAndSet(t *testing.T) {
	c := NewController(Geometry{Width: 10, Height: 20}, DefaultLimits())
	if g := c.Snapshot(); g.Width != 100 || g.Height != 100 {
		t.Fatalf("initial not floored: %+v", g)
	}
	c.Set(Geometry{X: 5, Y: 6, Width: 50, Height: 500})
	if g := c.Snapshot(); g.Width != 100 || g.Height != 500 || g.X != 5 {
		t.Fatalf("set not floored: %+v", g)
	}
}

func TestController_SnapshotConsistentUnderConcurrentDrags(t *testing.T) {
	c := NewController(base, DefaultLimits())
	c.Press(image.Pt(500, 400)) // bottom-right corner
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			c.Drag(image.Pt(500+i, 400+i))
		}
	}()
	for i := 0; i < 2000; i++ {
		g := c.Snapshot()
		// Corner resize grows width and height in lockstep from equal offsets.
		if g.Width-base.Width != g.Height-base.Height {
			t.Fatalf("torn snapshot: %+v", g)
		}
	}
	wg.Wait()
}

func TestGeometry_String(t *testing.T) {
	if s := base.String(); s != "400x300+100+100" {
		t.Fatalf("unexpected %q", s)
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Geometry{
		"400x300+100+100": base,
		" 120x110+-5+-7 ": {X: -5, Y: -7, Width: 120, Height: 110},
		"200x150-10+20":   {X: -10, Y: 20, Width: 200, Height: 150},
	}
	for in, want := range cases {
		got, ok := Parse(in)
		if !ok || got != want {
			t.Errorf("Parse(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "0x10+0+0", "10x10", "axb+1+1", "10x10+1"} {
		if _, ok := Parse(bad); ok {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
	if g, ok := Parse(base.String()); !ok || g != base {
		t.Fatalf("String/Parse mismatch: %v", g)
	}
}
