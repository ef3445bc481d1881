package geometry

import "testing"

func TestOpposite(t *testing.T) {
	cases := []struct {
		d    Direction
		want Direction
	}{
		{Up, Down},
		{Down, Up},
		{Left, Right},
		{Right, Left},
	}
	for _, c := range cases {
		if got := c.d.Opposite(); got != c.want {
			t.Fatalf("Opposite(%v) = %v, want %v", c.d, got, c.want)
		}
	}
}

func TestFatAABBExpandsPerpendicularOnly(t *testing.T) {
	s := Segment{Start: Point{X: 0, Y: 0}, End: Point{X: 0, Y: 1}}
	box := FatAABB(s, 0.1)
	if box.MinX != -0.1 || box.MaxX != 0.1 {
		t.Fatalf("vertical segment should expand X, got MinX=%v MaxX=%v", box.MinX, box.MaxX)
	}
	if box.MinY != 0 || box.MaxY != 1 {
		t.Fatalf("vertical segment should not expand Y, got MinY=%v MaxY=%v", box.MinY, box.MaxY)
	}
}

func TestFatAABBZeroLengthExpandsBothAxes(t *testing.T) {
	s := Segment{Start: Point{X: 0.5, Y: 0.5}, End: Point{X: 0.5, Y: 0.5}}
	box := FatAABB(s, 0.1)
	if box.MinX != 0.4 || box.MaxX != 0.6 || box.MinY != 0.4 || box.MaxY != 0.6 {
		t.Fatalf("zero-length segment should expand both axes, got %+v", box)
	}
}

func TestLineToLineNoOverlap(t *testing.T) {
	a := Segment{Start: Point{X: 0, Y: 0}, End: Point{X: 0, Y: 1}}
	b := Segment{Start: Point{X: 5, Y: 0}, End: Point{X: 5, Y: 1}}
	if _, _, ok := LineToLine(a, b, 0.01); ok {
		t.Fatalf("expected no overlap for far-apart segments")
	}
}

func TestLineToLinePerpendicularCrossing(t *testing.T) {
	// a travels along +y (Down) through b, a horizontal segment at y=0.5.
	a := Segment{Start: Point{X: 0, Y: 0}, End: Point{X: 0, Y: 1}}
	b := Segment{Start: Point{X: -1, Y: 0.5}, End: Point{X: 1, Y: 0.5}}
	start, _, ok := LineToLine(a, b, 0.01)
	if !ok {
		t.Fatalf("expected crossing segments to overlap")
	}
	if start.Y < 0.49 || start.Y > 0.51 {
		t.Fatalf("expected snap point near y=0.5, got %+v", start)
	}
}

func TestInBounds(t *testing.T) {
	if !InBounds(Point{X: 0, Y: 0}, 1.5) {
		t.Fatalf("origin should be in bounds")
	}
	if InBounds(Point{X: 1.6, Y: 0}, 1.5) {
		t.Fatalf("point past aspect ratio should be out of bounds")
	}
	if InBounds(Point{X: 0, Y: 1.01}, 1.5) {
		t.Fatalf("point past y=1 should be out of bounds")
	}
}

func TestUnit(t *testing.T) {
	cases := []struct {
		d          Direction
		wantDx     float64
		wantDy     float64
	}{
		{Up, 0, -1},
		{Down, 0, 1},
		{Left, -1, 0},
		{Right, 1, 0},
	}
	for _, c := range cases {
		dx, dy := Unit(c.d)
		if dx != c.wantDx || dy != c.wantDy {
			t.Fatalf("Unit(%v) = (%v,%v), want (%v,%v)", c.d, dx, dy, c.wantDx, c.wantDy)
		}
	}
}
