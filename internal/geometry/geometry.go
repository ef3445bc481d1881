// Package geometry holds the axis-aligned primitives the engine builds
// trails and collisions from. Every segment the engine ever creates is
// axis-aligned (x1==x2 or y1==y2); nothing in this package enforces that
// invariant. Segments are created only by the engine's simulation step
// (turns) and the player's round-reset seed (ResetForRound,
// ReplaceSeedDirection), and those code paths are responsible for
// upholding it.
package geometry

import "math"

// Direction is a four-way heading on the arena's axis-aligned grid.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Opposite returns the heading that reverses Direction d.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return d
	}
}

// Axis reports whether d runs along the vertical or horizontal axis.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (d Direction) Axis() Axis {
	switch d {
	case Up, Down:
		return AxisVertical
	default:
		return AxisHorizontal
	}
}

// Point is a location in the normalized field [-A, A] x [-1, 1].
type Point struct {
	X float64
	Y float64
}

// Segment is an ordered pair of points. Start is the end that was laid
// down first; End is the newer end (the head, for the live head segment).
type Segment struct {
	Start Point
	End   Point
}

// IsAxisAligned reports whether the segment runs purely horizontally or
// purely vertically, per the model's global invariant.
func (s Segment) IsAxisAligned() bool {
	return s.Start.X == s.End.X || s.Start.Y == s.End.Y
}

// Axis returns the axis the segment runs along. Zero-length segments (as
// created by AddSegment before the first Extend) agree on both
// coordinates and are reported as AxisVertical; callers that need the
// segment's direction of travel should consult the owning player's
// current Direction instead.
func (s Segment) Axis() Axis {
	if s.Start.X == s.End.X {
		return AxisVertical
	}
	return AxisHorizontal
}

// AABB is an axis-aligned bounding box, MinX/MinY inclusive, MaxX/MaxY
// inclusive.
type AABB struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Overlaps reports whether two boxes share any area, touching edges
// counted as overlap so that the spatial index never produces a false
// negative at a cell boundary.
func (a AABB) Overlaps(b AABB) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX &&
		a.MinY <= b.MaxY && a.MaxY >= b.MinY
}

// FatAABB returns the segment's bounding box expanded by lineWidth on
// both sides perpendicular to the segment's axis. This is the collision
// footprint used everywhere in the engine; the segment's own axis is
// never expanded, only the perpendicular one.
func FatAABB(s Segment, lineWidth float64) AABB {
	minX, maxX := s.Start.X, s.End.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := s.Start.Y, s.End.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	if s.Start == s.End {
		// A zero-length segment (freshly created by AddSegment, before
		// its first Extend) has no axis to infer a perpendicular from;
		// expand both so the index entry still overlaps the cell it
		// occupies until the next sub-tick grows it.
		minX -= lineWidth
		maxX += lineWidth
		minY -= lineWidth
		maxY += lineWidth
	} else if s.Axis() == AxisVertical {
		minX -= lineWidth
		maxX += lineWidth
	} else {
		minY -= lineWidth
		maxY += lineWidth
	}
	return AABB{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// LineToLine tests segment a against segment b's fat bounding box and,
// on overlap, returns the near ("start") and far ("end") collision
// points along a's direction of travel. ok is false when the fat boxes
// don't overlap; callers must short-circuit on !ok rather than trust the
// zero-valued points.
//
// Because every segment in this model is axis-aligned, the overlap
// region between a's fat box and b's fat box is itself a rectangle; the
// near point is a's trailing endpoint (where it was before travel,
// clamped into that rectangle — the first point of contact), and the
// far point is a's leading endpoint clamped the same way. This is what
// lets the simulation step snap a dying head onto the first point of
// intersection instead of the full over-travel distance.
func LineToLine(a, b Segment, lineWidth float64) (start, end Point, ok bool) {
	boxA := FatAABB(a, lineWidth)
	boxB := FatAABB(b, lineWidth)
	if !boxA.Overlaps(boxB) {
		return Point{}, Point{}, false
	}

	lead, trail := a.End, a.Start // direction of travel: Start -> End

	clamp := func(p Point) Point {
		return Point{
			X: clampf(p.X, boxB.MinX, boxB.MaxX),
			Y: clampf(p.Y, boxB.MinY, boxB.MaxY),
		}
	}
	return clamp(trail), clamp(lead), true
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TimeAlongSegment linearly interpolates the wall-clock time at which the
// head reached p, given the segment's total traversal window
// [startedAt, startedAt+duration] and the assumption that p lies on the
// segment. Used only when sub-tick-accurate death-time tie-breaking is
// needed; ordinary collision handling never calls this.
func TimeAlongSegment(s Segment, p Point, startedAt float64, duration float64) float64 {
	total := dist(s.Start, s.End)
	if total == 0 {
		return startedAt
	}
	traveled := dist(s.Start, p)
	frac := traveled / total
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return startedAt + frac*duration
}

func dist(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// InBounds reports whether p lies within the field [-aspectRatio,
// aspectRatio] x [-1, 1].
func InBounds(p Point, aspectRatio float64) bool {
	return p.X >= -aspectRatio && p.X <= aspectRatio && p.Y >= -1 && p.Y <= 1
}

// Translate returns p shifted by dx along x and dy along y.
func Translate(p Point, dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Unit returns the unit direction vector (dx, dy) for d; callers scale
// it by the distance to travel. Up is -y and Down is +y.
func Unit(d Direction) (dx, dy float64) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default: // Right
		return 1, 0
	}
}

