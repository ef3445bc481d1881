// Package partition implements the fixed-grid spatial index described in
// spec §4.B: one N×N array of segment-index sets per player, indexed by
// cellY*N+cellX. A segment's footprint is derived from its endpoints on
// demand (via geometry.FatAABB) rather than cached, so the index never
// stores coordinates redundantly — only the integer segment indices that
// own a cell.
//
// Grounded on the retrieval pack's hash-grid implementations
// (sonpython-slether's SpatialGrid, bormisov1-spaceship-online-game's
// contiguous SpatialCols*SpatialRows array): this package keeps the
// contiguous-array layout of the latter but a set (not slice) per cell,
// since a single segment's fat box can span several sub-tick insertions
// and must not be double-counted.
package partition

import (
	"math"

	"cyclearena/internal/geometry"
)

// Grid is one player's N×N spatial partition over the arena field
// [-aspectRatio, aspectRatio] x [-1, 1].
type Grid struct {
	n           int
	aspectRatio float64
	cellW       float64
	cellH       float64
	cells       []map[int]struct{}
}

// New creates an empty n×n grid over the given field aspect ratio.
func New(n int, aspectRatio float64) *Grid {
	g := &Grid{
		n:           n,
		aspectRatio: aspectRatio,
		cellW:       (2 * aspectRatio) / float64(n),
		cellH:       2 / float64(n),
	}
	g.cells = make([]map[int]struct{}, n*n)
	return g
}

// Reset drops every entry, as happens on every round reset (spec §9: "the
// entire index is dropped and rebuilt from scratch").
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = nil
	}
}

func (g *Grid) clampCol(cx int) int {
	if cx < 0 {
		return 0
	}
	if cx >= g.n {
		return g.n - 1
	}
	return cx
}

func (g *Grid) clampRow(cy int) int {
	if cy < 0 {
		return 0
	}
	if cy >= g.n {
		return g.n - 1
	}
	return cy
}

func (g *Grid) colFor(x float64) int {
	return g.clampCol(int(math.Floor((x + g.aspectRatio) / g.cellW)))
}

func (g *Grid) rowFor(y float64) int {
	return g.clampRow(int(math.Floor((y + 1) / g.cellH)))
}

// CellIndex returns the contiguous index cellY*n+cellX for a point.
func (g *Grid) CellIndex(p geometry.Point) int {
	return g.rowFor(p.Y)*g.n + g.colFor(p.X)
}

// cellRange enumerates the contiguous cell indices a fat AABB touches.
func (g *Grid) cellRange(box geometry.AABB) []int {
	minCol, maxCol := g.colFor(box.MinX), g.colFor(box.MaxX)
	minRow, maxRow := g.rowFor(box.MinY), g.rowFor(box.MaxY)
	indices := make([]int, 0, (maxCol-minCol+1)*(maxRow-minRow+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			indices = append(indices, row*g.n+col)
		}
	}
	return indices
}

// CellsForSegment enumerates the cells segment s's fat-AABB touches.
// Because every segment is axis-aligned this degenerates to a 1-D sweep
// along the segment's own axis plus a ceil(lineWidth/cellSize)
// perpendicular expansion, which FatAABB already captures.
func (g *Grid) CellsForSegment(s geometry.Segment, lineWidth float64) []int {
	return g.cellRange(geometry.FatAABB(s, lineWidth))
}

// Insert adds segIdx to every cell segment s's fat-AABB touches.
func (g *Grid) Insert(segIdx int, s geometry.Segment, lineWidth float64) {
	for _, cell := range g.CellsForSegment(s, lineWidth) {
		if g.cells[cell] == nil {
			g.cells[cell] = make(map[int]struct{})
		}
		g.cells[cell][segIdx] = struct{}{}
	}
}

// At returns the segment-index set for the given contiguous cell index.
// The returned map must not be mutated by the caller.
func (g *Grid) At(cellIdx int) map[int]struct{} {
	return g.cells[cellIdx]
}

// N reports the per-axis partition count.
func (g *Grid) N() int { return g.n }
