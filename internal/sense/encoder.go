// Package sense converts raw game state into the fixed-length feature
// vector consumed by the policy network.
package sense

import (
	"errors"
	"fmt"
	"math"

	"ophion/internal/snake"
)

// Feature layout: eight ray triples of [wall, food, body] distances, all
// normalized by the maximum board diagonal, followed by a one-hot head
// heading and a one-hot tail direction.
const (
	rayCount     = 8
	headOffset   = 3 * rayCount
	tailOffset   = headOffset + 4
	FeatureCount = tailOffset + 4
)

// alignTol is the per-component tolerance when matching a cell's normalized
// offset vector against a ray's unit vector.
const alignTol = 1e-5

var ErrInvalidBounds = errors.New("invalid grid bounds")

type ray struct {
	dx, dy   int
	ux, uy   float64
	diagonal bool
}

// Encoder performs the per-tick raycast survey around the snake's head.
// Board geometry is fixed at construction. Not safe for concurrent use.
type Encoder struct {
	bounds  snake.Bounds
	maxDiag float64
	rays    [rayCount]ray
	buf     []float64
}

// New precomputes the board diagonal and the eight ray unit vectors for the
// given grid. Ray order is top, right, bottom, left, then top-right,
// bottom-right, bottom-left, top-left.
func New(b snake.Bounds) (*Encoder, error) {
	if b.Width < 1 || b.Height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBounds, b.Width, b.Height)
	}
	e := &Encoder{
		bounds:  b,
		maxDiag: math.Hypot(float64(b.Width), float64(b.Height)),
		buf:     make([]float64, FeatureCount),
	}
	steps := [rayCount][2]int{
		{0, -1}, {1, 0}, {0, 1}, {-1, 0},
		{1, -1}, {1, 1}, {-1, 1}, {-1, -1},
	}
	for i, d := range steps {
		norm := math.Hypot(float64(d[0]), float64(d[1]))
		e.rays[i] = ray{
			dx:       d[0],
			dy:       d[1],
			ux:       float64(d[0]) / norm,
			uy:       float64(d[1]) / norm,
			diagonal: d[0] != 0 && d[1] != 0,
		}
	}
	return e, nil
}

// MaxDiagonal is the normalization constant, also used as the sentinel
// distance for rays with no target.
func (e *Encoder) MaxDiagonal() float64 { return e.maxDiag }

// RayDistances holds one ray's survey result in board units, before
// normalization.
type RayDistances struct {
	Wall float64
	Food float64
	Body float64
}

// Distances is the raw eight-ray survey, in ray order: top, right, bottom,
// left, top-right, bottom-right, bottom-left, top-left.
type Distances [rayCount]RayDistances

// Survey measures, from the snake's head along each ray, the wall distance
// (free cells to the boundary, diagonals scaled by sqrt 2), the food
// distance, and the nearest body distance (Euclidean; the max diagonal
// stands in when the ray has no target).
func (e *Encoder) Survey(s *snake.Snake, food snake.Position) Distances {
	head := s.Head()
	var d Distances
	for i, r := range e.rays {
		wall := float64(e.wallCells(head, r))
		if r.diagonal {
			wall *= math.Sqrt2
		}
		d[i] = RayDistances{Wall: wall, Food: e.maxDiag, Body: e.maxDiag}
	}

	if i, dist, ok := e.rayHit(head, food); ok {
		d[i].Food = dist
	}
	for _, seg := range s.Body() {
		i, dist, ok := e.rayHit(head, seg.Pos)
		if !ok {
			continue
		}
		if dist < d[i].Body {
			d[i].Body = dist
		}
	}
	return d
}

// Encode surveys the board from the snake's head and fills the feature
// vector. The returned slice is backed by the Encoder and overwritten on
// the next call.
func (e *Encoder) Encode(s *snake.Snake, food snake.Position) []float64 {
	f := e.buf
	for i := range f {
		f[i] = 0
	}

	for i, d := range e.Survey(s, food) {
		f[3*i] = d.Wall / e.maxDiag
		f[3*i+1] = d.Food / e.maxDiag
		f[3*i+2] = d.Body / e.maxDiag
	}

	f[headOffset+int(s.Heading())] = 1
	f[tailOffset+int(s.Tail().Dir)] = 1
	return f
}

// wallCells counts free cells between the head and the boundary along the
// ray. Diagonals are limited by whichever axis runs out first.
func (e *Encoder) wallCells(head snake.Position, r ray) int {
	free := math.MaxInt
	switch {
	case r.dx > 0:
		free = e.bounds.Width - 1 - head.X
	case r.dx < 0:
		free = head.X
	}
	switch {
	case r.dy > 0:
		free = min(free, e.bounds.Height-1-head.Y)
	case r.dy < 0:
		free = min(free, head.Y)
	}
	return free
}

// rayHit reports which ray, if any, the cell lies on, and the euclidean
// distance from the head. Alignment is judged by unit vector rather than
// coordinate arithmetic so diagonals and axes share one mechanism.
func (e *Encoder) rayHit(head, cell snake.Position) (int, float64, bool) {
	dx := float64(cell.X - head.X)
	dy := float64(cell.Y - head.Y)
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return 0, 0, false
	}
	ux, uy := dx/dist, dy/dist
	for i, r := range e.rays {
		if math.Abs(ux-r.ux) <= alignTol && math.Abs(uy-r.uy) <= alignTol {
			return i, dist, true
		}
	}
	return 0, 0, false
}
