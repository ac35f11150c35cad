package snake

import "fmt"

// Direction is one of the four grid headings. The declaration order is the
// contract for one-hot encodings and for interpreting network outputs.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

func (d Direction) Inverse() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Delta returns the per-tick cell offset. Y grows downward.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	default:
		return -1, 0
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Position is a 0-based integer grid coordinate.
type Position struct {
	X, Y int
}

func (p Position) Moved(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Bounds is the playable grid, cells [0,Width) x [0,Height).
type Bounds struct {
	Width, Height int
}

func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// Segment is one body cell, tagged with the direction the snake was moving
// when it occupied that cell.
type Segment struct {
	Pos Position
	Dir Direction
}
