package snake

import "fmt"

// Outcome is the per-tick result of Advance. AteFood leaves the episode
// running; HitBorder and HitSelf end it.
type Outcome int

const (
	Running Outcome = iota
	AteFood
	HitBorder
	HitSelf
)

func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case AteFood:
		return "ate-food"
	case HitBorder:
		return "hit-border"
	case HitSelf:
		return "hit-self"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Snake is the simulated creature: a head with its current heading plus a
// body ordered head-adjacent-first. heading may be turned mid-tick; lastDir
// is the direction actually committed by the previous Advance, and at most
// one further turn is buffered until that committed state catches up.
type Snake struct {
	head    Position
	heading Direction
	lastDir Direction
	next    Direction
	hasNext bool
	body    []Segment
}

// New places the head at pos facing Right with a single trailing segment in
// the cell to its left, so the body is never empty.
func New(pos Position) *Snake {
	return &Snake{
		head:    pos,
		heading: Right,
		lastDir: Right,
		body:    []Segment{{Pos: Position{X: pos.X - 1, Y: pos.Y}, Dir: Right}},
	}
}

func (s *Snake) Head() Position     { return s.head }
func (s *Snake) Heading() Direction { return s.heading }
func (s *Snake) LastDir() Direction { return s.lastDir }

// Body returns the segments head-adjacent-first. The slice is the snake's
// own storage; callers must not modify it.
func (s *Snake) Body() []Segment { return s.body }

// Tail is the oldest segment.
func (s *Snake) Tail() Segment { return s.body[len(s.body)-1] }

// Len counts occupied cells, head included.
func (s *Snake) Len() int { return len(s.body) + 1 }

// Occupies reports whether p is the head or any body cell.
func (s *Snake) Occupies(p Position) bool {
	if p == s.head {
		return true
	}
	return s.bodyContains(p)
}

func (s *Snake) bodyContains(p Position) bool {
	for _, seg := range s.body {
		if seg.Pos == p {
			return true
		}
	}
	return false
}

// Steer requests a new heading. If the head has already turned this tick a
// further request that does not reverse the current heading is buffered for
// the next tick; otherwise the request is applied immediately unless it
// would reverse the last committed direction through the neck. Anything
// else is dropped.
func (s *Snake) Steer(d Direction) {
	if s.heading != s.lastDir && d.Inverse() != s.heading {
		s.next = d
		s.hasNext = true
		return
	}
	if d.Inverse() != s.lastDir {
		s.heading = d
	}
}

// Advance moves the snake one tick toward its heading and reports what the
// head ran into. Checks run in strict priority: food, then border, then own
// body. The self check sees the post-growth body, tail still in place, so a
// head entering the current tail cell is a death. The tail is only removed
// on a plain Running tick; eating keeps it for net growth of one cell.
func (s *Snake) Advance(food Position, b Bounds) Outcome {
	if s.heading == s.lastDir && s.hasNext {
		s.heading = s.next
		s.hasNext = false
	}

	s.body = append([]Segment{{Pos: s.head, Dir: s.heading}}, s.body...)
	s.head = s.head.Moved(s.heading)
	s.lastDir = s.heading

	switch {
	case s.head == food:
		return AteFood
	case !b.Contains(s.head):
		return HitBorder
	case s.bodyContains(s.head):
		return HitSelf
	}

	s.body = s.body[:len(s.body)-1]
	return Running
}
