package chess

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

const (
	DefaultWidth  = 10
	DefaultHeight = 10
)

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Forward is the Y direction pawns of this color advance in.
func (c Color) Forward() int {
	if c == White {
		return 1
	}
	return -1
}

func (c Color) Valid() bool { return c == White || c == Black }

// Point is a board coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(o Offset) Point { return Point{X: p.X + o.DX, Y: p.Y + o.DY} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Less orders points by rank, then file.
func (p Point) Less(q Point) bool {
	if p.Y != q.Y {
		return p.Y < q.Y
	}
	return p.X < q.X
}

// Offset is one direction of a moveset. Slide repeats the delta until
// blocked; CanCapture allows landing on an enemy piece.
type Offset struct {
	DX         int
	DY         int
	Slide      bool
	CanCapture bool
}

// Step is a piece relocation applied together with a primary move.
type Step struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// MoveTag names the special mechanic behind a legal destination.
type MoveTag string

const (
	TagRegular   MoveTag = "regular"
	TagCastle    MoveTag = "castle"
	TagEnPassant MoveTag = "en_passant"
	TagVaticano  MoveTag = "vaticano"
	TagGhost     MoveTag = "ghost"
)

// MoveMetadata describes one legal destination.
type MoveMetadata struct {
	Capture bool    `json:"capture"`
	Tag     MoveTag `json:"tag"`
	// Captures lists captured squares other than the destination.
	Captures    []Point `json:"captures,omitempty"`
	SideEffects []Step  `json:"side_effects,omitempty"`
	// Landing overrides where the moving piece ends up (Il Vaticano).
	Landing *Point `json:"landing,omitempty"`
	// Redirect points a ghost square at the real destination.
	Redirect *Point `json:"redirect,omitempty"`
}

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func sign[T constraints.Signed](v T) T {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
