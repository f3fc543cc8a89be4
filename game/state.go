// Package game defines the core types for the wall-placing territory game.
//
// A board is an N×N grid where every cell tracks which of its four sides
// carries a barrier. Players stand on cells, move up to a per-turn step
// budget, then place one barrier on a side of the cell they stopped on.
// Boards are immutable once built so that search trees can share them.
package game

import "fmt"

// Direction is a side of a cell. The numbering matches the barrier bits
// stored on a board: Up=0, Right=1, Down=2, Left=3.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

// NumDirections is the number of sides a cell has.
const NumDirections = 4

// Directions lists every side in bit order.
var Directions = [NumDirections]Direction{Up, Right, Down, Left}

var (
	dirRow   = [NumDirections]int{-1, 0, 1, 0}
	dirCol   = [NumDirections]int{0, 1, 0, -1}
	dirNames = [NumDirections]string{"u", "r", "d", "l"}
)

// Opposite returns the side facing d on the neighbouring cell.
func (d Direction) Opposite() Direction {
	return (d + 2) % NumDirections
}

// Valid reports whether d is one of the four sides.
func (d Direction) Valid() bool {
	return d < NumDirections
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dir(%d)", uint8(d))
	}
	return dirNames[d]
}

// ParseDirection accepts the single-letter names used by String.
func ParseDirection(s string) (Direction, error) {
	for i, name := range dirNames {
		if s == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Position is a board coordinate. (0,0) is the top-left cell; Up decreases Row.
type Position struct {
	Row int
	Col int
}

// Step returns the neighbouring position in direction d. The result may be
// off the board; callers check bounds.
func (p Position) Step(d Direction) Position {
	return Position{Row: p.Row + dirRow[d], Col: p.Col + dirCol[d]}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Move is "walk to To, then place a barrier on side Dir of To".
type Move struct {
	To  Position
	Dir Direction
}

func (m Move) String() string {
	return fmt.Sprintf("%s%s", m.To, m.Dir)
}

// Outcome is the result of a finished game from the point of view of the
// player passed first to the evaluator.
type Outcome int8

const (
	OpponentWin Outcome = -1
	Tie         Outcome = 0
	MyWin       Outcome = 1
)

// Flip returns the same result seen from the other player.
func (o Outcome) Flip() Outcome {
	return -o
}

func (o Outcome) String() string {
	switch o {
	case MyWin:
		return "win"
	case OpponentWin:
		return "loss"
	case Tie:
		return "tie"
	default:
		return fmt.Sprintf("outcome(%d)", int8(o))
	}
}
