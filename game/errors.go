package game

import "errors"

var (
	// ErrInvalidSize is returned for a board size outside 1..MaxBoardSize.
	ErrInvalidSize = errors.New("invalid board size")
	// ErrInvalidState reports malformed positions or an undecodable board.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidBarrier is returned when a barrier cannot be placed, for
	// example on a side that already has one (every border side does).
	ErrInvalidBarrier = errors.New("invalid barrier")
	// ErrNoLegalMove means the player to move is fully enclosed.
	ErrNoLegalMove = errors.New("no legal move")
)
