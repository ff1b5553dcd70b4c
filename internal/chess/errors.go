package chess

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOutOfBounds         = errors.New("point out of bounds")
	ErrMalformedNotation   = errors.New("malformed board notation")
	ErrWrongTurn           = errors.New("not your turn")
	ErrInvalidSquare       = errors.New("square outside the board")
	ErrInvalidOrigin       = errors.New("origin is empty or not yours")
	ErrInvalidDestination  = errors.New("destination holds your own piece")
	ErrForcedMoveViolation = errors.New("a forced move must be played")
	ErrInvalidMove         = errors.New("piece cannot move there")
	ErrCollisionFailed     = errors.New("move could not be resolved")
	ErrMissingPromotion    = errors.New("promotion piece required")
	ErrInvalidPromotion    = errors.New("invalid promotion piece")
	ErrGameOver            = errors.New("game is over")
)

// ForcedMoveError lists the moves that would have discharged the
// outstanding obligation, sorted by origin then destination.
type ForcedMoveError struct {
	Priority   int
	Candidates []Step
}

func (e *ForcedMoveError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		parts[i] = c.From.String() + "->" + c.To.String()
	}
	return fmt.Sprintf("%s: %s", ErrForcedMoveViolation, strings.Join(parts, ", "))
}

func (e *ForcedMoveError) Unwrap() error { return ErrForcedMoveViolation }
