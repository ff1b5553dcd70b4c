package pvpchess

import (
	"errors"
	"strings"
	"time"

	"github.com/park285/vaticano-chess/internal/chess"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotAPlayer   = errors.New("user is not a player of this game")
	// ErrStaleMove means the game changed between the client's view and the
	// request, or a concurrent writer won the WATCH race.
	ErrStaleMove = errors.New("move is based on a stale position")
)

// DefaultGameTTL bounds how long a live game stays in redis.
const DefaultGameTTL = 24 * time.Hour

// CreateParams describes a new game. Board is consumed by the game.
type CreateParams struct {
	Variant     string
	Board       *chess.Board
	WhiteID     string
	BlackID     string
	TimeControl float64
	Increment   float64
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.WhiteID) == "" || strings.TrimSpace(p.BlackID) == "" {
		return errors.New("invalid participants")
	}
	if p.Board == nil {
		return errors.New("board required")
	}
	if p.TimeControl < 0 || p.Increment < 0 {
		return errors.New("negative time control")
	}
	return nil
}

func gameKey(id string) string        { return "pvp:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "pvp:index:user:" + strings.TrimSpace(userID) }

// EventsChannel is the redis pub/sub channel carrying a game's events.
func EventsChannel(gameID string) string { return gameKey(gameID) + ":events" }
