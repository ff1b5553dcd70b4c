package domain

import "time"

// Rating is one row of a player's Elo history for a variant. Exactly one
// row per (UserID, Variant) is active.
type Rating struct {
	ID         int64
	UserID     string
	Variant    string
	Elo        int
	IsActive   bool
	AchievedAt time.Time
}

// GameRecord is the archived form of a finished game.
type GameRecord struct {
	GameID      string
	Variant     string
	WhiteID     string
	BlackID     string
	WhiteResult float64
	BlackResult float64
	Reason      string
	MovesJSON   []byte
	MoveCount   int
	Notation    string
	Transcript  string
	TimeControl float64
	Increment   float64
	WhiteElo    int
	BlackElo    int
	StartedAt   time.Time
	EndedAt     time.Time
}
