package chessdto

import "time"

type PlayerState struct {
	UserID string  `json:"user_id"`
	Clock  float64 `json:"clock"`
	Rating int     `json:"rating"`
}

// GameState is the snapshot returned by GET /api/games/{id}.
type GameState struct {
	ID          string         `json:"id"`
	Variant     string         `json:"variant"`
	Notation    string         `json:"notation"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Turn        string         `json:"turn"`
	Status      string         `json:"status"`
	MoveCount   int            `json:"move_count"`
	Hash        string         `json:"hash"`
	TimeControl float64        `json:"time_control"`
	Increment   float64        `json:"increment"`
	White       PlayerState    `json:"white"`
	Black       PlayerState    `json:"black"`
	Outcome     *GameOverEvent `json:"outcome,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
