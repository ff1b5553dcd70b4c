package chessdto

import "encoding/json"

// EventType names a server-to-client message.
type EventType string

const (
	EventMove       EventType = "move"
	EventClockSync  EventType = "clock_sync"
	EventGameOver   EventType = "game_over"
	EventLegalMoves EventType = "legal_moves"
	EventState      EventType = "state"
	EventError      EventType = "error"
)

// Event is the envelope published to sinks and sent over the socket.
type Event struct {
	Type    EventType       `json:"type"`
	GameID  string          `json:"game_id"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(t EventType, gameID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, GameID: gameID, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error { return json.Unmarshal(e.Payload, v) }

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Step struct {
	Origin      Point `json:"origin"`
	Destination Point `json:"destination"`
}

type MovedPiece struct {
	Piece       string `json:"piece"`
	Origin      Point  `json:"origin"`
	Destination Point  `json:"destination"`
}

type CapturedPiece struct {
	Piece string `json:"piece"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

type MoveEvent struct {
	Moved     []MovedPiece    `json:"moved"`
	Captured  []CapturedPiece `json:"captured"`
	PromoteTo string          `json:"promote_to,omitempty"`
	Turn      string          `json:"turn"`
	IsOver    bool            `json:"is_over,omitempty"`
	MoveCount int             `json:"move_count"`
	Hash      string          `json:"hash"`
}

type ClockSyncEvent struct {
	White float64 `json:"white"`
	Black float64 `json:"black"`
}

type GameOverEvent struct {
	WhiteResult float64 `json:"white_result"`
	BlackResult float64 `json:"black_result"`
	Reason      string  `json:"reason"`
	WhiteRating int     `json:"white_rating"`
	BlackRating int     `json:"black_rating"`
}

// LegalMove is one destination of a legal-moves reply.
type LegalMove struct {
	Destination Point   `json:"destination"`
	Capture     bool    `json:"capture"`
	Tag         string  `json:"tag"`
	Redirect    *Point  `json:"redirect,omitempty"`
	Captures    []Point `json:"captures,omitempty"`
}

type LegalMovesEvent struct {
	Origin Point       `json:"origin"`
	Moves  []LegalMove `json:"moves"`
}
