package chessdto

import "encoding/json"

// ClientMessageType names a client-to-server socket message.
type ClientMessageType string

const (
	ClientMove       ClientMessageType = "move"
	ClientSyncClock  ClientMessageType = "sync_clock"
	ClientLegalMoves ClientMessageType = "legal_moves"
	ClientResign     ClientMessageType = "resign"
)

type ClientMessage struct {
	Type    ClientMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// MoveRequest may carry the move count and position hash the client saw;
// a mismatch rejects the move as stale.
type MoveRequest struct {
	Origin            Point  `json:"origin"`
	Destination       Point  `json:"destination"`
	PromoteTo         string `json:"promote_to,omitempty"`
	ExpectedMoveCount *int   `json:"expected_move_count,omitempty"`
	ExpectedHash      string `json:"expected_hash,omitempty"`
}

type LegalMovesRequest struct {
	Origin Point `json:"origin"`
}

type LobbyMakeRequest struct {
	Variant string `json:"variant"`
	Color   string `json:"color,omitempty"`
}

type LobbyMakeResponse struct {
	Code    string `json:"code"`
	Variant string `json:"variant"`
	Message string `json:"message"`
}

type LobbyJoinResponse struct {
	Started bool   `json:"started"`
	GameID  string `json:"game_id,omitempty"`
	Message string `json:"message"`
}

type LobbyEntry struct {
	Code      string `json:"code"`
	Variant   string `json:"variant"`
	CreatorID string `json:"creator_id"`
	Color     string `json:"color"`
}
