package pvpchan

import (
	"strings"
	"time"
)

// ChannelState is the lifecycle of an invite.
type ChannelState string

const (
	StateLobby   ChannelState = "LOBBY"
	StateActive  ChannelState = "ACTIVE"
	StateAborted ChannelState = "ABORTED"
)

// ColorChoice is the creator's seat preference.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

// ParseColorChoice accepts white/w, black/b and anything else as random.
func ParseColorChoice(s string) ColorChoice {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return ColorWhite
	case "black", "b":
		return ColorBlack
	default:
		return ColorRandom
	}
}

// ChannelMeta is stored as JSON in redis under ch:<code>.
type ChannelMeta struct {
	ID        string       `json:"id"`
	State     ChannelState `json:"state"`
	Variant   string       `json:"variant"`
	Color     ColorChoice  `json:"color"`
	CreatedAt time.Time    `json:"created_at"`
	CreatorID string       `json:"creator_id"`

	WhiteID string `json:"white_id,omitempty"`
	BlackID string `json:"black_id,omitempty"`
	GameID  string `json:"game_id,omitempty"`
}

type MakeResult struct {
	Code string
	Meta *ChannelMeta
}

type JoinResult struct {
	Started bool
	GameID  string
	Meta    *ChannelMeta
}

var (
	ErrInvalidArgs     = errf("invalid arguments")
	ErrChannelGone     = errf("channel not found or expired")
	ErrChannelActive   = errf("channel already active")
	ErrFull            = errf("channel already has two participants")
	ErrSelfJoin        = errf("creator cannot join own channel")
	ErrNotCreator      = errf("only the creator can cancel a channel")
	ErrUnknownVariant  = errf("unknown variant")
	ErrPlayerBusy      = errf("player has an active game")
	ErrCreatorHasLobby = errf("user already has a lobby")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
