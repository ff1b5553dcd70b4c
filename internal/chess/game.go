package chess

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusActive Status = "active"
	StatusOver   Status = "over"
)

// Reason explains how a game ended.
type Reason string

const (
	ReasonKingCaptured Reason = "king_captured"
	ReasonTimeout      Reason = "timeout"
	ReasonResignation  Reason = "resignation"
)

// Outcome is the terminal result of a game.
type Outcome struct {
	Winner      Color   `json:"winner"`
	WhiteResult float64 `json:"white_result"`
	BlackResult float64 `json:"black_result"`
	Reason      Reason  `json:"reason"`
}

// MovedPiece is one relocation of a move log entry.
type MovedPiece struct {
	Piece       PieceKind `json:"piece"`
	Color       Color     `json:"color"`
	Origin      Point     `json:"origin"`
	Destination Point     `json:"destination"`
}

// CapturedPiece is one removal of a move log entry.
type CapturedPiece struct {
	Piece PieceKind `json:"piece"`
	Color Color     `json:"color"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
}

// MoveLog is the structured history entry of an applied move.
type MoveLog struct {
	Color     Color           `json:"color"`
	Tag       MoveTag         `json:"tag"`
	Moved     []MovedPiece    `json:"moved"`
	Captured  []CapturedPiece `json:"captured"`
	PromoteTo PieceKind       `json:"promote_to,omitempty"`
}

// MoveRequest is a move submitted by the player of Color.
type MoveRequest struct {
	Color       Color
	Origin      Point
	Destination Point
	PromoteTo   PieceKind
}

// MoveResult is returned by a successful SubmitMove. Move is nil when the
// mover had already flagged; GameOver then carries the timeout outcome.
type MoveResult struct {
	Move      *MoveLog
	Turn      Color
	Clock     ClockSnapshot
	GameOver  *Outcome
	MoveCount int
}

// Game is the aggregate of one match. It is not safe for concurrent use.
type Game struct {
	ID          string     `json:"id"`
	Variant     string     `json:"variant"`
	Board       *Board     `json:"board"`
	Moves       []MoveLog  `json:"moves"`
	Turn        Color      `json:"turn"`
	TimeControl float64    `json:"time_control"`
	Increment   float64    `json:"increment"`
	White       Player     `json:"white"`
	Black       Player     `json:"black"`
	Status      Status     `json:"status"`
	Outcome     *Outcome   `json:"outcome,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GameOptions configures NewGame. TimeControl and Increment are seconds;
// a zero TimeControl means untimed.
type GameOptions struct {
	ID          string
	Variant     string
	Board       *Board
	WhiteID     string
	BlackID     string
	TimeControl float64
	Increment   float64
}

func NewGame(opts GameOptions, now time.Time) *Game {
	return &Game{
		ID:          opts.ID,
		Variant:     opts.Variant,
		Board:       opts.Board,
		Moves:       []MoveLog{},
		Turn:        White,
		TimeControl: opts.TimeControl,
		Increment:   opts.Increment,
		White:       Player{UserID: opts.WhiteID, Color: White, Clock: opts.TimeControl, ClockSyncedAt: now},
		Black:       Player{UserID: opts.BlackID, Color: Black, Clock: opts.TimeControl, ClockSyncedAt: now},
		Status:      StatusActive,
		CreatedAt:   now,
	}
}

func (g *Game) Player(c Color) *Player {
	if c == White {
		return &g.White
	}
	return &g.Black
}

// ColorOf returns the seat of userID.
func (g *Game) ColorOf(userID string) (Color, bool) {
	switch userID {
	case g.White.UserID:
		return White, true
	case g.Black.UserID:
		return Black, true
	}
	return "", false
}

func (g *Game) IsOver() bool { return g.Status == StatusOver }

func (g *Game) MoveCount() int { return len(g.Moves) }

// PositionHash fingerprints board and side to move.
func (g *Game) PositionHash() string { return g.Board.Hash(g.Turn) }

// LegalMoves is the bounds-checked form of the package-level generator.
func (g *Game) LegalMoves(origin Point) (map[Point]MoveMetadata, error) {
	if g.Board.IsOutOfBound(origin) {
		return nil, ErrInvalidSquare
	}
	if _, ok := g.Board.Get(origin); !ok {
		return nil, ErrInvalidOrigin
	}
	return LegalMoves(g.Board, origin), nil
}

// Resign ends the game in the opponent's favor.
func (g *Game) Resign(c Color, now time.Time) (*Outcome, error) {
	if g.IsOver() {
		return nil, ErrGameOver
	}
	if !c.Valid() {
		return nil, fmt.Errorf("resign: unknown color %q", c)
	}
	return g.finish(c.Opponent(), ReasonResignation, now), nil
}

func (g *Game) finish(winner Color, reason Reason, now time.Time) *Outcome {
	o := &Outcome{Winner: winner, Reason: reason}
	if winner == White {
		o.WhiteResult = 1
	} else {
		o.BlackResult = 1
	}
	ended := now
	g.Status = StatusOver
	g.Outcome = o
	g.EndedAt = &ended
	return o
}

// SubmitMove validates and applies a move. Rejections leave the game
// unchanged.
func (g *Game) SubmitMove(now time.Time, req MoveRequest) (*MoveResult, error) {
	if g.IsOver() {
		return nil, ErrGameOver
	}
	if req.Color != g.Turn {
		return nil, ErrWrongTurn
	}
	if g.Timed() {
		probe := *g.Player(req.Color)
		probe.charge(now)
		if probe.expired() {
			g.Player(req.Color).Clock = 0
			g.resync(now)
			o := g.finish(req.Color.Opponent(), ReasonTimeout, now)
			return &MoveResult{Turn: g.Turn, Clock: g.Clocks(), GameOver: o, MoveCount: g.MoveCount()}, nil
		}
	}
	b := g.Board
	if b.IsOutOfBound(req.Origin) || b.IsOutOfBound(req.Destination) {
		return nil, ErrInvalidSquare
	}
	pc, ok := b.Get(req.Origin)
	if !ok || pc.Color != req.Color {
		return nil, ErrInvalidOrigin
	}
	moves := LegalMoves(b, req.Origin)
	dest := req.Destination
	if meta, ok := moves[dest]; ok && meta.Tag == TagGhost && meta.Redirect != nil {
		dest = *meta.Redirect
	}
	if occ, ok := b.Get(dest); ok && occ.Color == req.Color {
		return nil, ErrInvalidDestination
	}
	if err := ForcedMoves(b, req.Color, req.Origin, dest); err != nil {
		return nil, err
	}
	meta, ok := moves[dest]
	if !ok {
		return nil, ErrInvalidMove
	}
	p, err := resolveCollision(b, req.Origin, dest, meta)
	if err != nil {
		return nil, err
	}

	next := b.Clone()
	entry := p.apply(next)
	entry.Color = req.Color
	entry.Tag = meta.Tag

	landed := p.moves[0].To
	if mp, _ := next.Get(landed); mp.Kind.IsPawnType() && landed.Y == next.LastRank(req.Color) {
		if req.PromoteTo == noPieceKind {
			return nil, ErrMissingPromotion
		}
		if !req.PromoteTo.Valid() || req.PromoteTo.IsPawnType() {
			return nil, ErrInvalidPromotion
		}
		mp.Kind = req.PromoteTo
		_ = next.Set(landed, mp)
		entry.PromoteTo = req.PromoteTo
	}

	g.Board = next
	g.Moves = append(g.Moves, entry)
	res := &MoveResult{Move: &entry}
	kingTaken := false
	for _, c := range entry.Captured {
		if c.Piece == King {
			kingTaken = true
		}
	}
	g.chargeMover(req.Color, now)
	if kingTaken {
		res.GameOver = g.finish(req.Color, ReasonKingCaptured, now)
	} else {
		g.Turn = req.Color.Opponent()
	}
	res.Turn = g.Turn
	res.Clock = g.Clocks()
	res.MoveCount = g.MoveCount()
	return res, nil
}
