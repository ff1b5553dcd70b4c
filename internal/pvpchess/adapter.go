package pvpchess

import (
	"sort"
	"strings"

	"github.com/park285/vaticano-chess/internal/chess"
	"github.com/park285/vaticano-chess/pkg/chessdto"
)

func PointFromDTO(p chessdto.Point) chess.Point { return chess.Point{X: p.X, Y: p.Y} }
func PointToDTO(p chess.Point) chessdto.Point   { return chessdto.Point{X: p.X, Y: p.Y} }

// StepsToDTO converts forced-move candidates.
func StepsToDTO(steps []chess.Step) []chessdto.Step {
	out := make([]chessdto.Step, 0, len(steps))
	for _, s := range steps {
		out = append(out, chessdto.Step{Origin: PointToDTO(s.From), Destination: PointToDTO(s.To)})
	}
	return out
}

// moveRequestFrom maps a wire move for the given color. An unknown promotion
// name is passed through so the core rejects it as an invalid promotion.
func moveRequestFrom(c chess.Color, req chessdto.MoveRequest) chess.MoveRequest {
	mr := chess.MoveRequest{
		Color:       c,
		Origin:      PointFromDTO(req.Origin),
		Destination: PointFromDTO(req.Destination),
	}
	if name := strings.TrimSpace(req.PromoteTo); name != "" {
		if k, ok := chess.ParseKind(name); ok {
			mr.PromoteTo = k
		} else {
			mr.PromoteTo = chess.PieceKind(name)
		}
	}
	return mr
}

// MoveEvent builds the broadcast for an applied move.
func MoveEvent(g *chess.Game, res *chess.MoveResult) chessdto.MoveEvent {
	ev := chessdto.MoveEvent{
		Moved:     []chessdto.MovedPiece{},
		Captured:  []chessdto.CapturedPiece{},
		Turn:      string(res.Turn),
		IsOver:    res.GameOver != nil,
		MoveCount: res.MoveCount,
		Hash:      g.PositionHash(),
	}
	if res.Move == nil {
		return ev
	}
	for _, m := range res.Move.Moved {
		ev.Moved = append(ev.Moved, chessdto.MovedPiece{
			Piece:       string(m.Piece),
			Origin:      PointToDTO(m.Origin),
			Destination: PointToDTO(m.Destination),
		})
	}
	for _, c := range res.Move.Captured {
		ev.Captured = append(ev.Captured, chessdto.CapturedPiece{Piece: string(c.Piece), X: c.X, Y: c.Y})
	}
	ev.PromoteTo = string(res.Move.PromoteTo)
	return ev
}

func ClockEvent(c chess.ClockSnapshot) chessdto.ClockSyncEvent {
	return chessdto.ClockSyncEvent{White: c.White, Black: c.Black}
}

func GameOverEvent(o *chess.Outcome, whiteRating, blackRating int) chessdto.GameOverEvent {
	return chessdto.GameOverEvent{
		WhiteResult: o.WhiteResult,
		BlackResult: o.BlackResult,
		Reason:      string(o.Reason),
		WhiteRating: whiteRating,
		BlackRating: blackRating,
	}
}

// LegalMovesEvent lists destinations ordered by rank then file.
func LegalMovesEvent(origin chess.Point, moves map[chess.Point]chess.MoveMetadata) chessdto.LegalMovesEvent {
	dests := make([]chess.Point, 0, len(moves))
	for p := range moves {
		dests = append(dests, p)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i].Less(dests[j]) })
	out := chessdto.LegalMovesEvent{Origin: PointToDTO(origin), Moves: make([]chessdto.LegalMove, 0, len(dests))}
	for _, d := range dests {
		meta := moves[d]
		lm := chessdto.LegalMove{Destination: PointToDTO(d), Capture: meta.Capture, Tag: string(meta.Tag)}
		if meta.Redirect != nil {
			r := PointToDTO(*meta.Redirect)
			lm.Redirect = &r
		}
		for _, c := range meta.Captures {
			lm.Captures = append(lm.Captures, PointToDTO(c))
		}
		out.Moves = append(out.Moves, lm)
	}
	return out
}

// StateDTO snapshots a game for clients.
func StateDTO(g *chess.Game, whiteRating, blackRating int) chessdto.GameState {
	st := chessdto.GameState{
		ID:          g.ID,
		Variant:     g.Variant,
		Notation:    g.Board.Notation(),
		Width:       g.Board.Width(),
		Height:      g.Board.Height(),
		Turn:        string(g.Turn),
		Status:      string(g.Status),
		MoveCount:   g.MoveCount(),
		Hash:        g.PositionHash(),
		TimeControl: g.TimeControl,
		Increment:   g.Increment,
		White:       chessdto.PlayerState{UserID: g.White.UserID, Clock: g.White.Clock, Rating: whiteRating},
		Black:       chessdto.PlayerState{UserID: g.Black.UserID, Clock: g.Black.Clock, Rating: blackRating},
		CreatedAt:   g.CreatedAt,
	}
	if g.Outcome != nil {
		ov := GameOverEvent(g.Outcome, whiteRating, blackRating)
		st.Outcome = &ov
	}
	return st
}
