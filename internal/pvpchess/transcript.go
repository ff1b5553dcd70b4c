package pvpchess

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/vaticano-chess/internal/chess"
)

// SquareName renders a board point as file letter plus 1-based rank.
func SquareName(p chess.Point) string {
	return fmt.Sprintf("%c%d", 'a'+rune(p.X), p.Y+1)
}

func resultToken(o *chess.Outcome) string {
	if o == nil {
		return "*"
	}
	switch {
	case o.WhiteResult > o.BlackResult:
		return "1-0"
	case o.BlackResult > o.WhiteResult:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

func moveText(m chess.MoveLog) string {
	if len(m.Moved) == 0 {
		return "--"
	}
	primary := m.Moved[0]
	if m.Tag == chess.TagCastle {
		if primary.Destination.X > primary.Origin.X {
			return "O-O"
		}
		return "O-O-O"
	}
	var b strings.Builder
	b.WriteRune(chess.Piece{Kind: primary.Piece, Color: chess.White}.Code())
	b.WriteString(SquareName(primary.Origin))
	if len(m.Captured) > 0 {
		b.WriteByte('x')
	} else {
		b.WriteByte('-')
	}
	b.WriteString(SquareName(primary.Destination))
	if m.PromoteTo != "" {
		b.WriteByte('=')
		b.WriteRune(chess.Piece{Kind: m.PromoteTo, Color: chess.White}.Code())
	}
	switch m.Tag {
	case chess.TagEnPassant:
		b.WriteString(" e.p.")
	case chess.TagVaticano:
		b.WriteString(" v")
	}
	return b.String()
}

// Transcript renders a finished game as a tag-pair header plus numbered moves.
func Transcript(g *chess.Game) string {
	if g == nil {
		return ""
	}
	date := g.CreatedAt
	if g.EndedAt != nil {
		date = *g.EndedAt
	}
	if date.IsZero() {
		date = time.Now()
	}
	result := resultToken(g.Outcome)
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Vaticano\"]\n")
	fmt.Fprintf(&b, "[Variant \"%s\"]\n", sanitizeTag(g.Variant))
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizeTag(g.White.UserID))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizeTag(g.Black.UserID))
	if g.Timed() {
		fmt.Fprintf(&b, "[TimeControl \"%g+%g\"]\n", g.TimeControl, g.Increment)
	}
	if g.Outcome != nil {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", g.Outcome.Reason)
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(g.Moves); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, moveText(g.Moves[i]))
		if i+1 < len(g.Moves) {
			b.WriteString(" ")
			b.WriteString(moveText(g.Moves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
