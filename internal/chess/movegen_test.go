package chess

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestBoard(t *testing.T, pieces map[Point]Piece) *Board {
	t.Helper()
	b := NewBoard(DefaultWidth, DefaultHeight)
	for p, pc := range pieces {
		if err := b.Set(p, pc); err != nil {
			t.Fatalf("Set(%s): %v", p, err)
		}
	}
	return b
}

func sortedKeys(moves map[Point]MoveMetadata) []Point {
	out := make([]Point, 0, len(moves))
	for p := range moves {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortPoints(ps []Point) []Point {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
	return ps
}

func TestLegalMoves_RookOnEmptyBoard(t *testing.T) {
	origin := Point{X: 4, Y: 4}
	b := newTestBoard(t, map[Point]Piece{origin: {Kind: Rook, Color: White}})

	var want []Point
	for x := 0; x < 10; x++ {
		if x != 4 {
			want = append(want, Point{X: x, Y: 4})
		}
	}
	for y := 0; y < 10; y++ {
		if y != 4 {
			want = append(want, Point{X: 4, Y: y})
		}
	}
	got := sortedKeys(LegalMoves(b, origin))
	if len(got) != 19 {
		t.Fatalf("rook moves = %d, want 19", len(got))
	}
	if diff := cmp.Diff(sortPoints(want), got); diff != "" {
		t.Fatalf("rook moves mismatch (-want +got):\n%s", diff)
	}
}

func TestLegalMoves_RookBlockers(t *testing.T) {
	origin := Point{X: 4, Y: 4}
	b := newTestBoard(t, map[Point]Piece{
		origin:      {Kind: Rook, Color: White},
		{X: 4, Y: 6}: {Kind: Knight, Color: White},
		{X: 4, Y: 2}: {Kind: Knight, Color: Black},
	})
	moves := LegalMoves(b, origin)

	var vertical []Point
	for p := range moves {
		if p.X == 4 {
			vertical = append(vertical, p)
		}
	}
	want := []Point{{X: 4, Y: 2}, {X: 4, Y: 3}, {X: 4, Y: 5}}
	if diff := cmp.Diff(want, sortPoints(vertical)); diff != "" {
		t.Fatalf("vertical moves mismatch (-want +got):\n%s", diff)
	}
	if !moves[Point{X: 4, Y: 2}].Capture {
		t.Fatalf("(4,2) should be a capture")
	}
	if moves[Point{X: 4, Y: 3}].Capture {
		t.Fatalf("(4,3) should not be a capture")
	}
}

func TestLegalMoves_ArchbishopLeaps(t *testing.T) {
	origin := Point{X: 4, Y: 4}
	b := newTestBoard(t, map[Point]Piece{origin: {Kind: Archbishop, Color: White}})
	moves := LegalMoves(b, origin)
	if _, ok := moves[Point{X: 5, Y: 4}]; ok {
		t.Fatalf("archbishop must not land on the adjacent square (5,4)")
	}
	for _, p := range []Point{{X: 6, Y: 4}, {X: 8, Y: 4}, {X: 5, Y: 6}, {X: 2, Y: 3}} {
		if _, ok := moves[p]; !ok {
			t.Fatalf("archbishop should reach %s", p)
		}
	}
}

// reachable reports whether delta is a positive multiple of an offset,
// restricted to one repetition for stepping offsets.
func reachable(offsets []Offset, dx, dy int) bool {
	for _, o := range offsets {
		for k := 1; k <= 10; k++ {
			if o.DX*k == dx && o.DY*k == dy {
				return true
			}
			if !o.Slide {
				break
			}
		}
	}
	return false
}

func TestLegalMoves_EmptyBoardWithinOffsets(t *testing.T) {
	for _, kind := range Kinds() {
		if kind.IsPawnType() {
			continue
		}
		t.Run(string(kind), func(t *testing.T) {
			for x := 0; x < DefaultWidth; x++ {
				for y := 0; y < DefaultHeight; y++ {
					origin := Point{X: x, Y: y}
					b := newTestBoard(t, map[Point]Piece{origin: {Kind: kind, Color: White}})
					for p := range LegalMoves(b, origin) {
						if b.IsOutOfBound(p) {
							t.Fatalf("%s from %s: out of bounds %s", kind, origin, p)
						}
						if !reachable(kind.Offsets(), p.X-x, p.Y-y) {
							t.Fatalf("%s from %s: %s not reachable by offsets", kind, origin, p)
						}
					}
				}
			}
		})
	}
}

func TestLegalMoves_PawnFirstStep(t *testing.T) {
	tests := []struct {
		name   string
		origin Point
		piece  Piece
		want   []Point
	}{
		{"central file", Point{X: 4, Y: 1}, Piece{Kind: Pawn, Color: White}, []Point{{X: 4, Y: 2}, {X: 4, Y: 3}, {X: 4, Y: 4}}},
		{"edge file", Point{X: 0, Y: 1}, Piece{Kind: Pawn, Color: White}, []Point{{X: 0, Y: 2}, {X: 0, Y: 3}}},
		{"moved", Point{X: 5, Y: 3}, Piece{Kind: Pawn, Color: White, Moved: true}, []Point{{X: 5, Y: 4}}},
		{"minor pawn", Point{X: 0, Y: 2}, Piece{Kind: MinorPawn, Color: White}, []Point{{X: 0, Y: 3}}},
		{"black central", Point{X: 5, Y: 8}, Piece{Kind: Pawn, Color: Black}, []Point{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 5, Y: 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBoard(t, map[Point]Piece{tt.origin: tt.piece})
			if diff := cmp.Diff(tt.want, sortedKeys(LegalMoves(b, tt.origin))); diff != "" {
				t.Fatalf("pawn moves mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLegalMoves_PawnBlockedAndCaptures(t *testing.T) {
	origin := Point{X: 4, Y: 1}
	b := newTestBoard(t, map[Point]Piece{
		origin:       {Kind: Pawn, Color: White},
		{X: 4, Y: 3}: {Kind: Knight, Color: Black},
		{X: 3, Y: 2}: {Kind: Knight, Color: Black},
		{X: 5, Y: 2}: {Kind: Knight, Color: White},
	})
	moves := LegalMoves(b, origin)
	want := []Point{{X: 3, Y: 2}, {X: 4, Y: 2}}
	if diff := cmp.Diff(want, sortedKeys(moves)); diff != "" {
		t.Fatalf("pawn moves mismatch (-want +got):\n%s", diff)
	}
	if !moves[Point{X: 3, Y: 2}].Capture {
		t.Fatalf("diagonal should be a capture")
	}
}

func castleBoard(t *testing.T) *Board {
	t.Helper()
	return newTestBoard(t, map[Point]Piece{
		{X: 4, Y: 0}: {Kind: King, Color: White},
		{X: 0, Y: 0}: {Kind: Rook, Color: White},
		{X: 9, Y: 0}: {Kind: Rook, Color: White},
		{X: 8, Y: 0}: {Kind: Bishop, Color: White},
		{X: 4, Y: 9}: {Kind: King, Color: Black},
	})
}

func TestLegalMoves_Castling(t *testing.T) {
	king := Point{X: 4, Y: 0}
	moves := LegalMoves(castleBoard(t), king)

	short := moves[Point{X: 7, Y: 0}]
	if short.Tag != TagCastle {
		t.Fatalf("short castle tag = %q", short.Tag)
	}
	if diff := cmp.Diff([]Step{{From: Point{X: 9, Y: 0}, To: Point{X: 6, Y: 0}}}, short.SideEffects); diff != "" {
		t.Fatalf("short side effect mismatch (-want +got):\n%s", diff)
	}
	long := moves[Point{X: 2, Y: 0}]
	if long.Tag != TagCastle {
		t.Fatalf("long castle tag = %q", long.Tag)
	}
	if diff := cmp.Diff([]Step{{From: Point{X: 0, Y: 0}, To: Point{X: 3, Y: 0}}}, long.SideEffects); diff != "" {
		t.Fatalf("long side effect mismatch (-want +got):\n%s", diff)
	}
	ghost := moves[Point{X: 6, Y: 0}]
	if ghost.Tag != TagGhost || ghost.Redirect == nil || *ghost.Redirect != (Point{X: 7, Y: 0}) {
		t.Fatalf("ghost at (6,0) = %+v", ghost)
	}
	if moves[Point{X: 5, Y: 0}].Tag != TagRegular {
		t.Fatalf("adjacent square should stay a regular king step")
	}
}

func TestLegalMoves_CastlingConditions(t *testing.T) {
	king := Point{X: 4, Y: 0}
	tests := []struct {
		name    string
		mutate  func(b *Board)
		dest    Point
		allowed bool
	}{
		{"short right revoked", func(b *Board) { b.SetRights(White, CastleRights{Long: true}) }, Point{X: 7, Y: 0}, false},
		{"long right revoked", func(b *Board) { b.SetRights(White, CastleRights{Short: true}) }, Point{X: 2, Y: 0}, false},
		{"short path blocked", func(b *Board) { _ = b.Set(Point{X: 6, Y: 0}, Piece{Kind: Knight, Color: White}) }, Point{X: 7, Y: 0}, false},
		{"long path blocked", func(b *Board) { _ = b.Set(Point{X: 1, Y: 0}, Piece{Kind: Knight, Color: Black}) }, Point{X: 2, Y: 0}, false},
		{"partner not a rook", func(b *Board) { _ = b.Set(Point{X: 0, Y: 0}, Piece{Kind: Knight, Color: White}) }, Point{X: 2, Y: 0}, false},
		{"partner enemy rook", func(b *Board) { _ = b.Set(Point{X: 9, Y: 0}, Piece{Kind: Rook, Color: Black}) }, Point{X: 7, Y: 0}, false},
		{"no bishop next to rook", func(b *Board) { b.Remove(Point{X: 8, Y: 0}) }, Point{X: 7, Y: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := castleBoard(t)
			tt.mutate(b)
			meta, ok := LegalMoves(b, king)[tt.dest]
			got := ok && meta.Tag == TagCastle
			if got != tt.allowed {
				t.Fatalf("castle to %s allowed = %v, want %v", tt.dest, got, tt.allowed)
			}
		})
	}
}

func TestLegalMoves_Vaticano(t *testing.T) {
	origin := Point{X: 2, Y: 2}
	b := newTestBoard(t, map[Point]Piece{
		origin:       {Kind: Bishop, Color: White},
		{X: 3, Y: 3}: {Kind: Pawn, Color: Black},
		{X: 4, Y: 4}: {Kind: MinorPawn, Color: Black},
		{X: 5, Y: 5}: {Kind: Bud, Color: White},
	})
	meta, ok := LegalMoves(b, origin)[Point{X: 6, Y: 6}]
	if !ok {
		t.Fatalf("expected Il Vaticano destination (6,6)")
	}
	landing := Point{X: 5, Y: 5}
	want := MoveMetadata{
		Capture:     true,
		Tag:         TagVaticano,
		Captures:    []Point{{X: 3, Y: 3}, {X: 4, Y: 4}},
		SideEffects: []Step{{From: landing, To: Point{X: 6, Y: 6}}},
		Landing:     &landing,
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Fatalf("vaticano metadata mismatch (-want +got):\n%s", diff)
	}
}

func TestLegalMoves_VaticanoRequiresPawnRun(t *testing.T) {
	origin := Point{X: 2, Y: 2}
	tests := []struct {
		name   string
		pieces map[Point]Piece
	}{
		{"no pawns", map[Point]Piece{{X: 3, Y: 3}: {Kind: Bud, Color: White}}},
		{"enemy knight in run", map[Point]Piece{
			{X: 3, Y: 3}: {Kind: Knight, Color: Black},
			{X: 4, Y: 4}: {Kind: Bud, Color: White},
		}},
		{"enemy bud", map[Point]Piece{
			{X: 3, Y: 3}: {Kind: Pawn, Color: Black},
			{X: 4, Y: 4}: {Kind: Bud, Color: Black},
		}},
		{"beyond occupied", map[Point]Piece{
			{X: 3, Y: 3}: {Kind: Pawn, Color: Black},
			{X: 4, Y: 4}: {Kind: Bud, Color: White},
			{X: 5, Y: 5}: {Kind: Knight, Color: White},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.pieces[origin] = Piece{Kind: Cardinal, Color: White}
			b := newTestBoard(t, tt.pieces)
			for p, meta := range LegalMoves(b, origin) {
				if meta.Tag == TagVaticano {
					t.Fatalf("unexpected Il Vaticano destination %s", p)
				}
			}
		})
	}
}

func TestLegalMoves_EmptyOriginPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty origin")
		}
	}()
	LegalMoves(NewBoard(DefaultWidth, DefaultHeight), Point{X: 1, Y: 1})
}
