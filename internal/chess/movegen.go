package chess

import "fmt"

// LegalMoves computes every destination reachable by the piece on origin.
// Calling it for an empty square is a programming error and panics.
func LegalMoves(b *Board, origin Point) map[Point]MoveMetadata {
	pc, ok := b.Get(origin)
	if !ok {
		panic(fmt.Sprintf("chess: LegalMoves on empty square %s", origin))
	}
	out := make(map[Point]MoveMetadata)
	walk(b, origin, pc, pc.Kind.Offsets(), out)
	switch {
	case pc.Kind == King:
		castleMoves(b, origin, pc, out)
	case pc.Kind.IsPawnType():
		pawnMoves(b, origin, pc, out)
	case pc.Kind.IsBishopType():
		vaticanoMoves(b, origin, pc, out)
	}
	return out
}

func walk(b *Board, origin Point, pc Piece, offsets []Offset, out map[Point]MoveMetadata) {
	for _, o := range offsets {
		for p := origin.Add(o); !b.IsOutOfBound(p); p = p.Add(o) {
			if occ, ok := b.Get(p); ok {
				if o.CanCapture && occ.Color != pc.Color {
					out[p] = MoveMetadata{Capture: true, Tag: TagRegular}
				}
				break
			}
			out[p] = MoveMetadata{Tag: TagRegular}
			if !o.Slide {
				break
			}
		}
	}
}

// HomeRank is the back rank of a color.
func (b *Board) HomeRank(c Color) int {
	if c == White {
		return 0
	}
	return b.height - 1
}

// LastRank is the promotion rank of a color's pawns.
func (b *Board) LastRank(c Color) int { return b.HomeRank(c.Opponent()) }

// corner returns the rook square of a castling side.
func (b *Board) corner(c Color, short bool) Point {
	if short {
		return Point{X: b.width - 1, Y: b.HomeRank(c)}
	}
	return Point{X: 0, Y: b.HomeRank(c)}
}

type castleRule struct {
	short     bool
	kingShift int
	rookShift int
}

var castleRules = []castleRule{
	{short: true, kingShift: 3, rookShift: 2},
	{short: false, kingShift: -2, rookShift: -1},
}

func castleMoves(b *Board, origin Point, king Piece, out map[Point]MoveMetadata) {
	if origin.Y != b.HomeRank(king.Color) {
		return
	}
	rights := b.Rights(king.Color)
	for _, rule := range castleRules {
		if (rule.short && !rights.Short) || (!rule.short && !rights.Long) {
			continue
		}
		rook := b.corner(king.Color, rule.short)
		if meta, dest, ok := castleSide(b, origin, king, rook, rule); ok {
			out[dest] = meta
			registerGhosts(origin, dest, out)
		}
	}
}

func castleSide(b *Board, origin Point, king Piece, rook Point, rule castleRule) (MoveMetadata, Point, bool) {
	partner, ok := b.Get(rook)
	if !ok || !partner.Kind.IsRookType() || partner.Color != king.Color {
		return MoveMetadata{}, Point{}, false
	}
	kingTo := Point{X: origin.X + rule.kingShift, Y: origin.Y}
	rookTo := Point{X: origin.X + rule.rookShift, Y: origin.Y}
	dir := sign(rook.X - origin.X)
	// king destination must lie strictly between king and rook
	if dir == 0 || sign(kingTo.X-origin.X) != dir || sign(rook.X-kingTo.X) != dir {
		return MoveMetadata{}, Point{}, false
	}
	for x := origin.X + dir; x != rook.X; x += dir {
		occ, ok := b.Get(Point{X: x, Y: origin.Y})
		if !ok {
			continue
		}
		if rule.short && x == rook.X-dir && occ.Kind.IsBishopType() {
			continue
		}
		return MoveMetadata{}, Point{}, false
	}
	return MoveMetadata{
		Tag:         TagCastle,
		SideEffects: []Step{{From: rook, To: rookTo}},
	}, kingTo, true
}

func registerGhosts(origin, dest Point, out map[Point]MoveMetadata) {
	dir := sign(dest.X - origin.X)
	for x := origin.X + dir; x != dest.X; x += dir {
		p := Point{X: x, Y: origin.Y}
		if _, taken := out[p]; taken {
			continue
		}
		to := dest
		out[p] = MoveMetadata{Tag: TagGhost, Redirect: &to}
	}
}

// firstStep is how far an unmoved piece of a pawn kind may advance.
func (b *Board) firstStep(kind PieceKind, x int) int {
	if kind == MinorPawn {
		return 1
	}
	if x == b.width/2-1 || x == b.width/2 {
		return 3
	}
	return 2
}

func pawnMoves(b *Board, origin Point, pc Piece, out map[Point]MoveMetadata) {
	fwd := pc.Color.Forward()
	steps := 1
	if !pc.Moved {
		steps = b.firstStep(pc.Kind, origin.X)
	}
	p := origin
	for i := 0; i < steps; i++ {
		p = Point{X: p.X, Y: p.Y + fwd}
		if b.IsOutOfBound(p) {
			break
		}
		if _, occupied := b.Get(p); occupied {
			break
		}
		out[p] = MoveMetadata{Tag: TagRegular}
	}
	for _, dx := range []int{-1, 1} {
		p := Point{X: origin.X + dx, Y: origin.Y + fwd}
		if b.IsOutOfBound(p) {
			continue
		}
		if occ, ok := b.Get(p); ok && occ.Color != pc.Color {
			out[p] = MoveMetadata{Capture: true, Tag: TagRegular}
		}
	}
	if dest, victim, ok := enPassantTarget(b, origin, pc); ok {
		out[dest] = MoveMetadata{Capture: true, Tag: TagEnPassant, Captures: []Point{victim}}
	}
}

// enPassantTarget reports the capture available to the pawn on origin
// against the pawn that has just made a multi-square advance.
func enPassantTarget(b *Board, origin Point, pc Piece) (Point, Point, bool) {
	victim, ok := b.EnPassant()
	if !ok || victim.Y != origin.Y || abs(victim.X-origin.X) != 1 {
		return Point{}, Point{}, false
	}
	occ, ok := b.Get(victim)
	if !ok || occ.Color == pc.Color || !occ.Kind.IsPawnType() {
		return Point{}, Point{}, false
	}
	dest := Point{X: victim.X, Y: victim.Y + pc.Color.Forward()}
	if b.IsOutOfBound(dest) {
		return Point{}, Point{}, false
	}
	if _, occupied := b.Get(dest); occupied {
		return Point{}, Point{}, false
	}
	return dest, victim, true
}

func vaticanoMoves(b *Board, origin Point, pc Piece, out map[Point]MoveMetadata) {
	for _, d := range diagonal {
		var run []Point
		p := origin.Add(d)
		for !b.IsOutOfBound(p) {
			occ, ok := b.Get(p)
			if !ok || occ.Color == pc.Color || !occ.Kind.IsPawnType() {
				break
			}
			run = append(run, p)
			p = p.Add(d)
		}
		if len(run) == 0 || b.IsOutOfBound(p) {
			continue
		}
		if bud, ok := b.Get(p); !ok || bud.Kind != Bud || bud.Color != pc.Color {
			continue
		}
		beyond := p.Add(d)
		if b.IsOutOfBound(beyond) {
			continue
		}
		if _, occupied := b.Get(beyond); occupied {
			continue
		}
		landing := p
		out[beyond] = MoveMetadata{
			Capture:     true,
			Tag:         TagVaticano,
			Captures:    run,
			SideEffects: []Step{{From: p, To: beyond}},
			Landing:     &landing,
		}
	}
}
