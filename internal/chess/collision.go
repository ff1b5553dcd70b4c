package chess

// plan is the resolved effect of a move: relocations (primary first) and
// squares whose occupants are removed.
type plan struct {
	moves    []Step
	captures []Point
}

// collisionHandler resolves one move mechanic. It reports false when the
// mechanic does not apply to the metadata or the board disagrees with it.
type collisionHandler func(b *Board, origin, dest Point, meta MoveMetadata) (plan, bool)

var collisionHandlers = []collisionHandler{
	resolveRegular,
	resolveCastle,
	resolveEnPassant,
	resolveVaticano,
}

func resolveCollision(b *Board, origin, dest Point, meta MoveMetadata) (plan, error) {
	var (
		out   plan
		found int
	)
	for _, h := range collisionHandlers {
		if p, ok := h(b, origin, dest, meta); ok {
			out = p
			found++
		}
	}
	if found != 1 {
		return plan{}, ErrCollisionFailed
	}
	return out, nil
}

func resolveRegular(b *Board, origin, dest Point, meta MoveMetadata) (plan, bool) {
	if meta.Tag != TagRegular {
		return plan{}, false
	}
	mover, _ := b.Get(origin)
	p := plan{moves: []Step{{From: origin, To: dest}}}
	if occ, ok := b.Get(dest); ok {
		if occ.Color == mover.Color || !meta.Capture {
			return plan{}, false
		}
		p.captures = []Point{dest}
	}
	return p, true
}

func resolveCastle(b *Board, origin, dest Point, meta MoveMetadata) (plan, bool) {
	if meta.Tag != TagCastle || len(meta.SideEffects) != 1 {
		return plan{}, false
	}
	king, _ := b.Get(origin)
	side := meta.SideEffects[0]
	rook, ok := b.Get(side.From)
	if !ok || !rook.Kind.IsRookType() || rook.Color != king.Color {
		return plan{}, false
	}
	if _, occupied := b.Get(dest); occupied {
		return plan{}, false
	}
	return plan{moves: []Step{{From: origin, To: dest}, side}}, true
}

func resolveEnPassant(b *Board, origin, dest Point, meta MoveMetadata) (plan, bool) {
	if meta.Tag != TagEnPassant || len(meta.Captures) == 0 {
		return plan{}, false
	}
	if _, occupied := b.Get(dest); occupied {
		return plan{}, false
	}
	mover, _ := b.Get(origin)
	for _, c := range meta.Captures {
		victim, ok := b.Get(c)
		if !ok || victim.Color == mover.Color || !victim.Kind.IsPawnType() {
			return plan{}, false
		}
	}
	return plan{moves: []Step{{From: origin, To: dest}}, captures: meta.Captures}, true
}

func resolveVaticano(b *Board, origin, dest Point, meta MoveMetadata) (plan, bool) {
	if meta.Tag != TagVaticano || meta.Landing == nil || len(meta.SideEffects) != 1 {
		return plan{}, false
	}
	bishop, _ := b.Get(origin)
	landing := *meta.Landing
	bud, ok := b.Get(landing)
	if !ok || bud.Kind != Bud || bud.Color != bishop.Color {
		return plan{}, false
	}
	if _, occupied := b.Get(dest); occupied {
		return plan{}, false
	}
	for _, c := range meta.Captures {
		victim, ok := b.Get(c)
		if !ok || victim.Color == bishop.Color || !victim.Kind.IsPawnType() {
			return plan{}, false
		}
	}
	return plan{
		moves:    []Step{{From: origin, To: landing}, meta.SideEffects[0]},
		captures: meta.Captures,
	}, true
}

// apply mutates b and returns the log entry without color or tag. Castling
// rights and the en-passant marker are updated here.
func (p plan) apply(b *Board) MoveLog {
	entry := MoveLog{Moved: []MovedPiece{}, Captured: []CapturedPiece{}}
	for _, c := range p.captures {
		victim, ok := b.Get(c)
		if !ok {
			continue
		}
		entry.Captured = append(entry.Captured, CapturedPiece{Piece: victim.Kind, Color: victim.Color, X: c.X, Y: c.Y})
		b.revokeCorner(c, victim)
		b.Remove(c)
	}
	lifted := make([]Piece, len(p.moves))
	for i, m := range p.moves {
		lifted[i], _ = b.Get(m.From)
		b.Remove(m.From)
	}
	for i, m := range p.moves {
		pc := lifted[i]
		entry.Moved = append(entry.Moved, MovedPiece{Piece: pc.Kind, Color: pc.Color, Origin: m.From, Destination: m.To})
		if pc.Kind == King {
			b.SetRights(pc.Color, CastleRights{})
		}
		b.revokeCorner(m.From, pc)
		pc.Moved = true
		_ = b.Set(m.To, pc)
	}
	primary, traveler := p.moves[0], lifted[0]
	if traveler.Kind.IsPawnType() && abs(primary.To.Y-primary.From.Y) >= 2 {
		to := primary.To
		b.setEnPassant(&to)
	} else {
		b.setEnPassant(nil)
	}
	return entry
}

// revokeCorner clears the castling side whose rook leaves or is taken on
// its corner.
func (b *Board) revokeCorner(sq Point, pc Piece) {
	if !pc.Kind.IsRookType() {
		return
	}
	r := b.Rights(pc.Color)
	switch sq {
	case b.corner(pc.Color, true):
		r.Short = false
	case b.corner(pc.Color, false):
		r.Long = false
	default:
		return
	}
	b.SetRights(pc.Color, r)
}
