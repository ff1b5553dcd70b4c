package chess

import "unicode"

// PieceKind is the closed set of piece types of the variant.
type PieceKind string

const (
	King        PieceKind = "king"
	Queen       PieceKind = "queen"
	Rook        PieceKind = "rook"
	Bishop      PieceKind = "bishop"
	Knight      PieceKind = "knight"
	Pawn        PieceKind = "pawn"
	MinorPawn   PieceKind = "minor_pawn"
	Archbishop  PieceKind = "archbishop"
	Bud         PieceKind = "bud"
	Cardinal    PieceKind = "cardinal"
	noPieceKind PieceKind = ""
)

// Piece is a board occupant.
type Piece struct {
	Kind  PieceKind `json:"kind"`
	Color Color     `json:"color"`
	Moved bool      `json:"moved"`
}

type kindInfo struct {
	code    rune
	offsets []Offset
}

var (
	orthogonal = []Offset{{DX: 1}, {DX: -1}, {DY: 1}, {DY: -1}}
	diagonal   = []Offset{{DX: 1, DY: 1}, {DX: 1, DY: -1}, {DX: -1, DY: 1}, {DX: -1, DY: -1}}
	knightJump = []Offset{
		{DX: 1, DY: 2}, {DX: 2, DY: 1}, {DX: 2, DY: -1}, {DX: 1, DY: -2},
		{DX: -1, DY: -2}, {DX: -2, DY: -1}, {DX: -2, DY: 1}, {DX: -1, DY: 2},
	}
	straightLeap = []Offset{{DX: 2}, {DX: -2}, {DY: 2}, {DY: -2}}
)

func with(base []Offset, slide bool) []Offset {
	out := make([]Offset, len(base))
	for i, o := range base {
		out[i] = Offset{DX: o.DX, DY: o.DY, Slide: slide, CanCapture: true}
	}
	return out
}

func concat(parts ...[]Offset) []Offset {
	var out []Offset
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// movesets is consulted generically by the generator. Pawn-type offsets are
// empty: their geometry depends on color and first-move state.
var movesets = map[PieceKind]kindInfo{
	King:       {code: 'k', offsets: with(concat(orthogonal, diagonal), false)},
	Queen:      {code: 'q', offsets: with(concat(orthogonal, diagonal), true)},
	Rook:       {code: 'r', offsets: with(orthogonal, true)},
	Bishop:     {code: 'b', offsets: with(diagonal, true)},
	Knight:     {code: 'n', offsets: with(knightJump, false)},
	Pawn:       {code: 'p'},
	MinorPawn:  {code: 'm'},
	Archbishop: {code: 'a', offsets: concat(with(knightJump, false), with(straightLeap, true))},
	Bud:        {code: 'u', offsets: concat(with(diagonal, true), with(orthogonal, false))},
	Cardinal:   {code: 'c', offsets: concat(with(diagonal, true), with(straightLeap, false))},
}

var kindByCode = func() map[rune]PieceKind {
	out := make(map[rune]PieceKind, len(movesets))
	for k, info := range movesets {
		out[info.code] = k
	}
	return out
}()

// Kinds lists every piece kind in a stable order.
func Kinds() []PieceKind {
	return []PieceKind{King, Queen, Rook, Bishop, Knight, Pawn, MinorPawn, Archbishop, Bud, Cardinal}
}

// ParseKind accepts a kind name ("rook") or a piece code ("r"/"R").
func ParseKind(s string) (PieceKind, bool) {
	if _, ok := movesets[PieceKind(s)]; ok {
		return PieceKind(s), true
	}
	r := []rune(s)
	if len(r) == 1 {
		k, ok := kindByCode[unicode.ToLower(r[0])]
		return k, ok
	}
	return noPieceKind, false
}

func (k PieceKind) Valid() bool {
	_, ok := movesets[k]
	return ok
}

func (k PieceKind) IsPawnType() bool   { return k == Pawn || k == MinorPawn }
func (k PieceKind) IsBishopType() bool { return k == Bishop || k == Cardinal }
func (k PieceKind) IsRookType() bool   { return k == Rook }

// Offsets returns the declarative moveset of the kind.
func (k PieceKind) Offsets() []Offset { return movesets[k].offsets }

// Code returns the notation letter, uppercase for white.
func (p Piece) Code() rune {
	c := movesets[p.Kind].code
	if p.Color == White {
		return unicode.ToUpper(c)
	}
	return c
}

func pieceFromCode(r rune) (Piece, bool) {
	k, ok := kindByCode[unicode.ToLower(r)]
	if !ok {
		return Piece{}, false
	}
	color := Black
	if unicode.IsUpper(r) {
		color = White
	}
	return Piece{Kind: k, Color: color}, true
}
