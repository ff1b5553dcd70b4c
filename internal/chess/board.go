package chess

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultStart is the starting layout of the 10x10 variant.
const DefaultStart = "rnabkqucbr/pppppppppp/m8m/10/10/10/10/M8M/PPPPPPPPPP/RNABKQUCBR"

// CastleRights are the remaining castling sides of one color.
type CastleRights struct {
	Short bool `json:"short"`
	Long  bool `json:"long"`
}

// Board maps coordinates to occupants. Absent entries are empty squares.
type Board struct {
	width   int
	height  int
	squares map[Point]Piece
	rights  map[Color]CastleRights
	// enPassant is the square of a pawn that has just advanced two or more
	// squares; nil when the last move was anything else.
	enPassant *Point
}

// NewBoard returns an empty board with full castling rights.
func NewBoard(width, height int) *Board {
	return &Board{
		width:   width,
		height:  height,
		squares: make(map[Point]Piece),
		rights: map[Color]CastleRights{
			White: {Short: true, Long: true},
			Black: {Short: true, Long: true},
		},
	}
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

func (b *Board) IsOutOfBound(p Point) bool {
	return p.X < 0 || p.Y < 0 || p.X >= b.width || p.Y >= b.height
}

func (b *Board) Get(p Point) (Piece, bool) {
	pc, ok := b.squares[p]
	return pc, ok
}

func (b *Board) Set(p Point, pc Piece) error {
	if b.IsOutOfBound(p) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	b.squares[p] = pc
	return nil
}

func (b *Board) Remove(p Point) { delete(b.squares, p) }

func (b *Board) Rights(c Color) CastleRights { return b.rights[c] }

func (b *Board) SetRights(c Color, r CastleRights) { b.rights[c] = r }

// EnPassant returns the square of the pawn that may be captured en passant.
func (b *Board) EnPassant() (Point, bool) {
	if b.enPassant == nil {
		return Point{}, false
	}
	return *b.enPassant, true
}

func (b *Board) setEnPassant(p *Point) { b.enPassant = p }

// Squares returns the occupied squares ordered by rank, then file.
func (b *Board) Squares() []Point {
	out := make([]Point, 0, len(b.squares))
	for p := range b.squares {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (b *Board) Clone() *Board {
	c := &Board{
		width:   b.width,
		height:  b.height,
		squares: make(map[Point]Piece, len(b.squares)),
		rights:  make(map[Color]CastleRights, len(b.rights)),
	}
	for p, pc := range b.squares {
		c.squares[p] = pc
	}
	for k, v := range b.rights {
		c.rights[k] = v
	}
	if b.enPassant != nil {
		ep := *b.enPassant
		c.enPassant = &ep
	}
	return c
}

// ParseNotation builds a board from rank strings separated by '/', listed
// from the top rank (Y = height-1) down to Y = 0. Digit runs count empty
// squares; letters are piece codes, uppercase for white.
func ParseNotation(s string, width, height int) (*Board, error) {
	ranks := strings.Split(strings.TrimSpace(s), "/")
	if len(ranks) != height {
		return nil, fmt.Errorf("%w: %d ranks, want %d", ErrMalformedNotation, len(ranks), height)
	}
	b := NewBoard(width, height)
	for i, rank := range ranks {
		y := height - 1 - i
		x := 0
		runes := []rune(rank)
		for j := 0; j < len(runes); j++ {
			r := runes[j]
			if unicode.IsDigit(r) {
				k := j
				for k < len(runes) && unicode.IsDigit(runes[k]) {
					k++
				}
				n, _ := strconv.Atoi(string(runes[j:k]))
				x += n
				j = k - 1
				continue
			}
			pc, ok := pieceFromCode(r)
			if !ok {
				return nil, fmt.Errorf("%w: unknown piece %q", ErrMalformedNotation, r)
			}
			if x >= width {
				return nil, fmt.Errorf("%w: rank %d overflows", ErrMalformedNotation, y)
			}
			b.squares[Point{X: x, Y: y}] = pc
			x++
		}
		if x != width {
			return nil, fmt.Errorf("%w: rank %d has width %d, want %d", ErrMalformedNotation, y, x, width)
		}
	}
	return b, nil
}

// Notation renders the inverse of ParseNotation. Moved flags and castling
// rights are not part of it.
func (b *Board) Notation() string {
	var sb strings.Builder
	for y := b.height - 1; y >= 0; y-- {
		empty := 0
		for x := 0; x < b.width; x++ {
			pc, ok := b.squares[Point{X: x, Y: y}]
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteRune(pc.Code())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if y > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// Hash fingerprints the position together with the side to move.
func (b *Board) Hash(turn Color) string {
	d := xxhash.New()
	_, _ = d.WriteString(b.Notation())
	_, _ = d.WriteString("|" + string(turn))
	for _, p := range b.Squares() {
		if b.squares[p].Moved {
			_, _ = fmt.Fprintf(d, "|m%d,%d", p.X, p.Y)
		}
	}
	for _, c := range []Color{White, Black} {
		r := b.rights[c]
		_, _ = fmt.Fprintf(d, "|%s:%t:%t", c, r.Short, r.Long)
	}
	if b.enPassant != nil {
		_, _ = fmt.Fprintf(d, "|ep%d,%d", b.enPassant.X, b.enPassant.Y)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

type boardSquare struct {
	Point
	Piece
}

type boardJSON struct {
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	Squares   []boardSquare          `json:"squares"`
	Rights    map[Color]CastleRights `json:"castling"`
	EnPassant *Point                 `json:"en_passant,omitempty"`
}

func (b *Board) MarshalJSON() ([]byte, error) {
	out := boardJSON{Width: b.width, Height: b.height, Rights: b.rights, EnPassant: b.enPassant}
	for _, p := range b.Squares() {
		out.Squares = append(out.Squares, boardSquare{Point: p, Piece: b.squares[p]})
	}
	return json.Marshal(out)
}

func (b *Board) UnmarshalJSON(raw []byte) error {
	var in boardJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	nb := NewBoard(in.Width, in.Height)
	for _, sq := range in.Squares {
		if err := nb.Set(sq.Point, sq.Piece); err != nil {
			return err
		}
	}
	for c, r := range in.Rights {
		nb.rights[c] = r
	}
	nb.enPassant = in.EnPassant
	*b = *nb
	return nil
}
