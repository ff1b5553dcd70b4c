package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/park285/vaticano-chess/internal/chess"
)

// Highlight marks the squares of the last move.
type Highlight struct {
	From chess.Point
	To   chess.Point
}

type Options struct {
	Header    string
	Highlight *Highlight
	// Flip draws black's home rank at the bottom.
	Flip bool
}

const (
	squareSize  = 48
	sideMargin  = 28
	topMargin   = 40
	bottomPad   = 28
	discInset   = 6
	headerLineY = 26
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{28, 31, 46, 255}
	highlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	whitePiece      = color.RGBA{245, 245, 240, 255}
	blackPiece      = color.RGBA{30, 30, 34, 255}
	pieceOutline    = color.RGBA{90, 90, 96, 255}
	textPrimary     = color.RGBA{236, 239, 255, 255}
	coordinateText  = color.RGBA{8, 214, 120, 255}
)

// PNG draws the board with one lettered disc per piece.
func PNG(ctx context.Context, b *chess.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	w, h := b.Width(), b.Height()
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, w*squareSize+sideMargin*2, h*squareSize+topMargin+bottomPad))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	layout := grid{width: w, height: h, origin: origin, flip: opts.Flip}
	drawSquares(img, layout)
	if hl := opts.Highlight; hl != nil {
		drawOverlay(img, layout.rect(hl.From), highlightFill)
		drawOverlay(img, layout.rect(hl.To), highlightFill)
	}
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	for _, p := range b.Squares() {
		pc, _ := b.Get(p)
		drawPiece(img, drawer, layout.rect(p), pc)
	}
	drawCoordinates(drawer, layout)
	if header := strings.TrimSpace(opts.Header); header != "" {
		drawer.Src = image.NewUniform(textPrimary)
		drawer.Dot = fixed.P(sideMargin, headerLineY)
		drawer.DrawString(header)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// grid maps board points to pixel rectangles. Row 0 of the image is the
// top rank unless flipped.
type grid struct {
	width, height int
	origin        image.Point
	flip          bool
}

func (g grid) rect(p chess.Point) image.Rectangle {
	col, row := p.X, g.height-1-p.Y
	if g.flip {
		col, row = g.width-1-p.X, p.Y
	}
	x := g.origin.X + col*squareSize
	y := g.origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst *image.RGBA, g grid) {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			clr := lightSquare
			if (x+y)%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, g.rect(chess.Point{X: x, Y: y}), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawOverlay(dst *image.RGBA, r image.Rectangle, clr color.Color) {
	imagedraw.Draw(dst, r, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawPiece(dst *image.RGBA, drawer *font.Drawer, r image.Rectangle, pc chess.Piece) {
	fill, ink := color.Color(whitePiece), color.Color(blackPiece)
	if pc.Color == chess.Black {
		fill, ink = blackPiece, whitePiece
	}
	center := image.Point{X: r.Min.X + r.Dx()/2, Y: r.Min.Y + r.Dy()/2}
	radius := float32(r.Dx()/2 - discInset)
	drawDisc(dst, r, radius+1.5, pieceOutline)
	drawDisc(dst, r, radius, fill)

	label := strings.ToUpper(string(pc.Code()))
	drawer.Src = image.NewUniform(ink)
	width := drawer.MeasureString(label).Round()
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	drawer.Dot = fixed.P(center.X-width/2, center.Y+ascent/2-1)
	drawer.DrawString(label)
}

// drawDisc rasterizes an antialiased circle centered in r.
func drawDisc(dst *image.RGBA, r image.Rectangle, radius float32, clr color.Color) {
	const segments = 48
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	cx, cy := float32(r.Dx())/2, float32(r.Dy())/2
	z.MoveTo(cx+radius, cy)
	for i := 1; i <= segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		z.LineTo(cx+radius*float32(math.Cos(a)), cy+radius*float32(math.Sin(a)))
	}
	z.ClosePath()
	z.Draw(dst, r, image.NewUniform(clr), image.Point{})
}

func drawCoordinates(drawer *font.Drawer, g grid) {
	drawer.Src = image.NewUniform(coordinateText)
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	for y := 0; y < g.height; y++ {
		r := g.rect(chess.Point{X: 0, Y: y})
		if g.flip {
			r = g.rect(chess.Point{X: g.width - 1, Y: y})
		}
		label := strconv.Itoa(y + 1)
		width := drawer.MeasureString(label).Round()
		drawer.Dot = fixed.P(g.origin.X-sideMargin/2-width/2, r.Min.Y+r.Dy()/2+ascent/2)
		drawer.DrawString(label)
	}
	for x := 0; x < g.width; x++ {
		r := g.rect(chess.Point{X: x, Y: 0})
		if g.flip {
			r = g.rect(chess.Point{X: x, Y: g.height - 1})
		}
		label := string(rune('a' + x))
		width := drawer.MeasureString(label).Round()
		drawer.Dot = fixed.P(r.Min.X+r.Dx()/2-width/2, g.origin.Y+g.height*squareSize+ascent+4)
		drawer.DrawString(label)
	}
}
