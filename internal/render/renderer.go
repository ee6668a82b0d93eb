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
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Title     string
	Badge     string
	Turn      string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct {
	squareSize int
}

// NewBoardRenderer returns the SVG piece renderer. squareSize <= 0 uses 60px.
func NewBoardRenderer(squareSize int) BoardRenderer {
	if squareSize <= 0 {
		squareSize = 60
	}
	return &svgBoardRenderer{squareSize: squareSize}
}

// ParseSquare converts algebraic "e4" into a board square.
func ParseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

// layout places the board inside a canvas with a HUD strip above it and
// coordinate gutters around it.
type layout struct {
	square int
	origin image.Point
	canvas image.Rectangle
}

const (
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 28
)

func newLayout(square int) layout {
	side := square * 8
	return layout{
		square: square,
		origin: image.Pt(sideMargin, topMargin),
		canvas: image.Rect(0, 0, side+sideMargin*2, side+topMargin+bottomMargin),
	}
}

func (l layout) board() image.Rectangle {
	return image.Rectangle{Min: l.origin, Max: l.origin.Add(image.Pt(l.square*8, l.square*8))}
}

// cell is the pixel rectangle of sq with white at the bottom.
func (l layout) cell(sq nchess.Square) image.Rectangle {
	x := l.origin.X + int(sq.File())*l.square
	y := l.origin.Y + (7-int(sq.Rank()))*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func (l layout) center(sq nchess.Square) pointF {
	c := l.cell(sq)
	return pointF{float64(c.Min.X + l.square/2), float64(c.Min.Y + l.square/2)}
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts RenderOptions) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := sprites.at(r.squareSize)
	if err != nil {
		return nil, err
	}

	l := newLayout(r.squareSize)
	img := image.NewRGBA(l.canvas)
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, l.board())
	l.drawSquares(img)
	l.drawHighlight(img, board, opts.Highlight)
	l.drawPieces(img, board, set)
	l.drawCoordinates(img)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{22, 24, 33, 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralHighlightArrow   = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	hudPanelColor           = color.NRGBA{R: 40, G: 44, B: 62, A: 250}
	hudBadgeColor           = color.NRGBA{R: 52, G: 96, B: 72, A: 250}
	hudTextPrimary          = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func (l layout) drawSquares(dst *image.RGBA) {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		clr := lightSquare
		if (int(sq.File())+int(sq.Rank()))%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, l.cell(sq), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

func (l layout) drawPieces(dst *image.RGBA, board *nchess.Board, set spriteSet) {
	for sq, piece := range board.SquareMap() {
		sprite, ok := set[piece]
		if !ok {
			continue
		}
		imagedraw.Draw(dst, l.cell(sq), sprite, image.Point{}, imagedraw.Over)
	}
}

// drawHighlight marks the last move: squares for white, an arrow for black.
func (l layout) drawHighlight(img *image.RGBA, board *nchess.Board, h *MoveHighlight) {
	if h == nil {
		return
	}
	mover := board.Piece(h.To).Color()
	if mover == nchess.NoColor {
		mover = board.Piece(h.From).Color()
	}
	switch mover {
	case nchess.White:
		for _, sq := range []nchess.Square{h.From, h.To} {
			imagedraw.Draw(img, l.cell(sq), image.NewUniform(whiteMoveHighlightFill), image.Point{}, imagedraw.Over)
		}
	case nchess.Black:
		l.drawArrow(img, h.From, h.To, blackMoveHighlightArrow)
	default:
		l.drawArrow(img, h.From, h.To, neutralHighlightArrow)
	}
}

func (l layout) drawArrow(img *image.RGBA, from, to nchess.Square, clr color.Color) {
	if from == to {
		return
	}
	start, tip := l.center(from), l.center(to)
	dx, dy := tip.X-start.X, tip.Y-start.Y
	length := math.Hypot(dx, dy)
	sq := float64(l.square)

	shaft := length - sq*0.45
	if shaft < sq*0.35 {
		shaft = length * 0.6
	}
	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux
	half, head := sq*0.18, sq*0.16
	base := pointF{start.X + ux*shaft, start.Y + uy*shaft}

	fillQuad(img,
		pointF{start.X - nx*half, start.Y - ny*half},
		pointF{start.X + nx*half, start.Y + ny*half},
		pointF{base.X + nx*half, base.Y + ny*half},
		pointF{base.X - nx*half, base.Y - ny*half},
		clr,
	)
	fillTriangleF(img, tip,
		pointF{base.X - nx*head, base.Y - ny*head},
		pointF{base.X + nx*head, base.Y + ny*head},
		clr,
	)
}

func (l layout) drawCoordinates(dst *image.RGBA) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	b := l.board()
	for i := 0; i < 8; i++ {
		rank := nchess.NewSquare(nchess.FileA, nchess.Rank(i))
		c := l.center(rank)
		drawCenteredText(drawer, nchess.Rank(i).String(), b.Min.X-sideMargin/2, int(c.Y)+ascent/2)

		file := nchess.NewSquare(nchess.File(i), nchess.Rank1)
		drawCenteredText(drawer, nchess.File(i).String(), int(l.center(file).X), b.Max.Y+ascent+4)
	}
}

// drawHUD lays out the title, ECO badge and turn pill right to left above
// the board. The title takes whatever width is left.
func drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle) {
	const (
		panelHeight = 30
		radius      = 8
		paddingX    = 16
		gapToBoard  = 14
	)
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Opening"
	}
	turn := strings.TrimSpace(opts.Turn)
	badge := strings.TrimSpace(opts.Badge)

	bottom := boardRect.Min.Y - gapToBoard
	top := bottom - panelHeight

	right := boardRect.Max.X
	pills := []struct {
		text string
		fill color.Color
	}{{turn, hudPanelColor}, {badge, hudBadgeColor}}
	for _, p := range pills {
		if p.text == "" {
			continue
		}
		w := drawer.MeasureString(p.text).Round() + paddingX*2
		rect := image.Rect(right-w, top, right, bottom)
		drawRoundedPanel(img, rect, radius, p.fill)
		drawCenteredString(drawer, rect, p.text, hudTextPrimary)
		right = rect.Min.X - 8
	}

	titleRect := image.Rect(boardRect.Min.X, top, right, bottom)
	if titleRect.Dx() <= paddingX*2 {
		return
	}
	title = truncateWithEllipsis(face, title, titleRect.Dx()-paddingX*2)
	drawRoundedPanel(img, titleRect, radius, hudPanelColor)
	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	// axis rows are already covered by the strips above
	corners := []struct {
		center image.Point
		sx, sy int
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), -1, -1},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), 1, -1},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), -1, 1},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), 1, 1},
	}
	r2 := radius * radius
	for _, c := range corners {
		for y := 0; y <= radius; y++ {
			for x := 0; x <= radius; x++ {
				if x == 0 || y == 0 || x*x+y*y > r2 {
					continue
				}
				blendPixel(img, c.center.X+c.sx*x, c.center.Y+c.sy*y, clr)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

