package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var allPieces = []nchess.Piece{
	nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
	nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
}

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

// spriteSet is one rasterized image per piece at a fixed square size.
type spriteSet map[nchess.Piece]*image.RGBA

// spriteSheet builds a full set the first time a square size is asked for.
// Board sizes come from config, so in practice there is one entry.
type spriteSheet struct {
	mu     sync.Mutex
	bySize map[int]spriteSet
}

var sprites = &spriteSheet{bySize: make(map[int]spriteSet)}

func (s *spriteSheet) at(size int) (spriteSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.bySize[size]; ok {
		return set, nil
	}
	set := make(spriteSet, len(allPieces))
	for _, p := range allPieces {
		img, err := rasterizePiece(p, size)
		if err != nil {
			return nil, err
		}
		set[p] = img
	}
	s.bySize[size] = set
	return set, nil
}

func pieceAsset(p nchess.Piece) string {
	side := "b"
	if p.Color() == nchess.White {
		side = "w"
	}
	return "assets/pieces/" + side + pieceLetters[p.Type()] + ".svg"
}

func rasterizePiece(p nchess.Piece, size int) (*image.RGBA, error) {
	name := pieceAsset(p)
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return img, nil
}
