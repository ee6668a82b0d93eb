package board

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/opening-query/internal/opening"
)

var ErrIllegalLine = errors.New("line contains an illegal move")

// Move is an accepted board interaction.
type Move struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Piece string `json:"piece"`
	SAN   string `json:"san"`
	UCI   string `json:"uci"`
}

// Tracker pairs the rules engine with the SAN move history shown to the user.
// It is not safe for concurrent use; the owning view serializes access.
type Tracker struct {
	game    *nchess.Game
	history []string
	last    *Move
}

func NewTracker() *Tracker {
	return &Tracker{game: nchess.NewGame(), history: []string{}}
}

func (t *Tracker) FEN() string { return t.game.FEN() }

func (t *Tracker) History() []string { return append([]string(nil), t.history...) }

func (t *Tracker) Joined() string { return opening.Join(t.history) }

func (t *Tracker) Position() *nchess.Position { return t.game.Position() }

func (t *Tracker) Turn() string {
	if t.game.Position().Turn() == nchess.Black {
		return "black"
	}
	return "white"
}

// LastMove returns the most recent accepted drop. Preset replays clear it.
func (t *Tracker) LastMove() (Move, bool) {
	if t.last == nil {
		return Move{}, false
	}
	return *t.last, true
}

// ECO classifies the current line against the ECO book.
func (t *Tracker) ECO() (opening.ECO, bool) { return opening.Classify(t.game) }

func (t *Tracker) Reset() {
	t.game = nchess.NewGame()
	t.history = []string{}
	t.last = nil
}

// Targets lists the legal destination squares for the piece on source.
func (t *Tracker) Targets(source string) []string {
	src := normalizeSquare(source)
	if src == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, mv := range t.game.ValidMoves() {
		if mv.S1().String() != src {
			continue
		}
		dst := mv.S2().String()
		if _, ok := seen[dst]; ok {
			continue
		}
		seen[dst] = struct{}{}
		out = append(out, dst)
	}
	return out
}

// Drop applies a board interaction. A target that is not a legal destination
// for the source square is rejected and leaves the tracker untouched.
func (t *Tracker) Drop(source, target, piece string) (Move, bool) {
	src := normalizeSquare(source)
	dst := normalizeSquare(target)
	if src == "" || dst == "" {
		return Move{}, false
	}

	legal, promotes := t.destination(src, dst)
	if !legal {
		return Move{}, false
	}

	uci := src + dst
	if promotes {
		uci += promotionLetter(piece)
	}

	next := t.game.Clone()
	if err := next.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Move{}, false
	}

	moves := next.Moves()
	positions := next.Positions()
	applied := moves[len(moves)-1]
	before := positions[len(moves)-1]

	mv := Move{
		From:  src,
		To:    dst,
		Piece: strings.TrimSpace(piece),
		SAN:   nchess.AlgebraicNotation{}.Encode(before, applied),
		UCI:   strings.ToLower(nchess.UCINotation{}.Encode(before, applied)),
	}

	t.game = next
	t.history = append(t.history, mv.SAN)
	t.last = &mv
	return mv, true
}

// LoadLine resets the board and replays SAN moves. On failure the board is
// left at the starting position with an empty history.
func (t *Tracker) LoadLine(moves []string) error {
	t.Reset()
	game := nchess.NewGame()
	applied := make([]string, 0, len(moves))
	for _, raw := range moves {
		mv := strings.TrimSpace(raw)
		if mv == "" {
			continue
		}
		if err := game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrIllegalLine, mv, err)
		}
		applied = append(applied, mv)
	}
	t.game = game
	t.history = applied
	return nil
}

func (t *Tracker) destination(src, dst string) (legal, promotes bool) {
	for _, mv := range t.game.ValidMoves() {
		if mv.S1().String() != src || mv.S2().String() != dst {
			continue
		}
		legal = true
		if mv.Promo() != nchess.NoPieceType {
			promotes = true
		}
	}
	return legal, promotes
}

func normalizeSquare(s string) string {
	sq := strings.ToLower(strings.TrimSpace(s))
	if len(sq) != 2 {
		return ""
	}
	if sq[0] < 'a' || sq[0] > 'h' || sq[1] < '1' || sq[1] > '8' {
		return ""
	}
	return sq
}

// promotionLetter reads the board widget's piece code ("wQ", "bN") or a bare
// letter. Anything that is not Q, R, B or N promotes to a queen.
func promotionLetter(piece string) string {
	p := strings.TrimSpace(piece)
	if p == "" {
		return "q"
	}
	letter := strings.ToLower(p[len(p)-1:])
	switch letter {
	case "q", "r", "b", "n":
		return letter
	default:
		return "q"
	}
}
