package opening

import (
	"strings"
)

// FallbackName is reported when the move history matches no table entry.
const FallbackName = "Opening"

// NoneName is the empty preset shown first in the dropdown.
const NoneName = "None"

type Side string

const (
	SideNone  Side = ""
	SideWhite Side = "white"
	SideBlack Side = "black"
)

type Entry struct {
	Name  string `json:"name"`
	Moves string `json:"moves"`
	Side  Side   `json:"side,omitempty"`
}

// table is ordered for display. Move strings are unique.
var table = []Entry{
	{Name: NoneName, Moves: ""},
	{Name: "King's Gambit", Moves: "e4 e5 f4", Side: SideWhite},
	{Name: "Queen's Gambit", Moves: "d4 d5 c4", Side: SideWhite},
	{Name: "Sicilian Defense", Moves: "e4 c5", Side: SideBlack},
	{Name: "French Defense", Moves: "e4 e6 d4 d5", Side: SideBlack},
	{Name: "Caro-Kann Defense", Moves: "e4 c6", Side: SideBlack},
	{Name: "Scandinavian Defense", Moves: "e4 d5", Side: SideBlack},
	{Name: "London System", Moves: "d4 Nf6 Bf4", Side: SideWhite},
	{Name: "English Opening", Moves: "c4", Side: SideWhite},
	{Name: "Spanish Game / Ruy Lopez", Moves: "e4 e5 Nf3 Nc6 Bb5", Side: SideWhite},
	{Name: "Italian Game", Moves: "e4 e5 Nf3 Nc6 Bc4", Side: SideWhite},
	{Name: "Vienna Game", Moves: "e4 e5 Nc3", Side: SideWhite},
	{Name: "Indian Game", Moves: "d4 Nf6", Side: SideBlack},
	{Name: "King's Indian Defense", Moves: "d4 Nf6 c4 g6 Nc3 Bg7 e4 d6", Side: SideBlack},
	{Name: "Nimzo-Indian Defense", Moves: "d4 Nf6 c4 e6 Nc3 Bb4", Side: SideBlack},
	{Name: "Alekhine Defense", Moves: "e4 Nf6", Side: SideBlack},
	{Name: "Pirc Defense", Moves: "e4 d6 d4 Nf6 Nc3 g6", Side: SideBlack},
	{Name: "Modern Defense", Moves: "e4 g6 d4 Bg7 Nc3 d6", Side: SideBlack},
}

// All returns a copy of the table in display order.
func All() []Entry {
	return append([]Entry(nil), table...)
}

func Names() []string {
	out := make([]string, 0, len(table))
	for _, e := range table {
		out = append(out, e.Name)
	}
	return out
}

func find(name string) (Entry, bool) {
	for _, e := range table {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Moves returns the preset's SAN list. NoneName yields an empty list.
func Moves(name string) ([]string, bool) {
	e, ok := find(name)
	if !ok {
		return nil, false
	}
	return Split(e.Moves), true
}

func SideOf(name string) Side {
	e, _ := find(name)
	return e.Side
}

// Split breaks a space-separated SAN string into moves.
func Split(moves string) []string {
	if moves == "" {
		return []string{}
	}
	return strings.Split(moves, " ")
}

func Join(history []string) string {
	return strings.Join(history, " ")
}

// Recognize scans the table for an entry whose move string equals the joined
// history. An empty history matches the None entry.
func Recognize(history []string) (string, bool) {
	joined := Join(history)
	for _, e := range table {
		if e.Moves == joined {
			return e.Name, true
		}
	}
	return "", false
}

// Resolve is Recognize with the fallback label applied.
func Resolve(history []string) string {
	if name, ok := Recognize(history); ok {
		return name
	}
	return FallbackName
}
