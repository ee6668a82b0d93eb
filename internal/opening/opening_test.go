package opening

import (
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

func TestResolveExactMatch(t *testing.T) {
	got := Resolve(Split("e4 e5 Nf3 Nc6 Bb5"))
	if got != "Spanish Game / Ruy Lopez" {
		t.Fatalf("Resolve: got %q", got)
	}
}

func TestResolveFallback(t *testing.T) {
	cases := []string{"e4 e6", "e4 e5 Nf3", "d4 Nf6 c4 g6", "h3"}
	for _, line := range cases {
		if got := Resolve(Split(line)); got != FallbackName {
			t.Fatalf("Resolve(%q) = %q, want fallback", line, got)
		}
	}
}

func TestResolveEmptyHistoryIsNone(t *testing.T) {
	if got := Resolve(nil); got != NoneName {
		t.Fatalf("empty history: got %q", got)
	}
}

func TestTableValuesUnique(t *testing.T) {
	seen := map[string]string{}
	for _, e := range All() {
		if prev, ok := seen[e.Moves]; ok {
			t.Fatalf("duplicate move string %q for %q and %q", e.Moves, prev, e.Name)
		}
		seen[e.Moves] = e.Name
	}
	if Names()[0] != NoneName {
		t.Fatalf("None must be listed first")
	}
}

func TestEveryPresetRecognizesItself(t *testing.T) {
	for _, e := range All() {
		moves, ok := Moves(e.Name)
		if !ok {
			t.Fatalf("Moves(%q) missing", e.Name)
		}
		if Join(moves) != e.Moves {
			t.Fatalf("Moves(%q) = %v", e.Name, moves)
		}
		if got := Resolve(moves); got != e.Name {
			t.Fatalf("Resolve(Moves(%q)) = %q", e.Name, got)
		}
	}
}

func TestMovesUnknownPreset(t *testing.T) {
	if _, ok := Moves("Bongcloud"); ok {
		t.Fatalf("unknown preset should not resolve")
	}
}

func TestSideOf(t *testing.T) {
	if SideOf("Sicilian Defense") != SideBlack || SideOf("London System") != SideWhite || SideOf(NoneName) != SideNone {
		t.Fatalf("unexpected side annotations")
	}
}

func TestClassifySicilian(t *testing.T) {
	game := nchess.NewGame()
	for _, mv := range []string{"e4", "c5"} {
		if err := game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
			t.Fatalf("push %s: %v", mv, err)
		}
	}
	eco, ok := Classify(game)
	if !ok {
		t.Fatalf("expected an ECO classification")
	}
	if !strings.HasPrefix(eco.Code, "B") || !strings.Contains(eco.Title, "Sicilian") {
		t.Fatalf("unexpected classification: %+v", eco)
	}
}

func TestClassifyEmptyGame(t *testing.T) {
	if _, ok := Classify(nchess.NewGame()); ok {
		t.Fatalf("empty game should not classify")
	}
}
