package players

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLimit caps the autocomplete options shown at once.
const DefaultLimit = 6

var ErrEmptyList = errors.New("player list is empty")

//go:embed players.json
var embedded []byte

type record struct {
	Player string `json:"PLAYER"`
}

// Directory is a read-only list of player names for autocomplete.
type Directory struct {
	names  []string
	folded []string
}

// Load reads the player list from path, or the embedded list when path is
// empty.
func Load(path string) (*Directory, error) {
	raw := embedded
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read players %s: %w", p, err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes a `[{"PLAYER": "..."}]` document. Blank and duplicate names
// are dropped.
func Parse(raw []byte) (*Directory, error) {
	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	d := &Directory{}
	seen := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		name := strings.TrimSpace(r.Player)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		d.names = append(d.names, name)
	}
	if len(d.names) == 0 {
		return nil, ErrEmptyList
	}
	sort.Strings(d.names)
	d.folded = make([]string, len(d.names))
	for i, n := range d.names {
		d.folded[i] = fold(n)
	}
	return d, nil
}

func (d *Directory) Len() int { return len(d.names) }

// Suggest returns up to limit names containing input, ignoring case and
// accents. Input is matched untrimmed; an empty input offers nothing.
func (d *Directory) Suggest(input string, limit int) []string {
	q := fold(input)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]string, 0, limit)
	for i, n := range d.folded {
		if strings.Contains(n, q) {
			out = append(out, d.names[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// fold lowercases s and strips combining marks, so "Réti" matches "reti".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
