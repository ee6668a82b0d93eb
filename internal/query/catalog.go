package query

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultFiles embed.FS

// CaseStudyCount is the number of fixed case-study queries.
const CaseStudyCount = 5

// CaseStudy describes one fixed trend query button.
type CaseStudy struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Tooltip string `json:"tooltip"`
	Label   string `json:"yAxisLabel"`
}

// Catalog holds the form's display strings: embedded defaults plus optional
// YAML overrides. Values are text/template sources; missing keys are errors.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewCatalog loads the embedded strings and then applies overrides from dir.
func NewCatalog(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]string)}
	raw, err := fs.ReadFile(defaultFiles, "catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read catalog dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := parseYAMLToFlat(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			seen[k] = name
		}
		c.mu.Lock()
		for k, v := range flat {
			c.data[k] = v
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *Catalog) applyYAML(b []byte) error {
	flat, err := parseYAMLToFlat(b)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for k, v := range flat {
		c.data[k] = v
	}
	c.mu.Unlock()
	return nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}
		return nil
	case map[any]any:
		tmp := make(map[string]any, len(v))
		for kk, vv := range v {
			tmp[fmt.Sprint(kk)] = vv
		}
		return flattenStrings(tmp, prefix, out)
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}

// Text returns the raw string for key.
func (c *Catalog) Text(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[strings.TrimSpace(key)]
	return v, ok
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.Text(key)
	if !ok || strings.TrimSpace(tpl) == "" {
		return "", fmt.Errorf("template not found: %s", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CaseStudies lists the case-study buttons in query-number order.
func (c *Catalog) CaseStudies() []CaseStudy {
	out := make([]CaseStudy, 0, CaseStudyCount)
	for n := 1; n <= CaseStudyCount; n++ {
		key := "case_studies." + strconv.Itoa(n)
		title, _ := c.Text(key + ".title")
		tooltip, _ := c.Text(key + ".tooltip")
		out = append(out, CaseStudy{
			Number:  n,
			Title:   title,
			Tooltip: tooltip,
			Label:   CaseStudyLabel(n),
		})
	}
	return out
}

// EloLabel formats an Elo slider value.
func (c *Catalog) EloLabel(v int) string {
	s, err := c.Render("format.elo", map[string]any{"Value": v})
	if err != nil {
		return strconv.Itoa(v)
	}
	return s
}

// TurnsLabel formats a turn-count slider value.
func (c *Catalog) TurnsLabel(v int) string {
	s, err := c.Render("format.turns", map[string]any{"Value": v})
	if err != nil {
		return strconv.Itoa(v)
	}
	return s
}

// Option is one choice in a form select, value plus display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormLabels is everything the form needs to draw its static controls.
type FormLabels struct {
	Fields        map[string]string `json:"fields"`
	Presets       []string          `json:"presets"`
	DataChoices   []Option          `json:"dataChoices"`
	OpeningColors []Option          `json:"openingColors"`
	GraphBy       []Option          `json:"graphBy"`
}

var formFields = []string{"preset", "start_year", "end_year", "elo", "turns", "player", "data", "opening_color", "graph_by", "submit"}

// Form collects the field captions and select options. Options keep the
// order of the values they describe; a value without a caption shows as is.
func (c *Catalog) Form(presets []string) FormLabels {
	out := FormLabels{
		Fields:        make(map[string]string, len(formFields)),
		Presets:       append([]string(nil), presets...),
		DataChoices:   c.options("options.data_choice", []string{DataChoicePopularity, DataChoiceWinrate}),
		OpeningColors: c.options("options.opening_color", []string{OpeningColorWhite, OpeningColorBlack}),
		GraphBy:       c.options("options.graph_by", GraphByOptions),
	}
	for _, f := range formFields {
		if v, ok := c.Text("form." + f); ok {
			out.Fields[f] = v
		}
	}
	return out
}

func (c *Catalog) options(prefix string, values []string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		label, ok := c.Text(prefix + "." + v)
		if !ok {
			label = v
		}
		out = append(out, Option{Value: v, Label: label})
	}
	return out
}

// SliderLabels are the value captions under the Elo and turn sliders.
type SliderLabels struct {
	Elo   [2]string `json:"elo"`
	Turns [2]string `json:"turns"`
}

func (c *Catalog) Sliders(f FilterState) SliderLabels {
	return SliderLabels{
		Elo:   [2]string{c.EloLabel(f.EloRange[0]), c.EloLabel(f.EloRange[1])},
		Turns: [2]string{c.TurnsLabel(f.NumTurns[0]), c.TurnsLabel(f.NumTurns[1])},
	}
}
