package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/park285/opening-query/pkg/querydto"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrUnchartable means the results data has no numeric columns to plot.
var ErrUnchartable = errors.New("results data cannot be charted")

var xKeys = []string{"date", "period", "year", "month", "quarter", "time", "x"}

var seriesColors = []drawing.Color{
	{R: 66, G: 133, B: 244, A: 255},
	{R: 219, G: 68, B: 55, A: 255},
	{R: 244, G: 180, B: 0, A: 255},
	{R: 15, G: 157, B: 88, A: 255},
	{R: 171, G: 71, B: 188, A: 255},
	{R: 0, G: 172, B: 193, A: 255},
}

type ChartOptions struct {
	Width  int
	Height int
}

// RenderResults plots the navigated results as a line chart. Data must be a
// list of rows (or an object holding one) with an optional time-like key and
// numeric columns.
func RenderResults(ctx context.Context, state querydto.ResultsState, opts ChartOptions) ([]byte, error) {
	rows, err := decodeRows(state.Data)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = 960
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}

	xKey := pickXKey(rows)
	columns := numericColumns(rows, xKey)
	if len(columns) == 0 {
		return nil, ErrUnchartable
	}

	xs, times := xValues(rows, xKey)
	lo, hi := math.Inf(1), math.Inf(-1)
	var series []chart.Series
	for i, col := range columns {
		ys := make([]float64, len(rows))
		for r, row := range rows {
			ys[r], _ = toFloat(row[col])
			lo, hi = math.Min(lo, ys[r]), math.Max(hi, ys[r])
		}
		st := chart.Style{StrokeColor: seriesColors[i%len(seriesColors)], StrokeWidth: 2}
		if times != nil {
			tx, ty := padTimes(times, ys)
			series = append(series, chart.TimeSeries{Name: col, XValues: tx, YValues: ty, Style: st})
		} else {
			cx, cy := padFloats(xs, ys)
			series = append(series, chart.ContinuousSeries{Name: col, XValues: cx, YValues: cy, Style: st})
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ch := chart.Chart{
		Title:      chartTitle(state),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 24}},
		XAxis:      chart.XAxis{Name: xAxisName(xKey, state.GraphBy)},
		YAxis:      chart.YAxis{Name: state.YaxisLabel},
		Series:     series,
	}
	if lo == hi {
		ch.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func chartTitle(state querydto.ResultsState) string {
	name := strings.TrimSpace(state.OpeningName)
	if name == "" {
		name = strings.TrimSpace(state.OpeningMoves)
	}
	if name == "" {
		return state.YaxisLabel
	}
	return state.YaxisLabel + " - " + name
}

func xAxisName(key, graphBy string) string {
	if graphBy != "" {
		return graphBy
	}
	return key
}

func decodeRows(data json.RawMessage) ([]map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrUnchartable
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err == nil {
		if len(rows) == 0 {
			return nil, ErrUnchartable
		}
		return rows, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnchartable, err)
	}
	keys := make([]string, 0, len(wrapper))
	for k := range wrapper {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := json.Unmarshal(wrapper[k], &rows); err == nil && len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, ErrUnchartable
}

func pickXKey(rows []map[string]any) string {
	for _, k := range xKeys {
		for rk := range rows[0] {
			if strings.EqualFold(rk, k) {
				return rk
			}
		}
	}
	return ""
}

func numericColumns(rows []map[string]any, xKey string) []string {
	var cols []string
	for k, v := range rows[0] {
		if k == xKey {
			continue
		}
		if _, ok := toFloat(v); ok {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

// xValues returns times when every x value parses as a date, otherwise
// numeric x values (row index when the key is missing or not numeric).
func xValues(rows []map[string]any, xKey string) ([]float64, []time.Time) {
	xs := make([]float64, len(rows))
	numeric := xKey != ""
	for i, row := range rows {
		v, ok := toFloat(row[xKey])
		if !ok {
			numeric = false
			break
		}
		xs[i] = v
	}
	if numeric {
		return xs, nil
	}
	if xKey != "" {
		times := make([]time.Time, len(rows))
		allTimes := true
		for i, row := range rows {
			s, _ := row[xKey].(string)
			t, ok := parseTime(s)
			if !ok {
				allTimes = false
				break
			}
			times[i] = t
		}
		if allTimes {
			return nil, times
		}
	}
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs, nil
}

func parseTime(s string) (time.Time, bool) {
	for _, format := range []string{time.RFC3339, "2006-01-02", "2006-01", "2006.01.02"} {
		if t, err := time.Parse(format, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// go-chart needs a non-zero x range. When every row shares one x value a
// point is added one step to the right, repeating the last y.
func padFloats(xs, ys []float64) ([]float64, []float64) {
	if len(xs) == 0 {
		return xs, ys
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return xs, ys
		}
	}
	px := append(append(make([]float64, 0, len(xs)+1), xs...), xs[0]+1)
	py := append(append(make([]float64, 0, len(ys)+1), ys...), ys[len(ys)-1])
	return px, py
}

func padTimes(ts []time.Time, ys []float64) ([]time.Time, []float64) {
	if len(ts) == 0 {
		return ts, ys
	}
	for _, t := range ts[1:] {
		if !t.Equal(ts[0]) {
			return ts, ys
		}
	}
	pt := append(append(make([]time.Time, 0, len(ts)+1), ts...), ts[0].Add(24*time.Hour))
	py := append(append(make([]float64, 0, len(ys)+1), ys...), ys[len(ys)-1])
	return pt, py
}
