package query

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidChoice = errors.New("invalid choice")

const (
	EloMin   = 100
	EloMax   = 2900
	TurnsMin = 1
	TurnsMax = 201

	StartYearMin = 1850
	StartYearMax = 2022
	EndYearMin   = 1851
	EndYearMax   = 2023
)

const (
	DataChoiceNone       = ""
	DataChoicePopularity = "popularity"
	DataChoiceWinrate    = "winrate"

	OpeningColorUnset = "False"
	OpeningColorWhite = "white"
	OpeningColorBlack = "black"
)

// GraphByOptions lists the aggregation granularities in display order.
var GraphByOptions = []string{"month", "quarter", "year", "2 years", "5 years", "decade"}

// FilterState holds the independent form filters. Fields are exported for
// JSON snapshots; mutate through the setters so bounds are kept.
type FilterState struct {
	StartDate    int    `json:"startDate"`
	EndDate      int    `json:"endDate"`
	EloRange     [2]int `json:"eloRange"`
	NumTurns     [2]int `json:"numTurns"`
	Player       string `json:"player"`
	DataChoice   string `json:"dataChoice"`
	GraphBy      string `json:"graphBy"`
	OpeningColor string `json:"openingColor"`
}

func DefaultFilters() FilterState {
	return FilterState{
		StartDate:    1971,
		EndDate:      2023,
		EloRange:     [2]int{EloMin, EloMax},
		NumTurns:     [2]int{TurnsMin, TurnsMax},
		DataChoice:   DataChoiceNone,
		GraphBy:      "year",
		OpeningColor: OpeningColorUnset,
	}
}

func (f *FilterState) SetEloRange(lo, hi int) {
	f.EloRange = orderedRange(lo, hi, EloMin, EloMax)
}

func (f *FilterState) SetNumTurns(lo, hi int) {
	f.NumTurns = orderedRange(lo, hi, TurnsMin, TurnsMax)
}

func (f *FilterState) SetStartDate(year int) {
	f.StartDate = clamp(year, StartYearMin, StartYearMax)
}

func (f *FilterState) SetEndDate(year int) {
	f.EndDate = clamp(year, EndYearMin, EndYearMax)
}

func (f *FilterState) SetPlayer(name string) {
	f.Player = name
}

func (f *FilterState) SetDataChoice(v string) error {
	switch v {
	case DataChoiceNone, DataChoicePopularity, DataChoiceWinrate:
		f.DataChoice = v
		return nil
	}
	return fmt.Errorf("%w: dataChoice %q", ErrInvalidChoice, v)
}

func (f *FilterState) SetGraphBy(v string) error {
	for _, opt := range GraphByOptions {
		if opt == v {
			f.GraphBy = v
			return nil
		}
	}
	return fmt.Errorf("%w: graphBy %q", ErrInvalidChoice, v)
}

func (f *FilterState) SetOpeningColor(v string) error {
	switch v {
	case OpeningColorUnset, OpeningColorWhite, OpeningColorBlack:
		f.OpeningColor = v
		return nil
	}
	if strings.EqualFold(v, "w") {
		f.OpeningColor = OpeningColorWhite
		return nil
	}
	if strings.EqualFold(v, "b") {
		f.OpeningColor = OpeningColorBlack
		return nil
	}
	return fmt.Errorf("%w: openingColor %q", ErrInvalidChoice, v)
}

// ShowsOpeningColor reports whether the opening color selector is visible.
func (f FilterState) ShowsOpeningColor() bool {
	return f.DataChoice == DataChoiceWinrate
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func orderedRange(a, b, lo, hi int) [2]int {
	a, b = clamp(a, lo, hi), clamp(b, lo, hi)
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
