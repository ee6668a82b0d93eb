package query

import (
	"fmt"

	"github.com/park285/opening-query/internal/opening"
	"github.com/park285/opening-query/pkg/querydto"
)

const (
	PathQueryOpenings = "/api/query-openings"
	PathQueryResults  = "/api/query-results"
)

// CaseStudyPath is the endpoint for case-study query n.
func CaseStudyPath(n int) string {
	return fmt.Sprintf("/api/sql-complex-trend-query-%d", n)
}

// CaseStudyLabel is the Y-axis label shown for case-study query n.
func CaseStudyLabel(n int) string {
	switch n {
	case 1, 2:
		return "Proportion of Database"
	case 3:
		return "Observed Probability"
	case 4:
		return "Average Turns"
	case 5:
		return "3 Most Popular Openings by Year"
	default:
		return "Data"
	}
}

// ResultsLabel is the Y-axis label for a general submission.
func ResultsLabel(dataChoice string) string {
	switch dataChoice {
	case DataChoiceWinrate:
		return "Winrate %"
	case DataChoicePopularity:
		return "Popularity %"
	default:
		return "Proportion %"
	}
}

func CaseStudyPayload(f FilterState, history []string, n int) querydto.CaseStudyPayload {
	return querydto.CaseStudyPayload{
		StartDate:    f.StartDate,
		EndDate:      f.EndDate,
		EloRange:     f.EloRange,
		NumTurns:     f.NumTurns,
		OpeningMoves: opening.Join(history),
		OpeningName:  opening.Resolve(history),
		QueryNumber:  n,
		GraphBy:      f.GraphBy,
		Player:       f.Player,
		OpeningColor: f.OpeningColor,
		YaxisLabel:   CaseStudyLabel(n),
	}
}

func ResultsPayload(f FilterState, history []string) querydto.ResultsPayload {
	return querydto.ResultsPayload{
		StartDate:    f.StartDate,
		EndDate:      f.EndDate,
		EloRange:     f.EloRange,
		NumTurns:     f.NumTurns,
		OpeningMoves: opening.Join(history),
		OpeningName:  opening.Resolve(history),
		DataChoice:   f.DataChoice,
		GraphBy:      f.GraphBy,
		Player:       f.Player,
		OpeningColor: f.OpeningColor,
		YaxisLabel:   ResultsLabel(f.DataChoice),
	}
}
