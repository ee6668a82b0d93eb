package trend

import (
	"fmt"
	"time"
)

const (
	DefaultMinGames       = 1
	DefaultFetchRows      = 130
	MinOccurrencesPerYear = 250
)

// RiskyParams drives case study 2. Risky openings are ECO codes that rank
// both among the highest win rates and the shortest games.
type RiskyParams struct {
	Start     time.Time
	End       time.Time
	MinGames  int
	FetchRows int
}

// PredictionParams drives case study 3. The Elo range applies to both sides.
type PredictionParams struct {
	EloLow    int
	EloHigh   int
	TurnsLow  int
	TurnsHigh int
	Start     time.Time
	End       time.Time
}

// YearStart is January 1st of year, UTC.
func YearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// RiskyOpeningsSQL returns the monthly share of games played with a risky
// opening. End is exclusive.
func RiskyOpeningsSQL(p RiskyParams) (string, []any) {
	if p.MinGames <= 0 {
		p.MinGames = DefaultMinGames
	}
	if p.FetchRows <= 0 {
		p.FetchRows = DefaultFetchRows
	}
	const wins = `SUM(CASE WHEN result = '1-0' THEN 1 ELSE 0 END)`
	const losses = `SUM(CASE WHEN result = '0-1' THEN 1 ELSE 0 END)`

	q := fmt.Sprintf(`WITH win_rates AS (
  SELECT ecocode,
    %[1]s AS wins,
    %[2]s AS losses,
    ROUND(%[1]s::numeric / NULLIF(%[2]s + %[1]s, 0), 2) AS win_rate
  FROM games2
  GROUP BY ecocode
  HAVING (%[2]s + %[1]s) >= $1
  ORDER BY win_rate DESC NULLS LAST
  FETCH FIRST $2 ROWS ONLY
), avg_moves_in_loss AS (
  SELECT ecocode, AVG(turns) AS avg_moves_in_loss
  FROM games2
  GROUP BY ecocode
  ORDER BY avg_moves_in_loss ASC
  FETCH FIRST $2 ROWS ONLY
), games_in_month AS (
  SELECT COUNT(*) AS games,
    EXTRACT(MONTH FROM eventdate) AS month,
    EXTRACT(YEAR FROM eventdate) AS year
  FROM games2
  GROUP BY EXTRACT(MONTH FROM eventdate), EXTRACT(YEAR FROM eventdate)
)
SELECT ROUND((COUNT(*) * 100.0) / gm.games, 2) AS risky_plays_percent,
  EXTRACT(MONTH FROM g.eventdate)::int AS month,
  EXTRACT(YEAR FROM g.eventdate)::int AS year
FROM win_rates wr
JOIN avg_moves_in_loss am ON wr.ecocode = am.ecocode
JOIN games2 g ON wr.ecocode = g.ecocode
JOIN games_in_month gm ON EXTRACT(MONTH FROM g.eventdate) = gm.month
  AND EXTRACT(YEAR FROM g.eventdate) = gm.year
WHERE g.eventdate >= $3 AND g.eventdate < $4
GROUP BY EXTRACT(MONTH FROM g.eventdate), EXTRACT(YEAR FROM g.eventdate), gm.games
ORDER BY year, month`, wins, losses)

	return q, []any{p.MinGames, p.FetchRows, p.Start, p.End}
}

// ResultPredictionsSQL returns, per year, how often the higher rated player
// won relative to the Elo expectation. End is exclusive.
func ResultPredictionsSQL(p PredictionParams) (string, []any) {
	q := `WITH selected AS (
  SELECT * FROM games2
  WHERE whiteelo BETWEEN $1 AND $2
    AND blackelo BETWEEN $1 AND $2
    AND turns BETWEEN $3 AND $4
    AND eventdate >= $5 AND eventdate < $6
), difference_data AS (
  SELECT ABS(whiteelo - blackelo) AS difference,
    EXTRACT(YEAR FROM eventdate) AS year,
    SUM(CASE WHEN (result = '0-1' AND whiteelo < blackelo) OR (result = '1-0' AND whiteelo > blackelo) THEN 1 ELSE 0 END)::numeric / COUNT(*) AS sample_probability,
    1 / (1 + POWER(10, -(ABS(whiteelo - blackelo) / 400.0))) AS expected_probability,
    COUNT(*) AS occurrences
  FROM selected
  GROUP BY ABS(whiteelo - blackelo), EXTRACT(YEAR FROM eventdate)
), year_totals AS (
  SELECT year,
    SUM(sample_probability * occurrences) / SUM(occurrences) AS sample_year_probability,
    SUM(expected_probability * occurrences) / SUM(occurrences) AS expected_year_probability,
    SUM(occurrences) AS occurrences_per_year
  FROM difference_data
  GROUP BY year
)
SELECT year::int, ROUND((sample_year_probability / expected_year_probability)::numeric, 3) AS sample_over_expected
FROM year_totals
WHERE occurrences_per_year >= $7
ORDER BY year DESC`

	return q, []any{p.EloLow, p.EloHigh, p.TurnsLow, p.TurnsHigh, p.Start, p.End, MinOccurrencesPerYear}
}
