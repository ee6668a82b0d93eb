package querydto

import "encoding/json"

// ResultsRoute is the client-side route shown after a successful submission.
const ResultsRoute = "/query-results"

// ResultsState is the transition state handed to the results route. Data is
// the analytics response body, passed through without interpretation.
type ResultsState struct {
	Data         json.RawMessage `json:"data"`
	OpeningMoves string          `json:"openingMoves"`
	OpeningName  string          `json:"openingName"`
	DataChoice   string          `json:"dataChoice"`
	GraphBy      string          `json:"graphBy"`
	YaxisLabel   string          `json:"YaxisLabel"`
	QueryNumber  *int            `json:"queryNumber,omitempty"`
}
