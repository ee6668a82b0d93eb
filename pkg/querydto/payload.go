package querydto

// MoveReport is the body of POST /api/query-openings.
type MoveReport struct {
	SourceSq string `json:"sourceSq"`
	TargetSq string `json:"targetSq"`
	Piece    string `json:"piece"`
}

// CaseStudyPayload is the body of POST /api/sql-complex-trend-query-{n}.
type CaseStudyPayload struct {
	StartDate    int    `json:"startDate"`
	EndDate      int    `json:"endDate"`
	EloRange     [2]int `json:"eloRange"`
	NumTurns     [2]int `json:"numTurns"`
	OpeningMoves string `json:"openingMoves"`
	OpeningName  string `json:"openingName"`
	QueryNumber  int    `json:"queryNumber"`
	GraphBy      string `json:"graphBy"`
	Player       string `json:"player"`
	OpeningColor string `json:"openingColor"`
	YaxisLabel   string `json:"YaxisLabel"`
}

// ResultsPayload is the body of POST /api/query-results.
type ResultsPayload struct {
	StartDate    int    `json:"startDate"`
	EndDate      int    `json:"endDate"`
	EloRange     [2]int `json:"eloRange"`
	NumTurns     [2]int `json:"numTurns"`
	OpeningMoves string `json:"openingMoves"`
	OpeningName  string `json:"openingName"`
	DataChoice   string `json:"dataChoice"`
	GraphBy      string `json:"graphBy"`
	Player       string `json:"player"`
	OpeningColor string `json:"openingColor"`
	YaxisLabel   string `json:"YaxisLabel"`
}
