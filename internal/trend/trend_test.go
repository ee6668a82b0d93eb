package trend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/park285/opening-query/pkg/querydto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type fakeSource struct {
	risky      RiskyParams
	prediction PredictionParams
	err        error
}

func (f *fakeSource) RiskyOpenings(_ context.Context, p RiskyParams) ([]RiskyPoint, error) {
	f.risky = p
	if f.err != nil {
		return nil, f.err
	}
	return []RiskyPoint{{Date: "2020-01", Year: 2020, Month: 1, RiskyPlaysPercent: 12.5}}, nil
}

func (f *fakeSource) ResultPredictions(_ context.Context, p PredictionParams) ([]PredictionPoint, error) {
	f.prediction = p
	return nil, f.err
}

func TestRiskyOpeningsSQL(t *testing.T) {
	q, args := RiskyOpeningsSQL(RiskyParams{Start: YearStart(2018), End: YearStart(2024)})
	if len(args) != 4 || args[0] != DefaultMinGames || args[1] != DefaultFetchRows {
		t.Fatalf("args: %v", args)
	}
	for _, want := range []string{"FROM games2", "FETCH FIRST $2 ROWS ONLY", "g.eventdate < $4", "risky_plays_percent"} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q", want)
		}
	}
	if strings.Contains(q, "2018") {
		t.Fatalf("dates must be bound, not inlined")
	}
}

func TestResultPredictionsSQL(t *testing.T) {
	q, args := ResultPredictionsSQL(PredictionParams{EloLow: 1200, EloHigh: 2400, TurnsLow: 10, TurnsHigh: 80, Start: YearStart(1990), End: YearStart(2000)})
	if len(args) != 7 || args[6] != MinOccurrencesPerYear {
		t.Fatalf("args: %v", args)
	}
	if !strings.Contains(q, "400.0") || !strings.Contains(q, "ORDER BY year DESC") {
		t.Fatalf("unexpected query: %s", q)
	}
}

func TestParamsFromPayload(t *testing.T) {
	p := querydto.CaseStudyPayload{StartDate: 1971, EndDate: 2023, EloRange: [2]int{1000, 2000}, NumTurns: [2]int{5, 60}}
	r := RiskyParamsFrom(p)
	if !r.Start.Equal(time.Date(1971, 1, 1, 0, 0, 0, 0, time.UTC)) || !r.End.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("risky window: %v - %v", r.Start, r.End)
	}
	pp := PredictionParamsFrom(p)
	if pp.EloLow != 1000 || pp.EloHigh != 2000 || pp.TurnsLow != 5 || pp.TurnsHigh != 60 {
		t.Fatalf("prediction params: %+v", pp)
	}
}

func serve(t *testing.T, h *Handler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h.Serve}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
}

func post(t *testing.T, c *fasthttp.Client, path, body string) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://backend" + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBodyString(body)
	if err := c.DoTimeout(req, resp, 2*time.Second); err != nil {
		t.Fatalf("do %s: %v", path, err)
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func TestHandlerCaseStudies(t *testing.T) {
	src := &fakeSource{}
	c := serve(t, NewHandler(src, nil, time.Second))

	status, body := post(t, c, "/api/sql-complex-trend-query-2", `{"startDate":2018,"endDate":2023}`)
	if status != 200 {
		t.Fatalf("status %d: %s", status, body)
	}
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) != 1 || rows[0]["date"] != "2020-01" {
		t.Fatalf("body: %s (%v)", body, err)
	}
	if src.risky.Start.Year() != 2018 {
		t.Fatalf("params not forwarded: %+v", src.risky)
	}

	status, body = post(t, c, "/api/sql-complex-trend-query-3", `{"eloRange":[1500,2500],"numTurns":[1,201],"startDate":1971,"endDate":2023}`)
	if status != 200 || string(body) != "[]" {
		t.Fatalf("empty result: %d %s", status, body)
	}

	if status, _ := post(t, c, "/api/sql-complex-trend-query-4", `{}`); status != fasthttp.StatusNotImplemented {
		t.Fatalf("query 4 status %d", status)
	}
	if status, _ := post(t, c, "/api/sql-complex-trend-query-9", `{}`); status != fasthttp.StatusNotFound {
		t.Fatalf("query 9 status %d", status)
	}
	if status, _ := post(t, c, "/api/sql-complex-trend-query-2", `{`); status != fasthttp.StatusBadRequest {
		t.Fatalf("bad body status %d", status)
	}
}

func TestHandlerSourceError(t *testing.T) {
	c := serve(t, NewHandler(&fakeSource{err: errors.New("db down")}, nil, time.Second))
	if status, _ := post(t, c, "/api/sql-complex-trend-query-2", `{}`); status != fasthttp.StatusInternalServerError {
		t.Fatalf("status %d", status)
	}
}

func TestHandlerQueryOpenings(t *testing.T) {
	c := serve(t, NewHandler(&fakeSource{}, nil, time.Second))
	status, body := post(t, c, "/api/query-openings", `{"sourceSq":"e2","targetSq":"e4","piece":"wP"}`)
	if status != 200 || !strings.Contains(string(body), `"targetSq":"e4"`) {
		t.Fatalf("query-openings: %d %s", status, body)
	}
}
