package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/park285/opening-query/pkg/querydto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type captured struct {
	method string
	path   string
	ctype  string
	body   []byte
}

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return NewClient("http://analytics.test", WithDialer(func(string) (net.Conn, error) { return ln.Dial() }), WithTimeout(2*time.Second))
}

func TestCaseStudyPostsJSON(t *testing.T) {
	got := make(chan captured, 1)
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		got <- captured{
			method: string(ctx.Method()),
			path:   string(ctx.Path()),
			ctype:  string(ctx.Request.Header.ContentType()),
			body:   append([]byte(nil), ctx.PostBody()...),
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[{"Year":2020,"AvgTurns":41.5}]`)
	})

	payload := querydto.CaseStudyPayload{QueryNumber: 4, YaxisLabel: "Average Turns", EloRange: [2]int{100, 2900}}
	data, err := c.CaseStudy(context.Background(), 4, payload)
	if err != nil {
		t.Fatalf("CaseStudy: %v", err)
	}
	if string(data) != `[{"Year":2020,"AvgTurns":41.5}]` {
		t.Fatalf("unexpected body passthrough: %s", data)
	}

	req := <-got
	if req.method != "POST" || req.path != "/api/sql-complex-trend-query-4" || req.ctype != "application/json" {
		t.Fatalf("unexpected request: %+v", req)
	}
	var echoed querydto.CaseStudyPayload
	if err := json.Unmarshal(req.body, &echoed); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if echoed.QueryNumber != 4 || echoed.YaxisLabel != "Average Turns" {
		t.Fatalf("payload mismatch: %+v", echoed)
	}
}

func TestNonSuccessStatusIsStatusError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString("down")
	})
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("query-results", "status"))

	_, err := c.QueryResults(context.Background(), querydto.ResultsPayload{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != 503 || se.Body != "down" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if after := testutil.ToFloat64(requestsTotal.WithLabelValues("query-results", "status")); after != before+1 {
		t.Fatalf("status counter not incremented: %v -> %v", before, after)
	}
}

func TestInvalidJSONResponse(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("<html>")
	})
	_, err := c.QueryOpenings(context.Background(), querydto.MoveReport{SourceSq: "e2", TargetSq: "e4", Piece: "wP"})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString("{}") })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.QueryResults(ctx, querydto.ResultsPayload{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMetricEndpoint(t *testing.T) {
	cases := map[string]string{
		"/api/query-openings":            "query-openings",
		"/api/query-results":             "query-results",
		"/api/sql-complex-trend-query-2": "trend-query-2",
		"/api/something-else":            "other",
	}
	for in, want := range cases {
		if got := metricEndpoint(in); got != want {
			t.Fatalf("metricEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
