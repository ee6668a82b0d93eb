package trend

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/pkg/querydto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const caseStudyPrefix = "/api/sql-complex-trend-query-"

var handledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "openingq",
	Subsystem: "trend",
	Name:      "requests_total",
	Help:      "Case-study requests served by the trend back end.",
}, []string{"query", "status"})

type Handler struct {
	src     Source
	logger  *zap.Logger
	timeout time.Duration
}

func NewHandler(src Source, logger *zap.Logger, timeout time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{src: src, logger: logger, timeout: timeout}
}

// Serve is the fasthttp request handler.
func (h *Handler) Serve(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	if !ctx.IsPost() {
		h.fail(ctx, "-", fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch {
	case path == query.PathQueryOpenings:
		h.queryOpenings(ctx)
	case strings.HasPrefix(path, caseStudyPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(path, caseStudyPrefix))
		if err != nil || n < 1 || n > query.CaseStudyCount {
			h.fail(ctx, "-", fasthttp.StatusNotFound, "unknown case study")
			return
		}
		h.caseStudy(ctx, n)
	case path == query.PathQueryResults:
		h.fail(ctx, "results", fasthttp.StatusNotImplemented, "general queries are not served by this back end")
	default:
		h.fail(ctx, "-", fasthttp.StatusNotFound, "not found")
	}
}

func (h *Handler) queryOpenings(ctx *fasthttp.RequestCtx) {
	var report querydto.MoveReport
	if err := json.Unmarshal(ctx.PostBody(), &report); err != nil {
		h.fail(ctx, "openings", fasthttp.StatusBadRequest, "invalid JSON body")
		return
	}
	h.logger.Debug("move_reported", zap.String("from", report.SourceSq), zap.String("to", report.TargetSq), zap.String("piece", report.Piece))
	h.writeJSON(ctx, "openings", map[string]any{"received": report})
}

func (h *Handler) caseStudy(ctx *fasthttp.RequestCtx, n int) {
	label := strconv.Itoa(n)
	var payload querydto.CaseStudyPayload
	if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
		h.fail(ctx, label, fasthttp.StatusBadRequest, "invalid JSON body")
		return
	}

	cctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var (
		out any
		err error
	)
	switch n {
	case 2:
		out, err = h.src.RiskyOpenings(cctx, RiskyParamsFrom(payload))
	case 3:
		out, err = h.src.ResultPredictions(cctx, PredictionParamsFrom(payload))
	default:
		h.fail(ctx, label, fasthttp.StatusNotImplemented, "case study not implemented")
		return
	}
	if err != nil {
		h.logger.Error("case_study_failed", zap.Int("query_number", n), zap.Error(err))
		h.fail(ctx, label, fasthttp.StatusInternalServerError, "query failed")
		return
	}
	h.writeJSON(ctx, label, out)
}

// RiskyParamsFrom maps the form payload onto case study 2. Only the year
// range is used.
func RiskyParamsFrom(p querydto.CaseStudyPayload) RiskyParams {
	return RiskyParams{
		Start:     YearStart(p.StartDate),
		End:       YearStart(p.EndDate + 1),
		MinGames:  DefaultMinGames,
		FetchRows: DefaultFetchRows,
	}
}

// PredictionParamsFrom maps the form payload onto case study 3.
func PredictionParamsFrom(p querydto.CaseStudyPayload) PredictionParams {
	return PredictionParams{
		EloLow:    p.EloRange[0],
		EloHigh:   p.EloRange[1],
		TurnsLow:  p.NumTurns[0],
		TurnsHigh: p.NumTurns[1],
		Start:     YearStart(p.StartDate),
		End:       YearStart(p.EndDate + 1),
	}
}

func (h *Handler) writeJSON(ctx *fasthttp.RequestCtx, label string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.fail(ctx, label, fasthttp.StatusInternalServerError, "encode failed")
		return
	}
	// nil slices encode as null; the form expects a list
	if string(raw) == "null" {
		raw = []byte("[]")
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(raw)
	handledTotal.WithLabelValues(label, "200").Inc()
}

func (h *Handler) fail(ctx *fasthttp.RequestCtx, label string, status int, msg string) {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
	handledTotal.WithLabelValues(label, strconv.Itoa(status)).Inc()
}
