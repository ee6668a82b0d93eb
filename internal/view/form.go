package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/opening-query/internal/board"
	"github.com/park285/opening-query/internal/opening"
	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/pkg/querydto"
	"go.uber.org/zap"
)

var (
	ErrUnknownPreset    = errors.New("unknown preset opening")
	ErrUnknownCaseStudy = errors.New("unknown case study query")
	ErrNoDispatcher     = errors.New("no analytics dispatcher configured")
)

const moveReportTimeout = 10 * time.Second

// Dispatcher sends query payloads to the analytics service.
type Dispatcher interface {
	QueryOpenings(ctx context.Context, report querydto.MoveReport) (json.RawMessage, error)
	CaseStudy(ctx context.Context, n int, payload querydto.CaseStudyPayload) (json.RawMessage, error)
	QueryResults(ctx context.Context, payload querydto.ResultsPayload) (json.RawMessage, error)
}

// Navigator receives the transition to the results route.
type Navigator interface {
	Navigate(route string, state querydto.ResultsState)
}

type NavigatorFunc func(route string, state querydto.ResultsState)

func (fn NavigatorFunc) Navigate(route string, state querydto.ResultsState) { fn(route, state) }

// Snapshot is a read-only copy of the form state.
type Snapshot struct {
	ID               string                 `json:"id"`
	FEN              string                 `json:"fen"`
	Moves            []string               `json:"moves"`
	Turn             string                 `json:"turn"`
	Preset           string                 `json:"preset"`
	OpeningName      string                 `json:"openingName"`
	ECO              *opening.ECO           `json:"eco,omitempty"`
	LastMove         *board.Move            `json:"lastMove,omitempty"`
	Filters          query.FilterState      `json:"filters"`
	ShowOpeningColor bool                   `json:"showOpeningColor"`
	Route            string                 `json:"route"`
	Results          *querydto.ResultsState `json:"results,omitempty"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Form is the opening query view model. Handlers may be called from any
// goroutine; submissions do not block other handlers while in flight.
type Form struct {
	mu sync.Mutex

	id      string
	tracker *board.Tracker
	filters query.FilterState
	preset  string

	route   string
	results *querydto.ResultsState

	dispatcher  Dispatcher
	nav         Navigator
	logger      *zap.Logger
	reportMoves bool
	updatedAt   time.Time

	subMu   sync.RWMutex
	subs    map[int]func(Snapshot)
	nextSub int
}

type Option func(*Form)

func WithLogger(l *zap.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithNavigator(n Navigator) Option {
	return func(f *Form) { f.nav = n }
}

// WithMoveReporting posts every accepted drop to the query-openings endpoint.
func WithMoveReporting(enabled bool) Option {
	return func(f *Form) { f.reportMoves = enabled }
}

func New(id string, d Dispatcher, opts ...Option) *Form {
	f := &Form{
		id:         id,
		tracker:    board.NewTracker(),
		filters:    query.DefaultFilters(),
		dispatcher: d,
		logger:     zap.NewNop(),
		updatedAt:  time.Now(),
		subs:       make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Form) ID() string { return f.id }

// Snapshot copies the current state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	name, _ := opening.Recognize(f.tracker.History())
	s := Snapshot{
		ID:               f.id,
		FEN:              f.tracker.FEN(),
		Moves:            f.tracker.History(),
		Turn:             f.tracker.Turn(),
		Preset:           f.preset,
		OpeningName:      name,
		Filters:          f.filters,
		ShowOpeningColor: f.filters.ShowsOpeningColor(),
		Route:            f.route,
		UpdatedAt:        f.updatedAt,
	}
	if eco, ok := f.tracker.ECO(); ok {
		s.ECO = &eco
	}
	if mv, ok := f.tracker.LastMove(); ok {
		s.LastMove = &mv
	}
	if f.results != nil {
		r := *f.results
		s.Results = &r
	}
	return s
}

// WithBoard runs fn with the board locked. fn must not mutate it.
func (f *Form) WithBoard(fn func(t *board.Tracker)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.tracker)
}

// Drop handles a piece drop on the board. Illegal drops change nothing.
func (f *Form) Drop(source, target, piece string) bool {
	f.mu.Lock()
	mv, ok := f.tracker.Drop(source, target, piece)
	if ok {
		f.touchLocked()
	}
	f.mu.Unlock()
	if !ok {
		return false
	}
	if f.reportMoves {
		go f.reportMove(mv)
	}
	f.publish()
	return true
}

func (f *Form) reportMove(mv board.Move) {
	if f.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), moveReportTimeout)
	defer cancel()
	data, err := f.dispatcher.QueryOpenings(ctx, querydto.MoveReport{SourceSq: mv.From, TargetSq: mv.To, Piece: mv.Piece})
	if err != nil {
		f.logger.Warn("move_report_failed", zap.String("form_id", f.id), zap.String("move", mv.UCI), zap.Error(err))
		return
	}
	f.logger.Debug("move_report", zap.String("form_id", f.id), zap.String("move", mv.UCI), zap.ByteString("data", data))
}

// Targets lists the legal destinations for the piece on source.
func (f *Form) Targets(source string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker.Targets(source)
}

// SelectPreset resets the board and replays the preset's moves.
func (f *Form) SelectPreset(name string) error {
	moves, ok := opening.Moves(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	f.mu.Lock()
	f.preset = name
	err := f.tracker.LoadLine(moves)
	f.touchLocked()
	f.mu.Unlock()
	f.publish()
	return err
}

// ResetBoard clears the board and the move history.
func (f *Form) ResetBoard() {
	f.mu.Lock()
	f.tracker.Reset()
	f.preset = ""
	f.touchLocked()
	f.mu.Unlock()
	f.publish()
}

// UpdateFilters applies fn to the filter state. Nothing is applied if fn
// returns an error.
func (f *Form) UpdateFilters(fn func(fs *query.FilterState) error) error {
	f.mu.Lock()
	next := f.filters
	if err := fn(&next); err != nil {
		f.mu.Unlock()
		return err
	}
	f.filters = next
	f.touchLocked()
	f.mu.Unlock()
	f.publish()
	return nil
}

func (f *Form) SetEloRange(lo, hi int) {
	_ = f.UpdateFilters(func(fs *query.FilterState) error { fs.SetEloRange(lo, hi); return nil })
}

func (f *Form) SetNumTurns(lo, hi int) {
	_ = f.UpdateFilters(func(fs *query.FilterState) error { fs.SetNumTurns(lo, hi); return nil })
}

func (f *Form) SetYears(start, end int) {
	_ = f.UpdateFilters(func(fs *query.FilterState) error {
		fs.SetStartDate(start)
		fs.SetEndDate(end)
		return nil
	})
}

func (f *Form) SetPlayer(name string) {
	_ = f.UpdateFilters(func(fs *query.FilterState) error { fs.SetPlayer(name); return nil })
}

func (f *Form) SetDataChoice(v string) error {
	return f.UpdateFilters(func(fs *query.FilterState) error { return fs.SetDataChoice(v) })
}

func (f *Form) SetGraphBy(v string) error {
	return f.UpdateFilters(func(fs *query.FilterState) error { return fs.SetGraphBy(v) })
}

func (f *Form) SetOpeningColor(v string) error {
	return f.UpdateFilters(func(fs *query.FilterState) error { return fs.SetOpeningColor(v) })
}

// SubmitCaseStudy runs fixed query n. On failure one diagnostic is logged,
// the form stays in place and the error is returned.
func (f *Form) SubmitCaseStudy(ctx context.Context, n int) error {
	if n < 1 || n > query.CaseStudyCount {
		return fmt.Errorf("%w: %d", ErrUnknownCaseStudy, n)
	}
	history, filters := f.captureInputs()
	payload := query.CaseStudyPayload(filters, history, n)

	data, err := f.dispatch(func(d Dispatcher) (json.RawMessage, error) { return d.CaseStudy(ctx, n, payload) })
	if err != nil {
		f.logger.Error("case_study_query_failed", zap.String("form_id", f.id), zap.Int("query_number", n), zap.Error(err))
		return err
	}

	recognized, _ := opening.Recognize(history)
	qn := n
	f.navigate(querydto.ResultsState{
		Data:         data,
		OpeningMoves: payload.OpeningMoves,
		OpeningName:  recognized,
		DataChoice:   filters.DataChoice,
		GraphBy:      filters.GraphBy,
		YaxisLabel:   payload.YaxisLabel,
		QueryNumber:  &qn,
	})
	return nil
}

// Submit runs the general filter query.
func (f *Form) Submit(ctx context.Context) error {
	history, filters := f.captureInputs()
	payload := query.ResultsPayload(filters, history)

	data, err := f.dispatch(func(d Dispatcher) (json.RawMessage, error) { return d.QueryResults(ctx, payload) })
	if err != nil {
		f.logger.Error("query_submit_failed", zap.String("form_id", f.id), zap.String("data_choice", filters.DataChoice), zap.Error(err))
		return err
	}

	recognized, _ := opening.Recognize(history)
	f.navigate(querydto.ResultsState{
		Data:         data,
		OpeningMoves: payload.OpeningMoves,
		OpeningName:  recognized,
		DataChoice:   filters.DataChoice,
		GraphBy:      filters.GraphBy,
		YaxisLabel:   payload.YaxisLabel,
	})
	return nil
}

// Back leaves the results route. The form is remounted with default state.
func (f *Form) Back() {
	f.mu.Lock()
	f.tracker.Reset()
	f.filters = query.DefaultFilters()
	f.preset = ""
	f.route = ""
	f.results = nil
	f.touchLocked()
	f.mu.Unlock()
	f.publish()
}

// Restore rebuilds the form from a stored snapshot.
func (f *Form) Restore(s Snapshot) error {
	f.mu.Lock()
	err := f.tracker.LoadLine(s.Moves)
	f.filters = s.Filters
	f.preset = s.Preset
	f.route = s.Route
	f.results = s.Results
	if !s.UpdatedAt.IsZero() {
		f.updatedAt = s.UpdatedAt
	}
	f.mu.Unlock()
	return err
}

func (f *Form) captureInputs() ([]string, query.FilterState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracker.History(), f.filters
}

func (f *Form) dispatch(call func(d Dispatcher) (json.RawMessage, error)) (json.RawMessage, error) {
	if f.dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	return call(f.dispatcher)
}

// navigate records the transition; the last response to resolve wins.
func (f *Form) navigate(state querydto.ResultsState) {
	f.mu.Lock()
	f.route = querydto.ResultsRoute
	f.results = &state
	f.touchLocked()
	f.mu.Unlock()

	f.logger.Info("results_navigate",
		zap.String("form_id", f.id),
		zap.String("opening_moves", state.OpeningMoves),
		zap.String("y_axis", state.YaxisLabel),
	)
	if f.nav != nil {
		f.nav.Navigate(querydto.ResultsRoute, state)
	}
	f.publish()
}

func (f *Form) touchLocked() { f.updatedAt = time.Now() }

// Subscribe registers fn for state changes and returns its cancel func.
func (f *Form) Subscribe(fn func(Snapshot)) func() {
	f.subMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.subMu.Unlock()
	return func() {
		f.subMu.Lock()
		delete(f.subs, id)
		f.subMu.Unlock()
	}
}

func (f *Form) publish() {
	f.subMu.RLock()
	if len(f.subs) == 0 {
		f.subMu.RUnlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.subMu.RUnlock()

	snap := f.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
