package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/opening-query/internal/players"
	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/internal/session"
	"github.com/park285/opening-query/internal/view"
	"github.com/park285/opening-query/pkg/querydto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type stubDispatcher struct {
	mu   sync.Mutex
	err  error
	data json.RawMessage
}

func (d *stubDispatcher) QueryOpenings(context.Context, querydto.MoveReport) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (d *stubDispatcher) CaseStudy(context.Context, int, querydto.CaseStudyPayload) (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data, d.err
}

func (d *stubDispatcher) QueryResults(context.Context, querydto.ResultsPayload) (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data, d.err
}

func newTestServer(t *testing.T, d *stubDispatcher, store session.Store) *Server {
	t.Helper()
	cat, err := query.NewCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	dir, err := players.Load("")
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	return NewServer(Deps{Dispatcher: d, Store: store, Catalog: cat, Players: dir})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSnapshot(t *testing.T, raw []byte) view.Snapshot {
	t.Helper()
	var snap view.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, raw)
	}
	return snap
}

func createSession(t *testing.T, h http.Handler) view.Snapshot {
	t.Helper()
	w := do(t, h, http.MethodPost, "/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	return decodeSnapshot(t, w.Body.Bytes())
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{data: json.RawMessage(`[{"year":2000,"value":1}]`)}, nil)
	h := srv.Handler()
	snap := createSession(t, h)
	base := "/sessions/" + snap.ID

	w := do(t, h, http.MethodPost, base+"/drop", `{"source":"e2","target":"e5","piece":"wP"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"accepted":false`) {
		t.Fatalf("illegal drop: %d %s", w.Code, w.Body)
	}
	w = do(t, h, http.MethodPost, base+"/drop", `{"source":"e2","target":"e4","piece":"wP"}`)
	if !strings.Contains(w.Body.String(), `"accepted":true`) {
		t.Fatalf("legal drop: %s", w.Body)
	}
	w = do(t, h, http.MethodPost, base+"/drop", `{"source":"c7","target":"c5","piece":"bP"}`)
	if !strings.Contains(w.Body.String(), `"openingName":"Sicilian Defense"`) {
		t.Fatalf("recognition: %s", w.Body)
	}

	w = do(t, h, http.MethodPost, base+"/filters", `{"dataChoice":"winrate","openingColor":"white","eloRange":[2000,1500]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("filters: %d %s", w.Code, w.Body)
	}
	got := decodeSnapshot(t, w.Body.Bytes())
	if got.Filters.EloRange != [2]int{1500, 2000} || !got.ShowOpeningColor {
		t.Fatalf("filters applied: %+v", got.Filters)
	}
	w = do(t, h, http.MethodGet, base+"/labels", "")
	var sliders query.SliderLabels
	if err := json.Unmarshal(w.Body.Bytes(), &sliders); err != nil {
		t.Fatalf("labels: %v %s", err, w.Body)
	}
	if sliders.Elo != [2]string{"1500 Elo Rating", "2000 Elo Rating"} || sliders.Turns[1] != "201 Moves" {
		t.Fatalf("slider labels: %+v", sliders)
	}
	if w := do(t, h, http.MethodPost, base+"/filters", `{"graphBy":"century"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid graphBy: %d", w.Code)
	}

	w = do(t, h, http.MethodPost, base+"/case-study/4", "")
	got = decodeSnapshot(t, w.Body.Bytes())
	if got.Route != querydto.ResultsRoute || got.Results == nil || got.Results.YaxisLabel != "Average Turns" {
		t.Fatalf("case study navigation: %+v", got)
	}

	if w := do(t, h, http.MethodGet, base+"/results.png", ""); w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("results.png: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, base+"/board.png", ""); w.Code != http.StatusOK {
		t.Fatalf("board.png: %d %s", w.Code, w.Body)
	}

	w = do(t, h, http.MethodPost, base+"/back", "")
	if got := decodeSnapshot(t, w.Body.Bytes()); got.Route != "" || len(got.Moves) != 0 {
		t.Fatalf("back: %+v", got)
	}

	if w := do(t, h, http.MethodDelete, base, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, base, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestFailedSubmitIsSilent(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{err: errors.New("backend down")}, nil)
	h := srv.Handler()
	snap := createSession(t, h)

	w := do(t, h, http.MethodPost, "/sessions/"+snap.ID+"/submit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "backend down") {
		t.Fatalf("error text leaked: %s", w.Body)
	}
	if got := decodeSnapshot(t, w.Body.Bytes()); got.Route != "" || got.Results != nil {
		t.Fatalf("navigated on failure: %+v", got)
	}
	if w := do(t, h, http.MethodGet, "/sessions/"+snap.ID+"/results.png", ""); w.Code != http.StatusNotFound {
		t.Fatalf("results.png without results: %d", w.Code)
	}
}

func TestSessionRehydratesFromStore(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	first := newTestServer(t, &stubDispatcher{}, store)
	snap := createSession(t, first.Handler())
	do(t, first.Handler(), http.MethodPost, "/sessions/"+snap.ID+"/preset", `{"name":"Queen's Gambit"}`)

	second := newTestServer(t, &stubDispatcher{}, store)
	w := do(t, second.Handler(), http.MethodGet, "/sessions/"+snap.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("rehydrate: %d", w.Code)
	}
	got := decodeSnapshot(t, w.Body.Bytes())
	if got.Preset != "Queen's Gambit" || strings.Join(got.Moves, " ") != "d4 d5 c4" {
		t.Fatalf("restored: %+v", got)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestServer(t, &stubDispatcher{}, nil).Handler()

	w := do(t, h, http.MethodGet, "/openings", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Sicilian Defense") {
		t.Fatalf("openings: %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/case-studies", "")
	var studies []query.CaseStudy
	if err := json.Unmarshal(w.Body.Bytes(), &studies); err != nil || len(studies) != query.CaseStudyCount {
		t.Fatalf("case studies: %v %s", err, w.Body)
	}
	w = do(t, h, http.MethodGet, "/form", "")
	var form query.FormLabels
	if err := json.Unmarshal(w.Body.Bytes(), &form); err != nil {
		t.Fatalf("form: %v %s", err, w.Body)
	}
	if form.Fields["player"] != "Filter by a Player" || len(form.GraphBy) != len(query.GraphByOptions) || form.Presets[0] != "None" {
		t.Fatalf("form labels: %+v", form)
	}
	w = do(t, h, http.MethodGet, "/players?q=", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty query should offer nothing: %s", w.Body)
	}
	w = do(t, h, http.MethodGet, "/players?q=kasp", "")
	if !strings.Contains(w.Body.String(), "Kasparov") {
		t.Fatalf("players: %s", w.Body)
	}
	if w := do(t, h, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/sessions/not-a-uuid", ""); w.Code != http.StatusNotFound {
		t.Fatalf("bad id: %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/sessions/"+session.NewID()+"/reset", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown id: %d", w.Code)
	}
}

func TestLiveFeed(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	snap := createSession(t, srv.Handler())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + snap.ID + "/live"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first view.Snapshot
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if first.ID != snap.ID {
		t.Fatalf("initial snapshot id: %q", first.ID)
	}

	do(t, srv.Handler(), http.MethodPost, "/sessions/"+snap.ID+"/drop", `{"source":"d2","target":"d4","piece":"wP"}`)
	var next view.Snapshot
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(next.Moves) != 1 || next.Moves[0] != "d4" {
		t.Fatalf("update moves: %v", next.Moves)
	}
}

func TestExpiredSessionIsNotServed(t *testing.T) {
	store := session.NewMemoryStore(100 * time.Millisecond)
	srv := newTestServer(t, &stubDispatcher{}, store)
	h := srv.Handler()
	snap := createSession(t, h)

	if w := do(t, h, http.MethodGet, "/sessions/"+snap.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("fresh session: %d", w.Code)
	}
	time.Sleep(250 * time.Millisecond)
	if w := do(t, h, http.MethodGet, "/sessions/"+snap.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expired session: %d", w.Code)
	}
	if n := srv.Live(); n != 0 {
		t.Fatalf("expired form still registered: %d", n)
	}
}

func TestSweepDropsExpiredForms(t *testing.T) {
	store := session.NewMemoryStore(100 * time.Millisecond)
	srv := newTestServer(t, &stubDispatcher{}, store)
	createSession(t, srv.Handler())
	createSession(t, srv.Handler())
	if n := srv.Live(); n != 2 {
		t.Fatalf("live before sweep: %d", n)
	}

	if n := srv.Sweep(context.Background()); n != 0 {
		t.Fatalf("sweep evicted fresh sessions: %d", n)
	}
	time.Sleep(250 * time.Millisecond)
	if n := srv.Sweep(context.Background()); n != 2 {
		t.Fatalf("sweep evicted %d, want 2", n)
	}
	if n := srv.Live(); n != 0 {
		t.Fatalf("live after sweep: %d", n)
	}
}

type gatedDispatcher struct {
	stubDispatcher
	started chan struct{}
	release chan struct{}
}

func (d *gatedDispatcher) QueryResults(ctx context.Context, p querydto.ResultsPayload) (json.RawMessage, error) {
	close(d.started)
	<-d.release
	return json.RawMessage(`[{"year":2001,"value":3}]`), nil
}

func TestDeletedSessionStaysDeleted(t *testing.T) {
	store := session.NewMemoryStore(time.Minute)
	d := &gatedDispatcher{started: make(chan struct{}), release: make(chan struct{})}
	cat, err := query.NewCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	srv := NewServer(Deps{Dispatcher: d, Store: store, Catalog: cat})
	h := srv.Handler()
	snap := createSession(t, h)

	done := make(chan struct{})
	go func() {
		defer close(done)
		do(t, h, http.MethodPost, "/sessions/"+snap.ID+"/submit", "")
	}()
	<-d.started
	if w := do(t, h, http.MethodDelete, "/sessions/"+snap.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	close(d.release)
	<-done

	if ok, _ := store.Exists(context.Background(), snap.ID); ok {
		t.Fatalf("in-flight submit wrote the deleted session back")
	}
	if w := do(t, h, http.MethodGet, "/sessions/"+snap.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}
