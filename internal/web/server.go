package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/opening-query/internal/players"
	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/internal/render"
	"github.com/park285/opening-query/internal/session"
	"github.com/park285/opening-query/internal/view"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Dispatcher  view.Dispatcher
	Store       session.Store
	Catalog     *query.Catalog
	Players     *players.Directory
	Renderer    render.BoardRenderer
	Logger      *zap.Logger
	ReportMoves bool
	// SubmitTimeout bounds a submission that outlives its HTTP request.
	SubmitTimeout time.Duration
}

// Server is the HTTP surface over form sessions. Live forms are kept in
// memory and rehydrated from the store on a miss.
type Server struct {
	deps   Deps
	engine *gin.Engine

	mu    sync.Mutex
	forms map[string]*view.Form
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Store == nil {
		d.Store = session.NewMemoryStore(session.DefaultTTL)
	}
	if d.Renderer == nil {
		d.Renderer = render.NewBoardRenderer(0)
	}
	if d.SubmitTimeout <= 0 {
		d.SubmitTimeout = 30 * time.Second
	}
	s := &Server{deps: d, forms: make(map[string]*view.Form)}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/openings", s.listOpenings)
	r.GET("/case-studies", s.listCaseStudies)
	r.GET("/form", s.formLabels)
	r.GET("/players", s.suggestPlayers)

	r.POST("/sessions", s.createSession)
	g := r.Group("/sessions/:id", s.loadForm)
	g.GET("", s.getSession)
	g.DELETE("", s.deleteSession)
	g.GET("/targets", s.targets)
	g.GET("/labels", s.sliderLabels)
	g.POST("/drop", s.drop)
	g.POST("/preset", s.preset)
	g.POST("/reset", s.reset)
	g.POST("/filters", s.filters)
	g.POST("/case-study/:n", s.caseStudy)
	g.POST("/submit", s.submit)
	g.POST("/back", s.back)
	g.GET("/board.png", s.boardPNG)
	g.GET("/results.png", s.resultsPNG)
	g.GET("/live", s.live)
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.deps.Logger.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) newForm(id string) *view.Form {
	f := view.New(id, s.deps.Dispatcher,
		view.WithLogger(s.deps.Logger),
		view.WithMoveReporting(s.deps.ReportMoves),
	)
	f.Subscribe(func(snap view.Snapshot) {
		// a submit resolving after DELETE or expiry must not resurrect the session
		if !s.registered(id, f) {
			return
		}
		s.persist(snap)
	})
	return f
}

func (s *Server) persist(snap view.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Store.Save(ctx, snap); err != nil {
		s.deps.Logger.Warn("session_save_failed", zap.String("session_id", snap.ID), zap.Error(err))
	}
}

func (s *Server) registered(id string, f *view.Form) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[id] == f
}

func (s *Server) evict(id string) {
	s.mu.Lock()
	delete(s.forms, id)
	s.mu.Unlock()
}

// form returns the live form for id. The store is consulted on every lookup,
// which keeps its TTL sliding and lets an expired session fall out of the
// registry.
func (s *Server) form(ctx context.Context, id string) (*view.Form, error) {
	snap, err := s.deps.Store.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		s.evict(id)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if f, ok := s.forms[id]; ok {
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	f := s.newForm(id)
	if err := f.Restore(snap); err != nil {
		s.deps.Logger.Warn("session_restore_partial", zap.String("session_id", id), zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.forms[id]; ok {
		return existing, nil
	}
	s.forms[id] = f
	return f, nil
}

func (s *Server) create(ctx context.Context) (*view.Form, error) {
	id := session.NewID()
	f := s.newForm(id)
	if err := s.deps.Store.Save(ctx, f.Snapshot()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.forms[id] = f
	s.mu.Unlock()
	return f, nil
}

func (s *Server) remove(ctx context.Context, id string) error {
	s.evict(id)
	return s.deps.Store.Delete(ctx, id)
}

// Live reports how many forms are held in memory.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// Sweep drops live forms whose stored session has expired or been deleted
// elsewhere. It uses Exists so that sweeping never extends a TTL.
func (s *Server) Sweep(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	evicted := 0
	for _, id := range ids {
		ok, err := s.deps.Store.Exists(ctx, id)
		if err != nil {
			s.deps.Logger.Warn("session_sweep_failed", zap.String("session_id", id), zap.Error(err))
			continue
		}
		if !ok {
			s.evict(id)
			evicted++
		}
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(ctx); n > 0 {
				s.deps.Logger.Info("session_sweep", zap.Int("evicted", n), zap.Int("live", s.Live()))
			}
		}
	}
}

const formKey = "form"

func (s *Server) loadForm(c *gin.Context) {
	id := c.Param("id")
	if !session.ValidID(id) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	f, err := s.form(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		s.deps.Logger.Error("session_load_failed", zap.String("session_id", id), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
		return
	}
	c.Set(formKey, f)
	c.Next()
}

func formFrom(c *gin.Context) *view.Form {
	return c.MustGet(formKey).(*view.Form)
}
