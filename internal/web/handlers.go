package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/park285/opening-query/internal/board"
	"github.com/park285/opening-query/internal/opening"
	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/internal/render"
	"github.com/park285/opening-query/internal/view"
	"go.uber.org/zap"
)

func (s *Server) listOpenings(c *gin.Context) {
	c.JSON(http.StatusOK, opening.All())
}

func (s *Server) listCaseStudies(c *gin.Context) {
	if s.deps.Catalog == nil {
		c.JSON(http.StatusOK, []query.CaseStudy{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Catalog.CaseStudies())
}

func (s *Server) formLabels(c *gin.Context) {
	if s.deps.Catalog == nil {
		c.JSON(http.StatusOK, query.FormLabels{Presets: opening.Names()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Catalog.Form(opening.Names()))
}

// sliderLabels renders the captions for the session's current slider values.
func (s *Server) sliderLabels(c *gin.Context) {
	filters := formFrom(c).Snapshot().Filters
	if s.deps.Catalog == nil {
		c.JSON(http.StatusOK, query.SliderLabels{})
		return
	}
	c.JSON(http.StatusOK, s.deps.Catalog.Sliders(filters))
}

func (s *Server) suggestPlayers(c *gin.Context) {
	out := []string{}
	if s.deps.Players != nil {
		limit, _ := strconv.Atoi(c.Query("limit"))
		if got := s.deps.Players.Suggest(c.Query("q"), limit); got != nil {
			out = got
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createSession(c *gin.Context) {
	f, err := s.create(c.Request.Context())
	if err != nil {
		s.deps.Logger.Error("session_create_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
		return
	}
	c.JSON(http.StatusCreated, f.Snapshot())
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, formFrom(c).Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.remove(c.Request.Context(), formFrom(c).ID()); err != nil {
		s.deps.Logger.Warn("session_delete_failed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) targets(c *gin.Context) {
	t := formFrom(c).Targets(c.Query("square"))
	if t == nil {
		t = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"square": c.Query("square"), "targets": t})
}

// drop answers 200 for illegal moves too; the board simply snaps back.
func (s *Server) drop(c *gin.Context) {
	var req struct {
		Source string `json:"source" binding:"required"`
		Target string `json:"target" binding:"required"`
		Piece  string `json:"piece"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f := formFrom(c)
	accepted := f.Drop(req.Source, req.Target, req.Piece)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "session": f.Snapshot()})
}

func (s *Server) preset(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f := formFrom(c)
	if err := f.SelectPreset(req.Name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, view.ErrUnknownPreset) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

func (s *Server) reset(c *gin.Context) {
	f := formFrom(c)
	f.ResetBoard()
	c.JSON(http.StatusOK, f.Snapshot())
}

// FilterPatch carries the filter fields to change; nil fields are kept.
type FilterPatch struct {
	EloRange     *[2]int `json:"eloRange"`
	NumTurns     *[2]int `json:"numTurns"`
	StartDate    *int    `json:"startDate"`
	EndDate      *int    `json:"endDate"`
	Player       *string `json:"player"`
	DataChoice   *string `json:"dataChoice"`
	GraphBy      *string `json:"graphBy"`
	OpeningColor *string `json:"openingColor"`
}

func (p FilterPatch) apply(fs *query.FilterState) error {
	if p.EloRange != nil {
		fs.SetEloRange(p.EloRange[0], p.EloRange[1])
	}
	if p.NumTurns != nil {
		fs.SetNumTurns(p.NumTurns[0], p.NumTurns[1])
	}
	if p.StartDate != nil {
		fs.SetStartDate(*p.StartDate)
	}
	if p.EndDate != nil {
		fs.SetEndDate(*p.EndDate)
	}
	if p.Player != nil {
		fs.SetPlayer(*p.Player)
	}
	if p.DataChoice != nil {
		if err := fs.SetDataChoice(*p.DataChoice); err != nil {
			return err
		}
	}
	if p.GraphBy != nil {
		if err := fs.SetGraphBy(*p.GraphBy); err != nil {
			return err
		}
	}
	if p.OpeningColor != nil {
		if err := fs.SetOpeningColor(*p.OpeningColor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) filters(c *gin.Context) {
	var patch FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f := formFrom(c)
	if err := f.UpdateFilters(patch.apply); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

// submitContext detaches the submission from the HTTP request so a dropped
// connection does not cancel the outgoing call.
func (s *Server) submitContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), s.deps.SubmitTimeout)
}

// caseStudy and submit answer with the snapshot either way. A failed fetch
// leaves the route unchanged and carries no error text.
func (s *Server) caseStudy(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 || n > query.CaseStudyCount {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown case study"})
		return
	}
	f := formFrom(c)
	ctx, cancel := s.submitContext(c)
	defer cancel()
	_ = f.SubmitCaseStudy(ctx, n)
	c.JSON(http.StatusOK, f.Snapshot())
}

func (s *Server) submit(c *gin.Context) {
	f := formFrom(c)
	ctx, cancel := s.submitContext(c)
	defer cancel()
	_ = f.Submit(ctx)
	c.JSON(http.StatusOK, f.Snapshot())
}

func (s *Server) back(c *gin.Context) {
	f := formFrom(c)
	f.Back()
	c.JSON(http.StatusOK, f.Snapshot())
}

func (s *Server) boardPNG(c *gin.Context) {
	f := formFrom(c)
	snap := f.Snapshot()
	opts := render.RenderOptions{Title: snap.OpeningName, Turn: snap.Turn}
	if snap.ECO != nil {
		opts.Badge = snap.ECO.Code
	}
	if snap.LastMove != nil {
		from, okFrom := render.ParseSquare(snap.LastMove.From)
		to, okTo := render.ParseSquare(snap.LastMove.To)
		if okFrom && okTo {
			opts.Highlight = &render.MoveHighlight{From: from, To: to}
		}
	}

	var (
		out []byte
		err error
	)
	f.WithBoard(func(t *board.Tracker) {
		out, err = s.deps.Renderer.RenderPNG(c.Request.Context(), t.Position().Board(), opts)
	})
	if err != nil {
		s.deps.Logger.Warn("board_render_failed", zap.String("session_id", snap.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", out)
}

func (s *Server) resultsPNG(c *gin.Context) {
	snap := formFrom(c).Snapshot()
	if snap.Results == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results"})
		return
	}
	out, err := render.RenderResults(c.Request.Context(), *snap.Results, render.ChartOptions{})
	if errors.Is(err, render.ErrUnchartable) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.deps.Logger.Warn("results_render_failed", zap.String("session_id", snap.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", out)
}
