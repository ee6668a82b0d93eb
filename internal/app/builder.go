package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/opening-query/internal/analytics"
	"github.com/park285/opening-query/internal/config"
	"github.com/park285/opening-query/internal/players"
	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/internal/render"
	"github.com/park285/opening-query/internal/session"
	"github.com/park285/opening-query/internal/web"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Analytics *analytics.Client
	Catalog   *query.Catalog
	Players   *players.Directory
	Store     session.Store
	Server    *web.Server

	redis *redis.Client
}

// New wires the form service from cfg. Redis is optional; without it
// sessions live in process memory.
func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second

	client := analytics.NewClient(cfg.AnalyticsBaseURL, analytics.WithTimeout(timeout))

	catalog, err := query.NewCatalog(cfg.CatalogOverrideDir)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	dir, err := players.Load(cfg.PlayersFile)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}

	d := &Deps{Analytics: client, Catalog: catalog, Players: dir}

	ttl := time.Duration(cfg.SessionTTLSec) * time.Second
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
		d.redis = rdb
		d.Store = session.NewRedisStore(rdb, ttl)
		logger.Info("session_store", zap.String("kind", "redis"))
	} else {
		d.Store = session.NewMemoryStore(ttl)
		logger.Info("session_store", zap.String("kind", "memory"))
	}

	d.Server = web.NewServer(web.Deps{
		Dispatcher:    client,
		Store:         d.Store,
		Catalog:       catalog,
		Players:       dir,
		Renderer:      render.NewBoardRenderer(0),
		Logger:        logger,
		ReportMoves:   cfg.ReportMoves,
		SubmitTimeout: timeout,
	})
	return d, nil
}

func (d *Deps) Close() error {
	if d == nil || d.redis == nil {
		return nil
	}
	return d.redis.Close()
}
