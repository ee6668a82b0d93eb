package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/opening-query/internal/config"
	"github.com/park285/opening-query/internal/obslog"
	"github.com/park285/opening-query/internal/trend"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func main() {
	appcfg.LoadDotEnv()
	if err := obslog.InitFromEnv("trend-backend"); err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	repo, err := trend.NewRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("trend_repo_init_failed", zap.Error(err))
	}

	h := trend.NewHandler(repo, logger, time.Duration(cfg.RequestTimeoutSec)*time.Second)
	srv := &fasthttp.Server{
		Handler:      h.Serve,
		Name:         "trend-backend",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec+5) * time.Second,
	}

	go func() {
		logger.Info("trend_listen", zap.String("addr", cfg.BackendAddr))
		if err := srv.ListenAndServe(cfg.BackendAddr); err != nil {
			logger.Fatal("trend_listen_failed", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = srv.Shutdown()
	_ = repo.Close()
}
