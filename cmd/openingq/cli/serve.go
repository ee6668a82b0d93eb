package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/opening-query/internal/app"
	"github.com/park285/opening-query/internal/config"
	"github.com/park285/opening-query/internal/obslog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the form HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := obslog.InitFromEnv("openingq"); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			logger := obslog.L()
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			deps, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			sweepCtx, stopSweep := context.WithCancel(context.Background())
			defer stopSweep()
			go deps.Server.RunSweeper(sweepCtx, time.Minute)

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           deps.Server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("http_listen", zap.String("addr", cfg.ListenAddr), zap.String("analytics", cfg.AnalyticsBaseURL))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info("http_shutdown")
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}
