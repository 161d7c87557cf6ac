package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/cli/config"
	controller "github.com/m-mizutani/fplfetch/pkg/controller/http"
	"github.com/m-mizutani/fplfetch/pkg/infra/archive"
	"github.com/m-mizutani/fplfetch/pkg/infra/errtrack"
	httpinfra "github.com/m-mizutani/fplfetch/pkg/infra/http"
	"github.com/m-mizutani/fplfetch/pkg/infra/metrics"
	"github.com/m-mizutani/fplfetch/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe(fetchCfg *config.Fetch) *cli.Command {
	var serverCfg config.Server

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server exposing dataset status, fetch trigger and files",
		Flags:   serverCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			ds, err := fetchCfg.Dataset()
			if err != nil {
				return goerr.Wrap(err, "failed to resolve dataset configuration")
			}

			logger.Info("Starting fplfetch server",
				slog.String("addr", serverCfg.Addr),
				slog.String("target_dir", ds.TargetDir),
			)

			// Create use cases
			m := metrics.New()
			fetchUC := usecase.NewFetch(
				httpinfra.NewClient(),
				archive.NewZipExtractor(),
				usecase.WithRecorder(m),
				usecase.WithInactivityTimeout(fetchCfg.InactivityTimeout),
			)

			serverOpts := []controller.Option{
				controller.WithAddr(serverCfg.Addr),
				controller.WithMetricsHandler(m.Handler()),
			}
			if serverCfg.SentryDSN != "" {
				reporter, err := errtrack.NewSentry(sentry.ClientOptions{Dsn: serverCfg.SentryDSN})
				if err != nil {
					return goerr.Wrap(err, "failed to configure error reporting")
				}
				defer reporter.Flush(2 * time.Second)
				serverOpts = append(serverOpts, controller.WithErrorReporter(reporter))
				logger.Info("Sentry error reporting enabled")
			}

			// Create HTTP server with options
			server, err := controller.NewServer(ctx, fetchUC, ds, serverOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := server.WaitBackground(shutdownCtx); err != nil {
				return goerr.Wrap(err, "background fetch did not finish before shutdown")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
