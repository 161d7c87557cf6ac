package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/cli/config"
	"github.com/m-mizutani/fplfetch/pkg/infra/archive"
	"github.com/m-mizutani/fplfetch/pkg/infra/console"
	httpinfra "github.com/m-mizutani/fplfetch/pkg/infra/http"
	"github.com/m-mizutani/fplfetch/pkg/infra/progress"
	"github.com/m-mizutani/fplfetch/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdFetch(fetchCfg *config.Fetch) *cli.Command {
	return &cli.Command{
		Name:    "fetch",
		Aliases: []string{"f"},
		Usage:   "Download and extract the dataset unless it is already present",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runFetch(ctx, fetchCfg)
		},
	}
}

func runFetch(ctx context.Context, fetchCfg *config.Fetch) error {
	logger := ctxlog.From(ctx)

	ds, err := fetchCfg.Dataset()
	if err != nil {
		return goerr.Wrap(err, "failed to resolve dataset configuration")
	}

	logger.Debug("Resolved dataset", slog.Any("dataset", ds))

	fetchUC := usecase.NewFetch(
		httpinfra.NewClient(),
		archive.NewZipExtractor(),
		usecase.WithProgress(progress.NewFactory(progress.WithOutput(os.Stdout))),
		usecase.WithConsole(console.New(os.Stdout, fetchCfg.NoColor)),
		usecase.WithInactivityTimeout(fetchCfg.InactivityTimeout),
	)

	result, err := fetchUC.Fetch(ctx, ds)
	if err != nil {
		return err
	}

	if !result.Skipped {
		logger.Info("Dataset ready",
			slog.String("target_dir", ds.TargetDir),
			slog.Int("file_count", len(result.Files)),
			slog.Int64("archive_bytes", result.ArchiveBytes),
		)
	}
	return nil
}
