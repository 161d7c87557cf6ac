package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/fplfetch/pkg/cli/config"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const envFileFlag = "env-file"

// Run runs the CLI application. Without a subcommand it fetches the dataset.
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg config.Logger
		fetchCfg  config.Fetch
		envFile   string
		logger    *slog.Logger
	)

	// Flag values are resolved from the environment while parsing, so the
	// dotenv file has to be loaded before the command runs.
	if path := envFileFromArgs(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			err = goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
			slog.Default().Error("CLI execution failed", slog.Any("error", err))
			return err
		}
	}

	flags := append(loggerCfg.Flags(), fetchCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        envFileFlag,
		Usage:       "dotenv file loaded before reading FPLFETCH_* variables",
		Destination: &envFile,
		Sources:     cli.EnvVars("FPLFETCH_ENV_FILE"),
	})

	app := &cli.Command{
		Name:    types.ServiceName,
		Usage:   "Download and extract the FPL SciPy 2023 dataset",
		Version: types.Version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runFetch(ctx, &fetchCfg)
		},
		Commands: []*cli.Command{
			cmdFetch(&fetchCfg),
			cmdServe(&fetchCfg),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		return err
	}

	return nil
}

// envFileFromArgs finds --env-file in raw arguments, falling back to FPLFETCH_ENV_FILE
func envFileFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if value, ok := strings.CutPrefix(name, envFileFlag+"="); ok {
			return value
		}
		if name == envFileFlag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("FPLFETCH_ENV_FILE")
}
