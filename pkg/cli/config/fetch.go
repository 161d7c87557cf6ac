package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Fetch holds dataset fetch configuration. Empty values fall back to the
// config file and then to the built-in defaults.
type Fetch struct {
	URL               string
	BaseDir           string
	AuthToken         string
	InactivityTimeout time.Duration
	ConfigFile        string
	NoColor           bool
}

// fetchFile is the TOML layout accepted by --config
type fetchFile struct {
	URL               string `toml:"url"`
	BaseDir           string `toml:"base_dir"`
	InactivityTimeout string `toml:"inactivity_timeout"`
}

// Flags returns CLI flags for fetch configuration
func (c *Fetch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Dataset archive URL (default: " + model.DefaultDatasetURL + ")",
			Destination: &c.URL,
			Sources:     cli.EnvVars("FPLFETCH_URL"),
		},
		&cli.StringFlag{
			Name:        "base-dir",
			Usage:       "Directory holding the dataset folder and archive (default: directory of the executable)",
			Destination: &c.BaseDir,
			Sources:     cli.EnvVars("FPLFETCH_BASE_DIR"),
		},
		&cli.StringFlag{
			Name:        "auth-token",
			Usage:       "Bearer token for restricted records",
			Destination: &c.AuthToken,
			Sources:     cli.EnvVars("FPLFETCH_AUTH_TOKEN"),
		},
		&cli.DurationFlag{
			Name:        "inactivity-timeout",
			Usage:       "Abort the download when no data arrives for this long (0 disables)",
			Destination: &c.InactivityTimeout,
			Sources:     cli.EnvVars("FPLFETCH_INACTIVITY_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "TOML config file",
			Destination: &c.ConfigFile,
			Sources:     cli.EnvVars("FPLFETCH_CONFIG"),
		},
		&cli.BoolFlag{
			Name:        "no-color",
			Usage:       "Disable colored status output",
			Destination: &c.NoColor,
			Sources:     cli.EnvVars("FPLFETCH_NO_COLOR"),
		},
	}
}

// Dataset resolves the configuration into a dataset layout
func (c *Fetch) Dataset() (model.Dataset, error) {
	if err := c.loadFile(); err != nil {
		return model.Dataset{}, err
	}

	baseDir := c.BaseDir
	if baseDir == "" {
		dir, err := executableDir()
		if err != nil {
			return model.Dataset{}, err
		}
		baseDir = dir
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return model.Dataset{}, goerr.Wrap(err, "failed to resolve base directory", goerr.V("base_dir", baseDir))
	}

	ds := model.DefaultDataset(absBase)
	if c.URL != "" {
		ds.URL = c.URL
	}
	ds.AuthToken = c.AuthToken

	return ds, nil
}

// loadFile fills fields that were not set by flags or environment from ConfigFile
func (c *Fetch) loadFile() error {
	if c.ConfigFile == "" {
		return nil
	}

	raw, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", c.ConfigFile))
	}

	var file fetchFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.ConfigFile))
	}

	if c.URL == "" {
		c.URL = file.URL
	}
	if c.BaseDir == "" && file.BaseDir != "" {
		// Relative paths in the file are relative to the file itself
		c.BaseDir = file.BaseDir
		if !filepath.IsAbs(c.BaseDir) {
			c.BaseDir = filepath.Join(filepath.Dir(c.ConfigFile), c.BaseDir)
		}
	}
	if c.InactivityTimeout == 0 && file.InactivityTimeout != "" {
		d, err := time.ParseDuration(file.InactivityTimeout)
		if err != nil {
			return goerr.Wrap(err, "invalid inactivity_timeout in config file",
				goerr.V("path", c.ConfigFile),
				goerr.V("value", file.InactivityTimeout),
			)
		}
		c.InactivityTimeout = d
	}

	return nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", goerr.Wrap(err, "failed to locate executable")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
