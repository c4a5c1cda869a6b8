package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/ezupdate/internal/config"
	"github.com/adamancini/ezupdate/internal/logging"
	"github.com/adamancini/ezupdate/internal/output"
	"github.com/adamancini/ezupdate/internal/update"
)

// loadConfig finds and loads the config file, then initialises logging
// from it and the global flags.
func loadConfig() (*config.Config, error) {
	path, err := config.Find(configPath)
	if err != nil {
		if err == config.ErrNotFound {
			return nil, fmt.Errorf("%w (create ezupdate.yaml or pass --config)", err)
		}
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	log.Debugf("Using config %s", path)
	return cfg, nil
}

// initLogging applies --verbose, --quiet and --log-file on top of the config.
func initLogging(cfg *config.Config) error {
	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	dest := cfg.LogFile
	if logFile != "" {
		dest = logFile
	}
	return logging.Init(level, dest)
}

// outputWriter returns a writer for the --output format.
func outputWriter(w io.Writer) (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(w, format), nil
}

// sessionOptions maps the config file onto updater options. An empty
// current_version falls back to the version this binary was built with.
func sessionOptions(cfg *config.Config) update.Options {
	token := cfg.GitHubToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	current := cfg.CurrentVersion
	if current == "" {
		current = appVersion
	}

	return update.Options{
		Owner:            cfg.Owner,
		Repo:             cfg.Repo,
		AssetName:        cfg.Asset,
		OriginalName:     cfg.OriginalName,
		KeepOriginalName: cfg.KeepOriginalName,
		CurrentVersion:   current,
		AppDir:           cfg.AppDir,
		TempRoot:         cfg.TempRoot,
		MaxRetries:       cfg.MaxRetries,
		StallWindow:      cfg.StallWindow.Std(),
		SettleDelay:      cfg.SettleDelay.Std(),
		BackupSuffix:     cfg.BackupSuffix,
		Source:           update.NewGitHubSource(cfg.APIURL).WithToken(token).WithUserAgentVersion(appVersion),
		Downloader:       update.NewHTTPDownloader().WithUserAgentVersion(appVersion),
		Logger:           logging.Component("updater"),
	}
}
