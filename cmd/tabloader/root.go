package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tabloader/tabloader/internal/config"
	"github.com/tabloader/tabloader/internal/database"
	"github.com/tabloader/tabloader/internal/dataset"
	"github.com/tabloader/tabloader/internal/logging"
	"github.com/tabloader/tabloader/internal/pipeline"
)

// cli holds state shared by every subcommand.
type cli struct {
	configFile string
	envFile    string
	logLevel   string
	dataDir    string

	cfg    *config.Config
	logCfg logging.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "tabloader",
		Short: "Move tabular data between a dataset hub, delimited files and SQL databases",
		Long: `tabloader downloads dataset files from a hub, inspects and reads delimited
files, loads them into PostgreSQL or SQLite tables and extracts tables back
into files. The sql subcommands print the statements it composes.

Database credentials are read from HOST, DB, USER and PASS, optionally
loaded from a .env file. Other settings use the TABLOADER_ prefix.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "Path to a .env credentials file (default ./.env when present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "Base directory for downloads and local hub data")

	root.AddCommand(
		newFilesCmd(c),
		newDownloadCmd(c),
		newHeadCmd(c),
		newLoadCmd(c),
		newExtractCmd(c),
		newSQLCmd(c),
	)
	return root
}

// load builds the configuration from file, credentials, environment and
// flags, in increasing priority.
func (c *cli) load() error {
	envFile := c.envFile
	if envFile == "" {
		if _, err := os.Stat(".env"); err == nil {
			envFile = ".env"
		}
	}
	if envFile != "" {
		if err := config.LoadCredentials(envFile); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(c.configFile, c.dataDir, c.logLevel)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logCfg = logging.FromConfig(cfg.Log)
	c.logger = logging.NewWithComponent(c.logCfg, "cli")
	return nil
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, logLevel string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	cfg.Resolve()
	return cfg, nil
}

func (c *cli) validate() error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.cfg.EnsureDirectories()
}

func (c *cli) hub(ctx context.Context) (*dataset.Client, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	store, err := dataset.OpenHub(ctx, c.cfg.Hub)
	if err != nil {
		return nil, err
	}
	client := dataset.NewClient(store, c.cfg.Hub, logging.NewWithComponent(c.logCfg, "dataset"))
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *cli) pipeline(ctx context.Context, withDB, withHub bool) (*pipeline.Pipeline, func(), error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}

	var (
		db  database.DB
		hub *dataset.Client
		err error
	)
	cleanup := func() {}

	if withDB {
		db, err = database.Connect(ctx, c.cfg.Database, logging.NewWithComponent(c.logCfg, "database"))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			if err := db.Close(); err != nil && !errors.Is(err, database.ErrConnectionClosed) {
				c.logger.Warn().Err(err).Msg("failed to close database")
			}
		}
	}
	if withHub {
		hub, err = c.hub(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return pipeline.New(db, hub, c.cfg, logging.NewWithComponent(c.logCfg, "pipeline")), cleanup, nil
}

// splitDataset parses an owner/dataset reference.
func splitDataset(ref string) (string, string, error) {
	owner, name, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("dataset must be given as owner/dataset, got %q", ref)
	}
	return owner, name, nil
}

// splitList parses a comma-separated flag value, dropping surrounding blanks.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
