package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/condmatch/internal/core/catalog"
	"github.com/solatis/condmatch/internal/core/config"
	"github.com/solatis/condmatch/internal/core/db"
	"github.com/solatis/condmatch/internal/core/logging"
	"github.com/solatis/condmatch/internal/rules"
)

// Version is the condmatch release.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "condmatch",
	Short:         "Condition matching over structured data",
	Long:          `condmatch evaluates JSON rule documents (AND/OR/XOR trees of field conditions) against JSON subjects, from the command line or as a gRPC service.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// env is what every subcommand needs after flag and config resolution.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// setup loads configuration and applies root flags on top of it; flags win
// only when given explicitly.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("db-url") {
		cfg.Database.URL = dbURL
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

// engine builds the operator engine from the engine config section.
func (e *env) engine() (*rules.Engine, error) {
	re, err := rules.NewRegexEngine(e.cfg.Engine.Regex, e.cfg.Engine.RegexTimeout)
	if err != nil {
		return nil, err
	}
	return rules.NewEngine(rules.WithRegexEngine(re)), nil
}

// openCatalog opens the database, checks migrations and returns the catalog
// with a func that closes the connection.
func (e *env) openCatalog(ctx context.Context) (*catalog.Catalog, func(), error) {
	database, err := db.Open(e.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	closeDB := func() { database.Close() }

	if err := db.RequireMigrated(ctx, database); err != nil {
		closeDB()
		return nil, nil, err
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}

	engine, err := e.engine()
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	cat := catalog.New(queries, catalog.WithEngine(engine), catalog.WithLogger(e.logger))
	return cat, closeDB, nil
}
