package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepteaching86-gif/deepreading/internal/config"
	"github.com/deepteaching86-gif/deepreading/internal/logging"
	"github.com/deepteaching86-gif/deepreading/internal/metrics"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// env is the per-invocation state built before any subcommand runs.
var env struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Recorder
}

var rootCmd = &cobra.Command{
	Use:   "deepreading",
	Short: "Adaptive English proficiency test engine",
	Long: "deepreading runs a 40-item multistage adaptive English test, estimates ability\n" +
		"with a 3PL IRT model and reports a proficiency level, Lexile and AR level.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if p, _ := cmd.Flags().GetString("metrics-file"); p != "" {
			cfg.MetricsFile = p
		}
		if s, _ := cmd.Flags().GetUint64("seed"); s != 0 {
			cfg.Seed = s
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		log, err := logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}

		env.cfg = cfg
		env.log = log.With(zap.String("command", cmd.CommandPath()))
		env.metrics = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer env.log.Sync() //nolint:errcheck
		if env.cfg.MetricsFile == "" {
			return nil
		}
		if err := env.metrics.WriteTextfile(env.cfg.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	},
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "SQLite path or postgres:// URL (overrides DEEPREADING_DB and the config file)")
	pf.String("config", "", "Path to a YAML config file")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file after the command")
	pf.Uint64("seed", 0, "Seed for item selection (0 uses the config or the clock)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", false, "Print results as JSON")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database location using --db (highest
// priority), then the config file or DEEPREADING_DB, then the default
// XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if p := env.cfg.Database; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore opens and migrates the database for cmd.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.OpenContext(commandContext(cmd), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	env.log.Debug("database opened", zap.String("dialect", st.Dialect()))
	return st, nil
}

// selectionSeed returns the configured seed, or a clock-derived one.
func selectionSeed() uint64 {
	if env.cfg.Seed != 0 {
		return env.cfg.Seed
	}
	return uint64(time.Now().UnixNano())
}

// render prints v as indented JSON when --json is set, otherwise text.
func render(cmd *cobra.Command, v any, text func() string) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(text())
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
