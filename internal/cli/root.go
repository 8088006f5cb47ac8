// Package cli implements the trialmatch command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/trialmatch/internal/adapters/repository"
	"github.com/okian/trialmatch/internal/config"
	"github.com/okian/trialmatch/internal/domain/keywords"
	"github.com/okian/trialmatch/internal/domain/scoring"
	"github.com/okian/trialmatch/internal/report"
	"github.com/okian/trialmatch/pkg/logger"
	"github.com/okian/trialmatch/pkg/metrics"
)

var (
	// Version info set from main.
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// SetVersionInfo sets version information from build flags.
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// runtimeEnv is the state shared by every subcommand once the root has
// loaded configuration.
type runtimeEnv struct {
	// Global flags
	configPath string
	logLevel   string
	outputFmt  string
	recruiting bool

	cfg    *config.Config
	format report.Format
	log    logger.Logger
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	env := &runtimeEnv{}

	root := &cobra.Command{
		Use:   "trialmatch",
		Short: "Match patients to clinical trials and evaluate the matches",
		Long: `trialmatch scores every patient against a trial collection,
keeps the best trials per patient and measures how good those
recommendations are against a rule-based ground truth.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&env.configPath, "config", "c", "",
		"config file, .yaml or .toml (default: $"+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&env.logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&env.outputFmt, "output", "o", "table",
		"output format (table, json)")
	root.PersistentFlags().BoolVar(&env.recruiting, "recruiting-only", false,
		"keep only trials that are recruiting, not yet recruiting or enrolling by invitation")

	root.AddCommand(
		newGenerateCmd(env),
		newMatchCmd(env),
		newRankCmd(env),
		newEvaluateCmd(env),
		newVersionCmd(),
	)
	return root
}

func (e *runtimeEnv) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), e.configPath)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}

	format, err := report.ParseFormat(e.outputFmt)
	if err != nil {
		return err
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	e.cfg = cfg
	e.format = format
	e.log = logger.Named("trialmatch")
	return nil
}

func (e *runtimeEnv) store() *repository.FileStore {
	statuses := e.cfg.TrialStatuses
	if e.recruiting {
		statuses = repository.RecruitingStatuses
	}
	return repository.NewFileStore(
		repository.WithExtractor(keywords.NewLexiconExtractor()),
		repository.WithStatuses(statuses...),
		repository.WithLogger(e.log),
	)
}

func (e *runtimeEnv) scorer() *scoring.Scorer {
	return scoring.NewScorer(scoring.WithWeights(e.cfg.Weights()))
}

// write renders data to the command's stdout in the selected format.
func (e *runtimeEnv) write(cmd *cobra.Command, data any) error {
	return report.Write(cmd.OutOrStdout(), e.format, data)
}

// exportMetrics writes the metrics textfile when a path is configured.
func (e *runtimeEnv) exportMetrics(ctx context.Context, flagPath string) error {
	path := flagPath
	if path == "" {
		path = e.cfg.MetricsFile
	}
	if path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(path); err != nil {
		return err
	}
	e.log.Info(ctx, "metrics written", logger.String("path", path))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The root pre-run loads config, which version does not need.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "trialmatch %s\n  commit: %s\n  built:  %s\n", version, commit, buildTime)
	return err
}
