package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/trialmatch/internal/evaluation"
	"github.com/okian/trialmatch/pkg/logger"
)

func newEvaluateCmd(env *runtimeEnv) *cobra.Command {
	var (
		patientsPath string
		trialsPath   string
		matchesPath  string
		out          string
		metricsFile  string
		seed         int64
		threshold    int
		lenient      bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a match set against the rule-based ground truth",
		Long: `Evaluate runs error analysis, a threshold comparison, strict
heuristic validation, negative case testing, the score distribution,
a multi-threshold sweep, coverage and a timing measurement.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := env.store()

			patients, err := store.LoadPatients(ctx, patientsPath)
			if err != nil {
				return err
			}
			trials, err := store.LoadTrials(ctx, trialsPath)
			if err != nil {
				return err
			}
			matches, err := store.LoadMatches(ctx, matchesPath)
			if err != nil {
				return err
			}
			ds, err := evaluation.NewDataset(patients, trials, matches)
			if err != nil {
				return err
			}

			settings := env.cfg.EvaluationSettings()
			if cmd.Flags().Changed("seed") {
				settings = settings.WithSeed(seed)
			}
			if cmd.Flags().Changed("threshold") {
				settings.Errors.Threshold = threshold
			}
			if lenient {
				settings.Errors.Strict = false
			}

			ev := evaluation.NewEvaluator(ds,
				evaluation.WithSettings(settings),
				evaluation.WithScorer(env.scorer()),
				evaluation.WithLogger(env.log),
			)
			rep, err := ev.Evaluate(ctx)
			if err != nil {
				return err
			}

			if err := env.exportMetrics(ctx, metricsFile); err != nil {
				return err
			}

			if out != "" {
				if err := store.SaveReport(ctx, out, rep); err != nil {
					return err
				}
				env.log.Info(ctx, "evaluation saved", logger.String("path", out), logger.String("run_id", rep.RunID))
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote evaluation %s to %s\n", rep.RunID, out)
				return err
			}
			return env.write(cmd, rep)
		},
	}

	cmd.Flags().StringVar(&patientsPath, "patients", "", "patients JSON file")
	cmd.Flags().StringVar(&trialsPath, "trials", "", "trials JSON file")
	cmd.Flags().StringVar(&matchesPath, "matches", "", "match set JSON file")
	cmd.Flags().StringVar(&out, "out", "", "write the report to this JSON file instead of stdout")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for every sampled strategy (default: config seed)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "error analysis score threshold (default: config eval_threshold)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "use the lenient ground truth for error analysis")
	_ = cmd.MarkFlagRequired("patients")
	_ = cmd.MarkFlagRequired("trials")
	_ = cmd.MarkFlagRequired("matches")
	return cmd
}
