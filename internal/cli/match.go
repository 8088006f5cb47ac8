package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/trialmatch/internal/app"
	"github.com/okian/trialmatch/pkg/logger"
)

func newMatchCmd(env *runtimeEnv) *cobra.Command {
	var (
		patientsPath string
		trialsPath   string
		out          string
		metricsFile  string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank trials for every patient",
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

			svc := service.New(
				service.WithScorer(env.scorer()),
				service.WithRankOptions(env.cfg.RankOptions()),
				service.WithWorkerCount(env.cfg.WorkerCount),
				service.WithQueueSize(env.cfg.QueueSize),
				service.WithLogger(env.log),
			)
			ms, err := svc.MatchAll(ctx, patients, trials)
			if err != nil {
				return err
			}

			if err := env.exportMetrics(ctx, metricsFile); err != nil {
				return err
			}

			if out == "" {
				return env.write(cmd, ms)
			}
			if err := store.SaveMatches(ctx, out, ms); err != nil {
				return err
			}
			env.log.Info(ctx, "matches saved", logger.String("path", out))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d matches for %d patients to %s\n",
				ms.TotalMatches(), len(ms), out)
			return err
		},
	}

	cmd.Flags().StringVar(&patientsPath, "patients", "", "patients JSON file")
	cmd.Flags().StringVar(&trialsPath, "trials", "", "trials JSON file")
	cmd.Flags().StringVar(&out, "out", "", "write the match set to this JSON file instead of stdout")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	_ = cmd.MarkFlagRequired("patients")
	_ = cmd.MarkFlagRequired("trials")
	return cmd
}
