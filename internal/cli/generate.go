package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/trialmatch/internal/domain/keywords"
	"github.com/okian/trialmatch/internal/generator"
	"github.com/okian/trialmatch/pkg/logger"
)

const defaultPatientCount = 100

func newGenerateCmd(env *runtimeEnv) *cobra.Command {
	var (
		count int
		seed  int64
		out   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic patients",
		Long: `Generate a deterministic cohort of synthetic patients. The same
count and seed always produce the same patients.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("seed") {
				seed = env.cfg.Seed
			}

			gen := generator.New(
				generator.WithSeed(seed),
				generator.WithWorkers(env.cfg.WorkerCount),
				generator.WithExtractor(keywords.NewLexiconExtractor()),
				generator.WithLogger(env.log),
			)
			patients, err := gen.Generate(ctx, count)
			if err != nil {
				return err
			}

			if out == "" {
				return env.write(cmd, patients)
			}
			if err := env.store().SavePatients(ctx, out, patients); err != nil {
				return err
			}
			env.log.Info(ctx, "patients generated",
				logger.Int("count", len(patients)),
				logger.String("path", out),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d patients to %s\n", len(patients), out)
			return err
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultPatientCount, "number of patients")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: config seed)")
	cmd.Flags().StringVar(&out, "out", "", "write patients to this JSON file instead of stdout")
	return cmd
}
