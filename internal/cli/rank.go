package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/trialmatch/internal/app"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/report"
)

func newRankCmd(env *runtimeEnv) *cobra.Command {
	var (
		patientsPath string
		trialsPath   string
		patientID    string
		topK         int
		minScore     int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank trials for a single patient",
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
			p, err := findPatient(patients, patientID)
			if err != nil {
				return err
			}

			opts := env.cfg.RankOptions()
			if cmd.Flags().Changed("top-k") {
				opts.TopK = topK
			}
			if cmd.Flags().Changed("min-score") {
				opts.MinScore = minScore
			}

			svc := service.New(
				service.WithScorer(env.scorer()),
				service.WithRankOptions(opts),
				service.WithLogger(env.log),
			)
			results, err := svc.RankPatient(ctx, p, trials)
			if err != nil {
				return err
			}
			return env.write(cmd, report.PatientResults{PatientID: p.ID, Results: results})
		},
	}

	cmd.Flags().StringVar(&patientsPath, "patients", "", "patients JSON file")
	cmd.Flags().StringVar(&trialsPath, "trials", "", "trials JSON file")
	cmd.Flags().StringVar(&patientID, "patient-id", "", "id of the patient to rank")
	cmd.Flags().IntVar(&topK, "top-k", 0, "maximum results (default: config top_k)")
	cmd.Flags().IntVar(&minScore, "min-score", 0, "minimum score (default: config min_score)")
	_ = cmd.MarkFlagRequired("patients")
	_ = cmd.MarkFlagRequired("trials")
	_ = cmd.MarkFlagRequired("patient-id")
	return cmd
}

func findPatient(patients []model.Patient, id string) (*model.Patient, error) {
	for i := range patients {
		if patients[i].ID == id {
			return &patients[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPatientNotFound, id)
}
