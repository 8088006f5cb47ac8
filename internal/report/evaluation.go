package report

import (
	"fmt"
	"io"
	"time"

	"github.com/okian/trialmatch/internal/evaluation"
)

// RenderReport writes every section of an evaluation report.
func RenderReport(w io.Writer, rep *evaluation.Report) error {
	steps := []func(io.Writer, *evaluation.Report) error{
		renderSummary,
		renderConfusion,
		renderExamples,
		renderComparison,
		renderStrict,
		renderNegative,
		renderDistribution,
		renderSweep,
		renderCoverage,
	}
	for _, step := range steps {
		if err := step(w, rep); err != nil {
			return err
		}
	}
	return nil
}

func renderSummary(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "EVALUATION "+rep.RunID); err != nil {
		return err
	}
	e := rep.Settings.Errors
	mode := "lenient"
	if e.Strict {
		mode = "strict"
	}
	return render(w, []string{"Setting", "Value"}, [][]string{
		{"Generated at", rep.GeneratedAt.Format(time.RFC3339)},
		{"Patients / trials", fmt.Sprintf("%d / %d", rep.Dataset.Patients, rep.Dataset.Trials)},
		{"Matched patients", fmt.Sprint(rep.Dataset.Matched)},
		{"Match threshold", fmt.Sprint(e.Threshold)},
		{"Validation mode", mode},
		{"Sample size", fmt.Sprint(e.SamplePatients)},
		{"Seed", fmt.Sprint(e.Seed)},
	})
}

func renderConfusion(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "CONFUSION MATRIX"); err != nil {
		return err
	}
	m := rep.Errors.Matrix
	if err := render(w, []string{"", "Actually valid", "Actually invalid"}, [][]string{
		{"Predicted valid", fmt.Sprint(m.TruePositives), fmt.Sprint(m.FalsePositives)},
		{"Predicted invalid", fmt.Sprint(m.FalseNegatives), fmt.Sprint(m.TrueNegatives)},
	}); err != nil {
		return err
	}
	r := rep.Errors.Rates
	return render(w, []string{"Metric", "Value"}, [][]string{
		{"Precision", pct(r.Precision)},
		{"Recall", pct(r.Recall)},
		{"F1-score", pct(r.F1)},
		{"Accuracy", pct(r.Accuracy)},
		{"False positive rate", pct(r.FalsePositiveRate)},
		{"False negative rate", pct(r.FalseNegativeRate)},
		{"Total evaluated", fmt.Sprint(m.Total())},
	})
}

func renderExamples(w io.Writer, rep *evaluation.Report) error {
	if len(rep.Errors.FalsePositives) > 0 {
		if err := section(w, "FALSE POSITIVE EXAMPLES"); err != nil {
			return err
		}
		rows := make([][]string, 0, len(rep.Errors.FalsePositives))
		for _, fp := range rep.Errors.FalsePositives {
			rows = append(rows, []string{
				fmt.Sprintf("%s (%d, %s)", fp.PatientID, fp.PatientAge, fp.PatientGender),
				fmt.Sprintf("%s (%s, %s)", fp.TrialNCT, fp.TrialAgeRange, fp.TrialGender),
				fmt.Sprint(fp.Score),
				fp.Reason,
			})
		}
		if err := render(w, []string{"Patient", "Trial", "Score", "Why invalid"}, rows); err != nil {
			return err
		}
	}
	if len(rep.Errors.FalseNegatives) > 0 {
		if err := section(w, "FALSE NEGATIVE EXAMPLES"); err != nil {
			return err
		}
		rows := make([][]string, 0, len(rep.Errors.FalseNegatives))
		for _, fn := range rep.Errors.FalseNegatives {
			rows = append(rows, []string{fn.PatientID, fn.TrialNCT, fmt.Sprint(fn.Score), fn.Reason})
		}
		if err := render(w, []string{"Patient", "Trial", "Score", "Why missed"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func renderComparison(w io.Writer, rep *evaluation.Report) error {
	if len(rep.Comparison) == 0 {
		return nil
	}
	if err := section(w, "THRESHOLD COMPARISON (lenient)"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(rep.Comparison))
	for _, c := range rep.Comparison {
		rows = append(rows, []string{fmt.Sprint(c.Threshold), pct(c.Precision), pct(c.FalsePositiveRate), fmt.Sprint(c.FalsePositives)})
	}
	return render(w, []string{"Threshold", "Precision", "FP rate", "FP count"}, rows)
}

func renderStrict(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "STRICT HEURISTIC VALIDATION"); err != nil {
		return err
	}
	s := rep.Strict
	return render(w, []string{"Measure", "Value"}, [][]string{
		{"Accuracy", pct(s.Accuracy)},
		{"Valid / evaluated", fmt.Sprintf("%d / %d", s.Valid, s.Total)},
		{"Score too low", fmt.Sprint(s.Failures.ScoreTooLow)},
		{"Age mismatch", fmt.Sprint(s.Failures.AgeMismatch)},
		{"Gender mismatch", fmt.Sprint(s.Failures.GenderMismatch)},
		{"Insufficient keywords", fmt.Sprint(s.Failures.InsufficientKeywords)},
		{"Score drift", fmt.Sprint(s.Drift)},
	})
}

func renderNegative(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "NEGATIVE CASE TESTING"); err != nil {
		return err
	}
	n := rep.Negative
	row := func(name string, r evaluation.RejectionStats) []string {
		return []string{name, fmt.Sprint(r.Tested), fmt.Sprint(r.Rejected), pct(r.Rate)}
	}
	return render(w, []string{"Mismatch", "Tested", "Rejected", "Rate"}, [][]string{
		row("all", n.Overall),
		row("age", n.Age),
		row("gender", n.Gender),
	})
}

func renderDistribution(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "SCORE DISTRIBUTION"); err != nil {
		return err
	}
	d, p := rep.Distribution, rep.Settings.Policy
	share := func(n int) string {
		if d.TotalScores == 0 {
			return pct(0)
		}
		return pct(float64(n) / float64(d.TotalScores))
	}
	return render(w, []string{"Measure", "Value"}, [][]string{
		{"Average score", fmt.Sprintf("%.1f", d.AvgScore)},
		{"Average top score", fmt.Sprintf("%.1f", d.AvgTopScore)},
		{fmt.Sprintf("Excellent (>=%d)", p.TierExcellent), fmt.Sprintf("%d (%s)", d.Excellent, share(d.Excellent))},
		{fmt.Sprintf("Good (%d-%d)", p.TierGood, p.TierExcellent), fmt.Sprintf("%d (%s)", d.Good, share(d.Good))},
		{fmt.Sprintf("Fair (%d-%d)", p.TierFair, p.TierGood), fmt.Sprintf("%d (%s)", d.Fair, share(d.Fair))},
		{fmt.Sprintf("Poor (<%d)", p.TierFair), fmt.Sprintf("%d (%s)", d.Poor, share(d.Poor))},
		{fmt.Sprintf("Estimated accuracy (>=%d)", p.StrictScore), pct(d.EstimatedAccuracy)},
	})
}

func renderSweep(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "MULTI-THRESHOLD ANALYSIS"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(rep.Sweep))
	for _, pt := range rep.Sweep {
		rows = append(rows, []string{fmt.Sprint(pt.Threshold), pct(pt.Accuracy), fmt.Sprintf("%d/%d", pt.Valid, pt.Total)})
	}
	return render(w, []string{"Threshold", "Accuracy", "Valid/Total"}, rows)
}

func renderCoverage(w io.Writer, rep *evaluation.Report) error {
	if err := section(w, "COVERAGE AND PERFORMANCE"); err != nil {
		return err
	}
	c, perf := rep.Coverage, rep.Performance
	return render(w, []string{"Measure", "Value"}, [][]string{
		{"Patients with matches", fmt.Sprintf("%d / %d", c.PatientsWithMatches, c.TotalPatients)},
		{"Coverage", pct(c.Coverage)},
		{"Total matches", fmt.Sprint(c.TotalMatches)},
		{"Matches per patient", fmt.Sprintf("%.1f", c.AvgMatchesPerPatient)},
		{"Re-ranked patients", fmt.Sprint(perf.PatientsTested)},
		{"Avg ms per patient", fmt.Sprintf("%.3f", perf.AvgMillisPerPatient)},
		{"Speedup vs manual review", fmt.Sprintf("%.0fx", perf.SpeedupVsManualCheck)},
	})
}
