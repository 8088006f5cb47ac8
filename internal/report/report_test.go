package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/evaluation"
	"github.com/okian/trialmatch/internal/report"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleReport() evaluation.Report {
	return evaluation.Report{
		RunID:       "3f1c2d7e-0000-4000-8000-000000000001",
		GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Settings:    evaluation.DefaultSettings(),
		Dataset:     evaluation.DatasetSummary{Patients: 2, Trials: 3, Matched: 2},
		Errors: evaluation.ErrorAnalysis{
			Matrix: evaluation.ConfusionMatrix{TruePositives: 1, FalsePositives: 1, TrueNegatives: 4},
			Rates:  evaluation.Rates{Precision: 0.5, Recall: 1, F1: 2.0 / 3, Accuracy: 5.0 / 6, FalsePositiveRate: 0.2},
			FalsePositives: []evaluation.FalsePositive{{
				PatientID: "patient_0002", PatientAge: 70, PatientGender: model.GenderMale,
				TrialNCT: "NCT02", TrialAgeRange: "40-80", TrialGender: model.TrialGenderFemale,
				Score: 50, Reason: "Gender mismatch",
			}},
			FalseNegatives: []evaluation.FalseNegative{},
		},
		Comparison: []evaluation.ThresholdComparison{{Threshold: 30, Precision: 0.25, FalsePositives: 3}},
		Strict:     evaluation.StrictValidation{Total: 3, Valid: 1, Accuracy: 1.0 / 3},
		Sweep:      []evaluation.SweepPoint{{Threshold: 30, Valid: 2, Total: 3, Accuracy: 2.0 / 3}},
		Coverage:   evaluation.Coverage{TotalPatients: 2, PatientsWithMatches: 2, Coverage: 1},
	}
}

func TestParseFormat(t *testing.T) {
	Convey("Given output flag values", t, func() {
		f, err := report.ParseFormat("")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, report.FormatTable)

		f, err = report.ParseFormat(" JSON ")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, report.FormatJSON)

		_, err = report.ParseFormat("yaml")
		So(errors.Is(err, report.ErrUnknownFormat), ShouldBeTrue)
	})
}

func TestRenderReport(t *testing.T) {
	Convey("Given an evaluation report", t, func() {
		rep := sampleReport()
		var buf bytes.Buffer

		Convey("When it is rendered as tables", func() {
			err := report.Write(&buf, report.FormatTable, rep)

			Convey("Then every section and headline figure is present", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, "EVALUATION "+rep.RunID)
				So(out, ShouldContainSubstring, "CONFUSION MATRIX")
				So(out, ShouldContainSubstring, "50.0%")
				So(out, ShouldContainSubstring, "Gender mismatch")
				So(out, ShouldContainSubstring, "STRICT HEURISTIC VALIDATION")
				So(out, ShouldContainSubstring, "NEGATIVE CASE TESTING")
				So(out, ShouldContainSubstring, "MULTI-THRESHOLD ANALYSIS")
				So(out, ShouldContainSubstring, "66.7%")
				So(out, ShouldNotContainSubstring, "FALSE NEGATIVE EXAMPLES")
			})
		})

		Convey("When it is rendered as JSON", func() {
			err := report.Write(&buf, report.FormatJSON, rep)

			Convey("Then it decodes back to the same report", func() {
				So(err, ShouldBeNil)
				var back evaluation.Report
				So(json.Unmarshal(buf.Bytes(), &back), ShouldBeNil)
				So(back.RunID, ShouldEqual, rep.RunID)
				So(back.Errors.Matrix, ShouldResemble, rep.Errors.Matrix)
				So(back.GeneratedAt.Equal(rep.GeneratedAt), ShouldBeTrue)
			})
		})
	})
}

func TestRenderMatches(t *testing.T) {
	Convey("Given a match set", t, func() {
		ms := model.MatchSet{
			"patient_0002": {{NCTID: "NCT01", Condition: "Type 2 Diabetes", Score: 65}},
			"patient_0001": {},
		}
		var buf bytes.Buffer

		Convey("When it is rendered", func() {
			err := report.Table(&buf, ms)

			Convey("Then patients appear in id order with a summary line", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldContainSubstring, "NCT01")
				So(bytes.Index(buf.Bytes(), []byte("patient_0001")), ShouldBeLessThan, bytes.Index(buf.Bytes(), []byte("patient_0002")))
				So(out, ShouldContainSubstring, "2 patients, 1 matches")
			})
		})
	})

	Convey("Given ranked results for one patient", t, func() {
		var buf bytes.Buffer

		Convey("When there are none", func() {
			err := report.Table(&buf, report.PatientResults{PatientID: "patient_0009"})

			Convey("Then a notice is printed", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldEqual, "No trials matched patient_0009.\n")
			})
		})

		Convey("When there are some", func() {
			err := report.Table(&buf, report.PatientResults{
				PatientID: "patient_0001",
				Results: []model.MatchResult{{
					NCTID: "NCT01", Title: "Metformin in adults", Score: 65,
					Reasons: []string{"✓ Age 45 within range (18-65)"},
				}},
			})

			Convey("Then the reasons are listed", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "Matches for patient_0001")
				So(buf.String(), ShouldContainSubstring, "✓ Age 45 within range (18-65)")
			})
		})
	})

	Convey("Given an unsupported value", t, func() {
		err := report.Table(&bytes.Buffer{}, 42)

		Convey("Then table rendering fails", func() {
			So(errors.Is(err, report.ErrUnsupportedType), ShouldBeTrue)
		})
	})
}
