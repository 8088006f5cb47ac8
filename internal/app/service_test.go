package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	service "github.com/okian/trialmatch/internal/app"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/domain/ranking"
	"github.com/okian/trialmatch/internal/domain/scoring"
	"github.com/okian/trialmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func testTrials() []model.Trial {
	return []model.Trial{
		{
			NCTID: "NCT00000001", Title: "Metformin in adults", Condition: "Type 2 Diabetes",
			AgeMin: 18, AgeMax: 75, Gender: model.TrialGenderAll,
			Keywords: model.NewKeywordSet("diabetes", "type 2 diabetes"),
		},
		{
			NCTID: "NCT00000002", Title: "Blood pressure in women", Condition: "Hypertension",
			AgeMin: 40, AgeMax: 80, Gender: model.TrialGenderFemale,
			Keywords: model.NewKeywordSet("hypertension"),
		},
		{
			NCTID: "NCT00000003", Title: "Paediatric asthma", Condition: "Asthma",
			AgeMin: 5, AgeMax: 17, Gender: model.TrialGenderAll,
			Keywords: model.NewKeywordSet("asthma"),
		},
	}
}

func testPatients(n int) []model.Patient {
	out := make([]model.Patient, n)
	for i := range out {
		gender := model.GenderMale
		if i%2 == 0 {
			gender = model.GenderFemale
		}
		out[i] = model.Patient{
			ID:         fmt.Sprintf("patient_%04d", i+1),
			Age:        20 + i%60,
			Gender:     gender,
			Conditions: []string{"Type 2 Diabetes Mellitus", "Hypertension"},
			Keywords:   model.NewKeywordSet("diabetes", "hypertension", "type 2 diabetes"),
		}
	}
	return out
}

func TestMatchAll(t *testing.T) {
	Convey("Given a batch matcher with several workers", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithLogger(logger.Nop()),
		)
		ctx := context.Background()
		trials := testTrials()

		Convey("When matching a batch of distinct patients", func() {
			patients := testPatients(50)
			set, err := svc.MatchAll(ctx, patients, trials)

			Convey("Then every patient has exactly one entry", func() {
				So(err, ShouldBeNil)
				So(set, ShouldHaveLength, 50)
				for i := range patients {
					_, ok := set[patients[i].ID]
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then each entry equals ranking the patient alone", func() {
				So(err, ShouldBeNil)
				for i := range patients {
					want := ranking.Rank(svc.Scorer(), &patients[i], trials, ranking.DefaultOptions())
					So(set[patients[i].ID], ShouldResemble, want)
				}
			})

			Convey("Then entries are sorted by score descending", func() {
				for _, results := range set {
					for i := 1; i < len(results); i++ {
						So(results[i-1].Score, ShouldBeGreaterThanOrEqualTo, results[i].Score)
					}
				}
			})
		})

		Convey("When the batch repeats a patient id", func() {
			patients := testPatients(3)
			dup := patients[0]
			dup.Age = 99
			patients = append(patients, dup)

			set, err := svc.MatchAll(ctx, patients, trials)

			Convey("Then the first occurrence wins", func() {
				So(err, ShouldBeNil)
				So(set, ShouldHaveLength, 3)
				want := ranking.Rank(svc.Scorer(), &patients[0], trials, ranking.DefaultOptions())
				So(set[dup.ID], ShouldResemble, want)
			})
		})

		Convey("When no patient qualifies for any trial", func() {
			lonely := []model.Patient{{ID: "patient_0001", Age: 90, Gender: model.GenderMale, Keywords: model.NewKeywordSet()}}
			set, err := svc.MatchAll(ctx, lonely, trials[2:])

			Convey("Then the patient still has an empty entry", func() {
				So(err, ShouldBeNil)
				So(set, ShouldContainKey, "patient_0001")
				So(set["patient_0001"], ShouldNotBeNil)
				So(set["patient_0001"], ShouldBeEmpty)
			})
		})

		Convey("When the trial collection is empty", func() {
			_, err := svc.MatchAll(ctx, testPatients(2), nil)

			Convey("Then the run fails with missing reference data", func() {
				So(errors.Is(err, model.ErrMissingReferenceData), ShouldBeTrue)
			})
		})

		Convey("When the patient collection is empty", func() {
			_, err := svc.MatchAll(ctx, nil, trials)

			Convey("Then the run fails with missing reference data", func() {
				So(errors.Is(err, model.ErrMissingReferenceData), ShouldBeTrue)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.MatchAll(cctx, testPatients(20), trials)

			Convey("Then the run reports cancellation", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestMatchAllWorkerCounts(t *testing.T) {
	Convey("Given the same batch matched with different worker counts", t, func() {
		patients := testPatients(40)
		trials := testTrials()
		ctx := context.Background()

		single, err1 := service.New(service.WithWorkerCount(1)).MatchAll(ctx, patients, trials)
		many, err2 := service.New(service.WithWorkerCount(8), service.WithQueueSize(4)).MatchAll(ctx, patients, trials)

		Convey("Then the results are identical", func() {
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(many, ShouldResemble, single)
		})
	})
}

func TestRankPatient(t *testing.T) {
	Convey("Given a service with custom rank options", t, func() {
		svc := service.New(
			service.WithRankOptions(ranking.Options{TopK: 1, MinScore: 0}),
			service.WithScorer(scoring.NewScorer()),
		)
		p := testPatients(1)[0]

		Convey("When ranking one patient", func() {
			results, err := svc.RankPatient(context.Background(), &p, testTrials())

			Convey("Then top-K is honoured", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 1)
				So(results[0].NCTID, ShouldEqual, "NCT00000001")
			})
		})

		Convey("When no trials are given", func() {
			_, err := svc.RankPatient(context.Background(), &p, nil)

			Convey("Then it fails with missing reference data", func() {
				So(errors.Is(err, model.ErrMissingReferenceData), ShouldBeTrue)
			})
		})
	})
}
