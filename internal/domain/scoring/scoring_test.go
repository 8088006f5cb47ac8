package scoring_test

import (
	"errors"
	"testing"

	model "github.com/okian/trialmatch/internal/domain/model"
	scoring "github.com/okian/trialmatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func diabetesPatient() *model.Patient {
	return &model.Patient{
		ID:         "patient_0001",
		Age:        45,
		Gender:     model.GenderMale,
		Conditions: []string{"Type 2 Diabetes Mellitus"},
		Keywords:   model.NewKeywordSet("diabetes", "metformin"),
	}
}

func diabetesTrial() *model.Trial {
	return &model.Trial{
		NCTID:     "NCT00000001",
		Title:     "Insulin titration in T2D",
		Condition: "Type 2 Diabetes",
		AgeMin:    18,
		AgeMax:    65,
		Gender:    model.TrialGenderAll,
		Keywords:  model.NewKeywordSet("diabetes", "insulin"),
	}
}

func TestScorer_Score(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewScorer()

		Convey("When scoring the diabetes reference pair", func() {
			res := scorer.Score(diabetesPatient(), diabetesTrial())

			Convey("Then every component fires as expected", func() {
				So(res.Breakdown.AgePoints, ShouldEqual, 20)
				So(res.Breakdown.GenderPoints, ShouldEqual, 10)
				So(res.Breakdown.KeywordPoints, ShouldEqual, 10)
				So(res.Breakdown.Overlap, ShouldResemble, []string{"diabetes"})
				So(res.Breakdown.ConditionPoints, ShouldEqual, 15)
				So(res.Score, ShouldEqual, 55)
				So(res.Score, ShouldBeBetweenOrEqual, 55, 60)
			})

			Convey("Then the reasons list one entry per firing component", func() {
				So(res.Reasons, ShouldResemble, []string{
					"✓ Age 45 within range (18-65)",
					"✓ Gender matches (ALL)",
					"✓ 1 matching keywords: diabetes",
					"✓ Primary condition 'type 2 diabetes mellitus...' similar to trial condition",
				})
			})
		})

		Convey("When the patient is older than the trial allows", func() {
			p := diabetesPatient()
			p.Age = 70
			p.Keywords = model.NewKeywordSet("a", "b", "c", "d", "e")
			tr := diabetesTrial()
			tr.AgeMax = 40
			tr.Condition = "Type 2 Diabetes Mellitus"
			tr.Keywords = model.NewKeywordSet("a", "b", "c", "d", "e")
			res := scorer.Score(p, tr)

			Convey("Then the age component is zero and marked violated", func() {
				So(res.Breakdown.AgePoints, ShouldEqual, 0)
				So(res.Reasons[0], ShouldEqual, "✗ Age 70 outside range (18-40)")
				So(res.Score, ShouldEqual, 80)
				So(res.Score, ShouldBeLessThanOrEqualTo, 80)
			})
		})

		Convey("When the trial requires the other gender", func() {
			tr := diabetesTrial()
			tr.Gender = model.TrialGenderFemale
			res := scorer.Score(diabetesPatient(), tr)

			Convey("Then the gender reason records the requirement", func() {
				So(res.Breakdown.GenderPoints, ShouldEqual, 0)
				So(res.Reasons[1], ShouldEqual, "✗ Gender mismatch (requires FEMALE)")
			})
		})

		Convey("When keyword sets and conditions are missing", func() {
			p := &model.Patient{ID: "p", Age: 30, Gender: model.GenderFemale}
			tr := &model.Trial{NCTID: "NCT", AgeMin: 18, AgeMax: 65, Gender: "all"}
			res := scorer.Score(p, tr)

			Convey("Then those components contribute nothing and no error occurs", func() {
				So(res.Score, ShouldEqual, 30)
				So(len(res.Reasons), ShouldEqual, 2)
			})
		})

		Convey("When the overlap grows", func() {
			tr := diabetesTrial()
			words := []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"}
			tr.Keywords = model.NewKeywordSet(words...)
			prev := -1

			Convey("Then keyword points never decrease and saturate at 50", func() {
				for n := 0; n <= len(words); n++ {
					p := diabetesPatient()
					p.Keywords = model.NewKeywordSet(words[:n]...)
					points := scorer.Score(p, tr).Breakdown.KeywordPoints
					So(points, ShouldBeGreaterThanOrEqualTo, prev)
					So(points, ShouldEqual, min(n*10, 50))
					prev = points
				}
			})

			Convey("Then the reason lists at most three keywords in lexical order", func() {
				p := diabetesPatient()
				p.Keywords = model.NewKeywordSet("k5", "k1", "k3", "k2")
				res := scorer.Score(p, tr)
				So(res.Reasons, ShouldContain, "✓ 4 matching keywords: k1, k2, k3")
			})
		})

		Convey("When scoring arbitrary pairs", func() {
			Convey("Then the score stays within [0,100] and reasons are never empty", func() {
				for age := 0; age <= 100; age += 7 {
					for _, g := range []model.TrialGender{"ALL", "MALE", "FEMALE"} {
						p := diabetesPatient()
						p.Age = age
						tr := diabetesTrial()
						tr.Gender = g
						res := scorer.Score(p, tr)
						So(res.Score, ShouldBeBetweenOrEqual, 0, 100)
						So(res.Reasons, ShouldNotBeEmpty)
						if tr.AgeInRange(age) {
							So(res.Breakdown.AgePoints, ShouldEqual, 20)
						} else {
							So(res.Breakdown.AgePoints, ShouldEqual, 0)
						}
					}
				}
			})
		})
	})

	Convey("Given a scorer with inflated weights", t, func() {
		w := scoring.DefaultWeights()
		w.KeywordCap = 500
		w.KeywordPointsEach = 100
		scorer := scoring.NewScorer(scoring.WithWeights(w))

		Convey("Then the total is clamped to 100", func() {
			So(scorer.Score(diabetesPatient(), diabetesTrial()).Score, ShouldEqual, 100)
			So(scorer.Weights().KeywordCap, ShouldEqual, 500)
		})
	})
}

func TestWeights_Validate(t *testing.T) {
	Convey("Given scoring weights", t, func() {
		Convey("Then the defaults are valid", func() {
			So(scoring.DefaultWeights().Validate(), ShouldBeNil)
		})

		Convey("Then a negative weight is rejected", func() {
			w := scoring.DefaultWeights()
			w.GenderPoints = -1
			So(errors.Is(w.Validate(), scoring.ErrNegativeWeight), ShouldBeTrue)
		})
	})
}

func TestSimilarity(t *testing.T) {
	Convey("Given pairs of strings", t, func() {
		Convey("Then identical and empty inputs hit the bounds", func() {
			So(scoring.Similarity("diabetes", "diabetes"), ShouldEqual, 1)
			So(scoring.Similarity("", ""), ShouldEqual, 1)
			So(scoring.Similarity("asthma", ""), ShouldEqual, 0)
			So(scoring.Similarity("abc", "xyz"), ShouldEqual, 0)
		})

		Convey("Then the ratio matches the longest-matching-blocks definition", func() {
			So(scoring.Similarity("abcd", "bcde"), ShouldEqual, 0.75)
			So(scoring.Similarity("type 2 diabetes mellitus", "type 2 diabetes"), ShouldAlmostEqual, 30.0/39.0, 1e-9)
		})

		Convey("Then more shared substring gives a higher ratio", func() {
			target := "chronic kidney disease"
			prev := -1.0
			for _, candidate := range []string{"asthma", "chronic", "chronic kidney", "chronic kidney disease"} {
				r := scoring.Similarity(candidate, target)
				So(r, ShouldBeGreaterThan, prev)
				prev = r
			}
		})

		Convey("Then the ratio counts runes rather than bytes", func() {
			So(scoring.Similarity("hypertension", "hypotension"), ShouldAlmostEqual, 20.0/23.0, 1e-9)
			So(scoring.Similarity("ü-ñ", "u-n"), ShouldAlmostEqual, 2.0/6.0, 1e-9)
		})
	})
}
