package evaluation_test

import (
	"fmt"

	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/domain/ranking"
	"github.com/okian/trialmatch/internal/domain/scoring"
)

// Fresh scores of the fixture pairs:
//
//	patient_0001 x NCT01 = 20+10+20+15 = 65
//	patient_0001 x NCT02 = 20+10+0+7   = 37
//	patient_0001 x NCT03 = 0+10+0+2    = 12
//	patient_0002 x NCT01 = 0+10+0+8    = 18
//	patient_0002 x NCT02 = 20+0+10+20  = 50
//	patient_0002 x NCT03 = 0+10+0+2    = 12
func fixturePatients() []model.Patient {
	return []model.Patient{
		{
			ID: "patient_0001", Age: 45, Gender: model.GenderFemale,
			Conditions: []string{"Type 2 Diabetes Mellitus"},
			Keywords:   model.NewKeywordSet("diabetes", "type 2 diabetes", "metformin"),
		},
		{
			ID: "patient_0002", Age: 70, Gender: model.GenderMale,
			Conditions: []string{"Hypertension"},
			Keywords:   model.NewKeywordSet("hypertension"),
		},
	}
}

func fixtureTrials() []model.Trial {
	return []model.Trial{
		{
			NCTID: "NCT01", Condition: "Type 2 Diabetes", AgeMin: 18, AgeMax: 65,
			Gender: model.TrialGenderAll, Keywords: model.NewKeywordSet("diabetes", "type 2 diabetes"),
		},
		{
			NCTID: "NCT02", Condition: "Hypertension", AgeMin: 40, AgeMax: 80,
			Gender: model.TrialGenderFemale, Keywords: model.NewKeywordSet("hypertension"),
		},
		{
			NCTID: "NCT03", Condition: "Asthma", AgeMin: 5, AgeMax: 17,
			Gender: model.TrialGenderAll, Keywords: model.NewKeywordSet("asthma"),
		},
	}
}

func fixtureMatches() model.MatchSet {
	return model.MatchSet{
		"patient_0001": {{NCTID: "NCT01", Score: 65}, {NCTID: "NCT02", Score: 37}},
		"patient_0002": {{NCTID: "NCT02", Score: 50}},
	}
}

// rankedDataset builds n varied patients and ranks them against the fixture
// trials plus a few extra ones.
func rankedDataset(n int) ([]model.Patient, []model.Trial, model.MatchSet) {
	conditions := []string{"Type 2 Diabetes Mellitus", "Hypertension", "Asthma", "Obesity"}
	kw := [][]string{{"diabetes", "type 2 diabetes"}, {"hypertension"}, {"asthma"}, {"obesity", "diabetes"}}

	trials := fixtureTrials()
	trials = append(trials,
		model.Trial{
			NCTID: "NCT04", Condition: "Obesity", AgeMin: 30, AgeMax: 60,
			Gender: model.TrialGenderMale, Keywords: model.NewKeywordSet("obesity", "diabetes"),
		},
		model.Trial{
			NCTID: "NCT05", Condition: "Type 1 Diabetes", AgeMin: 18, AgeMax: 40,
			Gender: model.TrialGenderAll, Keywords: model.NewKeywordSet("diabetes"),
		},
	)

	scorer := scoring.NewScorer()
	patients := make([]model.Patient, n)
	matches := make(model.MatchSet, n)
	for i := range patients {
		gender := model.GenderMale
		if i%3 == 0 {
			gender = model.GenderFemale
		}
		patients[i] = model.Patient{
			ID:         fmt.Sprintf("patient_%04d", i+1),
			Age:        10 + (i*7)%75,
			Gender:     gender,
			Conditions: []string{conditions[i%len(conditions)]},
			Keywords:   model.NewKeywordSet(kw[i%len(kw)]...),
		}
		matches[patients[i].ID] = ranking.Rank(scorer, &patients[i], trials, ranking.DefaultOptions())
	}
	return patients, trials, matches
}
