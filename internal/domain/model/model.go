// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
)

// Gender is a patient's recorded sex.
type Gender string

// Patient genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// TrialGender is the sex a trial enrols.
type TrialGender string

// Trial gender requirements.
const (
	TrialGenderAll    TrialGender = "ALL"
	TrialGenderMale   TrialGender = "MALE"
	TrialGenderFemale TrialGender = "FEMALE"
)

// Accepts reports whether a trial with this requirement enrols the given patient gender.
// Comparison is case-insensitive.
func (g TrialGender) Accepts(p Gender) bool {
	if strings.EqualFold(string(g), string(TrialGenderAll)) {
		return true
	}
	return strings.EqualFold(string(g), string(p))
}

// Patient is a single patient record. Conditions are ordered: the first one is
// the primary condition.
type Patient struct {
	ID          string     `json:"id"`
	Age         int        `json:"age"`
	Gender      Gender     `json:"gender"`
	Conditions  []string   `json:"conditions"`
	Medications []string   `json:"medications"`
	Keywords    KeywordSet `json:"condition_keywords"`
}

// PrimaryCondition returns the first listed condition, or "" when there is none.
func (p *Patient) PrimaryCondition() string {
	if len(p.Conditions) == 0 {
		return ""
	}
	return p.Conditions[0]
}

// Trial is a clinical study with its eligibility constraints.
type Trial struct {
	NCTID           string      `json:"nct_id"`
	Title           string      `json:"title"`
	Condition       string      `json:"condition"`
	EligibilityText string      `json:"eligibility_text"`
	AgeMin          int         `json:"age_min"`
	AgeMax          int         `json:"age_max"`
	Gender          TrialGender `json:"gender"`
	Status          string      `json:"status"`
	Keywords        KeywordSet  `json:"keywords"`
}

// AgeInRange reports whether age falls inside the trial's inclusive age bounds.
func (t *Trial) AgeInRange(age int) bool {
	return t.AgeMin <= age && age <= t.AgeMax
}

// MatchResult is one ranked (patient, trial) pair that cleared the minimum score.
type MatchResult struct {
	NCTID     string   `json:"nct_id"`
	Title     string   `json:"title"`
	Condition string   `json:"condition"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
}

// MatchSet maps patient id to that patient's ranked matches.
type MatchSet map[string][]MatchResult

// PatientIDs returns the set's keys in lexical order.
func (m MatchSet) PatientIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalMatches returns the number of match results across all patients.
func (m MatchSet) TotalMatches() int {
	total := 0
	for _, results := range m {
		total += len(results)
	}
	return total
}
