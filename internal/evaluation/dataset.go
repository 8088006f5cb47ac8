package evaluation

import (
	"fmt"

	model "github.com/okian/trialmatch/internal/domain/model"
)

// Dataset joins the patients, trials and MatchSet of one evaluation run.
type Dataset struct {
	Patients []model.Patient
	Trials   []model.Trial
	Matches  model.MatchSet

	patientByID map[string]int
	trialByID   map[string]int
	patientIDs  []string
}

// NewDataset indexes the collections and verifies that every MatchSet entry
// refers to a known patient and trial.
func NewDataset(patients []model.Patient, trials []model.Trial, matches model.MatchSet) (*Dataset, error) {
	switch {
	case len(patients) == 0:
		return nil, fmt.Errorf("%w: no patients", model.ErrMissingReferenceData)
	case len(trials) == 0:
		return nil, fmt.Errorf("%w: no trials", model.ErrMissingReferenceData)
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: empty match set", model.ErrMissingReferenceData)
	}

	ds := &Dataset{
		Patients:    patients,
		Trials:      trials,
		Matches:     matches,
		patientByID: make(map[string]int, len(patients)),
		trialByID:   make(map[string]int, len(trials)),
	}
	for i := range patients {
		if _, dup := ds.patientByID[patients[i].ID]; !dup {
			ds.patientByID[patients[i].ID] = i
		}
	}
	for i := range trials {
		if _, dup := ds.trialByID[trials[i].NCTID]; !dup {
			ds.trialByID[trials[i].NCTID] = i
		}
	}

	ds.patientIDs = matches.PatientIDs()
	for _, id := range ds.patientIDs {
		if _, ok := ds.patientByID[id]; !ok {
			return nil, fmt.Errorf("%w: %w %q", model.ErrMissingReferenceData, ErrUnknownPatient, id)
		}
		for _, m := range matches[id] {
			if _, ok := ds.trialByID[m.NCTID]; !ok {
				return nil, fmt.Errorf("%w: %w %q", model.ErrMissingReferenceData, ErrUnknownTrial, m.NCTID)
			}
		}
	}
	return ds, nil
}

// Patient returns the patient with the given id.
func (d *Dataset) Patient(id string) (*model.Patient, bool) {
	i, ok := d.patientByID[id]
	if !ok {
		return nil, false
	}
	return &d.Patients[i], true
}

// Trial returns the trial with the given NCT id.
func (d *Dataset) Trial(nctID string) (*model.Trial, bool) {
	i, ok := d.trialByID[nctID]
	if !ok {
		return nil, false
	}
	return &d.Trials[i], true
}

// MatchedPatientIDs returns the MatchSet keys in lexical order.
func (d *Dataset) MatchedPatientIDs() []string {
	return d.patientIDs
}
