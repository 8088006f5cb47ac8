package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/trialmatch/internal/domain/dedupe"
	"github.com/okian/trialmatch/internal/domain/keywords"
	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/pkg/logger"
	"github.com/okian/trialmatch/pkg/metrics"
)

const (
	kindPatient = "patient"
	kindTrial   = "trial"

	defaultIndent = "  "
	filePerm      = 0o644
	dirPerm       = 0o755
)

// RecruitingStatuses are the statuses of trials still open to enrolment.
var RecruitingStatuses = []string{"RECRUITING", "NOT_YET_RECRUITING", "ENROLLING_BY_INVITATION"}

// FileStore implements Store on local JSON files.
type FileStore struct {
	extractor keywords.Extractor
	statuses  map[string]struct{}
	indent    string

	logger logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store.
func NewFileStore(opts ...Option) *FileStore {
	s := &FileStore{
		extractor: keywords.NewLexiconExtractor(),
		indent:    defaultIndent,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("repository")
	return s
}

type patientRecord struct {
	ID          string           `json:"id"`
	Age         *int             `json:"age"`
	Gender      string           `json:"gender"`
	Conditions  []string         `json:"conditions"`
	Medications []string         `json:"medications"`
	Keywords    model.KeywordSet `json:"condition_keywords"`
}

type trialRecord struct {
	NCTID           string           `json:"nct_id"`
	Title           string           `json:"title"`
	Condition       string           `json:"condition"`
	EligibilityText string           `json:"eligibility_text"`
	AgeMin          *int             `json:"age_min"`
	AgeMax          *int             `json:"age_max"`
	Gender          string           `json:"gender"`
	Status          string           `json:"status"`
	Keywords        model.KeywordSet `json:"keywords"`
}

// LoadPatients reads a JSON array of patients. Records without an id or age,
// with a negative age, or repeating an earlier id are dropped with a warning.
// Empty keyword sets are filled from the conditions.
func (s *FileStore) LoadPatients(ctx context.Context, path string) ([]model.Patient, error) {
	raw, err := s.readArray(ctx, path)
	if err != nil {
		return nil, err
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(raw)))
	out := make([]model.Patient, 0, len(raw))
	for i, r := range raw {
		var rec patientRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			s.drop(ctx, kindPatient, i, "", fmt.Errorf("%w: %w", model.ErrMalformedRecord, err))
			continue
		}
		p, err := s.patient(&rec)
		if err == nil && seen.SeenAndRecord(ctx, p.ID) {
			err = ErrDuplicate
		}
		if err != nil {
			s.drop(ctx, kindPatient, i, rec.ID, err)
			continue
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %w in %s", model.ErrMissingReferenceData, ErrNoRecords, path)
	}
	metrics.UpdateRecordsLoaded(kindPatient, len(out))
	s.logger.Info(ctx, "patients loaded", logger.String("path", path), logger.Int("count", len(out)))
	return out, nil
}

func (s *FileStore) patient(rec *patientRecord) (model.Patient, error) {
	id := strings.TrimSpace(rec.ID)
	switch {
	case id == "":
		return model.Patient{}, ErrMissingID
	case rec.Age == nil:
		return model.Patient{}, fmt.Errorf("%w: missing age", model.ErrMalformedRecord)
	case *rec.Age < 0:
		return model.Patient{}, ErrNegativeAge
	}

	p := model.Patient{
		ID:          id,
		Age:         *rec.Age,
		Gender:      model.Gender(strings.ToLower(strings.TrimSpace(rec.Gender))),
		Conditions:  nonNil(rec.Conditions),
		Medications: nonNil(rec.Medications),
		Keywords:    keywords.NormalizeSet(rec.Keywords),
	}
	if len(p.Keywords) == 0 {
		p.Keywords = keywords.NormalizeSet(keywords.FromConditions(s.extractor, p.Conditions))
	}
	return p, nil
}

// LoadTrials reads a JSON array of trials in file order. A missing age bound
// is parsed from the eligibility text. Records without an NCT id, with
// age_min greater than age_max, repeating an earlier id, or outside the
// configured statuses are dropped. Empty keyword sets are filled from the
// eligibility text.
func (s *FileStore) LoadTrials(ctx context.Context, path string) ([]model.Trial, error) {
	raw, err := s.readArray(ctx, path)
	if err != nil {
		return nil, err
	}

	seen := dedupe.NewInMemoryDeduper(dedupe.WithCapacity(len(raw)))
	out := make([]model.Trial, 0, len(raw))
	for i, r := range raw {
		var rec trialRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			s.drop(ctx, kindTrial, i, "", fmt.Errorf("%w: %w", model.ErrMalformedRecord, err))
			continue
		}
		if s.statuses != nil {
			if _, ok := s.statuses[strings.ToUpper(rec.Status)]; !ok {
				metrics.RecordRecordDropped(kindTrial, "status")
				s.logger.Debug(ctx, "skipping trial by status",
					logger.String("nct_id", rec.NCTID), logger.String("status", rec.Status))
				continue
			}
		}
		t, err := s.trial(&rec)
		if err == nil && seen.SeenAndRecord(ctx, t.NCTID) {
			err = ErrDuplicate
		}
		if err != nil {
			s.drop(ctx, kindTrial, i, rec.NCTID, err)
			continue
		}
		out = append(out, t)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %w in %s", model.ErrMissingReferenceData, ErrNoRecords, path)
	}
	metrics.UpdateRecordsLoaded(kindTrial, len(out))
	s.logger.Info(ctx, "trials loaded", logger.String("path", path), logger.Int("count", len(out)))
	return out, nil
}

func (s *FileStore) trial(rec *trialRecord) (model.Trial, error) {
	id := strings.TrimSpace(rec.NCTID)
	if id == "" {
		return model.Trial{}, ErrMissingID
	}

	lo, hi := ParseAgeRange(rec.EligibilityText)
	if rec.AgeMin != nil {
		lo = *rec.AgeMin
	}
	if rec.AgeMax != nil {
		hi = *rec.AgeMax
	}
	if lo > hi {
		return model.Trial{}, fmt.Errorf("%w: %d > %d", ErrAgeRange, lo, hi)
	}

	gender := model.TrialGender(strings.ToUpper(strings.TrimSpace(rec.Gender)))
	if gender == "" {
		gender = model.TrialGenderAll
	}

	t := model.Trial{
		NCTID:           id,
		Title:           rec.Title,
		Condition:       rec.Condition,
		EligibilityText: rec.EligibilityText,
		AgeMin:          lo,
		AgeMax:          hi,
		Gender:          gender,
		Status:          rec.Status,
		Keywords:        keywords.NormalizeSet(rec.Keywords),
	}
	if len(t.Keywords) == 0 {
		t.Keywords = keywords.NormalizeSet(s.extractor.Extract(t.EligibilityText))
	}
	return t, nil
}

// LoadMatches reads a MatchSet. Null entries become empty lists.
func (s *FileStore) LoadMatches(ctx context.Context, path string) (model.MatchSet, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}
	var ms model.MatchSet
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", model.ErrMissingReferenceData, path, err)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: %w in %s", model.ErrMissingReferenceData, ErrNoRecords, path)
	}
	for id, results := range ms {
		if results == nil {
			ms[id] = []model.MatchResult{}
		}
	}
	s.logger.Info(ctx, "matches loaded",
		logger.String("path", path),
		logger.Int("patients", len(ms)),
		logger.Int("matches", ms.TotalMatches()),
	)
	return ms, nil
}

// SavePatients writes patients as a JSON array.
func (s *FileStore) SavePatients(ctx context.Context, path string, patients []model.Patient) error {
	return s.write(ctx, path, patients)
}

// SaveMatches writes a MatchSet. Keys are written in lexical order.
func (s *FileStore) SaveMatches(ctx context.Context, path string, ms model.MatchSet) error {
	return s.write(ctx, path, ms)
}

// SaveReport writes report as JSON.
func (s *FileStore) SaveReport(ctx context.Context, path string, report any) error {
	return s.write(ctx, path, report)
}

func (s *FileStore) read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %w", model.ErrMissingReferenceData, ErrEmptyPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMissingReferenceData, err)
	}
	return data, nil
}

func (s *FileStore) readArray(ctx context.Context, path string) ([]json.RawMessage, error) {
	data, err := s.read(ctx, path)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", model.ErrMissingReferenceData, path, err)
	}
	return raw, nil
}

// write encodes v into a temporary file next to path and renames it into place.
func (s *FileStore) write(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup after rename

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if s.indent != "" {
		enc.SetIndent("", s.indent)
	}
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: encode %s: %w", ErrWriteFile, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}

	s.logger.Debug(ctx, "file written", logger.String("path", path))
	return nil
}

func (s *FileStore) drop(ctx context.Context, kind string, index int, id string, err error) {
	metrics.RecordRecordDropped(kind, dropReason(err))
	s.logger.Warn(ctx, "dropping malformed record",
		logger.String("kind", kind),
		logger.Int("index", index),
		logger.String("id", id),
		logger.Error(err),
	)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingID):
		return "missing_id"
	case errors.Is(err, ErrDuplicate):
		return "duplicate_id"
	case errors.Is(err, ErrAgeRange):
		return "age_range"
	case errors.Is(err, ErrNegativeAge):
		return "negative_age"
	default:
		return "malformed"
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
