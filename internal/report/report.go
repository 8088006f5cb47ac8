// Package report renders match results and evaluation reports as tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	model "github.com/okian/trialmatch/internal/domain/model"
	"github.com/okian/trialmatch/internal/evaluation"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Write renders data in the given format.
func Write(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		return JSON(w, data)
	case FormatTable, "":
		return Table(w, data)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON writes data as indented JSON.
func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// Table writes data as one or more tables.
func Table(w io.Writer, data any) error {
	switch v := data.(type) {
	case evaluation.Report:
		return RenderReport(w, &v)
	case *evaluation.Report:
		return RenderReport(w, v)
	case model.MatchSet:
		return RenderMatchSet(w, v)
	case PatientResults:
		return RenderPatientResults(w, v)
	case []model.Patient:
		return RenderPatients(w, v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, data)
	}
}

// PatientResults is the ranked output for a single patient.
type PatientResults struct {
	PatientID string              `json:"patient_id"`
	Results   []model.MatchResult `json:"matches"`
}

// RenderPatientResults writes one row per ranked trial with every reason.
func RenderPatientResults(w io.Writer, pr PatientResults) error {
	if len(pr.Results) == 0 {
		_, err := fmt.Fprintf(w, "No trials matched %s.\n", pr.PatientID)
		return err
	}
	if _, err := fmt.Fprintf(w, "Matches for %s\n", pr.PatientID); err != nil {
		return err
	}
	rows := make([][]string, 0, len(pr.Results))
	for i, r := range pr.Results {
		rows = append(rows, []string{
			fmt.Sprint(i + 1), r.NCTID, fmt.Sprint(r.Score), truncate(r.Title, titleWidth), strings.Join(r.Reasons, "\n"),
		})
	}
	return render(w, []string{"#", "NCT ID", "Score", "Title", "Reasons"}, rows)
}

// RenderMatchSet writes the top match of every patient in id order.
func RenderMatchSet(w io.Writer, ms model.MatchSet) error {
	rows := make([][]string, 0, len(ms))
	for _, id := range ms.PatientIDs() {
		results := ms[id]
		if len(results) == 0 {
			rows = append(rows, []string{id, "0", "-", "-", "-"})
			continue
		}
		top := results[0]
		rows = append(rows, []string{
			id, fmt.Sprint(len(results)), top.NCTID, fmt.Sprint(top.Score), truncate(top.Condition, titleWidth),
		})
	}
	if err := render(w, []string{"Patient", "Matches", "Top trial", "Score", "Condition"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d patients, %d matches\n", len(ms), ms.TotalMatches())
	return err
}

// RenderPatients writes a summary row per patient.
func RenderPatients(w io.Writer, patients []model.Patient) error {
	rows := make([][]string, 0, len(patients))
	for i := range patients {
		p := &patients[i]
		rows = append(rows, []string{
			p.ID, fmt.Sprint(p.Age), string(p.Gender),
			truncate(strings.Join(p.Conditions, ", "), titleWidth),
			fmt.Sprint(len(p.Medications)),
		})
	}
	return render(w, []string{"Patient", "Age", "Gender", "Conditions", "Medications"}, rows)
}

const titleWidth = 48

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func render(w io.Writer, header []string, rows [][]string) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	table := tablewriter.NewTable(w)
	table.Header(cells...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func section(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
	return err
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100) //nolint:mnd // ratio to percent
}
