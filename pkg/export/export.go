// Package export writes cost center assignments to timestamped CSV,
// JSON and Excel files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

// Record is one exported assignment row
type Record struct {
	Username   string `json:"username"`
	CostCenter string `json:"cost_center"`
	Team       string `json:"team,omitempty"`
}

// SummaryRow is one per-cost-center summary line
type SummaryRow struct {
	CostCenter string `json:"cost_center"`
	Users      int    `json:"users"`
}

// Summarize counts assignments per cost center, sorted by name
func Summarize(records []Record) []SummaryRow {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.CostCenter]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]SummaryRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, SummaryRow{CostCenter: name, Users: counts[name]})
	}
	return rows
}

// Exporter writes assignment files into a target directory
type Exporter struct {
	Dir string

	// now is swappable for deterministic test filenames
	now func() time.Time
}

// NewExporter creates an exporter writing into dir
func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir, now: time.Now}
}

// Export writes the records in each requested format and returns the
// written file paths. Supported formats: csv, json, xlsx.
func (e *Exporter) Export(formats []string, records []Record) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	stamp := e.now().Format("20060102_150405")
	summary := Summarize(records)

	var paths []string
	for _, format := range formats {
		path := filepath.Join(e.Dir, fmt.Sprintf("cost_center_assignments_%s.%s", stamp, format))

		var err error
		switch format {
		case "csv":
			err = writeCSV(path, records)
		case "json":
			err = writeJSON(path, records, summary)
		case "xlsx":
			err = writeXLSX(path, records, summary)
		default:
			return paths, fmt.Errorf("unsupported export format %q: must be csv, json or xlsx", format)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func writeCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"username", "cost_center", "team"}); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Username, r.CostCenter, r.Team}); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, records []Record, summary []SummaryRow) error {
	payload := struct {
		Assignments []Record     `json:"assignments"`
		Summary     []SummaryRow `json:"summary"`
	}{Assignments: records, Summary: summary}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeXLSX(path string, records []Record, summary []SummaryRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const assignments = "Assignments"
	if err := f.SetSheetName("Sheet1", assignments); err != nil {
		return fmt.Errorf("preparing %s: %w", path, err)
	}

	header := []interface{}{"Username", "Cost Center", "Team"}
	if err := f.SetSheetRow(assignments, "A1", &header); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for i, r := range records {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{r.Username, r.CostCenter, r.Team}
		if err := f.SetSheetRow(assignments, cell, &row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("preparing %s: %w", path, err)
	}
	summaryHeader := []interface{}{"Cost Center", "Users"}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for i, s := range summary {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{s.CostCenter, s.Users}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
