package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"supmatch/internal/domain"
)

// LoadRecords reads the supervisor source spreadsheet export. Expected
// CSV columns: name, department, contact, interests, publications; the
// interests and publications cells hold ";"-separated texts. Rows are
// passed through untrimmed, the pipeline owns normalization.
func LoadRecords(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("records file %s is empty", path)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("records file %s has no name column", path)
	}

	records := make([]domain.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, domain.RawRecord{
			Name:         cell(row, cols, "name"),
			Department:   cell(row, cols, "department"),
			Contact:      cell(row, cols, "contact"),
			Interests:    cell(row, cols, "interests"),
			Publications: cell(row, cols, "publications"),
		})
	}
	return records, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
