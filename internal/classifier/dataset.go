package classifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one row of the cyber-law dataset.
type Record struct {
	Section    string
	Offense    string
	Punishment string
	CaseType   string
}

var requiredColumns = []string{"section", "offense", "punishment", "case type"}

// LoadDataset reads the CSV dataset at path.
func LoadDataset(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset parses dataset rows. Columns are matched by header name, case-insensitively.
func ReadDataset(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("dataset missing column %q", col)
		}
	}

	field := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := Record{
			Section:    field(row, "section"),
			Offense:    field(row, "offense"),
			Punishment: field(row, "punishment"),
			CaseType:   field(row, "case type"),
		}
		if rec.Section == "" {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("dataset has no usable rows")
	}
	return records, nil
}
