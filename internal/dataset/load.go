package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/career-predictor/internal/features"
)

// Load reads the dataset at path. A missing file yields ErrNotFound; a file
// without the required columns yields *SchemaError.
func Load(path string, schema Schema) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Parse(f, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads CSV from r. Rows missing a role or any non-empty skill are
// dropped and reported in Dataset.Issues instead of failing the load.
func Parse(r io.Reader, schema Schema) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// Bare quotes inside unquoted fields ("c"++") are kept as literal text.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Missing: schema.Columns()}
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	skillsCol, roleCol, err := schema.locate(header)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			issue, ok := recordIssue(err)
			if !ok {
				return nil, fmt.Errorf("failed to read record: %w", err)
			}
			ds.Issues = append(ds.Issues, issue)
			continue
		}
		line, _ := reader.FieldPos(0)

		if isBlank(record) {
			continue
		}
		if skillsCol >= len(record) || roleCol >= len(record) {
			ds.Issues = append(ds.Issues, RowIssue{Line: line, Reason: issueShortRecord})
			continue
		}

		row, issue := parseRow(line, record[skillsCol], record[roleCol])
		if issue != "" {
			ds.Issues = append(ds.Issues, RowIssue{Line: line, Reason: issue})
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// recordIssue converts a malformed-record error into a dropped row. Errors
// that are not about a single record's syntax are not recoverable.
func recordIssue(err error) (RowIssue, bool) {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return RowIssue{}, false
	}
	line := pe.StartLine
	if line == 0 {
		line = pe.Line
	}
	return RowIssue{Line: line, Reason: issueMalformedRecord + ": " + pe.Err.Error()}, true
}

func parseRow(line int, rawSkills, rawRole string) (Row, string) {
	role := strings.TrimSpace(rawRole)
	if role == "" {
		return Row{}, issueMissingRole
	}

	skills := SplitSkills(rawSkills)
	if len(skills) == 0 {
		return Row{}, issueMissingSkills
	}
	return Row{Line: line, Skills: skills, Role: role}, ""
}

// SplitSkills splits a comma-delimited skill list, normalizes each token and
// removes duplicates while keeping first-seen order.
func SplitSkills(raw string) []string {
	tokens := features.NormalizeSkills(strings.Split(raw, ","))
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
