// Package dataset loads and validates the skills-to-role training table.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned by Load when the dataset file does not exist.
// Callers treat it as "no data yet" rather than a failure.
var ErrNotFound = errors.New("dataset file not found")

// Schema names the two required columns. Header matching is case-insensitive,
// so files using the legacy "Skills"/"Job_Role" header load unchanged.
type Schema struct {
	SkillsColumn string
	RoleColumn   string
}

// CanonicalSchema is the column contract for both the active dataset and uploads.
var CanonicalSchema = Schema{SkillsColumn: "skills", RoleColumn: "job_role"}

// Columns returns the required column names.
func (s Schema) Columns() []string {
	return []string{s.SkillsColumn, s.RoleColumn}
}

// locate returns the positions of the skills and role columns in header.
func (s Schema) locate(header []string) (skills, role int, err error) {
	skills, role = -1, -1
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case skills < 0 && strings.EqualFold(name, s.SkillsColumn):
			skills = i
		case role < 0 && strings.EqualFold(name, s.RoleColumn):
			role = i
		}
	}

	var missing []string
	if skills < 0 {
		missing = append(missing, s.SkillsColumn)
	}
	if role < 0 {
		missing = append(missing, s.RoleColumn)
	}
	if len(missing) > 0 {
		return -1, -1, &SchemaError{Missing: missing, Header: header}
	}
	return skills, role, nil
}

// SchemaError indicates the file lacks a required column.
type SchemaError struct {
	Missing []string
	Header  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset is missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Row is one training example. Skills are normalized and unique within the row.
type Row struct {
	Line   int      `json:"line"`
	Skills []string `json:"skills"`
	Role   string   `json:"role"`
}

// RowIssue records a row dropped during load.
type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

const (
	issueMissingRole     = "missing role"
	issueMissingSkills   = "no skills after normalization"
	issueShortRecord     = "record has fewer fields than the header"
	issueMalformedRecord = "malformed CSV record"
)

// Dataset is the validated, ordered sequence of rows.
type Dataset struct {
	Rows   []Row      `json:"rows"`
	Issues []RowIssue `json:"issues,omitempty"`
}

// Len returns the number of valid rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// SkillLists returns each row's skills in dataset order.
func (d *Dataset) SkillLists() [][]string {
	out := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Skills
	}
	return out
}

// Roles returns each row's role in dataset order.
func (d *Dataset) Roles() []string {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Role
	}
	return out
}

// DistinctRoles returns the sorted set of roles.
func (d *Dataset) DistinctRoles() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Rows {
		seen[r.Role] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for role := range seen {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}
