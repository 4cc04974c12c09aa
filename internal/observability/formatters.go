// Package observability provides formatted output utilities for human-readable CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/jonathan/career-predictor/internal/training"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for text mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintPredictions outputs ranked roles with match percentage and missing skills.
func (p *Printer) PrintPredictions(outcome *prediction.Outcome) {
	if outcome == nil {
		return
	}

	if len(outcome.Results) == 0 {
		msg := outcome.Message
		if msg == "" {
			msg = "No matching roles."
		}
		p.printBox("ROLE PREDICTIONS", msg)
		return
	}

	var sb strings.Builder
	for i, r := range outcome.Results {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, r.Role))
		sb.WriteString(fmt.Sprintf("    Match: %.1f%%\n", r.MatchPercentage))
		if len(r.MissingSkills) > 0 {
			sb.WriteString(fmt.Sprintf("    Missing: %s\n", strings.Join(r.MissingSkills, ", ")))
		} else {
			sb.WriteString("    Missing: none\n")
		}
		if i < len(outcome.Results)-1 {
			sb.WriteString("\n")
		}
	}
	if outcome.ModelVersion != "" {
		sb.WriteString(fmt.Sprintf("\nModel: %s\n", outcome.ModelVersion))
	}

	p.printBox("ROLE PREDICTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintModelStatus outputs the training state and, when trained, a model summary.
func (p *Printer) PrintModelStatus(status training.Status) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State:       %s\n", status.State))
	if status.ModelVersion != nil {
		sb.WriteString(fmt.Sprintf("Version:     %s\n", status.ModelVersion))
	}
	if status.TrainedAt != nil {
		sb.WriteString(fmt.Sprintf("Trained at:  %s\n", status.TrainedAt.Format("2006-01-02 15:04:05 MST")))
	}
	if status.ModelVersion != nil {
		sb.WriteString(fmt.Sprintf("Rows:        %d (%d dropped)\n", status.Rows, status.DroppedRows))
		sb.WriteString(fmt.Sprintf("Vocabulary:  %d skills\n", status.VocabularySize))
	}
	if status.LastError != "" {
		sb.WriteString(fmt.Sprintf("Last error:  %s\n", status.LastError))
	}

	if len(status.Roles) > 0 {
		sb.WriteString(fmt.Sprintf("\nRoles (%d):\n", len(status.Roles)))
		count := min(len(status.Roles), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", status.Roles[i]))
		}
		if len(status.Roles) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(status.Roles)-maxItemsToShow))
		}
	}

	p.printBox("MODEL STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRowIssues outputs the rows dropped while loading a dataset.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRowIssues(issues []dataset.RowIssue) {
	if len(issues) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO ROWS DROPPED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Dropped %d rows:\n\n", len(issues)))

	count := min(len(issues), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("⚠ line %d: %s\n", issues[i].Line, issues[i].Reason))
	}
	if len(issues) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more rows", len(issues)-maxItemsToShow))
	}

	p.printBox("DROPPED ROWS", strings.TrimSuffix(sb.String(), "\n"))
}
