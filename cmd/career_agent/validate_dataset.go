package main

import (
	"fmt"

	"github.com/jonathan/career-predictor/internal/classifier"
	"github.com/jonathan/career-predictor/internal/dataset"
	"github.com/jonathan/career-predictor/internal/observability"
	"github.com/spf13/cobra"
)

var validateDatasetCmd = &cobra.Command{
	Use:   "validate-dataset",
	Short: "Check a CSV file against the dataset requirements",
	Long:  "Parses a dataset without installing it and reports valid rows, dropped rows and distinct roles. Fails when the file would be rejected as an upload or could not be trained on.",
	RunE:  runValidateDataset,
}

var validateDatasetInput string

func init() {
	validateDatasetCmd.Flags().StringVarP(&validateDatasetInput, "in", "i", "", "Path to CSV file (required)")
	if err := validateDatasetCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(validateDatasetCmd)
}

type datasetReport struct {
	Path        string             `json:"path"`
	Valid       bool               `json:"valid"`
	Rows        int                `json:"rows"`
	DroppedRows int                `json:"dropped_rows"`
	Roles       []string           `json:"roles"`
	Issues      []dataset.RowIssue `json:"issues,omitempty"`
	Problems    []string           `json:"problems,omitempty"`
}

func runValidateDataset(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ds, err := dataset.Load(validateDatasetInput, cfg.Dataset.Schema())
	if err != nil {
		return err
	}

	report := datasetReport{
		Path:        validateDatasetInput,
		Rows:        ds.Len(),
		DroppedRows: len(ds.Issues),
		Roles:       ds.DistinctRoles(),
		Issues:      ds.Issues,
	}
	if report.Rows < cfg.Dataset.MinRows {
		report.Problems = append(report.Problems, fmt.Sprintf("Dataset too small. Minimum %d rows required.", cfg.Dataset.MinRows))
	}
	if len(report.Roles) < classifier.MinClasses {
		report.Problems = append(report.Problems, fmt.Sprintf("at least %d distinct roles are required, found %d", classifier.MinClasses, len(report.Roles)))
	}
	report.Valid = len(report.Problems) == 0

	if outputFormat == outputText {
		printDatasetReport(cmd, report)
	} else if err := writeJSON(cmd, report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("dataset %s is not usable", validateDatasetInput)
	}
	return nil
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func printDatasetReport(cmd *cobra.Command, report datasetReport) {
	out := cmd.OutOrStdout()
	observability.NewPrinter(out).PrintRowIssues(report.Issues)
	fmt.Fprintf(out, "%s: %d valid rows, %d roles\n", report.Path, report.Rows, len(report.Roles))
	for _, problem := range report.Problems {
		fmt.Fprintf(out, "✗ %s\n", problem)
	}
}
