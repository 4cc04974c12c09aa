package main

import (
	"fmt"

	"github.com/jonathan/career-predictor/internal/observability"
	"github.com/jonathan/career-predictor/internal/prediction"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict [skill...]",
	Short: "Predict matching roles for a set of skills",
	Long:  "Trains on the active dataset and prints the top matching roles, their match percentage and the skills still missing for each.",
	RunE:  runPredict,
}

var predictSkills []string

func init() {
	predictCmd.Flags().StringSliceVarP(&predictSkills, "skills", "s", nil, "Comma-separated skills (may be repeated; positional arguments are appended)")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	skills := append(append([]string{}, predictSkills...), args...)
	if len(skills) == 0 {
		return fmt.Errorf("at least one skill is required (use --skills or positional arguments)")
	}

	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	trainer := newTrainingPipeline(cfg, log)
	if err := trainer.Bootstrap(ctx); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	outcome, err := prediction.NewService(trainer.Registry(), prediction.WithLogger(log)).Predict(ctx, skills)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	if outputFormat == outputText {
		observability.NewPrinter(cmd.OutOrStdout()).PrintPredictions(outcome)
		return nil
	}
	return writeJSON(cmd, outcome)
}
