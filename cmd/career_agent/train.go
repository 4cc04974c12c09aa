package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/career-predictor/internal/observability"
	"github.com/jonathan/career-predictor/internal/replacement"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model and report its status",
	Long: `Fits the random forest on the active dataset and prints the resulting model status as JSON.
With --dataset, the file is first validated and installed as the active dataset, exactly as an upload through the API would be.`,
	RunE: runTrain,
}

var trainDataset string

func init() {
	trainCmd.Flags().StringVarP(&trainDataset, "dataset", "d", "", "Path to a CSV file to install as the active dataset before training")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	trainer := newTrainingPipeline(cfg, log)

	if trainDataset != "" {
		f, err := os.Open(trainDataset)
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		defer f.Close()

		uploads := replacement.New(replacement.Options{
			ActivePath: cfg.Dataset.Path,
			Schema:     cfg.Dataset.Schema(),
			MinRows:    cfg.Dataset.MinRows,
			MaxBytes:   cfg.Dataset.MaxUploadBytes,
			Retrainer:  trainer,
			Logger:     log,
		})
		if _, err := uploads.Replace(ctx, filepath.Base(trainDataset), f); err != nil {
			return err
		}
	} else if err := trainer.Retrain(ctx); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if outputFormat == outputText {
		observability.NewPrinter(cmd.OutOrStdout()).PrintModelStatus(trainer.Status())
		return nil
	}
	return writeJSON(cmd, trainer.Status())
}

// writeJSON prints v indented to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
