// Package main provides the entry point for the career prediction API server
// and its administrative commands.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/career-predictor/internal/config"
	"github.com/jonathan/career-predictor/internal/logger"
	"github.com/jonathan/career-predictor/internal/training"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath   string
	outputFormat string
)

const (
	outputJSON = "json"
	outputText = "text"
)

var rootCmd = &cobra.Command{
	Use:   "career_agent",
	Short: "Career role prediction service",
	Long:  "Career Agent trains a random forest on skill/role data and recommends the roles that best match a set of skills, via REST API or the command line.",
	// Errors are reported once by main.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if outputFormat != outputJSON && outputFormat != outputText {
			return fmt.Errorf("invalid --output %q (expected json or text)", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: career_agent.yaml in . or ./configs)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", outputJSON, "Output format: json or text")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime loads configuration and builds the logger shared by every command.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func newTrainingPipeline(cfg *config.Config, log *zap.Logger) *training.Pipeline {
	return training.NewPipeline(training.NewRegistry(), training.Options{
		DatasetPath: cfg.Dataset.Path,
		Schema:      cfg.Dataset.Schema(),
		Forest:      cfg.Model.ForestOptions(),
		Logger:      log,
	})
}
