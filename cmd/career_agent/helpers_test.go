package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/career-predictor/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret-with-at-least-32-bytes"

const sampleCSV = `skills,job_role
"python, sql, pandas",Data Analyst
"sql, excel, tableau",Data Analyst
"python, pandas, statistics",Data Analyst
"go, docker, kubernetes",Backend Engineer
"go, postgresql, docker",Backend Engineer
"java, spring, postgresql",Backend Engineer
`

// setupEnv points configuration at a temporary dataset and returns its path.
// The active dataset is only written when contents is non-empty.
func setupEnv(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "career_data.csv")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}

	t.Setenv("CAREER_DATASET_PATH", path)
	t.Setenv("CAREER_LOGGING_LEVEL", "error")
	t.Setenv("CAREER_AUTH_JWT_SECRET", testSecret)
	t.Setenv("CAREER_MODEL_NUM_TREES", "15")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	return path
}

// executeCommand runs the root command in-process and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

// resetFlags clears package-level flag values left by a previous run.
func resetFlags() {
	configPath = ""
	outputFormat = outputJSON
	servePort = 0
	trainDataset = ""
	predictSkills = nil
	validateDatasetInput = ""
	issueTokenUser = ""
	issueTokenRole = "user"
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

func configForTest(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}
