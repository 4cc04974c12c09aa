package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/server"
	"github.com/jonathan/career-predictor/internal/server/middleware"
	"github.com/spf13/cobra"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign an API bearer token",
	Long:  "Signs a JWT for the given user and role with the configured secret. Accounts live in an external system; this is for operators and local testing.",
	RunE:  runIssueToken,
}

var (
	issueTokenUser string
	issueTokenRole string
)

func init() {
	issueTokenCmd.Flags().StringVarP(&issueTokenUser, "user", "u", "", "User ID (UUID); a random one is generated when empty")
	issueTokenCmd.Flags().StringVarP(&issueTokenRole, "role", "r", middleware.RoleUser, "Role claim: user or admin")
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Auth.Validate(); err != nil {
		return err
	}

	userID := uuid.New()
	if issueTokenUser != "" {
		userID, err = uuid.Parse(issueTokenUser)
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", issueTokenUser, err)
		}
	}

	token, err := server.NewJWTService(cfg.Auth).GenerateToken(userID, issueTokenRole)
	if err != nil {
		return err
	}
	return writeJSON(cmd, map[string]any{
		"user_id":    userID,
		"role":       issueTokenRole,
		"token":      token,
		"expires_in": int(cfg.Auth.Expiration().Seconds()),
	})
}
