package config

import (
	"fmt"
	"time"
)

// DefaultExpirationHours is the token lifetime when none is configured.
const DefaultExpirationHours = 24

// AuthConfig holds configuration for JWT token issuance and validation.
type AuthConfig struct {
	Secret          string `mapstructure:"jwt_secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// Validate requires a secret and a lifetime of at least one hour.
func (c AuthConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set %s_AUTH_JWT_SECRET or JWT_SECRET)", EnvPrefix)
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("auth.expiration_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

// Expiration returns the token lifetime.
func (c AuthConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}
