package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Collaborator modes.
const (
	CollaboratorsLocal = "local"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Registry RegistryConfig    `yaml:"registry"`
	Rewards  RewardsConfig     `yaml:"rewards"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	return c.Rewards.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RegistryConfig holds the provenance-registry-facing settings stamped onto
// every registration, and the collaborator wiring mode.
type RegistryConfig struct {
	ChainID         string `yaml:"chain_id"`
	Contract        string `yaml:"contract"`
	LicenseTemplate string `yaml:"license_template"`
	LicenseTermsID  string `yaml:"license_terms_id"`
	Collaborators   string `yaml:"collaborators"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	if c.Collaborators == "" {
		c.Collaborators = CollaboratorsLocal
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ChainID, validation.Required),
		validation.Field(&c.Contract, validation.Required),
		validation.Field(&c.LicenseTemplate, validation.Required),
		validation.Field(&c.LicenseTermsID, validation.Required),
		validation.Field(&c.Collaborators, validation.Required, validation.In(CollaboratorsLocal)),
	)
}

// RewardsConfig holds the reward ledger configuration. PerEventReward must
// stay within [MinReward, MaxReward]; the bound itself is fixed for the
// process lifetime.
type RewardsConfig struct {
	PerEventReward     uint64 `yaml:"per_event_reward"`
	MinReward          uint64 `yaml:"min_reward"`
	MaxReward          uint64 `yaml:"max_reward"`
	MaxSupply          uint64 `yaml:"max_supply"`
	FundingAccount     string `yaml:"funding_account"`
	OwnerAccount       string `yaml:"owner_account"`
	DistributorAccount string `yaml:"distributor_account"`
}

// Validate validates the rewards configuration.
func (c *RewardsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MinReward, validation.Required),
		validation.Field(&c.MaxReward, validation.Required),
		validation.Field(&c.PerEventReward, validation.Required),
		validation.Field(&c.MaxSupply, validation.Required),
		validation.Field(&c.FundingAccount, validation.Required),
		validation.Field(&c.OwnerAccount, validation.Required),
		validation.Field(&c.DistributorAccount, validation.Required),
	); err != nil {
		return err
	}
	if c.MinReward > c.MaxReward {
		return fmt.Errorf("rewards: min_reward %d exceeds max_reward %d", c.MinReward, c.MaxReward)
	}
	if c.PerEventReward < c.MinReward || c.PerEventReward > c.MaxReward {
		return fmt.Errorf("rewards: per_event_reward %d outside [%d, %d]", c.PerEventReward, c.MinReward, c.MaxReward)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./othala.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Registry: RegistryConfig{
			ChainID:         "othala-local",
			Contract:        "works-v1",
			LicenseTemplate: "pil",
			LicenseTermsID:  "1",
			Collaborators:   CollaboratorsLocal,
		},
		Rewards: RewardsConfig{
			PerEventReward:     10,
			MinReward:          1,
			MaxReward:          1000,
			MaxSupply:          1_000_000_000,
			FundingAccount:     "treasury",
			OwnerAccount:       "owner",
			DistributorAccount: "distributor",
		},
	}
}
