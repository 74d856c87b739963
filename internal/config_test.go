package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestRegistryConfig_EmptyCollaboratorsDefaultsLocal(t *testing.T) {
	cfg := NewDefaultConfig().Registry
	cfg.Collaborators = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty collaborators should default to local: %v", err)
	}
	if cfg.Collaborators != CollaboratorsLocal {
		t.Errorf("collaborators = %q, want %q", cfg.Collaborators, CollaboratorsLocal)
	}
}

func TestRegistryConfig_RequiredFields(t *testing.T) {
	cfg := NewDefaultConfig().Registry
	cfg.ChainID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing chain_id should fail validation")
	}
}

func TestRewardsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RewardsConfig)
		wantErr string
	}{
		{"defaults valid", func(c *RewardsConfig) {}, ""},
		{"min above max", func(c *RewardsConfig) { c.MinReward = 500; c.MaxReward = 100; c.PerEventReward = 100 }, "exceeds max_reward"},
		{"per-event below min", func(c *RewardsConfig) { c.MinReward = 5; c.PerEventReward = 4 }, "outside"},
		{"per-event above max", func(c *RewardsConfig) { c.PerEventReward = 5000 }, "outside"},
		{"missing funding account", func(c *RewardsConfig) { c.FundingAccount = "" }, "FundingAccount"},
		{"missing owner account", func(c *RewardsConfig) { c.OwnerAccount = "" }, "OwnerAccount"},
		{"zero max supply", func(c *RewardsConfig) { c.MaxSupply = 0 }, "MaxSupply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Rewards
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.Rewards.PerEventReward = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch rewards error")
	}
}
