//go:build !integration
// +build !integration

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validTestConfig returns a config that passes validation: delegated auth
// with the current directory standing in for the attribute directory.
func validTestConfig() *Config {
	config := NewConfig()
	config.Account = "admin@contoso.com"
	config.AttrDir = "."
	return config
}

// TestValidateConfiguration_AuthMethods tests the authentication method requirements
func TestValidateConfiguration_AuthMethods(t *testing.T) {
	pfxFile := filepath.Join(t.TempDir(), "app.pfx")
	if err := os.WriteFile(pfxFile, []byte("not a real pfx"), 0o600); err != nil {
		t.Fatalf("Failed to create temp pfx: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "No auth method - OK (interactive fallback at connect time)",
			mutate:    func(c *Config) { c.Account = "" },
			wantError: false,
		},
		{
			name:      "Account only - OK (password prompted later)",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name: "Secret with explicit tenant - OK",
			mutate: func(c *Config) {
				c.Account = ""
				c.Secret = "s3cret"
				c.TenantID = "contoso.onmicrosoft.com"
			},
			wantError: false,
		},
		{
			name: "Secret with default tenant - should error",
			mutate: func(c *Config) {
				c.Account = ""
				c.Secret = "s3cret"
			},
			wantError: true,
			errorMsg:  "app-only authentication requires a tenant",
		},
		{
			name: "PFX with explicit tenant - OK",
			mutate: func(c *Config) {
				c.Account = ""
				c.PfxPath = pfxFile
				c.TenantID = "72f988bf-86f1-41af-91ab-2d7cd011db47"
			},
			wantError: false,
		},
		{
			name: "PFX file missing - should error",
			mutate: func(c *Config) {
				c.Account = ""
				c.PfxPath = filepath.Join(t.TempDir(), "missing.pfx")
				c.TenantID = "72f988bf-86f1-41af-91ab-2d7cd011db47"
			},
			wantError: true,
			errorMsg:  "not found",
		},
		{
			name:      "Invalid account email - should error",
			mutate:    func(c *Config) { c.Account = "not-an-email" },
			wantError: true,
			errorMsg:  "invalid account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			tt.mutate(config)

			err := validateConfiguration(config)

			if tt.wantError {
				if err == nil {
					t.Errorf("validateConfiguration() expected error, got nil")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("validateConfiguration() error = %v, want error containing %q", err, tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("validateConfiguration() unexpected error = %v", err)
				}
			}
		})
	}
}

// TestValidateConfiguration_ResourceSelection tests the inclusion toggles
func TestValidateConfiguration_ResourceSelection(t *testing.T) {
	tests := []struct {
		name      string
		users     bool
		guests    bool
		wantError bool
	}{
		{"Both enabled", true, true, false},
		{"Users only", true, false, false},
		{"Guests only", false, true, false},
		{"Neither - should error", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			config.IncludeUsers = tt.users
			config.IncludeGuests = tt.guests

			err := validateConfiguration(config)
			if (err != nil) != tt.wantError {
				t.Errorf("validateConfiguration() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError && !strings.Contains(err.Error(), "nothing to export") {
				t.Errorf("validateConfiguration() error = %v, want error containing 'nothing to export'", err)
			}
		})
	}
}

// TestValidateConfiguration_LogSettings tests log level normalization and format checks
func TestValidateConfiguration_LogSettings(t *testing.T) {
	t.Run("Log level is normalized to upper case", func(t *testing.T) {
		config := validTestConfig()
		config.LogLevel = "debug"

		if err := validateConfiguration(config); err != nil {
			t.Fatalf("validateConfiguration() unexpected error = %v", err)
		}
		if config.LogLevel != "DEBUG" {
			t.Errorf("LogLevel = %q, want DEBUG", config.LogLevel)
		}
	})

	t.Run("Invalid log level", func(t *testing.T) {
		config := validTestConfig()
		config.LogLevel = "TRACE"

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for TRACE level, got nil")
		}
	})

	t.Run("Invalid log format", func(t *testing.T) {
		config := validTestConfig()
		config.LogFormat = "xml"

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for xml format, got nil")
		}
	})
}

// TestValidateConfiguration_NetworkSettings tests retry, rate limit, and proxy checks
func TestValidateConfiguration_NetworkSettings(t *testing.T) {
	t.Run("Negative maxretries", func(t *testing.T) {
		config := validTestConfig()
		config.MaxRetries = -1

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for negative maxretries, got nil")
		}
	})

	t.Run("Zero retrydelay", func(t *testing.T) {
		config := validTestConfig()
		config.RetryDelay = 0

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for zero retrydelay, got nil")
		}
	})

	t.Run("Negative ratelimit", func(t *testing.T) {
		config := validTestConfig()
		config.RateLimit = -1

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for negative ratelimit, got nil")
		}
	})

	t.Run("Invalid proxy URL", func(t *testing.T) {
		config := validTestConfig()
		config.ProxyURL = "ftp://proxy.example.com:21"

		if err := validateConfiguration(config); err == nil {
			t.Error("validateConfiguration() expected error for ftp proxy, got nil")
		}
	})

	t.Run("Valid proxy URL", func(t *testing.T) {
		config := validTestConfig()
		config.ProxyURL = "http://proxy.example.com:8080"

		if err := validateConfiguration(config); err != nil {
			t.Errorf("validateConfiguration() unexpected error = %v", err)
		}
	})
}

// TestNewConfig tests default configuration values
func TestNewConfig(t *testing.T) {
	config := NewConfig()

	if config.TenantID != defaultTenantID {
		t.Errorf("NewConfig() TenantID = %q, want %q", config.TenantID, defaultTenantID)
	}
	if config.ClientID != defaultClientID {
		t.Errorf("NewConfig() ClientID = %q, want %q", config.ClientID, defaultClientID)
	}
	if !config.IncludeUsers || !config.IncludeGuests {
		t.Error("NewConfig() should include users and guests by default")
	}
	if config.OutputDir != "." {
		t.Errorf("NewConfig() OutputDir = %q, want '.'", config.OutputDir)
	}
	if config.AttrDir != "config" {
		t.Errorf("NewConfig() AttrDir = %q, want 'config'", config.AttrDir)
	}
	if !config.FailFast {
		t.Error("NewConfig() FailFast should default to true")
	}
	if config.Strict {
		t.Error("NewConfig() Strict should default to false")
	}
	if config.LogFormat != "csv" {
		t.Errorf("NewConfig() LogFormat = %q, want csv", config.LogFormat)
	}
}
