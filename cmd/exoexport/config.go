package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"m365exporttool/internal/common/validation"
)

// Well-known public client ID used for delegated sign-ins when no app
// registration is supplied.
const defaultClientID = "1b730954-1685-4b74-9bfd-dac224a7b894"

// defaultTenantID lets delegated sign-ins work without naming a tenant.
// App-only authentication always needs a real tenant.
const defaultTenantID = "organizations"

// Config holds all exoexport configuration.
type Config struct {
	// Core configuration
	ShowVersion bool

	// Authentication (first configured method wins: secret, PFX, account)
	TenantID string
	ClientID string
	Secret   string
	PfxPath  string
	PfxPass  string
	Account  string
	Password string

	// Resource selection
	IncludeActive      bool
	IncludeDisabled    bool
	IncludeSoftDeleted bool
	IncludeShared      bool
	IncludeGroups      bool

	// Output configuration
	OutputDir string
	AttrDir   string
	Strict    bool
	FailFast  bool

	// Network configuration
	ProxyURL   string
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  float64

	// Runtime configuration
	VerboseMode bool
	LogLevel    string
	LogFormat   string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TenantID:           defaultTenantID,
		ClientID:           defaultClientID,
		IncludeActive:      true,
		IncludeDisabled:    true,
		IncludeSoftDeleted: true,
		IncludeShared:      true,
		IncludeGroups:      true,
		OutputDir:          ".",
		AttrDir:            "config",
		Strict:             false,
		FailFast:           true,
		MaxRetries:         3,
		RetryDelay:         2000 * time.Millisecond,
		RateLimit:          0, // Unlimited by default
		VerboseMode:        false,
		LogLevel:           "INFO",
		LogFormat:          "csv",
	}
}

// parseAndConfigureFlags parses command-line flags and environment variables.
func parseAndConfigureFlags() *Config {
	config := NewConfig()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Exchange Online Export Tool - Part of m365exporttool suite\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Exports mailboxes (active, disabled, soft-deleted, shared) and unified\n")
		fmt.Fprintf(flag.CommandLine.Output(), "groups to timestamped CSV files. Columns come from the attribute tables\n")
		fmt.Fprintf(flag.CommandLine.Output(), "in the -attrdir directory.\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All flags can be set via environment variables with EXO prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: EXOTENANTID, EXOSECRET, EXOFILEPATH\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Examples:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -tenantid contoso.onmicrosoft.com -clientid <app-id> -secret <secret>\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -account admin@contoso.com -shared=false -groups=false\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -account admin@contoso.com -filepath /srv/exports -strict\n", os.Args[0])
	}

	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	tenantID := flag.String("tenantid", defaultTenantID, "Entra ID tenant ID or domain (env: EXOTENANTID)")
	clientID := flag.String("clientid", defaultClientID, "Application (client) ID (env: EXOCLIENTID)")
	secret := flag.String("secret", "", "Client secret for app-only authentication (env: EXOSECRET)")
	pfxPath := flag.String("pfx", "", "PFX certificate file for app-only authentication (env: EXOPFX)")
	pfxPass := flag.String("pfxpass", "", "PFX certificate password (env: EXOPFXPASS)")
	account := flag.String("account", "", "User principal name for delegated sign-in (env: EXOACCOUNT)")
	password := flag.String("password", "", "Password for -account; omit to be prompted (env: EXOPASSWORD)")
	includeActive := flag.Bool("active", true, "Export active mailboxes (env: EXOACTIVE)")
	includeDisabled := flag.Bool("disabled", true, "Export disabled mailboxes (env: EXODISABLED)")
	includeSoftDeleted := flag.Bool("softdeleted", true, "Export soft-deleted mailboxes (env: EXOSOFTDELETED)")
	includeShared := flag.Bool("shared", true, "Export shared mailboxes (env: EXOSHARED)")
	includeGroups := flag.Bool("groups", true, "Export unified groups (env: EXOGROUPS)")
	outputDir := flag.String("filepath", ".", "Directory for the export CSV files (env: EXOFILEPATH)")
	attrDir := flag.String("attrdir", "config", "Directory holding the attribute tables (env: EXOATTRDIR)")
	strict := flag.Bool("strict", false, "Fail when a requested attribute is missing from a record (env: EXOSTRICT)")
	failFast := flag.Bool("failfast", true, "Stop after the first failing resource (env: EXOFAILFAST)")
	proxyURL := flag.String("proxy", "", "HTTP/HTTPS proxy URL (env: EXOPROXY)")
	maxRetries := flag.Int("maxretries", 3, "Maximum retry attempts (env: EXOMAXRETRIES)")
	retryDelay := flag.Int("retrydelay", 2000, "Retry delay in milliseconds (env: EXORETRYDELAY)")
	rateLimit := flag.Float64("ratelimit", 0, "Maximum API requests per second (0 = unlimited) (env: EXORATELIMIT)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	logLevel := flag.String("loglevel", "INFO", "Logging level: DEBUG, INFO, WARN, ERROR")
	logFormat := flag.String("logformat", "csv", "Audit log file format: csv, json (env: EXOLOGFORMAT)")

	flag.Parse()

	// Apply flags to config
	config.ShowVersion = *showVersion
	config.TenantID = *tenantID
	config.ClientID = *clientID
	config.Secret = *secret
	config.PfxPath = *pfxPath
	config.PfxPass = *pfxPass
	config.Account = *account
	config.Password = *password
	config.IncludeActive = *includeActive
	config.IncludeDisabled = *includeDisabled
	config.IncludeSoftDeleted = *includeSoftDeleted
	config.IncludeShared = *includeShared
	config.IncludeGroups = *includeGroups
	config.OutputDir = *outputDir
	config.AttrDir = *attrDir
	config.Strict = *strict
	config.FailFast = *failFast
	config.ProxyURL = *proxyURL
	config.MaxRetries = *maxRetries
	config.RetryDelay = time.Duration(*retryDelay) * time.Millisecond
	config.RateLimit = *rateLimit
	config.VerboseMode = *verbose
	config.LogLevel = *logLevel
	config.LogFormat = *logFormat

	// Apply environment variables (if flags not set)
	applyEnvironmentVariables(config)

	return config
}

// applyEnvironmentVariables applies environment variables to config.
func applyEnvironmentVariables(config *Config) {
	if config.TenantID == defaultTenantID {
		if v := os.Getenv("EXOTENANTID"); v != "" {
			config.TenantID = v
		}
	}
	if config.ClientID == defaultClientID {
		if v := os.Getenv("EXOCLIENTID"); v != "" {
			config.ClientID = v
		}
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("EXOSECRET")
	}
	if config.PfxPath == "" {
		config.PfxPath = os.Getenv("EXOPFX")
	}
	if config.PfxPass == "" {
		config.PfxPass = os.Getenv("EXOPFXPASS")
	}
	if config.Account == "" {
		config.Account = os.Getenv("EXOACCOUNT")
	}
	if config.Password == "" {
		config.Password = os.Getenv("EXOPASSWORD")
	}
	if config.OutputDir == "." {
		if v := os.Getenv("EXOFILEPATH"); v != "" {
			config.OutputDir = v
		}
	}
	if config.AttrDir == "config" {
		if v := os.Getenv("EXOATTRDIR"); v != "" {
			config.AttrDir = v
		}
	}
	if config.ProxyURL == "" {
		config.ProxyURL = os.Getenv("EXOPROXY")
	}
	if rateLimitStr := os.Getenv("EXORATELIMIT"); rateLimitStr != "" && config.RateLimit == 0 {
		if rateLimit, err := strconv.ParseFloat(rateLimitStr, 64); err == nil {
			config.RateLimit = rateLimit
		}
	}
}

// validateConfiguration validates the configuration.
func validateConfiguration(config *Config) error {
	// App-only authentication cannot use the multi-tenant placeholder
	if (config.Secret != "" || config.PfxPath != "") && config.TenantID == defaultTenantID {
		return fmt.Errorf("app-only authentication requires a tenant (-tenantid)")
	}

	if config.TenantID == "" {
		return fmt.Errorf("tenant ID cannot be empty (-tenantid)")
	}
	if err := validation.ValidateGUID(config.ClientID, "ClientID"); err != nil {
		return fmt.Errorf("invalid client ID: %w", err)
	}

	if config.PfxPath != "" {
		if err := validation.ValidateFilePath(config.PfxPath, "PfxPath"); err != nil {
			return err
		}
	}
	if config.Account != "" {
		if err := validation.ValidateEmail(config.Account); err != nil {
			return fmt.Errorf("invalid account: %w", err)
		}
	}

	if err := validation.ValidateDirPath(config.OutputDir, "OutputDir"); err != nil {
		return err
	}
	if err := validation.ValidateDirPath(config.AttrDir, "AttrDir"); err != nil {
		return err
	}

	// Validate proxy URL (if provided)
	if err := validation.ValidateProxyURL(config.ProxyURL); err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("maxretries cannot be negative (got %d)", config.MaxRetries)
	}
	if config.RetryDelay <= 0 {
		return fmt.Errorf("retrydelay must be positive (got %s)", config.RetryDelay)
	}
	if config.RateLimit < 0 {
		return fmt.Errorf("ratelimit cannot be negative (got %g)", config.RateLimit)
	}

	config.LogLevel = strings.ToUpper(config.LogLevel)
	switch config.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid log level: %s (must be DEBUG, INFO, WARN, or ERROR)", config.LogLevel)
	}
	switch config.LogFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be csv or json)", config.LogFormat)
	}

	if !config.IncludeActive && !config.IncludeDisabled && !config.IncludeSoftDeleted &&
		!config.IncludeShared && !config.IncludeGroups {
		return fmt.Errorf("nothing to export: all resource kinds are disabled")
	}

	return nil
}
