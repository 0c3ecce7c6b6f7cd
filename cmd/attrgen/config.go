package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"m365exporttool/internal/common/validation"
	"m365exporttool/internal/teamsadmin"
)

// Well-known public client ID used for delegated sign-ins when no app
// registration is supplied.
const defaultClientID = "1b730954-1685-4b74-9bfd-dac224a7b894"

// defaultTenantID lets delegated sign-ins work without naming a tenant.
// App-only authentication always needs a real tenant.
const defaultTenantID = "organizations"

// Resource kinds attrgen knows how to sample.
var knownResources = []string{"users", "mailboxes", "groups", "sites", "teamspolicy"}

// Config holds all attrgen configuration.
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

	// Generation target
	Resource   string
	PolicyName string
	OutFile    string

	// TeamsEndpoint overrides the Teams admin configuration API endpoint.
	TeamsEndpoint string

	// Network configuration
	ProxyURL   string
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  float64

	// Runtime configuration
	VerboseMode bool
	LogLevel    string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TenantID:      defaultTenantID,
		ClientID:      defaultClientID,
		Resource:      "users",
		TeamsEndpoint: teamsadmin.DefaultEndpoint,
		MaxRetries:    3,
		RetryDelay:    2000 * time.Millisecond,
		RateLimit:     0, // Unlimited by default
		VerboseMode:   false,
		LogLevel:      "INFO",
	}
}

// parseAndConfigureFlags parses command-line flags and environment variables.
func parseAndConfigureFlags() *Config {
	config := NewConfig()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Attribute Table Generator - Part of m365exporttool suite\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Fetches one sample object of a resource kind and writes an attribute\n")
		fmt.Fprintf(flag.CommandLine.Output(), "table listing its fields and inferred types. Every row starts with\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Required=NO; flip the columns an export should carry to YES.\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All flags can be set via environment variables with ATTRGEN prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: ATTRGENTENANTID, ATTRGENSECRET\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Examples:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -account admin@contoso.com -resource users -out config/AzureADUserAttributes.csv\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -account admin@contoso.com -resource sites -out config/SharePointSiteAttributes.csv\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "  %s -account admin@contoso.com -resource teamspolicy -policy TeamsMeetingPolicy -out config/TeamsMeetingPolicyAttributes.csv\n", os.Args[0])
	}

	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	tenantID := flag.String("tenantid", defaultTenantID, "Entra ID tenant ID or domain (env: ATTRGENTENANTID)")
	clientID := flag.String("clientid", defaultClientID, "Application (client) ID (env: ATTRGENCLIENTID)")
	secret := flag.String("secret", "", "Client secret for app-only authentication (env: ATTRGENSECRET)")
	pfxPath := flag.String("pfx", "", "PFX certificate file for app-only authentication (env: ATTRGENPFX)")
	pfxPass := flag.String("pfxpass", "", "PFX certificate password (env: ATTRGENPFXPASS)")
	account := flag.String("account", "", "User principal name for delegated sign-in (env: ATTRGENACCOUNT)")
	password := flag.String("password", "", "Password for -account; omit to be prompted (env: ATTRGENPASSWORD)")
	resource := flag.String("resource", "users", "Resource kind to sample: users, mailboxes, groups, sites, teamspolicy")
	policyName := flag.String("policy", "", "Policy configuration name for -resource teamspolicy (for example TeamsMeetingPolicy)")
	outFile := flag.String("out", "", "Attribute table file to write (must not exist)")
	teamsEndpoint := flag.String("teamsendpoint", teamsadmin.DefaultEndpoint, "Teams admin configuration API endpoint (env: ATTRGENTEAMSENDPOINT)")
	proxyURL := flag.String("proxy", "", "HTTP/HTTPS proxy URL (env: ATTRGENPROXY)")
	maxRetries := flag.Int("maxretries", 3, "Maximum retry attempts (env: ATTRGENMAXRETRIES)")
	retryDelay := flag.Int("retrydelay", 2000, "Retry delay in milliseconds (env: ATTRGENRETRYDELAY)")
	rateLimit := flag.Float64("ratelimit", 0, "Maximum API requests per second (0 = unlimited) (env: ATTRGENRATELIMIT)")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	logLevel := flag.String("loglevel", "INFO", "Logging level: DEBUG, INFO, WARN, ERROR")

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
	config.Resource = *resource
	config.PolicyName = *policyName
	config.OutFile = *outFile
	config.TeamsEndpoint = *teamsEndpoint
	config.ProxyURL = *proxyURL
	config.MaxRetries = *maxRetries
	config.RetryDelay = time.Duration(*retryDelay) * time.Millisecond
	config.RateLimit = *rateLimit
	config.VerboseMode = *verbose
	config.LogLevel = *logLevel

	// Apply environment variables (if flags not set)
	applyEnvironmentVariables(config)

	return config
}

// applyEnvironmentVariables applies environment variables to config.
func applyEnvironmentVariables(config *Config) {
	if config.TenantID == defaultTenantID {
		if v := os.Getenv("ATTRGENTENANTID"); v != "" {
			config.TenantID = v
		}
	}
	if config.ClientID == defaultClientID {
		if v := os.Getenv("ATTRGENCLIENTID"); v != "" {
			config.ClientID = v
		}
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("ATTRGENSECRET")
	}
	if config.PfxPath == "" {
		config.PfxPath = os.Getenv("ATTRGENPFX")
	}
	if config.PfxPass == "" {
		config.PfxPass = os.Getenv("ATTRGENPFXPASS")
	}
	if config.Account == "" {
		config.Account = os.Getenv("ATTRGENACCOUNT")
	}
	if config.Password == "" {
		config.Password = os.Getenv("ATTRGENPASSWORD")
	}
	if config.TeamsEndpoint == teamsadmin.DefaultEndpoint {
		if v := os.Getenv("ATTRGENTEAMSENDPOINT"); v != "" {
			config.TeamsEndpoint = v
		}
	}
	if config.ProxyURL == "" {
		config.ProxyURL = os.Getenv("ATTRGENPROXY")
	}
	if rateLimitStr := os.Getenv("ATTRGENRATELIMIT"); rateLimitStr != "" && config.RateLimit == 0 {
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

	resource := strings.ToLower(config.Resource)
	valid := false
	for _, known := range knownResources {
		if resource == known {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown resource %q (must be one of: %s)", config.Resource, strings.Join(knownResources, ", "))
	}
	config.Resource = resource

	if config.Resource == "teamspolicy" && config.PolicyName == "" {
		return fmt.Errorf("-resource teamspolicy requires -policy (for example TeamsMeetingPolicy)")
	}
	if config.Resource != "teamspolicy" && config.PolicyName != "" {
		return fmt.Errorf("-policy only applies to -resource teamspolicy")
	}

	if config.OutFile == "" {
		return fmt.Errorf("output file is required (-out)")
	}
	if err := validation.ValidateDirPath(filepath.Dir(config.OutFile), "OutFile"); err != nil {
		return err
	}

	if config.TeamsEndpoint == "" {
		return fmt.Errorf("teams endpoint cannot be empty (-teamsendpoint)")
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

	return nil
}
