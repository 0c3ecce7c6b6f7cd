package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"m365exporttool/internal/aad"
	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// runExport authenticates, connects to Microsoft Graph, and exports the
// selected Azure AD resource kinds.
func runExport(ctx context.Context, config *Config, audit logger.AuditLogger, slogLogger *slog.Logger) error {
	cred, err := graph.ResolveCredential(graph.CredentialConfig{
		TenantID: config.TenantID,
		ClientID: config.ClientID,
		Secret:   config.Secret,
		PfxPath:  config.PfxPath,
		PfxPass:  config.PfxPass,
		Account:  config.Account,
		Password: config.Password,
	}, graph.TerminalPrompter{}, slogLogger)
	if err != nil {
		return err
	}

	conn, err := graph.Connect(ctx, cred, graph.Options{
		RPS:        config.RateLimit,
		MaxRetries: config.MaxRetries,
		RetryDelay: config.RetryDelay,
		ShowToken:  config.VerboseMode,
	}, slogLogger)
	if err != nil {
		return err
	}

	runner := &export.Runner{
		Logger:    slogLogger,
		Audit:     audit,
		OutputDir: config.OutputDir,
		AttrDir:   config.AttrDir,
		Strict:    config.Strict,
		FailFast:  config.FailFast,
	}

	resources := make([]export.Resource, 0, 2)
	if config.IncludeUsers {
		resources = append(resources, aad.Users(conn))
	}
	if config.IncludeGuests {
		resources = append(resources, aad.Guests(conn))
	}

	var failures []error
	for _, res := range resources {
		if err := runner.ExportResource(ctx, res); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", res.Kind, err))
			if config.FailFast {
				break
			}
		}
	}
	return errors.Join(failures...)
}
