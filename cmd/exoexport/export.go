package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/exo"
	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// runExport authenticates, connects to Microsoft Graph, and exports the
// selected Exchange Online resource kinds.
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

	resources := make([]export.Resource, 0, 5)
	if config.IncludeActive {
		resources = append(resources, exo.ActiveMailboxes(conn))
	}
	if config.IncludeDisabled {
		resources = append(resources, exo.DisabledMailboxes(conn))
	}
	if config.IncludeSoftDeleted {
		resources = append(resources, exo.SoftDeletedMailboxes(conn))
	}
	if config.IncludeShared {
		resources = append(resources, exo.SharedMailboxes(conn))
	}
	if config.IncludeGroups {
		resources = append(resources, exo.UnifiedGroups(conn))
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
