package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
	"m365exporttool/internal/teams"
	"m365exporttool/internal/teamsadmin"
)

// runExport authenticates once and exports the selected Teams resource
// kinds. Users come from Microsoft Graph; the policy collections come from
// the Teams admin configuration API with the same credential.
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

	runner := &export.Runner{
		Logger:    slogLogger,
		Audit:     audit,
		OutputDir: config.OutputDir,
		AttrDir:   config.AttrDir,
		Strict:    config.Strict,
		FailFast:  config.FailFast,
	}

	resources := make([]export.Resource, 0, 4)

	if config.IncludeUsers {
		conn, err := graph.Connect(ctx, cred, graph.Options{
			RPS:        config.RateLimit,
			MaxRetries: config.MaxRetries,
			RetryDelay: config.RetryDelay,
			ShowToken:  config.VerboseMode,
		}, slogLogger)
		if err != nil {
			return err
		}
		resources = append(resources, teams.Users(conn))
	}

	if config.IncludeCalling || config.IncludeMeeting || config.IncludeMessaging {
		client, err := teamsadmin.NewClient(cred, &teamsadmin.ClientOptions{
			Endpoint: config.TeamsEndpoint,
			RPS:      config.RateLimit,
		}, slogLogger)
		if err != nil {
			return fmt.Errorf("%w: teams admin client initialization failed: %w", export.ErrClientInit, err)
		}
		if config.IncludeCalling {
			resources = append(resources, teams.CallingPolicies(client))
		}
		if config.IncludeMeeting {
			resources = append(resources, teams.MeetingPolicies(client))
		}
		if config.IncludeMessaging {
			resources = append(resources, teams.MessagingPolicies(client))
		}
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
