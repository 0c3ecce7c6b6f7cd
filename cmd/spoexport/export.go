package main

import (
	"context"
	"log/slog"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
	"m365exporttool/internal/spo"
)

// runExport authenticates, connects to Microsoft Graph, and exports the
// tenant's site collections geo by geo into one shared file.
func runExport(ctx context.Context, config *Config, audit logger.AuditLogger, slogLogger *slog.Logger) error {
	endpoints, err := export.LoadEndpoints(config.AdminCentersPath, false)
	if err != nil {
		return err
	}
	logger.LogInfo(slogLogger, "Admin-center table loaded",
		"path", config.AdminCentersPath, "endpoints", len(endpoints))

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

	results, err := runner.ExportMultiGeo(ctx, spo.ServiceName, spo.SitesKind, spo.SitesAttrFile,
		endpoints, spo.SiteFetcher(conn))
	for _, res := range results {
		if res.Err == nil {
			logger.LogDebug(slogLogger, "Geo endpoint done",
				"geo", res.Endpoint.GeoLocation, "rows", res.Rows)
		}
	}
	return err
}
