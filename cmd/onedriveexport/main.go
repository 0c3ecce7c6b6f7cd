package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/common/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Setup signal handling for graceful shutdown
	ctx, cancel := setupSignalHandling()
	defer cancel()

	// Parse configuration
	config := parseAndConfigureFlags()

	// Handle version flag
	if config.ShowVersion {
		fmt.Printf("OneDrive Export Tool - Version %s\n", version.Get())
		fmt.Println("Part of m365exporttool suite")
		return nil
	}

	// Validate configuration
	if err := validateConfiguration(config); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Setup structured logger
	slogLogger := logger.SetupLogger(config.VerboseMode, config.LogLevel)
	logger.LogInfo(slogLogger, "OneDrive Export Tool started",
		"adminCenters", config.AdminCentersPath, "output", config.OutputDir)

	// Route SDK traffic through the proxy when one is configured
	applyProxy(config.ProxyURL, slogLogger)

	// Initialize audit logger
	auditLogger, err := logger.NewAuditLogger(config.LogFormat, "onedriveexport", "export")
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer auditLogger.Close()

	// Execute the export
	if err := runExport(ctx, config, auditLogger, slogLogger); err != nil {
		logger.LogError(slogLogger, "Export failed", "error", err)
		return err
	}

	logger.LogInfo(slogLogger, "Export completed successfully")
	return nil
}

// setupSignalHandling sets up graceful shutdown on SIGINT/SIGTERM.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

// applyProxy exports the proxy URL so the Azure SDK's default transport
// picks it up.
func applyProxy(proxyURL string, slogLogger *slog.Logger) {
	if proxyURL == "" {
		return
	}
	os.Setenv("HTTPS_PROXY", proxyURL)
	os.Setenv("HTTP_PROXY", proxyURL)
	logger.LogInfo(slogLogger, "Proxy configured", "proxy", proxyURL)
}
