// Package graph wraps the Microsoft Graph SDK with the plumbing the export
// tools share: credential resolution, rate limited and retried calls, page
// iteration, and flattening of SDK models into export records.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/common/ratelimit"
	"m365exporttool/internal/common/retry"
	"m365exporttool/internal/export"
)

// DefaultScope is the Graph scope used for application permissions.
const DefaultScope = "https://graph.microsoft.com/.default"

// Options tune how a Connection talks to Microsoft Graph.
type Options struct {
	// RPS throttles outbound API calls; 0 disables throttling.
	RPS float64
	// MaxRetries and RetryDelay drive the backoff wrapper around calls.
	MaxRetries int
	RetryDelay time.Duration
	// ShowToken prints acquired token details to stdout (verbose runs).
	ShowToken bool
}

// Connection bundles a Graph SDK client with the credential it was built
// from and the shared throttling/retry settings.
type Connection struct {
	Client  *msgraphsdk.GraphServiceClient
	Cred    azcore.TokenCredential
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger

	maxRetries int
	retryDelay time.Duration
}

// Connect initializes the Microsoft Graph SDK client for the given credential.
func Connect(ctx context.Context, cred azcore.TokenCredential, opts Options, log *slog.Logger) (*Connection, error) {
	if opts.ShowToken {
		token, err := cred.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{DefaultScope},
		})
		if err != nil {
			logger.LogWarn(log, "Could not retrieve token for display", "error", err)
		} else {
			PrintTokenInfo(token)
		}
	}

	// Scopes for Application Permissions usually are https://graph.microsoft.com/.default
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{DefaultScope})
	if err != nil {
		return nil, fmt.Errorf("%w: graph client initialization failed: %w", export.ErrClientInit, err)
	}

	lim := ratelimit.New(opts.RPS)
	if lim.Enabled() {
		logger.LogDebug(log, "Rate limiting enabled", "limit", lim.String())
	}

	return &Connection{
		Client:     client,
		Cred:       cred,
		Limiter:    lim,
		Logger:     log,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}, nil
}

// Do runs a Graph call under the connection's rate limiter with exponential
// backoff on throttling and transient network failures.
func (c *Connection) Do(ctx context.Context, operation func() error) error {
	return retry.RetryWithBackoffIf(ctx, c.maxRetries, c.retryDelay, IsRetryableGraphError, func() error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
		return operation()
	})
}
