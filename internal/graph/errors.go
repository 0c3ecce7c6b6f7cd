package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/export"
)

// WrapFetchError classifies an error raised while streaming a collection.
// Sink-write and projection failures already carry their own sentinel and
// pass through untouched, as does context cancellation. Everything else is
// a remote fetch failure: it gets OData enrichment and the ErrRemoteFetch
// sentinel.
func WrapFetchError(err error, operation string, log *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, export.ErrSinkWrite) || errors.Is(err, export.ErrConfiguration) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", export.ErrRemoteFetch, operation, EnrichError(err, operation, log))
}

// EnrichError augments Graph API errors with OData error details,
// particularly for rate limiting scenarios. It detects throttling (429)
// and extracts the Retry-After header if available.
func EnrichError(err error, operation string, log *slog.Logger) error {
	if err == nil {
		return nil
	}

	// Check if this is an OData error from Microsoft Graph
	var odataErr *odataerrors.ODataError
	if !errors.As(err, &odataErr) {
		// Not an OData error, return as-is
		return err
	}

	errorInfo := odataErr.GetErrorEscaped()
	if errorInfo == nil {
		return err
	}

	code := ""
	message := ""
	if errorInfo.GetCode() != nil {
		code = *errorInfo.GetCode()
	}
	if errorInfo.GetMessage() != nil {
		message = *errorInfo.GetMessage()
	}

	// Handle rate limiting (429 TooManyRequests)
	if code == "TooManyRequests" || code == "activityLimitReached" {
		logger.LogWarn(log, "Graph API rate limit exceeded", "operation", operation, "code", code)

		// Try to extract Retry-After header
		retryAfter := ""
		if odataErr.GetResponseHeaders() != nil {
			if retryHeaders := odataErr.GetResponseHeaders().Get("Retry-After"); len(retryHeaders) > 0 {
				retryAfter = retryHeaders[0]
				logger.LogInfo(log, "Rate limit retry guidance available", "retryAfterSeconds", retryAfter)
			}
		}

		enrichedMsg := fmt.Sprintf("rate limit exceeded during %s", operation)
		if retryAfter != "" {
			enrichedMsg += fmt.Sprintf(" (retry after %s seconds)", retryAfter)
		}
		return fmt.Errorf("%s: %w", enrichedMsg, err)
	}

	// Handle other service errors (503, 504)
	if code == "ServiceUnavailable" || code == "GatewayTimeout" {
		logger.LogWarn(log, "Graph API service error", "operation", operation, "code", code, "message", message)
		return fmt.Errorf("service temporarily unavailable during %s (code: %s): %w", operation, code, err)
	}

	// For other OData errors, surface the code so callers see more than
	// the SDK's generic message
	if code != "" {
		logger.LogDebug(log, "Graph API error", "operation", operation, "code", code, "message", message)
		return fmt.Errorf("%s failed (code: %s): %s: %w", operation, code, message, err)
	}

	return err
}

// IsRetryableGraphError determines if a Graph API error is retryable.
// Returns true for network timeouts, Graph API throttling (429), and service
// unavailability (503, 504) errors. This is a Graph-specific wrapper around
// the generic retry logic.
func IsRetryableGraphError(err error) bool {
	if err == nil {
		return false
	}

	// Check for Azure SDK response errors (429, 503, 504)
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == 429 || respErr.StatusCode == 503 || respErr.StatusCode == 504 {
			return true
		}
	}

	// OData errors carry the HTTP status directly
	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		status := odataErr.ResponseStatusCode
		if status == 429 || status == 503 || status == 504 {
			return true
		}
	}

	// Fall back to generic network error checks
	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"try again",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
