// Package teamsadmin is a minimal client for the Teams admin configuration
// API. Teams policy collections (calling, meeting, messaging) never made it
// into Microsoft Graph, so they are fetched from the Skype.Policy
// configuration endpoint with a bearer token for the Teams admin resource.
package teamsadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/common/ratelimit"
)

const (
	// DefaultEndpoint serves tenant policy configurations.
	DefaultEndpoint = "https://api.interfaces.records.teams.microsoft.com"

	// Scope is the Skype and Teams Tenant Admin API resource.
	Scope = "48ac35b8-9aa8-4d74-927d-1f4a14a0b239/.default"

	moduleName    = "m365exporttool"
	moduleVersion = "v1.0.0"
)

// ClientOptions configure the policy client. The zero value targets the
// production endpoint without throttling.
type ClientOptions struct {
	// Endpoint overrides DefaultEndpoint (tests point this at a local server).
	Endpoint string
	// RPS throttles requests; 0 disables throttling.
	RPS float64
	// AllowInsecure permits bearer tokens over plain HTTP. Only tests
	// against a local server should set this.
	AllowInsecure bool
}

// Client fetches Teams policy configurations.
type Client struct {
	endpoint string
	pipeline runtime.Pipeline
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
}

// NewClient builds a policy client whose requests carry a bearer token for
// the Teams admin scope. The azcore pipeline supplies transport retries.
func NewClient(cred azcore.TokenCredential, opts *ClientOptions, log *slog.Logger) (*Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("teamsadmin: credential is required")
	}
	if opts == nil {
		opts = &ClientOptions{}
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	authPolicy := runtime.NewBearerTokenPolicy(cred, []string{Scope}, &policy.BearerTokenOptions{
		InsecureAllowCredentialWithHTTP: opts.AllowInsecure,
	})
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{authPolicy},
	}, &policy.ClientOptions{})

	return &Client{
		endpoint: endpoint,
		pipeline: pl,
		limiter:  ratelimit.New(opts.RPS),
		logger:   log,
	}, nil
}

// GetPolicies fetches the named policy configuration (for example
// "TeamsMeetingPolicy") and returns one record per policy instance.
func (c *Client) GetPolicies(ctx context.Context, policyName string) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := runtime.JoinPaths(c.endpoint, "Skype.Policy", "configurations", policyName)
	logger.LogDebug(c.logger, "Fetching Teams policy configuration", "policy", policyName, "url", url)

	req, err := runtime.NewRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", policyName, err)
	}
	req.Raw().Header.Set("Accept", "application/json")

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", policyName, err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	body, err := runtime.Payload(resp)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", policyName, err)
	}

	policies, err := decodePolicies(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", policyName, err)
	}
	logger.LogDebug(c.logger, "Teams policy configuration fetched", "policy", policyName, "count", len(policies))
	return policies, nil
}

// decodePolicies accepts both shapes the endpoint is known to produce:
// a bare JSON array of policies, or an object wrapping them in "value".
func decodePolicies(body []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected payload shape: %w", err)
	}
	return wrapped.Value, nil
}
