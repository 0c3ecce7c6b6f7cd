package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphsites "github.com/microsoftgraph/msgraph-sdk-go/sites"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"

	"m365exporttool/internal/aad"
	"m365exporttool/internal/common/logger"
	"m365exporttool/internal/exo"
	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
	"m365exporttool/internal/spo"
	"m365exporttool/internal/teamsadmin"
)

// runGenerate fetches one sample object of the selected resource kind,
// flattens it, and writes the attribute table. The select list drives the
// row order; fields the sample object happened to omit are still listed,
// typed Unknown.
func runGenerate(ctx context.Context, config *Config, slogLogger *slog.Logger) error {
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

	var rec export.Record
	var order []string

	if config.Resource == "teamspolicy" {
		client, err := teamsadmin.NewClient(cred, &teamsadmin.ClientOptions{
			Endpoint: config.TeamsEndpoint,
			RPS:      config.RateLimit,
		}, slogLogger)
		if err != nil {
			return fmt.Errorf("%w: teams admin client initialization failed: %w", export.ErrClientInit, err)
		}
		rec, err = samplePolicy(ctx, client, config.PolicyName)
		if err != nil {
			return err
		}
	} else {
		conn, err := graph.Connect(ctx, cred, graph.Options{
			RPS:        config.RateLimit,
			MaxRetries: config.MaxRetries,
			RetryDelay: config.RetryDelay,
			ShowToken:  config.VerboseMode,
		}, slogLogger)
		if err != nil {
			return err
		}

		switch config.Resource {
		case "users":
			order = aad.UserSelectFields
			rec, err = sampleUser(ctx, conn, aad.UserSelectFields, "")
		case "mailboxes":
			order = exo.MailboxSelectFields
			rec, err = sampleUser(ctx, conn, exo.MailboxSelectFields, "mail ne null")
		case "groups":
			order = exo.GroupSelectFields
			rec, err = sampleGroup(ctx, conn)
		case "sites":
			order = spo.SiteSelectFields
			rec, err = sampleSite(ctx, conn)
		default:
			return fmt.Errorf("unknown resource %q", config.Resource)
		}
		if err != nil {
			return err
		}
	}

	specs := buildSpecs(rec, order)
	logger.LogInfo(slogLogger, "Sample object flattened",
		"resource", config.Resource, "attributes", len(specs))

	return export.WriteAttributeTable(config.OutFile, specs)
}

// buildSpecs turns a flattened sample record into attribute rows. Known
// select fields come first in select order; extra fields the service
// returned on top follow alphabetically. Every row starts Required=NO: the
// generated table is a catalogue, and the administrator flips the columns
// an export should carry to YES.
func buildSpecs(rec export.Record, order []string) []export.AttributeSpec {
	seen := make(map[string]bool, len(order))
	specs := make([]export.AttributeSpec, 0, len(rec))

	for _, name := range order {
		seen[name] = true
		typeName := "Unknown"
		if value, ok := rec[name]; ok {
			typeName = graph.FieldTypeName(value)
		}
		specs = append(specs, export.AttributeSpec{Name: name, Type: typeName})
	}

	extras := make([]string, 0, len(rec))
	for name := range rec {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		specs = append(specs, export.AttributeSpec{Name: name, Type: graph.FieldTypeName(rec[name])})
	}
	return specs
}

// sampleUser fetches one user object. A non-empty filter rides the advanced
// query path so "ne" comparisons work.
func sampleUser(ctx context.Context, conn *graph.Connection, selectFields []string, filter string) (export.Record, error) {
	query := &graphusers.UsersRequestBuilderGetQueryParameters{
		Select: selectFields,
		Top:    pointerTo(int32(1)),
	}
	requestConfig := &graphusers.UsersRequestBuilderGetRequestConfiguration{
		QueryParameters: query,
	}
	if filter != "" {
		query.Filter = &filter
		query.Count = pointerTo(true)
		headers := abstractions.NewRequestHeaders()
		headers.Add("ConsistencyLevel", "eventual")
		requestConfig.Headers = headers
	}

	var resp models.UserCollectionResponseable
	err := conn.Do(ctx, func() error {
		var callErr error
		resp, callErr = conn.Client.Users().Get(ctx, requestConfig)
		return callErr
	})
	if err != nil {
		return nil, graph.WrapFetchError(err, "sampling a user", conn.Logger)
	}
	users := resp.GetValue()
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: no user object returned to sample", export.ErrRemoteFetch)
	}
	return graph.RecordFromModel(users[0]), nil
}

func sampleGroup(ctx context.Context, conn *graph.Connection) (export.Record, error) {
	requestConfig := &groups.GroupsRequestBuilderGetRequestConfiguration{
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Select: exo.GroupSelectFields,
			Top:    pointerTo(int32(1)),
		},
	}

	var resp models.GroupCollectionResponseable
	err := conn.Do(ctx, func() error {
		var callErr error
		resp, callErr = conn.Client.Groups().Get(ctx, requestConfig)
		return callErr
	})
	if err != nil {
		return nil, graph.WrapFetchError(err, "sampling a group", conn.Logger)
	}
	grps := resp.GetValue()
	if len(grps) == 0 {
		return nil, fmt.Errorf("%w: no group object returned to sample", export.ErrRemoteFetch)
	}
	return graph.RecordFromModel(grps[0]), nil
}

// sampleSite fetches one site collection. The sites endpoint needs a search
// term to enumerate, so the match-all wildcard is used.
func sampleSite(ctx context.Context, conn *graph.Connection) (export.Record, error) {
	requestConfig := &graphsites.SitesRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphsites.SitesRequestBuilderGetQueryParameters{
			Select: spo.SiteSelectFields,
			Search: pointerTo("*"),
			Top:    pointerTo(int32(1)),
		},
	}

	var resp models.SiteCollectionResponseable
	err := conn.Do(ctx, func() error {
		var callErr error
		resp, callErr = conn.Client.Sites().Get(ctx, requestConfig)
		return callErr
	})
	if err != nil {
		return nil, graph.WrapFetchError(err, "sampling a site", conn.Logger)
	}
	sites := resp.GetValue()
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: no site object returned to sample", export.ErrRemoteFetch)
	}
	return graph.RecordFromModel(sites[0]), nil
}

func samplePolicy(ctx context.Context, client *teamsadmin.Client, policyName string) (export.Record, error) {
	policies, err := client.GetPolicies(ctx, policyName)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", export.ErrRemoteFetch, policyName, err)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("%w: no %s instance returned to sample", export.ErrRemoteFetch, policyName)
	}
	return export.Record(policies[0]), nil
}

func pointerTo[T any](v T) *T {
	return &v
}
