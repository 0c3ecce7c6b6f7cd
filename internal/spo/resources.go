// Package spo defines the SharePoint Online resource kind: tenant site
// collections, enumerated per geo location of a multi-geo tenant.
package spo

import (
	"context"
	"fmt"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphsites "github.com/microsoftgraph/msgraph-sdk-go/sites"

	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// ServiceName prefixes every SharePoint Online output file.
const (
	ServiceName   = "SharePointOnline"
	SitesKind     = "Sites"
	SitesAttrFile = "SharePointSiteAttributes.csv"
)

const pageSize = 200

var SiteSelectFields = []string{
	"id", "createdDateTime", "description", "displayName", "isPersonalSite",
	"lastModifiedDateTime", "name", "siteCollection", "webUrl",
}

// SiteFetcher builds per-endpoint fetches for the multi-geo runner: every
// endpoint's sites are selected by the geo's data location code.
func SiteFetcher(conn *graph.Connection) func(export.Endpoint) export.FetchFunc {
	return func(ep export.Endpoint) export.FetchFunc {
		filter := fmt.Sprintf("siteCollection/dataLocationCode eq '%s'", graph.EscapeODataString(ep.GeoLocation))
		operation := fmt.Sprintf("listing sites in %s", ep.GeoLocation)
		return FetchSites(conn, operation, filter)
	}
}

// FetchSites streams site collections matching the given OData filter.
func FetchSites(conn *graph.Connection, operation, filter string) export.FetchFunc {
	return func(ctx context.Context, yield func(export.Record) error) error {
		// Filtering on siteCollection needs the advanced query path
		headers := abstractions.NewRequestHeaders()
		headers.Add("ConsistencyLevel", "eventual")

		requestConfig := &graphsites.SitesRequestBuilderGetRequestConfiguration{
			Headers: headers,
			QueryParameters: &graphsites.SitesRequestBuilderGetQueryParameters{
				Select: SiteSelectFields,
				Filter: &filter,
				Top:    pointerTo(int32(pageSize)),
				Count:  pointerTo(true),
			},
		}

		var resp models.SiteCollectionResponseable
		err := conn.Do(ctx, func() error {
			var callErr error
			resp, callErr = conn.Client.Sites().Get(ctx, requestConfig)
			return callErr
		})
		if err != nil {
			return graph.WrapFetchError(err, operation, conn.Logger)
		}

		err = graph.IteratePages[models.Siteable](ctx, conn, resp, models.CreateSiteCollectionResponseFromDiscriminatorValue, func(site models.Siteable) error {
			return yield(graph.RecordFromModel(site))
		})
		return graph.WrapFetchError(err, operation+" (paging)", conn.Logger)
	}
}

func pointerTo[T any](v T) *T {
	return &v
}
