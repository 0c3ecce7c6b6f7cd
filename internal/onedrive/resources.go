// Package onedrive defines the OneDrive resource kind: personal site
// collections (the sites backing each user's OneDrive), enumerated per geo
// location under that geo's personal root site.
package onedrive

import (
	"context"
	"fmt"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphsites "github.com/microsoftgraph/msgraph-sdk-go/sites"

	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// ServiceName prefixes every OneDrive output file.
const (
	ServiceName           = "OneDrive"
	PersonalSitesKind     = "PersonalSites"
	PersonalSitesAttrFile = "OneDriveSiteAttributes.csv"
)

const pageSize = 200

var siteSelectFields = []string{
	"id", "createdDateTime", "displayName", "isPersonalSite",
	"lastModifiedDateTime", "name", "siteCollection", "webUrl",
}

// PersonalSiteFetcher builds per-endpoint fetches for the multi-geo runner.
// Each geo's personal sites live under that geo's personal root site URL
// (the -my.sharepoint.com host), so the endpoint table must carry it.
func PersonalSiteFetcher(conn *graph.Connection) func(export.Endpoint) export.FetchFunc {
	return func(ep export.Endpoint) export.FetchFunc {
		filter := fmt.Sprintf("isPersonalSite eq true and startswith(webUrl,'%s')",
			graph.EscapeODataString(ep.PersonalRootSiteURL))
		operation := fmt.Sprintf("listing personal sites in %s", ep.GeoLocation)
		return fetchPersonalSites(conn, operation, filter)
	}
}

func fetchPersonalSites(conn *graph.Connection, operation, filter string) export.FetchFunc {
	return func(ctx context.Context, yield func(export.Record) error) error {
		headers := abstractions.NewRequestHeaders()
		headers.Add("ConsistencyLevel", "eventual")

		requestConfig := &graphsites.SitesRequestBuilderGetRequestConfiguration{
			Headers: headers,
			QueryParameters: &graphsites.SitesRequestBuilderGetQueryParameters{
				Select: siteSelectFields,
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
