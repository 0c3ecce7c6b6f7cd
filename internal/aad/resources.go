// Package aad defines the Azure AD resource kinds: member users and guest
// users of the directory.
package aad

import (
	"context"
	"fmt"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"

	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// ServiceName prefixes every Azure AD output file.
const ServiceName = "AzureAD"

// pageSize is the maximum the users endpoint allows per page.
const pageSize = 999

// UserSelectFields mirror the columns of the shipped attribute tables.
// Selecting them explicitly matters because the users endpoint returns only
// a minimal field set by default.
var UserSelectFields = []string{
	"id", "accountEnabled", "ageGroup", "businessPhones", "city", "companyName",
	"country", "createdDateTime", "creationType", "department", "displayName",
	"employeeId", "externalUserState", "externalUserStateChangeDateTime",
	"givenName", "jobTitle", "mail", "mailNickname", "mobilePhone",
	"officeLocation", "onPremisesDistinguishedName", "onPremisesDomainName",
	"onPremisesImmutableId", "onPremisesLastSyncDateTime",
	"onPremisesSamAccountName", "onPremisesSecurityIdentifier",
	"onPremisesSyncEnabled", "onPremisesUserPrincipalName", "otherMails",
	"postalCode", "preferredLanguage", "proxyAddresses", "state",
	"streetAddress", "surname", "usageLocation", "userPrincipalName", "userType",
}

// Users exports every user object in the directory.
func Users(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "Users",
		AttrFile: "AzureADUserAttributes.csv",
		Fetch:    FetchUsers(conn, "listing users", "", nil),
	}
}

// Guests exports only guest users, filtered server-side on userType.
func Guests(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "GuestUsers",
		AttrFile: "AzureADGuestUserAttributes.csv",
		Fetch:    FetchUsers(conn, "listing guest users", "userType eq 'Guest'", nil),
	}
}

// FetchUsers streams directory users page by page. An empty filter lists
// everyone; keep (optional) drops records client-side for predicates OData
// cannot express.
func FetchUsers(conn *graph.Connection, operation, filter string, keep func(models.Userable) bool) export.FetchFunc {
	return func(ctx context.Context, yield func(export.Record) error) error {
		query := &graphusers.UsersRequestBuilderGetQueryParameters{
			Select: UserSelectFields,
			Top:    pointerTo(int32(pageSize)),
		}
		if filter != "" {
			query.Filter = &filter
		}
		requestConfig := &graphusers.UsersRequestBuilderGetRequestConfiguration{
			QueryParameters: query,
		}

		var resp models.UserCollectionResponseable
		err := conn.Do(ctx, func() error {
			var callErr error
			resp, callErr = conn.Client.Users().Get(ctx, requestConfig)
			return callErr
		})
		if err != nil {
			return graph.WrapFetchError(err, operation, conn.Logger)
		}

		err = graph.IteratePages[models.Userable](ctx, conn, resp, models.CreateUserCollectionResponseFromDiscriminatorValue, func(user models.Userable) error {
			if keep != nil && !keep(user) {
				return nil
			}
			return yield(graph.RecordFromModel(user))
		})
		return graph.WrapFetchError(err, fmt.Sprintf("%s (paging)", operation), conn.Logger)
	}
}

func pointerTo[T any](v T) *T {
	return &v
}
