// Package exo defines the Exchange Online resource kinds: mailboxes in
// their various lifecycle states and unified (Microsoft 365) groups.
//
// Mailboxes are user objects carrying a mail attribute. Lifecycle states
// map to OData filters where the service supports them; shared mailboxes
// need a client-side predicate on top because licensing is not filterable.
package exo

import (
	"context"
	"fmt"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	"github.com/microsoftgraph/msgraph-sdk-go/directory"
	graphgroups "github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"

	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
)

// ServiceName prefixes every Exchange Online output file.
const ServiceName = "ExchangeOnline"

const pageSize = 999

// Lifecycle filters. The "ne null" comparisons need the advanced query
// parameters (ConsistencyLevel: eventual plus $count), which
// newAdvancedConfig sets on every mailbox request.
const (
	activeMailboxFilter   = "accountEnabled eq true and mail ne null"
	disabledMailboxFilter = "accountEnabled eq false and mail ne null"
	unifiedGroupFilter    = "groupTypes/any(c:c eq 'Unified')"
)

var MailboxSelectFields = []string{
	"id", "accountEnabled", "assignedLicenses", "businessPhones", "city",
	"country", "createdDateTime", "department", "displayName", "givenName",
	"jobTitle", "mail", "mailNickname", "mobilePhone", "officeLocation",
	"onPremisesLastSyncDateTime", "onPremisesSyncEnabled", "otherMails",
	"postalCode", "proxyAddresses", "state", "streetAddress", "surname",
	"usageLocation", "userPrincipalName", "userType",
}

var softDeletedSelectFields = append(append([]string{}, MailboxSelectFields...), "deletedDateTime")

var GroupSelectFields = []string{
	"id", "classification", "createdDateTime", "description", "displayName",
	"expirationDateTime", "groupTypes", "isAssignableToRole", "mail",
	"mailEnabled", "mailNickname", "membershipRule",
	"membershipRuleProcessingState", "onPremisesLastSyncDateTime",
	"onPremisesSyncEnabled", "proxyAddresses", "renewedDateTime",
	"securityEnabled", "visibility",
}

// ActiveMailboxes exports enabled users that carry a mailbox.
func ActiveMailboxes(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "ActiveMailboxes",
		AttrFile: "ExchangeMailboxAttributes.csv",
		Fetch:    fetchMailboxes(conn, "listing active mailboxes", activeMailboxFilter, nil),
	}
}

// DisabledMailboxes exports sign-in-blocked users that carry a mailbox.
func DisabledMailboxes(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "DisabledMailboxes",
		AttrFile: "ExchangeMailboxAttributes.csv",
		Fetch:    fetchMailboxes(conn, "listing disabled mailboxes", disabledMailboxFilter, nil),
	}
}

// SharedMailboxes exports shared mailboxes: sign-in-blocked, mail-carrying
// users without a single license. Licensing is not an OData-filterable
// property, so the last condition is applied client-side.
func SharedMailboxes(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "SharedMailboxes",
		AttrFile: "ExchangeMailboxAttributes.csv",
		Fetch: fetchMailboxes(conn, "listing shared mailboxes", disabledMailboxFilter, func(user models.Userable) bool {
			return len(user.GetAssignedLicenses()) == 0
		}),
	}
}

// SoftDeletedMailboxes exports mail-carrying users sitting in the
// directory's deleted-items container (the 30-day recycle window).
func SoftDeletedMailboxes(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "SoftDeletedMailboxes",
		AttrFile: "ExchangeSoftDeletedMailboxAttributes.csv",
		Fetch:    fetchSoftDeleted(conn),
	}
}

// UnifiedGroups exports Microsoft 365 groups (the group type backing group
// mailboxes), filtered server-side on groupTypes.
func UnifiedGroups(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "UnifiedGroups",
		AttrFile: "ExchangeUnifiedGroupAttributes.csv",
		Fetch:    fetchUnifiedGroups(conn),
	}
}

// newAdvancedConfig marks a request for the advanced query path: without
// ConsistencyLevel eventual and $count the service rejects "ne" filters.
func newAdvancedConfig() *abstractions.RequestHeaders {
	headers := abstractions.NewRequestHeaders()
	headers.Add("ConsistencyLevel", "eventual")
	return headers
}

func fetchMailboxes(conn *graph.Connection, operation, filter string, keep func(models.Userable) bool) export.FetchFunc {
	return func(ctx context.Context, yield func(export.Record) error) error {
		requestConfig := &graphusers.UsersRequestBuilderGetRequestConfiguration{
			Headers: newAdvancedConfig(),
			QueryParameters: &graphusers.UsersRequestBuilderGetQueryParameters{
				Select: MailboxSelectFields,
				Filter: &filter,
				Top:    pointerTo(int32(pageSize)),
				Count:  pointerTo(true),
			},
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

func fetchSoftDeleted(conn *graph.Connection) export.FetchFunc {
	const operation = "listing soft-deleted mailboxes"
	return func(ctx context.Context, yield func(export.Record) error) error {
		requestConfig := &directory.DeletedItemsGraphUserRequestBuilderGetRequestConfiguration{
			QueryParameters: &directory.DeletedItemsGraphUserRequestBuilderGetQueryParameters{
				Select: softDeletedSelectFields,
				Top:    pointerTo(int32(pageSize)),
			},
		}

		var resp models.UserCollectionResponseable
		err := conn.Do(ctx, func() error {
			var callErr error
			resp, callErr = conn.Client.Directory().DeletedItems().GraphUser().Get(ctx, requestConfig)
			return callErr
		})
		if err != nil {
			return graph.WrapFetchError(err, operation, conn.Logger)
		}

		err = graph.IteratePages[models.Userable](ctx, conn, resp, models.CreateUserCollectionResponseFromDiscriminatorValue, func(user models.Userable) error {
			// Deleted items mix in users that never had a mailbox
			if user.GetMail() == nil {
				return nil
			}
			return yield(graph.RecordFromModel(user))
		})
		return graph.WrapFetchError(err, operation+" (paging)", conn.Logger)
	}
}

func fetchUnifiedGroups(conn *graph.Connection) export.FetchFunc {
	const operation = "listing unified groups"
	return func(ctx context.Context, yield func(export.Record) error) error {
		requestConfig := &graphgroups.GroupsRequestBuilderGetRequestConfiguration{
			QueryParameters: &graphgroups.GroupsRequestBuilderGetQueryParameters{
				Select: GroupSelectFields,
				Filter: pointerTo(unifiedGroupFilter),
				Top:    pointerTo(int32(pageSize)),
			},
		}

		var resp models.GroupCollectionResponseable
		err := conn.Do(ctx, func() error {
			var callErr error
			resp, callErr = conn.Client.Groups().Get(ctx, requestConfig)
			return callErr
		})
		if err != nil {
			return graph.WrapFetchError(err, operation, conn.Logger)
		}

		err = graph.IteratePages[models.Groupable](ctx, conn, resp, models.CreateGroupCollectionResponseFromDiscriminatorValue, func(group models.Groupable) error {
			return yield(graph.RecordFromModel(group))
		})
		return graph.WrapFetchError(err, operation+" (paging)", conn.Logger)
	}
}

func pointerTo[T any](v T) *T {
	return &v
}
