// Package teams defines the Teams resource kinds: Teams-enabled users from
// Microsoft Graph, and the tenant's calling, meeting, and messaging policy
// collections from the Teams admin configuration API.
package teams

import (
	"context"
	"fmt"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	graphusers "github.com/microsoftgraph/msgraph-sdk-go/users"

	"m365exporttool/internal/export"
	"m365exporttool/internal/graph"
	"m365exporttool/internal/teamsadmin"
)

// ServiceName prefixes every Teams output file.
const ServiceName = "Teams"

const pageSize = 999

// teamsServicePlan is the service name stamped on a user's assigned plans
// when Teams is part of their license.
const teamsServicePlan = "TeamspaceAPI"

var userSelectFields = []string{
	"id", "accountEnabled", "assignedPlans", "city", "country",
	"createdDateTime", "department", "displayName", "givenName", "jobTitle",
	"mail", "mailNickname", "officeLocation", "surname", "usageLocation",
	"userPrincipalName", "userType",
}

// Users exports users whose license includes an enabled Teams service plan.
// Plan state is not OData-filterable, so enabled users are listed and the
// plan check runs client-side.
func Users(conn *graph.Connection) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     "Users",
		AttrFile: "TeamsUserAttributes.csv",
		Fetch:    fetchTeamsUsers(conn),
	}
}

// CallingPolicies exports the tenant's Teams calling policies.
func CallingPolicies(client *teamsadmin.Client) export.Resource {
	return policyResource(client, "CallingPolicies", "TeamsCallingPolicy", "TeamsCallingPolicyAttributes.csv")
}

// MeetingPolicies exports the tenant's Teams meeting policies.
func MeetingPolicies(client *teamsadmin.Client) export.Resource {
	return policyResource(client, "MeetingPolicies", "TeamsMeetingPolicy", "TeamsMeetingPolicyAttributes.csv")
}

// MessagingPolicies exports the tenant's Teams messaging policies.
func MessagingPolicies(client *teamsadmin.Client) export.Resource {
	return policyResource(client, "MessagingPolicies", "TeamsMessagingPolicy", "TeamsMessagingPolicyAttributes.csv")
}

func fetchTeamsUsers(conn *graph.Connection) export.FetchFunc {
	const operation = "listing Teams users"
	return func(ctx context.Context, yield func(export.Record) error) error {
		requestConfig := &graphusers.UsersRequestBuilderGetRequestConfiguration{
			QueryParameters: &graphusers.UsersRequestBuilderGetQueryParameters{
				Select: userSelectFields,
				Filter: pointerTo("accountEnabled eq true"),
				Top:    pointerTo(int32(pageSize)),
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
			if !hasTeamsPlan(user) {
				return nil
			}
			return yield(graph.RecordFromModel(user))
		})
		return graph.WrapFetchError(err, operation+" (paging)", conn.Logger)
	}
}

// hasTeamsPlan reports whether any of the user's assigned plans is an
// enabled Teams service plan.
func hasTeamsPlan(user models.Userable) bool {
	for _, plan := range user.GetAssignedPlans() {
		service := plan.GetService()
		status := plan.GetCapabilityStatus()
		if service != nil && *service == teamsServicePlan && status != nil && *status == "Enabled" {
			return true
		}
	}
	return false
}

func policyResource(client *teamsadmin.Client, kind, policyName, attrFile string) export.Resource {
	return export.Resource{
		Service:  ServiceName,
		Kind:     kind,
		AttrFile: attrFile,
		Fetch:    fetchPolicies(client, policyName),
	}
}

func fetchPolicies(client *teamsadmin.Client, policyName string) export.FetchFunc {
	return func(ctx context.Context, yield func(export.Record) error) error {
		policies, err := client.GetPolicies(ctx, policyName)
		if err != nil {
			return fmt.Errorf("%w: fetching %s: %w", export.ErrRemoteFetch, policyName, err)
		}
		for _, policy := range policies {
			if err := yield(export.Record(policy)); err != nil {
				return err
			}
		}
		return nil
	}
}

func pointerTo[T any](v T) *T {
	return &v
}
