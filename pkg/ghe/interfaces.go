package ghe

import "context"

// APIClient defines the GitHub operations used by the sync pipeline.
// The interface allows mocking for tests.
type APIClient interface {
	// Team operations
	ListOrgTeams(ctx context.Context, org string) ([]Team, error)
	ListOrgTeamMembers(ctx context.Context, org, slug string) ([]string, error)
	ListEnterpriseTeams(ctx context.Context) ([]Team, error)
	ListEnterpriseTeamMembers(ctx context.Context, slug string) ([]string, error)

	// Cost center operations
	ListCostCenters(ctx context.Context) ([]CostCenter, error)
	CreateCostCenter(ctx context.Context, name string) (*CostCenter, error)
	ListCostCenterUsers(ctx context.Context, id string) ([]string, error)
	ListCostCenterRepos(ctx context.Context, id string) ([]string, error)
	AddUsers(ctx context.Context, id string, users []string) error
	RemoveUsers(ctx context.Context, id string, users []string) error
	AddRepositories(ctx context.Context, id string, repos []string) error
	FindUserCostCenter(ctx context.Context, username string) (*CostCenterRef, error)

	// Copilot billing
	ListCopilotSeats(ctx context.Context) ([]string, error)

	// Repository custom properties
	ListRepoPropertyValues(ctx context.Context, org string) ([]RepoProperties, error)
}
