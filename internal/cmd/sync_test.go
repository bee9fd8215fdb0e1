package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"costsync/pkg/config"
	"costsync/pkg/ghe"
	"costsync/pkg/namecache"
)

// mockAPIClient is a mock implementation of ghe.APIClient
type mockAPIClient struct {
	mock.Mock
}

func (m *mockAPIClient) ListOrgTeams(ctx context.Context, org string) ([]ghe.Team, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.Team), args.Error(1)
}

func (m *mockAPIClient) ListOrgTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	args := m.Called(ctx, org, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPIClient) ListEnterpriseTeams(ctx context.Context) ([]ghe.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.Team), args.Error(1)
}

func (m *mockAPIClient) ListEnterpriseTeamMembers(ctx context.Context, slug string) ([]string, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPIClient) ListCostCenters(ctx context.Context) ([]ghe.CostCenter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.CostCenter), args.Error(1)
}

func (m *mockAPIClient) CreateCostCenter(ctx context.Context, name string) (*ghe.CostCenter, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghe.CostCenter), args.Error(1)
}

func (m *mockAPIClient) ListCostCenterUsers(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPIClient) ListCostCenterRepos(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPIClient) AddUsers(ctx context.Context, id string, users []string) error {
	args := m.Called(ctx, id, users)
	return args.Error(0)
}

func (m *mockAPIClient) RemoveUsers(ctx context.Context, id string, users []string) error {
	args := m.Called(ctx, id, users)
	return args.Error(0)
}

func (m *mockAPIClient) AddRepositories(ctx context.Context, id string, repos []string) error {
	args := m.Called(ctx, id, repos)
	return args.Error(0)
}

func (m *mockAPIClient) FindUserCostCenter(ctx context.Context, username string) (*ghe.CostCenterRef, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghe.CostCenterRef), args.Error(1)
}

func (m *mockAPIClient) ListCopilotSeats(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAPIClient) ListRepoPropertyValues(ctx context.Context, org string) ([]ghe.RepoProperties, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.RepoProperties), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func teamsTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.GitHub.Enterprise = "acme-corp"
	cfg.CostCenters.Teams.Organizations = []string{"acme"}
	return cfg
}

func setSyncFlags(t *testing.T, apply, yes bool) {
	t.Helper()
	syncApply = apply
	syncYes = yes
	t.Cleanup(func() {
		syncApply = false
		syncYes = false
		syncForceReassign = false
		syncExport = false
	})
}

// Under go test stdin is not a terminal, so an unconfirmed apply run
// must fail before any cost center is created.
func TestRunUserSyncDoesNotCreateBeforeConfirmation(t *testing.T) {
	setSyncFlags(t, true, false)

	ctx := context.Background()
	client := new(mockAPIClient)
	client.On("ListOrgTeams", ctx, "acme").Return([]ghe.Team{
		{Org: "acme", Slug: "backend", Name: "Backend"},
	}, nil)
	client.On("ListOrgTeamMembers", ctx, "acme", "backend").Return([]string{"alice"}, nil)
	client.On("ListCostCenters", ctx).Return([]ghe.CostCenter{}, nil)

	err := runUserSync(ctx, client, namecache.NewMemoryStore(), teamsTestConfig(), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	client.AssertNotCalled(t, "CreateCostCenter")
	client.AssertNotCalled(t, "AddUsers")
	client.AssertExpectations(t)
}

func TestRunUserSyncCreatesOnlyAfterConfirmation(t *testing.T) {
	setSyncFlags(t, true, true)

	ctx := context.Background()
	client := new(mockAPIClient)
	client.On("ListOrgTeams", ctx, "acme").Return([]ghe.Team{
		{Org: "acme", Slug: "backend", Name: "Backend"},
	}, nil)
	client.On("ListOrgTeamMembers", ctx, "acme", "backend").Return([]string{"alice"}, nil)
	client.On("ListCostCenters", ctx).Return([]ghe.CostCenter{}, nil)
	client.On("CreateCostCenter", ctx, "Team: Backend").Return(
		&ghe.CostCenter{ID: "cc-1", Name: "Team: Backend"}, nil)
	client.On("ListCostCenterUsers", ctx, "cc-1").Return([]string{}, nil)
	client.On("FindUserCostCenter", ctx, "alice").Return(nil, nil)
	client.On("AddUsers", ctx, "cc-1", []string{"alice"}).Return(nil)

	err := runUserSync(ctx, client, namecache.NewMemoryStore(), teamsTestConfig(), testLogger())
	require.NoError(t, err)

	// The plan-mode pass and the post-confirmation pass each resolve once
	client.AssertNumberOfCalls(t, "ListCostCenters", 2)
	client.AssertNumberOfCalls(t, "CreateCostCenter", 1)
	client.AssertExpectations(t)
}

func TestRunRepositorySyncDoesNotCreateBeforeConfirmation(t *testing.T) {
	setSyncFlags(t, true, false)

	cfg := config.DefaultConfig()
	cfg.GitHub.Enterprise = "acme-corp"
	cfg.CostCenters.Mode = config.ModeRepositories
	cfg.CostCenters.Repositories = config.RepositoriesConfig{
		Organizations: []string{"acme"},
		Mappings: []config.RepoMappingConfig{
			{CostCenter: "Engineering", PropertyName: "team", PropertyValues: []string{"backend"}},
		},
	}

	ctx := context.Background()
	client := new(mockAPIClient)
	client.On("ListRepoPropertyValues", ctx, "acme").Return([]ghe.RepoProperties{
		{Org: "acme", Name: "api", Properties: map[string]string{"team": "backend"}},
	}, nil)
	client.On("ListCostCenters", ctx).Return([]ghe.CostCenter{}, nil)

	err := runRepositorySync(ctx, client, namecache.NewMemoryStore(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	client.AssertNotCalled(t, "CreateCostCenter")
	client.AssertNotCalled(t, "AddRepositories")
	client.AssertExpectations(t)
}
