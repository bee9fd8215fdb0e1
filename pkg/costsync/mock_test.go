package costsync

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"costsync/pkg/ghe"
)

// MockAPIClient is a mock implementation of ghe.APIClient
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) ListOrgTeams(ctx context.Context, org string) ([]ghe.Team, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.Team), args.Error(1)
}

func (m *MockAPIClient) ListOrgTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	args := m.Called(ctx, org, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPIClient) ListEnterpriseTeams(ctx context.Context) ([]ghe.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.Team), args.Error(1)
}

func (m *MockAPIClient) ListEnterpriseTeamMembers(ctx context.Context, slug string) ([]string, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPIClient) ListCostCenters(ctx context.Context) ([]ghe.CostCenter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.CostCenter), args.Error(1)
}

func (m *MockAPIClient) CreateCostCenter(ctx context.Context, name string) (*ghe.CostCenter, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghe.CostCenter), args.Error(1)
}

func (m *MockAPIClient) ListCostCenterUsers(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPIClient) ListCostCenterRepos(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPIClient) AddUsers(ctx context.Context, id string, users []string) error {
	args := m.Called(ctx, id, users)
	return args.Error(0)
}

func (m *MockAPIClient) RemoveUsers(ctx context.Context, id string, users []string) error {
	args := m.Called(ctx, id, users)
	return args.Error(0)
}

func (m *MockAPIClient) AddRepositories(ctx context.Context, id string, repos []string) error {
	args := m.Called(ctx, id, repos)
	return args.Error(0)
}

func (m *MockAPIClient) FindUserCostCenter(ctx context.Context, username string) (*ghe.CostCenterRef, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ghe.CostCenterRef), args.Error(1)
}

func (m *MockAPIClient) ListCopilotSeats(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAPIClient) ListRepoPropertyValues(ctx context.Context, org string) ([]ghe.RepoProperties, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ghe.RepoProperties), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
