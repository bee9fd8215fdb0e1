package costsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costsync/pkg/ghe"
)

func desiredFor(cc string, users ...string) map[string]Assignment {
	desired := make(map[string]Assignment, len(users))
	for _, u := range users {
		desired[u] = Assignment{Username: u, CostCenter: cc}
	}
	return desired
}

func TestPlanComputesAddsAndRemoves(t *testing.T) {
	client := new(MockAPIClient)
	client.On("ListCostCenterUsers", context.Background(), "cc-1").Return([]string{"a", "b", "c"}, nil)

	e := NewExecutor(client, ExecutorOptions{FullSync: true}, testLogger())
	mat := &MaterializeResult{IDs: map[string]string{"Engineering": "cc-1"}}

	plan, err := e.Plan(context.Background(), desiredFor("Engineering", "a", "d"), mat)
	require.NoError(t, err)

	require.Len(t, plan.CostCenters, 1)
	cc := plan.CostCenters[0]
	assert.Equal(t, []string{"d"}, cc.Add)
	assert.Equal(t, []string{"b", "c"}, cc.Remove)
	client.AssertExpectations(t)
}

func TestPlanWithoutFullSyncNeverRemoves(t *testing.T) {
	client := new(MockAPIClient)
	client.On("ListCostCenterUsers", context.Background(), "cc-1").Return([]string{"a", "b", "c"}, nil)

	e := NewExecutor(client, ExecutorOptions{}, testLogger())
	mat := &MaterializeResult{IDs: map[string]string{"Engineering": "cc-1"}}

	plan, err := e.Plan(context.Background(), desiredFor("Engineering", "a", "d"), mat)
	require.NoError(t, err)

	cc := plan.CostCenters[0]
	assert.Equal(t, []string{"d"}, cc.Add)
	assert.Empty(t, cc.Remove)
	client.AssertExpectations(t)
}

func TestPlanProtectedUsersAreKept(t *testing.T) {
	client := new(MockAPIClient)
	client.On("ListCostCenterUsers", context.Background(), "cc-1").Return([]string{"admin", "stale"}, nil)

	e := NewExecutor(client, ExecutorOptions{
		FullSync:       true,
		ProtectedUsers: []string{"Admin"},
	}, testLogger())
	mat := &MaterializeResult{IDs: map[string]string{"Engineering": "cc-1"}}

	plan, err := e.Plan(context.Background(), desiredFor("Engineering", "alice"), mat)
	require.NoError(t, err)

	cc := plan.CostCenters[0]
	assert.Equal(t, []string{"stale"}, cc.Remove)
	client.AssertExpectations(t)
}

func TestPlanDefersRemovalForPendingCostCenters(t *testing.T) {
	client := new(MockAPIClient)

	e := NewExecutor(client, ExecutorOptions{FullSync: true}, testLogger())
	mat := &MaterializeResult{
		IDs:         map[string]string{},
		WouldCreate: []string{"Team: Mobile"},
	}

	plan, err := e.Plan(context.Background(), desiredFor("Team: Mobile", "alice"), mat)
	require.NoError(t, err)

	require.Len(t, plan.CostCenters, 1)
	cc := plan.CostCenters[0]
	assert.True(t, cc.WouldCreate)
	assert.True(t, cc.DeferredRemoval)
	assert.Equal(t, []string{"alice"}, cc.Add)
	assert.Empty(t, cc.Remove)
	// Plan must not touch remote state for pending cost centers
	client.AssertNotCalled(t, "ListCostCenterUsers")
	client.AssertExpectations(t)
}

func TestPlanSkipsUnresolvedCostCenters(t *testing.T) {
	client := new(MockAPIClient)

	e := NewExecutor(client, ExecutorOptions{}, testLogger())
	mat := &MaterializeResult{
		IDs:        map[string]string{},
		Unresolved: []string{"Unknown"},
	}

	plan, err := e.Plan(context.Background(), desiredFor("Unknown", "alice"), mat)
	require.NoError(t, err)

	assert.Empty(t, plan.CostCenters)
	assert.Equal(t, []string{"Unknown"}, plan.Unresolved)
	client.AssertExpectations(t)
}

func TestPlanIsReadOnly(t *testing.T) {
	client := new(MockAPIClient)
	client.On("ListCostCenterUsers", context.Background(), "cc-1").Return([]string{}, nil)

	e := NewExecutor(client, ExecutorOptions{FullSync: true}, testLogger())
	mat := &MaterializeResult{IDs: map[string]string{"Engineering": "cc-1"}}

	_, err := e.Plan(context.Background(), desiredFor("Engineering", "alice"), mat)
	require.NoError(t, err)

	client.AssertNotCalled(t, "AddUsers")
	client.AssertNotCalled(t, "RemoveUsers")
	client.AssertNotCalled(t, "CreateCostCenter")
	client.AssertExpectations(t)
}

func TestApplyFullSyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("ListCostCenterUsers", ctx, "cc-1").Return([]string{"a", "b", "c"}, nil)
	client.On("FindUserCostCenter", ctx, "d").Return(nil, nil)
	client.On("AddUsers", ctx, "cc-1", []string{"d"}).Return(nil)
	client.On("RemoveUsers", ctx, "cc-1", []string{"b", "c"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{FullSync: true}, testLogger())
	mat := &MaterializeResult{IDs: map[string]string{"Engineering": "cc-1"}}

	plan, err := e.Plan(ctx, desiredFor("Engineering", "a", "d"), mat)
	require.NoError(t, err)

	result, err := e.Apply(ctx, plan)
	require.NoError(t, err)

	require.Len(t, result.CostCenters, 1)
	assert.Equal(t, 1, result.CostCenters[0].Added)
	assert.Equal(t, 2, result.CostCenters[0].Removed)
	assert.Equal(t, 0, result.TotalFailed())
	client.AssertExpectations(t)
}

func TestApplySkipsUsersInOtherCostCenter(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("FindUserCostCenter", ctx, "alice").Return(
		&ghe.CostCenterRef{ID: "cc-other", Name: "Elsewhere"}, nil)
	client.On("FindUserCostCenter", ctx, "bob").Return(nil, nil)
	client.On("AddUsers", ctx, "cc-1", []string{"bob"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{}, testLogger())
	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"alice", "bob"}},
	}}

	result, err := e.Apply(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAdded())
	assert.Equal(t, 1, result.TotalSkipped())
	client.AssertExpectations(t)
}

func TestApplyForceReassignSkipsMembershipChecks(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("AddUsers", ctx, "cc-1", []string{"alice"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{ForceReassign: true}, testLogger())
	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"alice"}},
	}}

	result, err := e.Apply(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAdded())
	assert.Equal(t, 0, result.TotalSkipped())
	client.AssertNotCalled(t, "FindUserCostCenter")
	client.AssertExpectations(t)
}

func TestApplyBatchesRespectLimit(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("AddUsers", ctx, "cc-1", []string{"u1", "u2"}).Return(nil)
	client.On("AddUsers", ctx, "cc-1", []string{"u3"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{BatchSize: 2, ForceReassign: true}, testLogger())
	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"u1", "u2", "u3"}},
	}}

	result, err := e.Apply(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalAdded())
	client.AssertExpectations(t)
}

func TestApplyCountsBatchFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("AddUsers", ctx, "cc-1", []string{"u1", "u2"}).Return(
		ghe.NewAPIError(ghe.ErrorTypeValidation, "bad request", nil))
	client.On("AddUsers", ctx, "cc-1", []string{"u3"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{BatchSize: 2, ForceReassign: true}, testLogger())
	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"u1", "u2", "u3"}},
	}}

	result, err := e.Apply(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalAdded())
	assert.Equal(t, 2, result.TotalFailed())
	client.AssertExpectations(t)
}

func TestApplyAbortsOnAuthError(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("AddUsers", ctx, "cc-1", []string{"u1"}).Return(
		ghe.NewAPIError(ghe.ErrorTypeAuth, "token expired", nil))

	e := NewExecutor(client, ExecutorOptions{ForceReassign: true}, testLogger())
	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"u1"}},
		{Name: "Marketing", ID: "cc-2", Add: []string{"u2"}},
	}}

	_, err := e.Apply(ctx, plan)
	require.Error(t, err)
	assert.True(t, ghe.IsAuthError(err))
	client.AssertNotCalled(t, "AddUsers", ctx, "cc-2", []string{"u2"})
	client.AssertExpectations(t)
}

func TestApplyReportsProgress(t *testing.T) {
	ctx := context.Background()
	client := new(MockAPIClient)
	client.On("AddUsers", ctx, "cc-1", []string{"u1", "u2"}).Return(nil)

	e := NewExecutor(client, ExecutorOptions{ForceReassign: true}, testLogger())
	processed := 0
	e.Progress = func(n int) { processed += n }

	plan := &SyncPlan{CostCenters: []CostCenterPlan{
		{Name: "Engineering", ID: "cc-1", Add: []string{"u1", "u2"}},
	}}

	_, err := e.Apply(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	client.AssertExpectations(t)
}
