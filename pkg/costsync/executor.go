package costsync

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"costsync/pkg/ghe"
)

// DefaultBatchSize is the cost center resource API batch limit
const DefaultBatchSize = 50

// ExecutorOptions tunes plan and apply behavior
type ExecutorOptions struct {
	// BatchSize caps users per add/remove request; zero means
	// DefaultBatchSize
	BatchSize int
	// FullSync removes cost center members that are no longer desired
	FullSync bool
	// ForceReassign adds users even when they already belong to a
	// different cost center
	ForceReassign bool
	// ProtectedUsers are never removed by full sync
	ProtectedUsers []string
}

// Executor computes and applies cost center membership changes
type Executor struct {
	api       ghe.APIClient
	opts      ExecutorOptions
	protected map[string]bool
	logger    *slog.Logger

	// Progress, when set, is called with the number of users processed
	// after each batch
	Progress func(n int)
}

// NewExecutor creates an executor with the given options
func NewExecutor(api ghe.APIClient, opts ExecutorOptions, logger *slog.Logger) *Executor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	protected := make(map[string]bool, len(opts.ProtectedUsers))
	for _, u := range opts.ProtectedUsers {
		protected[strings.ToLower(u)] = true
	}
	return &Executor{api: api, opts: opts, protected: protected, logger: logger}
}

// CostCenterPlan is the planned change set for one cost center
type CostCenterPlan struct {
	Name string
	// ID is empty when the cost center does not exist yet
	ID     string
	Add    []string
	Remove []string
	// WouldCreate marks cost centers that an apply run would create
	WouldCreate bool
	// DeferredRemoval marks cost centers whose removal analysis waits
	// for the first apply run after creation
	DeferredRemoval bool
}

// SyncPlan is the full planned change set
type SyncPlan struct {
	CostCenters []CostCenterPlan
	// Unresolved lists cost center names whose assignments were dropped
	Unresolved []string
}

// HasChanges reports whether the plan contains any work
func (p *SyncPlan) HasChanges() bool {
	for _, cc := range p.CostCenters {
		if len(cc.Add) > 0 || len(cc.Remove) > 0 || cc.WouldCreate {
			return true
		}
	}
	return false
}

// TotalAdds returns the number of planned user additions
func (p *SyncPlan) TotalAdds() int {
	n := 0
	for _, cc := range p.CostCenters {
		n += len(cc.Add)
	}
	return n
}

// TotalRemoves returns the number of planned user removals
func (p *SyncPlan) TotalRemoves() int {
	n := 0
	for _, cc := range p.CostCenters {
		n += len(cc.Remove)
	}
	return n
}

// Plan computes the change set from desired assignments and resolved
// cost center IDs. Plan never mutates remote state; it only reads
// current memberships.
func (e *Executor) Plan(ctx context.Context, desired map[string]Assignment, mat *MaterializeResult) (*SyncPlan, error) {
	byCostCenter := make(map[string][]string)
	for _, a := range desired {
		byCostCenter[a.CostCenter] = append(byCostCenter[a.CostCenter], a.Username)
	}

	unresolved := make(map[string]bool, len(mat.Unresolved))
	for _, name := range mat.Unresolved {
		unresolved[name] = true
	}
	wouldCreate := make(map[string]bool, len(mat.WouldCreate))
	for _, name := range mat.WouldCreate {
		wouldCreate[name] = true
	}

	names := make([]string, 0, len(byCostCenter))
	for name := range byCostCenter {
		names = append(names, name)
	}
	sort.Strings(names)

	plan := &SyncPlan{Unresolved: mat.Unresolved}

	for _, name := range names {
		users := byCostCenter[name]
		sort.Strings(users)

		if unresolved[name] {
			continue
		}

		if wouldCreate[name] {
			plan.CostCenters = append(plan.CostCenters, CostCenterPlan{
				Name:            name,
				Add:             users,
				WouldCreate:     true,
				DeferredRemoval: e.opts.FullSync,
			})
			continue
		}

		id, ok := mat.IDs[name]
		if !ok {
			// Materializer classified every name; reaching here means a
			// stale cache entry pointed at a deleted cost center.
			e.logger.Warn("no ID for cost center, dropping its assignments", "cost_center", name)
			plan.Unresolved = append(plan.Unresolved, name)
			continue
		}

		current, err := e.api.ListCostCenterUsers(ctx, id)
		if err != nil {
			if ghe.IsAuthError(err) {
				return nil, err
			}
			e.logger.Warn("skipping cost center, member listing failed",
				"cost_center", name, "error", err)
			continue
		}

		currentSet := make(map[string]bool, len(current))
		for _, u := range current {
			currentSet[strings.ToLower(u)] = true
		}
		desiredSet := make(map[string]bool, len(users))
		for _, u := range users {
			desiredSet[strings.ToLower(u)] = true
		}

		ccPlan := CostCenterPlan{Name: name, ID: id}

		for _, u := range users {
			if !currentSet[strings.ToLower(u)] {
				ccPlan.Add = append(ccPlan.Add, u)
			}
		}

		if e.opts.FullSync {
			for _, u := range current {
				lower := strings.ToLower(u)
				if desiredSet[lower] {
					continue
				}
				if e.protected[lower] {
					e.logger.Info("keeping protected user", "user", u, "cost_center", name)
					continue
				}
				ccPlan.Remove = append(ccPlan.Remove, u)
			}
			sort.Strings(ccPlan.Remove)
		}

		plan.CostCenters = append(plan.CostCenters, ccPlan)
	}

	return plan, nil
}

// Apply executes a plan. Per-batch failures are counted and logged; the
// run continues with the remaining work. Authentication failures abort.
func (e *Executor) Apply(ctx context.Context, plan *SyncPlan) (*SyncResult, error) {
	result := &SyncResult{}

	for _, cc := range plan.CostCenters {
		ccResult := CostCenterResult{Name: cc.Name}

		if cc.ID == "" {
			e.logger.Warn("cost center has no ID, skipping", "cost_center", cc.Name)
			result.CostCenters = append(result.CostCenters, ccResult)
			continue
		}

		toAdd := cc.Add
		if !e.opts.ForceReassign {
			toAdd = e.filterAssignedElsewhere(ctx, cc, &ccResult)
		}

		for _, batch := range chunk(toAdd, e.opts.BatchSize) {
			if err := e.api.AddUsers(ctx, cc.ID, batch); err != nil {
				if ghe.IsAuthError(err) {
					return result, err
				}
				e.logger.Warn("batch add failed",
					"cost_center", cc.Name, "users", len(batch), "error", err)
				ccResult.AddFailed += len(batch)
			} else {
				e.logger.Info("added users",
					"cost_center", cc.Name, "users", len(batch))
				ccResult.Added += len(batch)
			}
			e.progress(len(batch))
		}

		for _, batch := range chunk(cc.Remove, e.opts.BatchSize) {
			if err := e.api.RemoveUsers(ctx, cc.ID, batch); err != nil {
				if ghe.IsAuthError(err) {
					return result, err
				}
				e.logger.Warn("batch remove failed",
					"cost_center", cc.Name, "users", len(batch), "error", err)
				ccResult.RemoveFailed += len(batch)
			} else {
				for _, u := range batch {
					e.logger.Info("removed user", "cost_center", cc.Name, "user", u)
				}
				ccResult.Removed += len(batch)
			}
			e.progress(len(batch))
		}

		result.CostCenters = append(result.CostCenters, ccResult)
	}

	return result, nil
}

// filterAssignedElsewhere drops users that already belong to a
// different cost center. Lookup failures keep the user; the add either
// succeeds or is counted as a failure there.
func (e *Executor) filterAssignedElsewhere(ctx context.Context, cc CostCenterPlan, ccResult *CostCenterResult) []string {
	var keep []string
	for _, u := range cc.Add {
		ref, err := e.api.FindUserCostCenter(ctx, u)
		if err != nil {
			e.logger.Debug("membership lookup failed", "user", u, "error", err)
			keep = append(keep, u)
			continue
		}
		if ref != nil && ref.ID != cc.ID {
			e.logger.Info("skipping user already in another cost center",
				"user", u, "cost_center", cc.Name, "current", ref.Name)
			ccResult.SkippedElsewhere++
			continue
		}
		keep = append(keep, u)
	}
	return keep
}

func (e *Executor) progress(n int) {
	if e.Progress != nil {
		e.Progress(n)
	}
}

func chunk(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
