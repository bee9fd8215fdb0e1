package costsync

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"costsync/pkg/ghe"
)

// RepoMapping selects repositories for a cost center by custom property
// value
type RepoMapping struct {
	CostCenter     string
	PropertyName   string
	PropertyValues []string
}

// Matches reports whether a repository's properties satisfy the mapping
func (m RepoMapping) Matches(repo ghe.RepoProperties) bool {
	value, ok := repo.Properties[m.PropertyName]
	if !ok {
		return false
	}
	for _, want := range m.PropertyValues {
		if strings.EqualFold(value, want) {
			return true
		}
	}
	return false
}

// MatchRepositories groups repositories by target cost center. A
// repository matching several mappings goes to the last matching one,
// mirroring how team conflicts resolve.
func MatchRepositories(repos []ghe.RepoProperties, mappings []RepoMapping) map[string][]string {
	target := make(map[string]string)
	for _, repo := range repos {
		for _, m := range mappings {
			if m.Matches(repo) {
				target[repo.FullName()] = m.CostCenter
			}
		}
	}

	result := make(map[string][]string)
	for fullName, cc := range target {
		result[cc] = append(result[cc], fullName)
	}
	for cc := range result {
		sort.Strings(result[cc])
	}
	return result
}

// RepoPlan is the planned repository additions for one cost center
type RepoPlan struct {
	Name        string
	ID          string
	Add         []string
	WouldCreate bool
}

// RepoSyncer plans and applies repository to cost center assignments
type RepoSyncer struct {
	api       ghe.APIClient
	batchSize int
	logger    *slog.Logger
}

// NewRepoSyncer creates a repository syncer
func NewRepoSyncer(api ghe.APIClient, batchSize int, logger *slog.Logger) *RepoSyncer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RepoSyncer{api: api, batchSize: batchSize, logger: logger}
}

// Plan computes repository additions per cost center. Repositories
// already assigned to the cost center are excluded.
func (s *RepoSyncer) Plan(ctx context.Context, desired map[string][]string, mat *MaterializeResult) ([]RepoPlan, error) {
	wouldCreate := make(map[string]bool, len(mat.WouldCreate))
	for _, name := range mat.WouldCreate {
		wouldCreate[name] = true
	}

	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	sort.Strings(names)

	var plans []RepoPlan
	for _, name := range names {
		repos := desired[name]

		if wouldCreate[name] {
			plans = append(plans, RepoPlan{Name: name, Add: repos, WouldCreate: true})
			continue
		}

		id, ok := mat.IDs[name]
		if !ok {
			s.logger.Warn("no ID for cost center, dropping its repositories", "cost_center", name)
			continue
		}

		current, err := s.api.ListCostCenterRepos(ctx, id)
		if err != nil {
			if ghe.IsAuthError(err) {
				return nil, err
			}
			s.logger.Warn("skipping cost center, repository listing failed",
				"cost_center", name, "error", err)
			continue
		}

		currentSet := make(map[string]bool, len(current))
		for _, r := range current {
			currentSet[strings.ToLower(r)] = true
		}

		plan := RepoPlan{Name: name, ID: id}
		for _, r := range repos {
			if !currentSet[strings.ToLower(r)] {
				plan.Add = append(plan.Add, r)
			}
		}
		plans = append(plans, plan)
	}

	return plans, nil
}

// Apply adds the planned repositories in batches. Per-batch failures
// are counted and the run continues.
func (s *RepoSyncer) Apply(ctx context.Context, plans []RepoPlan) (added, failed int, err error) {
	for _, plan := range plans {
		if plan.ID == "" {
			s.logger.Warn("cost center has no ID, skipping", "cost_center", plan.Name)
			continue
		}
		for _, batch := range chunk(plan.Add, s.batchSize) {
			if batchErr := s.api.AddRepositories(ctx, plan.ID, batch); batchErr != nil {
				if ghe.IsAuthError(batchErr) {
					return added, failed, batchErr
				}
				s.logger.Warn("batch repository add failed",
					"cost_center", plan.Name, "repos", len(batch), "error", batchErr)
				failed += len(batch)
			} else {
				s.logger.Info("added repositories",
					"cost_center", plan.Name, "repos", len(batch))
				added += len(batch)
			}
		}
	}
	return added, failed, nil
}
