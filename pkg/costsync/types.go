// Package costsync contains the synchronization pipeline: fetching
// teams and members, resolving desired cost center assignments,
// materializing cost center IDs, and planning/applying membership
// changes.
package costsync

import "costsync/pkg/ghe"

// TeamMembers pairs a team with its member usernames
type TeamMembers struct {
	Team    ghe.Team
	Members []string
}

// Assignment is the desired cost center for a single resource. Team is
// zero-valued when the assignment did not come from a team.
type Assignment struct {
	Username   string
	CostCenter string
	Team       ghe.Team
}

// Conflict records a user who appeared in more than one mapped team.
// Teams are listed in processing order; the last one wins.
type Conflict struct {
	Username string
	Teams    []ghe.Team
	Winner   ghe.Team
}

// Resolution is the output of assignment resolution
type Resolution struct {
	// Assignments holds at most one entry per username
	Assignments map[string]Assignment
	Conflicts   []Conflict
	// SkippedTeams are teams with no cost center mapping
	SkippedTeams []ghe.Team
}

// CostCenterResult holds per-cost-center apply counters
type CostCenterResult struct {
	Name             string
	Added            int
	AddFailed        int
	Removed          int
	RemoveFailed     int
	SkippedElsewhere int
}

// SyncResult aggregates apply results across all cost centers
type SyncResult struct {
	CostCenters []CostCenterResult
}

// TotalAdded returns the number of successfully added users
func (r *SyncResult) TotalAdded() int {
	n := 0
	for _, cc := range r.CostCenters {
		n += cc.Added
	}
	return n
}

// TotalRemoved returns the number of successfully removed users
func (r *SyncResult) TotalRemoved() int {
	n := 0
	for _, cc := range r.CostCenters {
		n += cc.Removed
	}
	return n
}

// TotalFailed returns the number of failed add and remove operations
func (r *SyncResult) TotalFailed() int {
	n := 0
	for _, cc := range r.CostCenters {
		n += cc.AddFailed + cc.RemoveFailed
	}
	return n
}

// TotalSkipped returns the number of users skipped because they belong
// to a different cost center
func (r *SyncResult) TotalSkipped() int {
	n := 0
	for _, cc := range r.CostCenters {
		n += cc.SkippedElsewhere
	}
	return n
}
