package costsync

import (
	"log/slog"

	"costsync/pkg/ghe"
)

// Resolve turns fetched team memberships into desired assignments.
// Teams are processed in fetch order; a user appearing in several
// mapped teams ends up assigned to the cost center of the last one.
// Each such user is recorded as a conflict with the full ordered team
// list and the winner.
func Resolve(teams []TeamMembers, policy AssignmentPolicy, logger *slog.Logger) *Resolution {
	res := &Resolution{
		Assignments: make(map[string]Assignment),
	}

	seenTeams := make(map[string][]ghe.Team)

	for _, tm := range teams {
		ccName, ok := policy.CostCenterFor(tm.Team)
		if !ok {
			res.SkippedTeams = append(res.SkippedTeams, tm.Team)
			logger.Info("skipping unmapped team", "team", tm.Team.Key())
			continue
		}

		for _, username := range tm.Members {
			seenTeams[username] = append(seenTeams[username], tm.Team)
			res.Assignments[username] = Assignment{
				Username:   username,
				CostCenter: ccName,
				Team:       tm.Team,
			}
		}
	}

	// Conflicts follow assignment order so output is stable for a given
	// fetch ordering.
	for _, tm := range teams {
		for _, username := range tm.Members {
			teams := seenTeams[username]
			if len(teams) < 2 || teams[0].Key() != tm.Team.Key() {
				continue
			}
			winner := teams[len(teams)-1]
			res.Conflicts = append(res.Conflicts, Conflict{
				Username: username,
				Teams:    teams,
				Winner:   winner,
			})
			logger.Warn("user in multiple teams, last team wins",
				"user", username,
				"teams", teamKeys(teams),
				"winner", winner.Key(),
				"cost_center", res.Assignments[username].CostCenter)
		}
	}

	return res
}

func teamKeys(teams []ghe.Team) []string {
	keys := make([]string, len(teams))
	for i, t := range teams {
		keys[i] = t.Key()
	}
	return keys
}
