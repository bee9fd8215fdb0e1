package costsync

import (
	"context"
	"log/slog"

	"costsync/pkg/ghe"
)

// Fetcher retrieves teams and their members from GitHub. Failures on a
// single team or organization are logged and skipped so that one bad
// team does not abort the run. Authentication failures always abort.
type Fetcher struct {
	api    ghe.APIClient
	logger *slog.Logger
}

// NewFetcher creates a new team and member fetcher
func NewFetcher(api ghe.APIClient, logger *slog.Logger) *Fetcher {
	return &Fetcher{api: api, logger: logger}
}

// FetchOrganizations lists all teams of the given organizations with
// their members, preserving API order within each organization
func (f *Fetcher) FetchOrganizations(ctx context.Context, orgs []string) ([]TeamMembers, error) {
	var result []TeamMembers

	for _, org := range orgs {
		teams, err := f.api.ListOrgTeams(ctx, org)
		if err != nil {
			if ghe.IsAuthError(err) {
				return nil, err
			}
			f.logger.Warn("skipping organization, team listing failed",
				"org", org, "error", err)
			continue
		}

		f.logger.Info("fetched teams", "org", org, "count", len(teams))

		for _, team := range teams {
			members, err := f.api.ListOrgTeamMembers(ctx, team.Org, team.Slug)
			if err != nil {
				if ghe.IsAuthError(err) {
					return nil, err
				}
				f.logger.Warn("skipping team, member fetch failed",
					"team", team.Key(), "error", err)
				continue
			}
			result = append(result, TeamMembers{Team: team, Members: members})
		}
	}

	return result, nil
}

// FetchEnterprise lists all enterprise-level teams with their members,
// preserving API order
func (f *Fetcher) FetchEnterprise(ctx context.Context) ([]TeamMembers, error) {
	teams, err := f.api.ListEnterpriseTeams(ctx)
	if err != nil {
		return nil, err
	}

	f.logger.Info("fetched enterprise teams", "count", len(teams))

	var result []TeamMembers
	for _, team := range teams {
		members, err := f.api.ListEnterpriseTeamMembers(ctx, team.Slug)
		if err != nil {
			if ghe.IsAuthError(err) {
				return nil, err
			}
			f.logger.Warn("skipping team, member fetch failed",
				"team", team.Slug, "error", err)
			continue
		}
		result = append(result, TeamMembers{Team: team, Members: members})
	}

	return result, nil
}
