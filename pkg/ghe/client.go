package ghe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client implements the APIClient interface using the GitHub REST API.
// Enterprise billing endpoints are not covered by the typed client, so
// those requests go through NewRequest/Do with local response types.
type Client struct {
	gh         *github.Client
	enterprise string
	retry      *RetryConfig
}

// NewClient creates a new GitHub API client scoped to an enterprise
func NewClient(token, enterprise string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		gh:         github.NewClient(tc),
		enterprise: enterprise,
		retry:      DefaultRetryConfig(),
	}
}

const perPage = 100

// ListOrgTeams lists all teams of an organization in API order
func (c *Client) ListOrgTeams(ctx context.Context, org string) ([]Team, error) {
	var teams []Team

	err := WithRetry(func() error {
		teams = teams[:0]
		opts := &github.ListOptions{PerPage: perPage}
		for {
			page, resp, err := c.gh.Teams.ListTeams(ctx, org, opts)
			if err != nil {
				return WrapAPIError(err, fmt.Sprintf("teams of organization %s", org))
			}
			for _, t := range page {
				teams = append(teams, Team{Org: org, Slug: t.GetSlug(), Name: t.GetName()})
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return teams, nil
}

// ListOrgTeamMembers lists the usernames of all members of an
// organization team
func (c *Client) ListOrgTeamMembers(ctx context.Context, org, slug string) ([]string, error) {
	var members []string

	err := WithRetry(func() error {
		members = members[:0]
		opts := &github.TeamListTeamMembersOptions{
			ListOptions: github.ListOptions{PerPage: perPage},
		}
		for {
			page, resp, err := c.gh.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
			if err != nil {
				return WrapAPIError(err, fmt.Sprintf("members of team %s/%s", org, slug))
			}
			for _, u := range page {
				members = append(members, u.GetLogin())
			}
			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return members, nil
}

type enterpriseTeam struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListEnterpriseTeams lists all enterprise-level teams in API order
func (c *Client) ListEnterpriseTeams(ctx context.Context) ([]Team, error) {
	var teams []Team

	err := WithRetry(func() error {
		raw, err := listPages[enterpriseTeam](ctx, c,
			fmt.Sprintf("enterprises/%s/teams", c.enterprise),
			fmt.Sprintf("teams of enterprise %s", c.enterprise))
		if err != nil {
			return err
		}
		teams = teams[:0]
		for _, t := range raw {
			teams = append(teams, Team{Slug: t.Slug, Name: t.Name})
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return teams, nil
}

type enterpriseTeamMember struct {
	Login string `json:"login"`
}

// ListEnterpriseTeamMembers lists the usernames of all members of an
// enterprise team
func (c *Client) ListEnterpriseTeamMembers(ctx context.Context, slug string) ([]string, error) {
	var members []string

	err := WithRetry(func() error {
		raw, err := listPages[enterpriseTeamMember](ctx, c,
			fmt.Sprintf("enterprises/%s/teams/%s/memberships", c.enterprise, slug),
			fmt.Sprintf("members of enterprise team %s", slug))
		if err != nil {
			return err
		}
		members = members[:0]
		for _, m := range raw {
			members = append(members, m.Login)
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return members, nil
}

type costCenterList struct {
	CostCenters []CostCenter `json:"costCenters"`
}

// ListCostCenters lists all active cost centers of the enterprise
func (c *Client) ListCostCenters(ctx context.Context) ([]CostCenter, error) {
	var out costCenterList

	err := WithRetry(func() error {
		u := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers", c.enterprise)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return WrapAPIError(err, "cost center list")
		}
		out = costCenterList{}
		if _, err := c.gh.Do(ctx, req, &out); err != nil {
			return WrapAPIError(err, "cost center list")
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}

	active := make([]CostCenter, 0, len(out.CostCenters))
	for _, cc := range out.CostCenters {
		if cc.State == "" || cc.State == "ACTIVE" {
			active = append(active, cc)
		}
	}
	return active, nil
}

// existingUUIDRe matches the cost center UUID embedded in the conflict
// message returned when creating a name that already exists.
var existingUUIDRe = regexp.MustCompile(`existing cost center UUID:\s*([a-f0-9-]{36})`)

// CreateCostCenter creates a cost center with the given name. When the
// name already exists the existing cost center is returned instead.
func (c *Client) CreateCostCenter(ctx context.Context, name string) (*CostCenter, error) {
	var created CostCenter

	err := WithRetry(func() error {
		u := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers", c.enterprise)
		body := map[string]string{"name": name}
		req, err := c.gh.NewRequest(http.MethodPost, u, body)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s", name))
		}
		created = CostCenter{}
		if _, err := c.gh.Do(ctx, req, &created); err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s", name))
		}
		return nil
	}, c.retry)

	if err == nil {
		if created.Name == "" {
			created.Name = name
		}
		return &created, nil
	}

	if !IsConflict(err) {
		return nil, err
	}

	// The conflict response usually carries the existing UUID; fall back
	// to a listing lookup when it does not.
	if m := existingUUIDRe.FindStringSubmatch(err.Error()); m != nil {
		return &CostCenter{ID: m[1], Name: name}, nil
	}

	existing, listErr := c.ListCostCenters(ctx)
	if listErr != nil {
		return nil, listErr
	}
	for _, cc := range existing {
		if cc.Name == name {
			found := cc
			return &found, nil
		}
	}

	return nil, err
}

type costCenterDetail struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Resources []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"resources"`
}

// ListCostCenterUsers lists the usernames currently assigned to a cost
// center
func (c *Client) ListCostCenterUsers(ctx context.Context, id string) ([]string, error) {
	return c.listCostCenterResources(ctx, id, "User")
}

// ListCostCenterRepos lists the repositories (owner/name) currently
// assigned to a cost center
func (c *Client) ListCostCenterRepos(ctx context.Context, id string) ([]string, error) {
	return c.listCostCenterResources(ctx, id, "Repo")
}

func (c *Client) listCostCenterResources(ctx context.Context, id, resourceType string) ([]string, error) {
	var detail costCenterDetail

	err := WithRetry(func() error {
		u := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers/%s", c.enterprise, id)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s", id))
		}
		detail = costCenterDetail{}
		if _, err := c.gh.Do(ctx, req, &detail); err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s", id))
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}

	var names []string
	for _, r := range detail.Resources {
		if r.Type == resourceType {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

type resourceRequest struct {
	Users        []string `json:"users,omitempty"`
	Repositories []string `json:"repositories,omitempty"`
}

// AddUsers adds users to a cost center. Callers are responsible for
// batching below the API limit.
func (c *Client) AddUsers(ctx context.Context, id string, users []string) error {
	return c.modifyResources(ctx, http.MethodPost, id, resourceRequest{Users: users})
}

// RemoveUsers removes users from a cost center
func (c *Client) RemoveUsers(ctx context.Context, id string, users []string) error {
	return c.modifyResources(ctx, http.MethodDelete, id, resourceRequest{Users: users})
}

// AddRepositories adds repositories (owner/name) to a cost center
func (c *Client) AddRepositories(ctx context.Context, id string, repos []string) error {
	return c.modifyResources(ctx, http.MethodPost, id, resourceRequest{Repositories: repos})
}

func (c *Client) modifyResources(ctx context.Context, method, id string, body resourceRequest) error {
	return WithRetry(func() error {
		u := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers/%s/resource", c.enterprise, id)
		req, err := c.gh.NewRequest(method, u, body)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s resources", id))
		}
		if _, err := c.gh.Do(ctx, req, nil); err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center %s resources", id))
		}
		return nil
	}, c.retry)
}

type membershipList struct {
	Memberships []struct {
		CostCenter CostCenterRef `json:"cost_center"`
	} `json:"memberships"`
}

// FindUserCostCenter returns the cost center a user currently belongs
// to, or nil when the user is unassigned
func (c *Client) FindUserCostCenter(ctx context.Context, username string) (*CostCenterRef, error) {
	var out membershipList

	err := WithRetry(func() error {
		u := fmt.Sprintf("enterprises/%s/settings/billing/cost-centers/memberships?resource_type=user&name=%s",
			c.enterprise, url.QueryEscape(username))
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center membership of user %s", username))
		}
		out = membershipList{}
		if _, err := c.gh.Do(ctx, req, &out); err != nil {
			return WrapAPIError(err, fmt.Sprintf("cost center membership of user %s", username))
		}
		return nil
	}, c.retry)

	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if len(out.Memberships) == 0 {
		return nil, nil
	}
	ref := out.Memberships[0].CostCenter
	return &ref, nil
}

type copilotSeatPage struct {
	TotalSeats int `json:"total_seats"`
	Seats      []struct {
		Assignee struct {
			Login string `json:"login"`
		} `json:"assignee"`
	} `json:"seats"`
}

// ListCopilotSeats lists the usernames of all Copilot seat holders in
// the enterprise, deduplicated by login
func (c *Client) ListCopilotSeats(ctx context.Context) ([]string, error) {
	var users []string

	err := WithRetry(func() error {
		users = users[:0]
		seen := make(map[string]bool)

		for page := 1; ; page++ {
			u := fmt.Sprintf("enterprises/%s/copilot/billing/seats?per_page=%d&page=%d",
				c.enterprise, perPage, page)
			req, err := c.gh.NewRequest(http.MethodGet, u, nil)
			if err != nil {
				return WrapAPIError(err, "copilot seats")
			}
			var out copilotSeatPage
			if _, err := c.gh.Do(ctx, req, &out); err != nil {
				return WrapAPIError(err, "copilot seats")
			}
			for _, seat := range out.Seats {
				login := seat.Assignee.Login
				if login == "" || seen[login] {
					continue
				}
				seen[login] = true
				users = append(users, login)
			}
			if len(out.Seats) < perPage {
				break
			}
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return users, nil
}

type repoPropertyValues struct {
	RepositoryName string `json:"repository_name"`
	Properties     []struct {
		PropertyName string `json:"property_name"`
		Value        string `json:"value"`
	} `json:"properties"`
}

// ListRepoPropertyValues lists custom property values for every
// repository of an organization
func (c *Client) ListRepoPropertyValues(ctx context.Context, org string) ([]RepoProperties, error) {
	var repos []RepoProperties

	err := WithRetry(func() error {
		raw, err := listPages[repoPropertyValues](ctx, c,
			fmt.Sprintf("orgs/%s/properties/values", org),
			fmt.Sprintf("custom properties of organization %s", org))
		if err != nil {
			return err
		}
		repos = repos[:0]
		for _, r := range raw {
			props := make(map[string]string, len(r.Properties))
			for _, p := range r.Properties {
				props[p.PropertyName] = p.Value
			}
			repos = append(repos, RepoProperties{Org: org, Name: r.RepositoryName, Properties: props})
		}
		return nil
	}, c.retry)

	if err != nil {
		return nil, err
	}
	return repos, nil
}

// ValidateAuth checks that the token is valid by fetching the
// authenticated user
func (c *Client) ValidateAuth(ctx context.Context) (string, error) {
	var login string

	err := WithRetry(func() error {
		user, _, err := c.gh.Users.Get(ctx, "")
		if err != nil {
			return WrapAPIError(err, "authenticated user")
		}
		login = user.GetLogin()
		return nil
	}, c.retry)

	if err != nil {
		return "", err
	}
	return login, nil
}

// listPages drives page-numbered iteration over raw JSON array
// endpoints. These endpoints do not emit Link headers, so the loop
// stops on the first short page.
func listPages[T any](ctx context.Context, c *Client, path, resource string) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		u := fmt.Sprintf("%s?per_page=%d&page=%d", path, perPage, page)
		req, err := c.gh.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, WrapAPIError(err, resource)
		}
		var items []T
		if _, err := c.gh.Do(ctx, req, &items); err != nil {
			return nil, WrapAPIError(err, resource)
		}
		all = append(all, items...)
		if len(items) < perPage {
			return all, nil
		}
	}
}
