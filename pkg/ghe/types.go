package ghe

import "fmt"

// Team identifies a GitHub team within the sync scope. Org is empty for
// enterprise-level teams.
type Team struct {
	Org  string `json:"org,omitempty"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Key returns the mapping key for the team: "org/slug" at organization
// scope, bare slug at enterprise scope.
func (t Team) Key() string {
	if t.Org == "" {
		return t.Slug
	}
	return fmt.Sprintf("%s/%s", t.Org, t.Slug)
}

// CostCenter is an enterprise billing cost center
type CostCenter struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// CostCenterRef is a lightweight reference to the cost center a user
// currently belongs to
type CostCenterRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RepoProperties is a repository with its custom property values
type RepoProperties struct {
	Org        string            `json:"org"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// FullName returns the repository in owner/name form
func (r RepoProperties) FullName() string {
	return fmt.Sprintf("%s/%s", r.Org, r.Name)
}
