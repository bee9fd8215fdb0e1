package costsync

import (
	"fmt"
	"regexp"
	"strings"

	"costsync/pkg/ghe"
)

// AssignmentPolicy maps a team to its target cost center name. The
// boolean is false when the team has no mapping and should be skipped.
type AssignmentPolicy interface {
	CostCenterFor(team ghe.Team) (string, bool)
}

// AutoNamePolicy derives cost center names from a template with
// {team_name}, {team_slug} and {org} placeholders
type AutoNamePolicy struct {
	Template string
}

// CostCenterFor expands the template for the given team
func (p AutoNamePolicy) CostCenterFor(team ghe.Team) (string, bool) {
	name := p.Template
	name = strings.ReplaceAll(name, "{team_name}", team.Name)
	name = strings.ReplaceAll(name, "{team_slug}", team.Slug)
	name = strings.ReplaceAll(name, "{org}", team.Org)
	return name, true
}

// ManualMapPolicy maps teams to cost centers by explicit key lookup.
// Keys are "org/slug" at organization scope and bare slugs at
// enterprise scope. Unmapped teams are skipped.
type ManualMapPolicy struct {
	Mappings map[string]string
}

// CostCenterFor looks up the team key in the mapping table
func (p ManualMapPolicy) CostCenterFor(team ghe.Team) (string, bool) {
	name, ok := p.Mappings[team.Key()]
	return name, ok
}

var templatePlaceholderRe = regexp.MustCompile(`\{([^{}]*)\}`)

var validPlaceholders = map[string]bool{
	"team_name": true,
	"team_slug": true,
	"org":       true,
}

// ValidateTemplate checks a naming template for unknown placeholders.
// Templates must contain at least one placeholder so that generated
// names differ per team.
func ValidateTemplate(template string) error {
	if template == "" {
		return fmt.Errorf("name template must not be empty")
	}

	matches := templatePlaceholderRe.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return fmt.Errorf("name template %q contains no placeholders: expected {team_name}, {team_slug} or {org}", template)
	}

	for _, m := range matches {
		if !validPlaceholders[m[1]] {
			return fmt.Errorf("name template contains unknown placeholder {%s}: valid placeholders are {team_name}, {team_slug} and {org}", m[1])
		}
	}

	return nil
}
