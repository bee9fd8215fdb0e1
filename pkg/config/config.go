// Package config loads and validates the costsync configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"costsync/pkg/costsync"
)

// Sync source modes
const (
	ModeTeams        = "teams"
	ModeExceptions   = "exceptions"
	ModeRepositories = "repositories"
)

// Team scope values
const (
	ScopeOrganization = "organization"
	ScopeEnterprise   = "enterprise"
)

// Team naming modes
const (
	NamingAuto   = "auto"
	NamingManual = "manual"
)

// Config is the root configuration
type Config struct {
	GitHub      GitHubConfig      `koanf:"github" yaml:"github"`
	CostCenters CostCentersConfig `koanf:"cost_centers" yaml:"cost_centers"`
	Cache       CacheConfig       `koanf:"cache" yaml:"cache"`
	Export      ExportConfig      `koanf:"export" yaml:"export"`
	Logging     LoggingConfig     `koanf:"logging" yaml:"logging"`
}

// GitHubConfig holds authentication and enterprise settings
type GitHubConfig struct {
	Token      string `koanf:"token" yaml:"token,omitempty"`
	Enterprise string `koanf:"enterprise" yaml:"enterprise"`
}

// CostCentersConfig selects and configures the sync source
type CostCentersConfig struct {
	Mode         string             `koanf:"mode" yaml:"mode"`
	BatchSize    int                `koanf:"batch_size" yaml:"batch_size"`
	Exceptions   ExceptionsConfig   `koanf:"exceptions" yaml:"exceptions"`
	Teams        TeamsConfig        `koanf:"teams" yaml:"teams"`
	Repositories RepositoriesConfig `koanf:"repositories" yaml:"repositories,omitempty"`
}

// ExceptionsConfig configures the static exception list mode
type ExceptionsConfig struct {
	DefaultCostCenter   string   `koanf:"default_cost_center" yaml:"default_cost_center"`
	ExceptionCostCenter string   `koanf:"exception_cost_center" yaml:"exception_cost_center"`
	ExceptionUsers      []string `koanf:"exception_users" yaml:"exception_users"`
}

// TeamsConfig configures the team membership mode
type TeamsConfig struct {
	Scope          string            `koanf:"scope" yaml:"scope"`
	Organizations  []string          `koanf:"organizations" yaml:"organizations,omitempty"`
	Mode           string            `koanf:"mode" yaml:"mode"`
	AutoCreate     bool              `koanf:"auto_create" yaml:"auto_create"`
	NameTemplate   string            `koanf:"name_template" yaml:"name_template"`
	Mappings       map[string]string `koanf:"mappings" yaml:"mappings,omitempty"`
	FullSync       bool              `koanf:"full_sync" yaml:"full_sync"`
	ProtectedUsers []string          `koanf:"protected_users" yaml:"protected_users,omitempty"`
}

// RepositoriesConfig configures the repository custom property mode
type RepositoriesConfig struct {
	Organizations []string            `koanf:"organizations" yaml:"organizations,omitempty"`
	Mappings      []RepoMappingConfig `koanf:"mappings" yaml:"mappings,omitempty"`
}

// RepoMappingConfig maps custom property values to a cost center
type RepoMappingConfig struct {
	CostCenter     string   `koanf:"cost_center" yaml:"cost_center"`
	PropertyName   string   `koanf:"property_name" yaml:"property_name"`
	PropertyValues []string `koanf:"property_values" yaml:"property_values"`
}

// CacheConfig configures the name resolution cache
type CacheConfig struct {
	Path     string `koanf:"path" yaml:"path,omitempty"`
	TTLHours int    `koanf:"ttl_hours" yaml:"ttl_hours"`
}

// ExportConfig configures assignment exports
type ExportConfig struct {
	Directory string   `koanf:"directory" yaml:"directory"`
	Formats   []string `koanf:"formats" yaml:"formats"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format,omitempty"`
}

// DefaultConfig returns a configuration with all defaults applied
func DefaultConfig() *Config {
	return &Config{
		CostCenters: CostCentersConfig{
			Mode:      ModeTeams,
			BatchSize: 50,
			Teams: TeamsConfig{
				Scope:        ScopeOrganization,
				Mode:         NamingAuto,
				AutoCreate:   true,
				NameTemplate: "Team: {team_name}",
			},
		},
		Cache: CacheConfig{
			TTLHours: 24,
		},
		Export: ExportConfig{
			Directory: "exports",
			Formats:   []string{"csv"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns ~/.costsync/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".costsync", "config.yaml"), nil
}

// DefaultCachePath returns ~/.costsync/cache.db
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".costsync", "cache.db"), nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A double underscore in the variable
// name separates nesting levels: COSTSYNC_GITHUB__ENTERPRISE maps to
// github.enterprise.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("COSTSYNC_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "COSTSYNC_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for the selected mode. Validation
// runs before any API call so that misconfiguration fails fast.
func (c *Config) Validate() error {
	if c.GitHub.Enterprise == "" {
		return fmt.Errorf("github.enterprise is required")
	}

	if c.CostCenters.BatchSize < 1 || c.CostCenters.BatchSize > 50 {
		return fmt.Errorf("cost_centers.batch_size must be between 1 and 50, got %d", c.CostCenters.BatchSize)
	}

	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must be non-negative")
	}

	switch c.CostCenters.Mode {
	case ModeTeams:
		return c.validateTeams()
	case ModeExceptions:
		return c.validateExceptions()
	case ModeRepositories:
		return c.validateRepositories()
	default:
		return fmt.Errorf("invalid cost_centers.mode %q: must be one of teams, exceptions, repositories", c.CostCenters.Mode)
	}
}

func (c *Config) validateTeams() error {
	t := c.CostCenters.Teams

	switch t.Scope {
	case ScopeOrganization:
		if len(t.Organizations) == 0 {
			return fmt.Errorf("cost_centers.teams.organizations is required for organization scope")
		}
	case ScopeEnterprise:
		if len(t.Organizations) > 0 {
			return fmt.Errorf("cost_centers.teams.organizations must be empty for enterprise scope")
		}
	default:
		return fmt.Errorf("invalid cost_centers.teams.scope %q: must be organization or enterprise", t.Scope)
	}

	switch t.Mode {
	case NamingAuto:
		if err := costsync.ValidateTemplate(t.NameTemplate); err != nil {
			return fmt.Errorf("cost_centers.teams.name_template: %w", err)
		}
	case NamingManual:
		if len(t.Mappings) == 0 {
			return fmt.Errorf("cost_centers.teams.mappings is required for manual mode")
		}
	default:
		return fmt.Errorf("invalid cost_centers.teams.mode %q: must be auto or manual", t.Mode)
	}

	return nil
}

func (c *Config) validateExceptions() error {
	e := c.CostCenters.Exceptions

	if e.DefaultCostCenter == "" {
		return fmt.Errorf("cost_centers.exceptions.default_cost_center is required")
	}
	if e.ExceptionCostCenter == "" {
		return fmt.Errorf("cost_centers.exceptions.exception_cost_center is required")
	}
	if e.DefaultCostCenter == e.ExceptionCostCenter {
		return fmt.Errorf("cost_centers.exceptions.default_cost_center and exception_cost_center must differ")
	}

	return nil
}

func (c *Config) validateRepositories() error {
	r := c.CostCenters.Repositories

	if len(r.Organizations) == 0 {
		return fmt.Errorf("cost_centers.repositories.organizations is required")
	}
	if len(r.Mappings) == 0 {
		return fmt.Errorf("cost_centers.repositories.mappings is required")
	}
	for i, m := range r.Mappings {
		if m.CostCenter == "" {
			return fmt.Errorf("cost_centers.repositories.mappings[%d].cost_center is required", i)
		}
		if m.PropertyName == "" {
			return fmt.Errorf("cost_centers.repositories.mappings[%d].property_name is required", i)
		}
		if len(m.PropertyValues) == 0 {
			return fmt.Errorf("cost_centers.repositories.mappings[%d].property_values is required", i)
		}
	}

	return nil
}

// CachePath returns the configured cache path, falling back to the
// default location
func (c *Config) CachePath() (string, error) {
	if c.Cache.Path != "" {
		return c.Cache.Path, nil
	}
	return DefaultCachePath()
}
