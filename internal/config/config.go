package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models classline.yml.
type Config struct {
	Workspace struct {
		ID string `yaml:"id"`
	} `yaml:"workspace"`
	Dashboard struct {
		LogCapacity int    `yaml:"log_capacity"`
		FetchLimits `yaml:"fetch_limits"`
		ResyncDelay string `yaml:"resync_delay"`
	} `yaml:"dashboard"`
	Classification struct {
		Categories         []MatchRule `yaml:"categories"`
		DeadlineCategories []MatchRule `yaml:"deadline_categories"`
		Priorities         []MatchRule `yaml:"priorities"`
		Verbs              []MatchRule `yaml:"verbs"`
		SystemPhrases      []string    `yaml:"system_phrases"`
	} `yaml:"classification"`
}

// FetchLimits caps how many recent records each source contributes.
type FetchLimits struct {
	Lessons     int `yaml:"lessons"`
	Assignments int `yaml:"assignments"`
	Resources   int `yaml:"resources"`
	Events      int `yaml:"events"`
}

// MatchRule maps a substring to a value. Rule order is part of the
// contract: first match wins.
type MatchRule struct {
	Contains string `yaml:"contains"`
	Value    string `yaml:"value"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with cl config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Workspace.ID == "" {
		return fmt.Errorf("config.workspace.id is required")
	}
	if c.Dashboard.LogCapacity <= 0 {
		return fmt.Errorf("config.dashboard.log_capacity must be positive")
	}
	for name, limit := range map[string]int{
		"lessons":     c.Dashboard.FetchLimits.Lessons,
		"assignments": c.Dashboard.FetchLimits.Assignments,
		"resources":   c.Dashboard.FetchLimits.Resources,
		"events":      c.Dashboard.FetchLimits.Events,
	} {
		if limit <= 0 {
			return fmt.Errorf("config.dashboard.fetch_limits.%s must be positive", name)
		}
	}
	if _, err := c.ResyncDelay(); err != nil {
		return err
	}
	for i, r := range c.Classification.Categories {
		if r.Contains == "" || r.Value == "" {
			return fmt.Errorf("classification.categories[%d] needs contains and value", i)
		}
	}
	for i, r := range c.Classification.DeadlineCategories {
		if r.Contains == "" || r.Value == "" {
			return fmt.Errorf("classification.deadline_categories[%d] needs contains and value", i)
		}
	}
	for i, r := range c.Classification.Priorities {
		if r.Contains == "" || r.Value == "" {
			return fmt.Errorf("classification.priorities[%d] needs contains and value", i)
		}
		switch r.Value {
		case "high", "medium", "low":
		default:
			return fmt.Errorf("classification.priorities[%d] has unknown priority %s", i, r.Value)
		}
	}
	for i, r := range c.Classification.Verbs {
		if r.Contains == "" || r.Value == "" {
			return fmt.Errorf("classification.verbs[%d] needs contains and value", i)
		}
	}
	for i, p := range c.Classification.SystemPhrases {
		if p == "" {
			return fmt.Errorf("classification.system_phrases[%d] is empty", i)
		}
	}
	return nil
}

// ResyncDelay parses the delayed-refetch interval.
func (c *Config) ResyncDelay() (time.Duration, error) {
	if c.Dashboard.ResyncDelay == "" {
		return 2 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Dashboard.ResyncDelay)
	if err != nil {
		return 0, fmt.Errorf("config.dashboard.resync_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config.dashboard.resync_delay must not be negative")
	}
	return d, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "classline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(workspaceID string) string {
	return fmt.Sprintf(defaultTemplate, workspaceID)
}

// Default returns the default Config struct for a workspace.
func Default(workspaceID string) *Config {
	var cfg Config
	cfg.Workspace.ID = workspaceID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, workspaceID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workspace:
  id: %s

dashboard:
  log_capacity: 50
  fetch_limits:
    lessons: 5
    assignments: 10
    resources: 3
    events: 3
  resync_delay: 2s

classification:
  categories:
    - {contains: lesson, value: lesson}
    - {contains: meeting, value: meeting}
    - {contains: deadline, value: deadline}
    - {contains: assessment, value: assessment}

  deadline_categories:
    - {contains: grad, value: grading}
    - {contains: plan, value: planning}
    - {contains: meet, value: meeting}

  priorities:
    - {contains: urgent, value: high}
    - {contains: high, value: high}
    - {contains: low, value: low}

  verbs:
    - {contains: task, value: Added}
    - {contains: plan, value: Created}

  system_phrases:
    - dashboard initialized
    - dashboard loaded
    - sync
    - refresh
    - force refetch
`
