// Package registry is the static capability table: for each sensitive action
// type, its default automation level and the minimum mode required to run it
// at each level.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/okume/actguard/internal/model"
)

// Capability describes the gating configuration for one action type.
type Capability struct {
	// DefaultLevel is used when a request carries no level override.
	DefaultLevel model.AutomationLevel `yaml:"default_level"`
	// MinMode maps each automation level to the minimum required mode.
	// Levels absent from the map require only standard mode.
	MinMode map[model.AutomationLevel]model.Mode `yaml:"min_mode"`
}

// Config is the full registry, YAML-overridable.
type Config struct {
	Capabilities map[model.ActionType]Capability `yaml:"capabilities"`
}

// DefaultConfig returns the built-in capability table. Fully automated
// operation of the riskiest actions is reserved for research mode; their
// assisted variants need advanced mode.
func DefaultConfig() *Config {
	return &Config{
		Capabilities: map[model.ActionType]Capability{
			model.ActionHandleChallenge: {
				DefaultLevel: model.LevelManual,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAssisted:  model.ModeAdvanced,
					model.LevelAutomated: model.ModeResearch,
				},
			},
			model.ActionSolveCaptcha: {
				DefaultLevel: model.LevelManual,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAssisted:  model.ModeAdvanced,
					model.LevelAutomated: model.ModeResearch,
				},
			},
			model.ActionSyncSession: {
				DefaultLevel: model.LevelAssisted,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAssisted:  model.ModeAdvanced,
					model.LevelAutomated: model.ModeResearch,
				},
			},
			model.ActionSubmitForm: {
				DefaultLevel: model.LevelAssisted,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAutomated: model.ModeAdvanced,
				},
			},
			model.ActionStoreCredential: {
				DefaultLevel: model.LevelAssisted,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAutomated: model.ModeAdvanced,
				},
			},
			model.ActionRetrieveCredential: {
				DefaultLevel: model.LevelAssisted,
				MinMode: map[model.AutomationLevel]model.Mode{
					model.LevelAutomated: model.ModeAdvanced,
				},
			},
			model.ActionExportAudit: {
				DefaultLevel: model.LevelAutomated,
				MinMode:      map[model.AutomationLevel]model.Mode{},
			},
			model.ActionChangeMode: {
				DefaultLevel: model.LevelAutomated,
				MinMode:      map[model.AutomationLevel]model.Mode{},
			},
			model.ActionUpdateConfig: {
				DefaultLevel: model.LevelAutomated,
				MinMode:      map[model.AutomationLevel]model.Mode{},
			},
			model.ActionAcceptTerms: {
				DefaultLevel: model.LevelAutomated,
				MinMode:      map[model.AutomationLevel]model.Mode{},
			},
		},
	}
}

// Load reads registry configuration from a YAML file. Empty path falls back
// to ~/.actguard/registry.yaml. A missing file returns defaults; entries in
// the file overwrite the built-in table per action type.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(home, ".actguard", "registry.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("registry: read config: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("registry: parse config: %w", err)
	}

	cfg := DefaultConfig()
	for t, entry := range overlay.Capabilities {
		if _, ok := model.ParseActionType(string(t)); !ok {
			return nil, fmt.Errorf("registry: unknown action type %q in config", t)
		}
		base := cfg.Capabilities[t]
		if entry.DefaultLevel != "" {
			if _, ok := model.ParseLevel(string(entry.DefaultLevel)); !ok {
				return nil, fmt.Errorf("registry: unknown automation level %q for %s", entry.DefaultLevel, t)
			}
			base.DefaultLevel = entry.DefaultLevel
		}
		for level, mode := range entry.MinMode {
			if _, err := model.ParseMode(string(mode)); err != nil {
				return nil, fmt.Errorf("registry: %s: %w", t, err)
			}
			base.MinMode[level] = mode
		}
		cfg.Capabilities[t] = base
	}
	return cfg, nil
}

// Lookup returns the capability for an action type.
func (c *Config) Lookup(t model.ActionType) (Capability, bool) {
	entry, ok := c.Capabilities[t]
	return entry, ok
}

// EffectiveLevel resolves the automation level for a request: a valid
// payload override wins, otherwise the registry default applies.
func (c *Config) EffectiveLevel(t model.ActionType, override string) model.AutomationLevel {
	if level, ok := model.ParseLevel(override); ok {
		return level
	}
	if entry, ok := c.Capabilities[t]; ok && entry.DefaultLevel != "" {
		return entry.DefaultLevel
	}
	return model.LevelManual
}

// MinModeFor returns the minimum mode required to run an action type at the
// given automation level. Levels without an explicit entry require standard.
func (c *Config) MinModeFor(t model.ActionType, level model.AutomationLevel) model.Mode {
	entry, ok := c.Capabilities[t]
	if !ok {
		return model.ModeStandard
	}
	if mode, ok := entry.MinMode[level]; ok {
		return mode
	}
	return model.ModeStandard
}

// DefaultConfigYAML returns a commented YAML string for actguard init.
func DefaultConfigYAML() string {
	return `# actguard capability registry
# Generated by: actguard init
#
# For each action type:
#   default_level: manual | assisted | automated
#     (used when a request carries no level override)
#   min_mode: minimum mode required per automation level
#     (levels omitted here require only standard mode)
#
# Entries below overwrite the built-in table per action type.
capabilities:
  solve-captcha:
    default_level: manual
    min_mode:
      assisted: advanced
      automated: research
  handle-challenge:
    default_level: manual
    min_mode:
      assisted: advanced
      automated: research
  sync-session:
    default_level: assisted
    min_mode:
      assisted: advanced
      automated: research
  submit-form:
    default_level: assisted
    min_mode:
      automated: advanced
`
}
