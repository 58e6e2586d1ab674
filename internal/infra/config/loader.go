// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/git-sprout/internal/domain"
)

// Ensure Loader implements the config ports.
var (
	_ domain.ConfigLoader  = (*Loader)(nil)
	_ domain.ConfigManager = (*Loader)(nil)
)

// Loader loads configuration from TOML files.
type Loader struct {
	globalConfDir string // Path to global config directory (e.g., ~/.config/sprout)
}

// NewLoader creates a new Loader reading the global config from the XDG config home.
func NewLoader() *Loader {
	return &Loader{globalConfDir: defaultGlobalConfigDir()}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(globalConfDir string) *Loader {
	return &Loader{globalConfDir: globalConfDir}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sprout")
}

// GlobalPath returns the global config file path ("" if unknown).
func (l *Loader) GlobalPath() string {
	if l.globalConfDir == "" {
		return ""
	}
	return filepath.Join(l.globalConfDir, domain.ConfigFileName)
}

// RepoPath returns the repository config file path of repoRoot.
func RepoPath(repoRoot string) string {
	return filepath.Join(domain.RepoSproutDir(filepath.Join(repoRoot, ".git")), domain.ConfigFileName)
}

// RepoPath returns the repository config file path of repoRoot.
func (l *Loader) RepoPath(repoRoot string) string {
	return RepoPath(repoRoot)
}

// Init writes the configuration template to path.
func (l *Loader) Init(path string) error {
	return Init(path)
}

// Load returns the merged configuration: default <- global <- repository.
// An empty repoRoot skips the repository file.
func (l *Loader) Load(repoRoot string) (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	paths := []string{l.GlobalPath()}
	if repoRoot != "" {
		paths = append(paths, RepoPath(repoRoot))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		file, err := loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		file.applyTo(cfg)
		for _, w := range file.warnings {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%s: %s", path, w))
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects values that cannot be acted on.
func validate(cfg *domain.Config) error {
	switch cfg.Session.Multiplexer {
	case domain.MultiplexerTmux, domain.MultiplexerNone:
	default:
		return fmt.Errorf("invalid [session] multiplexer %q", cfg.Session.Multiplexer)
	}
	switch cfg.Merge.Strategy {
	case domain.StrategyRebase, domain.StrategyMerge:
	default:
		return fmt.Errorf("invalid [merge] strategy %q", cfg.Merge.Strategy)
	}
	if cfg.Merge.FetchTimeout <= 0 {
		return fmt.Errorf("invalid [merge] fetch_timeout %s", cfg.Merge.FetchTimeout)
	}
	return nil
}

// fileConfig is one parsed file. Nil pointers mean "not set".
type fileConfig struct {
	agents        map[string]agentDef
	defaultAgent  *string
	multiplexer   *string
	strategy      *string
	remote        *string
	fetchTimeout  *time.Duration
	autoMerge     *bool
	quarantine    []string
	quarantineSet bool
	worktreeDir   *string
	worktreeSetup *string
	logLevel      *string
	warnings      []string
}

type agentDef struct {
	command     *string
	args        *string
	promptFlag  *string
	prompt      *string
	description *string
}

// loadFile loads a configuration from a file.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return parseRaw(raw), nil
}

// parseRaw converts the raw map into a fileConfig and collects warnings.
func parseRaw(raw map[string]any) *fileConfig {
	fc := &fileConfig{agents: make(map[string]agentDef)}

	for section, value := range raw {
		switch section {
		case "default_agent":
			fc.defaultAgent = stringPtr(value)
		case "agents":
			if m, ok := value.(map[string]any); ok {
				for name, def := range m {
					dm, ok := def.(map[string]any)
					if !ok {
						fc.warn("[agents.%s] must be a table", name)
						continue
					}
					fc.agents[name] = fc.parseAgent(name, dm)
				}
			}
		case "session":
			fc.eachKey("session", value, func(k string, v any) bool {
				if k == "multiplexer" {
					fc.multiplexer = stringPtr(v)
					return true
				}
				return false
			})
		case "merge":
			fc.eachKey("merge", value, fc.parseMergeKey)
		case "worktree":
			fc.eachKey("worktree", value, func(k string, v any) bool {
				switch k {
				case "dir":
					fc.worktreeDir = stringPtr(v)
					return true
				case "setup":
					fc.worktreeSetup = stringPtr(v)
					return true
				}
				return false
			})
		case "log":
			fc.eachKey("log", value, func(k string, v any) bool {
				if k == "level" {
					fc.logLevel = stringPtr(v)
					return true
				}
				return false
			})
		default:
			fc.warn("unknown section: %s", section)
		}
	}

	sort.Strings(fc.warnings)
	return fc
}

func (fc *fileConfig) warn(format string, args ...any) {
	fc.warnings = append(fc.warnings, fmt.Sprintf(format, args...))
}

// eachKey calls fn for every key of a table section; fn reports whether it knew the key.
func (fc *fileConfig) eachKey(section string, value any, fn func(k string, v any) bool) {
	m, ok := value.(map[string]any)
	if !ok {
		fc.warn("[%s] must be a table", section)
		return
	}
	for k, v := range m {
		if !fn(k, v) {
			fc.warn("unknown key in [%s]: %s", section, k)
		}
	}
}

func (fc *fileConfig) parseMergeKey(k string, v any) bool {
	switch k {
	case "strategy":
		fc.strategy = stringPtr(v)
	case "remote":
		fc.remote = stringPtr(v)
	case "auto_merge":
		if b, ok := v.(bool); ok {
			fc.autoMerge = &b
		}
	case "fetch_timeout":
		s, ok := v.(string)
		if !ok {
			fc.warn("[merge] fetch_timeout must be a duration string")
			return true
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			fc.warn("[merge] fetch_timeout: %v", err)
			return true
		}
		fc.fetchTimeout = &d
	case "quarantine":
		list, ok := v.([]any)
		if !ok {
			fc.warn("[merge] quarantine must be a list of paths")
			return true
		}
		fc.quarantineSet = true
		fc.quarantine = []string{}
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				fc.quarantine = append(fc.quarantine, s)
			}
		}
	default:
		return false
	}
	return true
}

func (fc *fileConfig) parseAgent(name string, m map[string]any) agentDef {
	var def agentDef
	for k, v := range m {
		switch k {
		case "command":
			def.command = stringPtr(v)
		case "args":
			def.args = stringPtr(v)
		case "prompt_flag":
			def.promptFlag = stringPtr(v)
		case "prompt":
			def.prompt = stringPtr(v)
		case "description":
			def.description = stringPtr(v)
		default:
			fc.warn("unknown key in [agents.%s]: %s", name, k)
		}
	}
	return def
}

func stringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// applyTo overlays the values set in fc onto cfg.
func (fc *fileConfig) applyTo(cfg *domain.Config) {
	setString(&cfg.DefaultAgent, fc.defaultAgent)
	setString(&cfg.Session.Multiplexer, fc.multiplexer)
	setString(&cfg.Merge.Strategy, fc.strategy)
	setString(&cfg.Merge.Remote, fc.remote)
	setString(&cfg.Worktree.Dir, fc.worktreeDir)
	setString(&cfg.Worktree.Setup, fc.worktreeSetup)
	setString(&cfg.Log.Level, fc.logLevel)
	if fc.fetchTimeout != nil {
		cfg.Merge.FetchTimeout = *fc.fetchTimeout
	}
	if fc.autoMerge != nil {
		cfg.Merge.AutoMerge = *fc.autoMerge
	}
	if fc.quarantineSet {
		cfg.Merge.Quarantine = fc.quarantine
	}

	// Agents merge field by field over built-ins and earlier files
	for name, def := range fc.agents {
		agent := cfg.Agents[name]
		setString(&agent.Command, def.command)
		setString(&agent.Args, def.args)
		setString(&agent.PromptFlag, def.promptFlag)
		setString(&agent.Prompt, def.prompt)
		setString(&agent.Description, def.description)
		cfg.Agents[name] = agent
	}
}
