package domain

import (
	"path/filepath"
	"sort"
	"time"
)

// ConfigFileName is the name of the configuration file, both globally and per repository.
const ConfigFileName = "config.toml"

// Session multiplexer choices.
const (
	MultiplexerTmux = "tmux"
	MultiplexerNone = "none"
)

// Integration strategies.
const (
	StrategyRebase = "rebase" // rebase onto base, then fast-forward (default)
	StrategyMerge  = "merge"  // explicit --no-ff merge commit onto base
)

// Config represents the application configuration.
type Config struct {
	Agents       map[string]Agent // [agents.<name>] overrides of built-in backends
	DefaultAgent string           // default_agent
	Session      SessionConfig    // [session]
	Merge        MergeConfig      // [merge]
	Worktree     WorktreeConfig   // [worktree]
	Log          LogConfig        // [log]
	Warnings     []string         // Unknown keys found while loading
}

// Agent describes how to start one assistant backend.
type Agent struct {
	Command     string // Executable (first word is checked by Validate)
	Args        string // Extra arguments appended after the command
	PromptFlag  string // Flag preceding the initial instruction (empty = positional)
	Prompt      string // Extra text appended to the generated instruction
	Description string // Human-readable description
}

// SessionConfig holds [session] settings.
type SessionConfig struct {
	Multiplexer string // "tmux" or "none"
}

// MergeConfig holds [merge] settings.
// Fields are ordered to minimize memory padding.
type MergeConfig struct {
	Quarantine   []string      // Repo-relative local-only paths
	Strategy     string        // "rebase" or "merge"
	Remote       string        // Remote consulted in the upstream reconcile step
	FetchTimeout time.Duration // Upper bound for the fetch step
	AutoMerge    bool          // Integrate automatically from check
}

// WorktreeConfig holds [worktree] settings.
type WorktreeConfig struct {
	Dir   string // Root for task worktrees (empty = <repo>/.git/sprout/worktrees)
	Setup string // Shell script run in every new worktree before the session starts
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string // Log level: debug, info, warn, error
}

// DefaultQuarantine lists the local editor/assistant settings never merged into a base branch.
var DefaultQuarantine = []string{
	".claude/settings.local.json",
	".claude/settings.json",
	".mcp.json",
}

// DefaultFetchTimeout bounds the upstream fetch during integration.
const DefaultFetchTimeout = 60 * time.Second

// NewDefaultConfig returns the configuration used when no file overrides it.
func NewDefaultConfig() *Config {
	return &Config{
		Agents:       BuiltinAgents(),
		DefaultAgent: "claude",
		Session: SessionConfig{
			Multiplexer: MultiplexerTmux,
		},
		Merge: MergeConfig{
			Strategy:     StrategyRebase,
			Remote:       "origin",
			FetchTimeout: DefaultFetchTimeout,
			Quarantine:   append([]string(nil), DefaultQuarantine...),
		},
		Log: LogConfig{Level: "info"},
	}
}

// BuiltinAgents returns the assistant backends known without configuration.
func BuiltinAgents() map[string]Agent {
	return map[string]Agent{
		"claude": {
			Command:     "claude",
			Args:        "--permission-mode acceptEdits",
			Description: "Claude via Anthropic CLI",
		},
		"codex": {
			Command:     "codex",
			Description: "Codex CLI",
		},
		"opencode": {
			Command:     "opencode",
			PromptFlag:  "--prompt",
			Description: "OpenCode CLI",
		},
	}
}

// AgentNames returns the configured agent names, sorted.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAgent returns the named agent, falling back to DefaultAgent.
func (c *Config) ResolveAgent(name string) (string, Agent, bool) {
	if name == "" {
		name = c.DefaultAgent
	}
	agent, ok := c.Agents[name]
	return name, agent, ok
}

// IsQuarantined reports whether a repo-relative path is on the quarantine list.
func (m MergeConfig) IsQuarantined(path string) bool {
	clean := filepath.ToSlash(filepath.Clean(path))
	for _, q := range m.Quarantine {
		if filepath.ToSlash(filepath.Clean(q)) == clean {
			return true
		}
	}
	return false
}
