// internal/config/config.go
//
// This package handles configuration and the .trellis directory structure.
// Every workspace that uses trellis gets a .trellis/ folder created in its
// root. All paths flow from an explicitly passed workspace root; nothing in
// here reads environment variables or conventional locations.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TrellisDir is the name of the directory we create in each workspace root.
const TrellisDir = ".trellis"

const defaultWorkspaceFile = "workspace.yaml"

const defaultRunConfigYAML = `# trellis workspace configuration
version: 1

# Workspace description file, relative to the workspace root.
workspace: workspace.yaml

# Targets to run when none are requested on the command line.
default_targets: [build]

# How many actions may execute at once. 1 runs sequentially.
parallel: 1

# Directory holding Go script action plugins, relative to the workspace root.
# plugins: .trellis/plugins
`

// RunConfig models .trellis/config.yaml.
type RunConfig struct {
	Version        int      `yaml:"version"`
	Workspace      string   `yaml:"workspace"`
	DefaultTargets []string `yaml:"default_targets"`
	Parallel       int      `yaml:"parallel"`
	Plugins        string   `yaml:"plugins,omitempty"`
}

func defaultRunConfig() RunConfig {
	return RunConfig{
		Version:        1,
		Workspace:      defaultWorkspaceFile,
		DefaultTargets: []string{"build"},
		Parallel:       1,
	}
}

// Config holds the runtime configuration for trellis.
type Config struct {
	// Root is the workspace root the user pointed trellis at.
	Root string

	// TrellisRootDir is Root/.trellis.
	TrellisRootDir string

	Run RunConfig
}

// InitTrellisDir creates the .trellis directory structure in the given
// workspace root and seeds a default config.yaml when none exists.
//
// Structure created:
// .trellis/
// ├── logs/     <- orchestration activity log
// ├── runs/     <- persisted run reports and the run journal
// └── plugins/  <- Go script action plugins
func InitTrellisDir(root string) error {
	trellisDir := filepath.Join(root, TrellisDir)
	dirs := []string{
		filepath.Join(trellisDir, "logs"),
		filepath.Join(trellisDir, "runs"),
		filepath.Join(trellisDir, "plugins"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureRunConfig(filepath.Join(trellisDir, "config.yaml"))
}

// NewConfig loads the configuration for the given workspace root. A missing
// config.yaml falls back to defaults.
func NewConfig(root string) (*Config, error) {
	cfg := &Config{
		Root:           root,
		TrellisRootDir: filepath.Join(root, TrellisDir),
		Run:            defaultRunConfig(),
	}
	if err := cfg.loadRunConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.TrellisRootDir, "logs")
}

// RunsDir returns the directory holding persisted run reports.
func (c *Config) RunsDir() string {
	return filepath.Join(c.TrellisRootDir, "runs")
}

// PluginsDir returns the directory holding Go script action plugins.
func (c *Config) PluginsDir() string {
	if strings.TrimSpace(c.Run.Plugins) != "" {
		return filepath.Join(c.Root, c.Run.Plugins)
	}
	return filepath.Join(c.TrellisRootDir, "plugins")
}

// WorkspacePath returns the absolute path of the workspace description file.
func (c *Config) WorkspacePath() string {
	workspace := c.Run.Workspace
	if strings.TrimSpace(workspace) == "" {
		workspace = defaultWorkspaceFile
	}
	if filepath.IsAbs(workspace) {
		return workspace
	}
	return filepath.Join(c.Root, workspace)
}

// DefaultTargets returns the targets to run when the caller requests none.
func (c *Config) DefaultTargets() []string {
	if len(c.Run.DefaultTargets) == 0 {
		return []string{"build"}
	}
	return append([]string{}, c.Run.DefaultTargets...)
}

// Parallel returns the configured worker count, never below one.
func (c *Config) Parallel() int {
	if c.Run.Parallel < 1 {
		return 1
	}
	return c.Run.Parallel
}

// RunConfigPath returns the on-disk location for the config file.
func (c *Config) RunConfigPath() string {
	return filepath.Join(c.TrellisRootDir, "config.yaml")
}

func (c *Config) loadRunConfig() error {
	path := c.RunConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var loaded RunConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyRunConfig(loaded)
	return nil
}

func (c *Config) applyRunConfig(loaded RunConfig) {
	if loaded.Version != 0 {
		c.Run.Version = loaded.Version
	}
	if strings.TrimSpace(loaded.Workspace) != "" {
		c.Run.Workspace = loaded.Workspace
	}
	if len(loaded.DefaultTargets) > 0 {
		c.Run.DefaultTargets = loaded.DefaultTargets
	}
	if loaded.Parallel > 0 {
		c.Run.Parallel = loaded.Parallel
	}
	if strings.TrimSpace(loaded.Plugins) != "" {
		c.Run.Plugins = loaded.Plugins
	}
}

func ensureRunConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultRunConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
