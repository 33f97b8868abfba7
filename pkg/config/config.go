// Package config handles loading the townscope project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/townscope/townscope/pkg/scoring"
)

// Config is the top-level project configuration, read from
// .townscope/config.yaml.
type Config struct {
	Scoring scoring.Config `yaml:"scoring"`
	Data    DataConfig     `yaml:"data"`
	Output  OutputConfig   `yaml:"output"`
}

// DataConfig points at the inputs the CLI scores.
type DataConfig struct {
	Towns   []string `yaml:"towns"`   // file paths or doublestar globs
	Profile string   `yaml:"profile"` // raw preference record (JSON)
}

// OutputConfig controls ranking output.
type OutputConfig struct {
	Limit   int    `yaml:"limit"`
	Workers int    `yaml:"workers"`
	Format  string `yaml:"format"` // text, json or markdown
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: scoring.Defaults(),
		Data: DataConfig{
			Towns:   []string{"data/towns/*.json"},
			Profile: "profile.json",
		},
		Output: OutputConfig{
			Limit:  10,
			Format: "text",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ScoringConfig returns a copy of the scoring section.
func (c *Config) ScoringConfig() *scoring.Config {
	sc := c.Scoring
	return &sc
}

// ResolvePaths makes the data paths absolute relative to root.
func (c *Config) ResolvePaths(root string) {
	for i, p := range c.Data.Towns {
		if p != "" && !filepath.IsAbs(p) {
			c.Data.Towns[i] = filepath.Join(root, p)
		}
	}
	if p := c.Data.Profile; p != "" && !filepath.IsAbs(p) {
		c.Data.Profile = filepath.Join(root, p)
	}
}

// FindConfigFile looks for .townscope/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".townscope", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ProjectRoot returns the directory holding the .townscope folder for a
// config path found by FindConfigFile.
func ProjectRoot(configPath string) string {
	return filepath.Dir(filepath.Dir(configPath))
}

// CacheDir returns the cache directory for a given project path.
// Uses ~/.cache/townscope/<project-slug>/ to avoid polluting the project.
func CacheDir(projectPath string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "townscope", projectSlug(projectPath))
}

// ResultDir returns where ranking results for a project are stored.
func ResultDir(projectPath string) string {
	return filepath.Join(CacheDir(projectPath), "results")
}

// projectSlug creates a filesystem-safe identifier from a project path.
// Uses the last two path components (e.g., "user_retire" from "/home/user/retire").
func projectSlug(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	dir := filepath.Base(filepath.Dir(abs))
	base := filepath.Base(abs)
	return dir + "_" + base
}
