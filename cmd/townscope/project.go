package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/pkg/config"
	"github.com/townscope/townscope/pkg/scoring"
)

// project is the resolved working context of a CLI invocation.
type project struct {
	root string
	cfg  *config.Config
}

// inputFlags are shared by every command that reads towns or a profile.
type inputFlags struct {
	projectPath   string
	towns         []string
	profile       string
	scoringConfig string
}

// resolveProject finds the project root and loads its config. Without a
// .townscope/config.yaml the start directory is the root and defaults apply.
func resolveProject(projectPath string) (*project, error) {
	start := projectPath
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		start = cwd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}

	cfgFile := config.FindConfigFile(abs)
	if cfgFile == "" {
		cfg := config.DefaultConfig()
		cfg.ResolvePaths(abs)
		return &project{root: abs, cfg: cfg}, nil
	}

	root := config.ProjectRoot(cfgFile)
	cfg := loadConfig(cfgFile)
	cfg.ResolvePaths(root)
	logging.Debug().Str("config", cfgFile).Msg("loaded project config")
	return &project{root: root, cfg: cfg}, nil
}

func loadConfig(cfgFile string) *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logging.Warn().Err(err).Str("path", cfgFile).Msg("failed to load config, using defaults")
		return config.DefaultConfig()
	}
	return cfg
}

// scoringConfig returns the project's scoring config, or the file named by
// override or TOWNSCOPE_SCORING_CONFIG when set.
func (p *project) scoringConfig(override string) (*scoring.Config, error) {
	override = firstNonEmpty(override, os.Getenv("TOWNSCOPE_SCORING_CONFIG"))
	if override == "" {
		return p.cfg.ScoringConfig(), nil
	}
	cfg, err := scoring.LoadConfig(override)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// townPatterns returns the flag patterns if any, else the configured ones.
func (p *project) townPatterns(flagPatterns []string) []string {
	if len(flagPatterns) > 0 {
		return flagPatterns
	}
	return p.cfg.Data.Towns
}

// profilePath returns the flag path if set, else the configured profile.
// A configured profile that does not exist yields "" (the empty profile).
func (p *project) profilePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := p.cfg.Data.Profile; path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		logging.Debug().Str("path", path).Msg("configured profile not found, using empty profile")
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
