package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// expandTownPatterns resolves file paths and doublestar globs such as
// "data/**/*.json" into a sorted, deduplicated list of files.
func expandTownPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid town pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			logging.Warn().Str("pattern", pattern).Msg("no town files matched")
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// loadTowns reads every town file matched by patterns. A town ID seen again
// in a later file replaces the earlier record in place; records without an
// ID are dropped.
func loadTowns(patterns []string) ([]town.Town, error) {
	files, err := expandTownPatterns(patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no town files found (patterns: %v)", patterns)
	}

	var out []town.Town
	index := make(map[string]int)
	for _, f := range files {
		towns, err := town.Load(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		for _, t := range towns {
			if t.ID == "" {
				logging.Warn().Str("file", f).Str("name", t.Name).Msg("skipping town without id")
				continue
			}
			if i, ok := index[t.ID]; ok {
				out[i] = t
				continue
			}
			index[t.ID] = len(out)
			out = append(out, t)
		}
		logging.Debug().Str("file", f).Int("towns", len(towns)).Msg("loaded towns")
	}
	return out, nil
}

// loadProfile reads and normalizes a raw preference record. An empty path
// yields the empty profile, which scores every category neutrally.
func loadProfile(path string) (profile.Profile, error) {
	if path == "" {
		return profile.Profile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	p, err := profile.Parse(data)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
