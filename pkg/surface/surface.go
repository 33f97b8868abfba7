// Package surface renders ranked town matches.
// Implementations handle different output targets: terminal, markdown reports, JSON.
package surface

import (
	"fmt"
	"io"
	"time"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
)

// Renderer produces formatted output from a Report.
type Renderer interface {
	// Render writes the formatted report to the writer.
	Render(w io.Writer, report *Report) error
}

// Report is one ranking of towns for one profile.
type Report struct {
	ID            string                `json:"id,omitempty"`
	GeneratedAt   time.Time             `json:"generated_at"`
	ProfileHash   string                `json:"profile_hash,omitempty"`
	ConfigVersion string                `json:"config_version"`
	Weights       scoring.Weights       `json:"weights"`
	AppliedRules  []string              `json:"applied_rules,omitempty"`
	Total         int                   `json:"total"`
	Offset        int                   `json:"offset,omitempty"`
	Results       []scoring.MatchResult `json:"results"`
}

// NewReport builds a Report for a page of results. total is the number of
// towns that were ranked. A nil cfg uses scoring.Defaults.
func NewReport(p *profile.Profile, cfg *scoring.Config, results []scoring.MatchResult, total, offset int) *Report {
	if cfg == nil {
		d := scoring.Defaults()
		cfg = &d
	}
	if p == nil {
		p = &profile.Profile{}
	}
	weights, rules := scoring.ComputeWeights(p, cfg)
	if results == nil {
		results = []scoring.MatchResult{}
	}
	return &Report{
		GeneratedAt:   time.Now().UTC(),
		ProfileHash:   p.Hash(),
		ConfigVersion: cfg.Version(),
		Weights:       weights,
		AppliedRules:  rules,
		Total:         total,
		Offset:        offset,
		Results:       results,
	}
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or markdown)", format)
	}
}

func displayName(m *scoring.MatchResult) string {
	name := m.TownName
	if name == "" {
		name = m.TownID
	}
	if m.Country != "" {
		name += ", " + m.Country
	}
	return name
}

func signed(points float64) string {
	if points < 0 {
		return fmt.Sprintf("%g", points)
	}
	return fmt.Sprintf("+%g", points)
}
