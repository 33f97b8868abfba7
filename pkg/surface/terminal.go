package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/townscope/townscope/pkg/scoring"
)

// TerminalRenderer renders a Report as styled terminal output.
type TerminalRenderer struct {
	// ForceColor styles output even when w is not a terminal.
	// NO_COLOR still wins.
	ForceColor bool
	// Width wraps appeal statements and insights. Defaults to 76.
	Width int
	// Factors is how many top factors to list per town. Defaults to 3.
	Factors int
}

type palette struct {
	header    lipgloss.Style
	name      lipgloss.Style
	excellent lipgloss.Style
	good      lipgloss.Style
	fair      lipgloss.Style
	poor      lipgloss.Style
	warn      lipgloss.Style
	dim       lipgloss.Style
}

func newPalette(w io.Writer, force bool) palette {
	r := lipgloss.NewRenderer(w)
	switch {
	case noColor():
		r.SetColorProfile(termenv.Ascii)
	case force:
		r.SetColorProfile(termenv.ANSI256)
	}
	return palette{
		header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		name:      r.NewStyle().Bold(true),
		excellent: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		good:      r.NewStyle().Foreground(lipgloss.Color("12")),
		fair:      r.NewStyle().Foreground(lipgloss.Color("3")),
		poor:      r.NewStyle().Foreground(lipgloss.Color("9")),
		warn:      r.NewStyle().Foreground(lipgloss.Color("3")),
		dim:       r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (p palette) tier(t scoring.QualityTier) lipgloss.Style {
	switch t {
	case scoring.TierExcellent, scoring.TierVeryGood:
		return p.excellent
	case scoring.TierGood:
		return p.good
	case scoring.TierFair:
		return p.fair
	default:
		return p.poor
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func (r *TerminalRenderer) Render(w io.Writer, report *Report) error {
	pal := newPalette(w, r.ForceColor)
	width := r.Width
	if width <= 0 {
		width = 76
	}
	maxFactors := r.Factors
	if maxFactors <= 0 {
		maxFactors = 3
	}

	var sb strings.Builder

	// Header
	sb.WriteString(pal.header.Render(fmt.Sprintf("Townscope: %d of %d towns", len(report.Results), report.Total)))
	if report.ConfigVersion != "" {
		sb.WriteString(" " + pal.dim.Render("(config "+report.ConfigVersion+")"))
	}
	sb.WriteString("\n")

	if len(report.Weights) > 0 {
		fmt.Fprintf(&sb, "Weights: %s\n", formatWeights(report.Weights))
	}
	if len(report.AppliedRules) > 0 {
		fmt.Fprintf(&sb, "Rules:   %s\n", strings.Join(report.AppliedRules, ", "))
	}
	sb.WriteString("\n")

	if len(report.Results) == 0 {
		sb.WriteString("No towns to rank.\n")
	}

	for i := range report.Results {
		m := &report.Results[i]
		rank := report.Offset + i + 1

		fmt.Fprintf(&sb, "%3d. %s  %s  %s\n",
			rank, pal.name.Render(displayName(m)),
			pal.tier(m.QualityTier).Render(fmt.Sprintf("%.1f", m.OverallScore)),
			pal.tier(m.QualityTier).Render(string(m.QualityTier)))

		fmt.Fprintf(&sb, "     %s\n", pal.dim.Render(formatCategories(m)))
		fmt.Fprintf(&sb, "     %s\n", pal.dim.Render(fmt.Sprintf("confidence %s, value %d/5, data %.0f%%",
			m.ConfidenceTier, m.ValueTier, m.DataCompleteness*100)))

		n := maxFactors
		if len(m.TopFactors) < n {
			n = len(m.TopFactors)
		}
		for _, f := range m.TopFactors[:n] {
			fmt.Fprintf(&sb, "     + %s (%s)\n", f.Label, signed(f.Points))
		}
		for _, warning := range m.Warnings {
			fmt.Fprintf(&sb, "     %s\n", pal.warn.Render("! "+warning))
		}
		for _, line := range wrapText(m.AppealStatement, width-5) {
			fmt.Fprintf(&sb, "     %s\n", pal.dim.Render(line))
		}
		if m.PersonalizationNote != "" {
			for _, line := range wrapText(m.PersonalizationNote, width-5) {
				fmt.Fprintf(&sb, "     %s\n", pal.dim.Render(line))
			}
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatWeights(w scoring.Weights) string {
	parts := make([]string, 0, len(scoring.Categories))
	for _, c := range scoring.Categories {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", c, w[c]*100))
	}
	return strings.Join(parts, "  ")
}

func formatCategories(m *scoring.MatchResult) string {
	parts := make([]string, 0, len(scoring.Categories))
	for _, c := range scoring.Categories {
		score, ok := m.CategoryScores[c]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.0f", c.Title(), score))
	}
	return strings.Join(parts, "  ")
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
