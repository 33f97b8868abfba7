package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/townscope/townscope/pkg/scoring"
)

// MarkdownRenderer produces a markdown ranking report, suitable for a
// pull request comment or a stored report blob.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, report *Report) error {
	_, err := io.WriteString(w, BuildMarkdownSummary(report))
	return err
}

// BuildMarkdownSummary renders the report as markdown.
func BuildMarkdownSummary(report *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Townscope: %d of %d towns\n\n", len(report.Results), report.Total))

	if len(report.Weights) > 0 {
		sb.WriteString("### Weights\n\n")
		sb.WriteString("| Category | Weight |\n|----------|--------|\n")
		for _, c := range scoring.Categories {
			sb.WriteString(fmt.Sprintf("| %s | %.0f%% |\n", c.Title(), report.Weights[c]*100))
		}
		sb.WriteString("\n")
		if len(report.AppliedRules) > 0 {
			sb.WriteString(fmt.Sprintf("Adjusted by: %s\n\n", strings.Join(report.AppliedRules, ", ")))
		}
	}

	if len(report.Results) == 0 {
		sb.WriteString("_No towns to rank._\n")
		return sb.String()
	}

	sb.WriteString("### Ranking\n\n")
	sb.WriteString("| # | Town | Score | Tier |")
	for _, c := range scoring.Categories {
		sb.WriteString(" " + c.Title() + " |")
	}
	sb.WriteString("\n|---|------|-------|------|")
	for range scoring.Categories {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for i := range report.Results {
		m := &report.Results[i]
		sb.WriteString(fmt.Sprintf("| %d | %s | %.1f | %s |", report.Offset+i+1, displayName(m), m.OverallScore, m.QualityTier))
		for _, c := range scoring.Categories {
			sb.WriteString(fmt.Sprintf(" %.0f |", m.CategoryScores[c]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	// Details (top 3 factors and every warning per town)
	for i := range report.Results {
		m := &report.Results[i]
		sb.WriteString(fmt.Sprintf("#### %s\n\n", displayName(m)))
		if m.AppealStatement != "" {
			sb.WriteString(fmt.Sprintf("_%s_\n\n", m.AppealStatement))
		}
		maxFactors := 3
		if len(m.TopFactors) < maxFactors {
			maxFactors = len(m.TopFactors)
		}
		for _, f := range m.TopFactors[:maxFactors] {
			sb.WriteString(fmt.Sprintf("- **%s** (%s)\n", f.Label, signed(f.Points)))
		}
		for _, warning := range m.Warnings {
			sb.WriteString(fmt.Sprintf("- :warning: %s\n", warning))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
