package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/townscope/townscope/pkg/scoring"
)

func newWeightsCmd() *cobra.Command {
	var (
		in        inputFlags
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show the category weights for the profile",
		Long:  `Prints the adaptive category weights for the profile and the rules that adjusted them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeights(cmd.OutOrStdout(), in, outputFmt)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

func runWeights(w io.Writer, in inputFlags, outputFmt string) error {
	s, err := openSession(in)
	if err != nil {
		return err
	}
	p, err := loadProfile(s.proj.profilePath(in.profile))
	if err != nil {
		return err
	}

	weights, rules := scoring.ComputeWeights(&p, s.cfg)
	if rules == nil {
		rules = []string{}
	}

	switch outputFmt {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ConfigVersion string          `json:"config_version"`
			Weights       scoring.Weights `json:"weights"`
			AppliedRules  []string        `json:"applied_rules"`
		}{s.cfg.Version(), weights, rules})
	case "text", "":
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", outputFmt)
	}

	fmt.Fprintf(w, "Category weights (config %s)\n\n", s.cfg.Version())
	base := s.cfg.BaseWeights
	for _, c := range scoring.Categories {
		delta := ""
		if b, ok := base[c]; ok && b != weights[c] {
			delta = fmt.Sprintf("  (base %4.1f%%)", b*100)
		}
		fmt.Fprintf(w, "  %-16s %5.1f%%  %s%s\n", c.Title(), weights[c]*100, strings.Repeat("#", int(weights[c]*100/2+0.5)), delta)
	}
	fmt.Fprintln(w)
	if len(rules) == 0 {
		fmt.Fprintln(w, "No adaptive rules fired; base weights apply.")
		return nil
	}
	fmt.Fprintln(w, "Rules applied:")
	for _, r := range rules {
		fmt.Fprintf(w, "  - %s\n", r)
	}
	return nil
}
