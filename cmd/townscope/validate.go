package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

func newValidateCmd() *cobra.Command {
	var (
		in     inputFlags
		merged string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the project config, town data and profile",
		Long: `Loads everything a ranking would use and reports problems: unreadable
files, towns without an id, duplicate ids, sparse records, and scoring
config inconsistencies. Exits non-zero when an error is found.

With --write-merged, a clean run also writes every town file, deduplicated
with later files winning, into one dataset ready for the catalog importer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), in, merged)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&merged, "write-merged", "", "Write the merged town dataset to this path when validation passes")
	return cmd
}

// sparseCompleteness flags towns too sparse to score with confidence.
const sparseCompleteness = 0.3

func runValidate(w io.Writer, in inputFlags, merged string) error {
	s, err := openSession(in)
	if err != nil {
		return err
	}

	var problems, warnings int
	errorf := func(format string, args ...any) {
		problems++
		fmt.Fprintf(w, "  ERROR  "+format+"\n", args...)
	}
	warnf := func(format string, args ...any) {
		warnings++
		fmt.Fprintf(w, "  WARN   "+format+"\n", args...)
	}

	fmt.Fprintf(w, "Project: %s\n", s.proj.root)
	fmt.Fprintf(w, "Scoring config: %s\n", s.cfg.Version())
	checkScoringConfig(s.cfg, errorf, warnf)

	files, err := expandTownPatterns(s.proj.townPatterns(in.towns))
	if err != nil {
		errorf("%v", err)
	}
	if err == nil && len(files) == 0 {
		errorf("no town files matched %v", s.proj.townPatterns(in.towns))
	}

	seen := make(map[string]string)
	var total, sparse int
	for _, f := range files {
		towns, err := town.Load(f)
		if err != nil {
			errorf("%s: %v", f, err)
			continue
		}
		for i := range towns {
			t := &towns[i]
			total++
			switch {
			case t.ID == "":
				errorf("%s: town #%d (%q) has no id", f, i, t.Name)
				continue
			case seen[t.ID] != "":
				warnf("%s: town %q also defined in %s; the later record wins", f, t.ID, seen[t.ID])
			}
			seen[t.ID] = f
			if scoring.Completeness(t) < sparseCompleteness {
				sparse++
			}
		}
	}
	fmt.Fprintf(w, "Towns: %d records in %d files, %d unique\n", total, len(files), len(seen))
	if sparse > 0 {
		warnf("%d towns have less than %.0f%% of scored fields", sparse, sparseCompleteness*100)
	}

	if path := s.proj.profilePath(in.profile); path != "" {
		p, err := loadProfile(path)
		if err != nil {
			errorf("profile: %v", err)
		} else {
			fmt.Fprintf(w, "Profile: %s (%.0f%% of sections answered)\n", path, p.Coverage()*100)
			if p.Coverage() == 0 {
				warnf("profile has no preferences; every category scores neutrally")
			}
		}
	}

	fmt.Fprintf(w, "\n%d errors, %d warnings\n", problems, warnings)
	if problems > 0 {
		return fmt.Errorf("validation failed with %d errors", problems)
	}

	if merged != "" {
		towns, err := loadTowns(s.proj.townPatterns(in.towns))
		if err != nil {
			return err
		}
		if err := town.Save(merged, towns); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %d towns to %s\n", len(towns), merged)
	}
	return nil
}

func checkScoringConfig(cfg *scoring.Config, errorf, warnf func(string, ...any)) {
	if sum := cfg.BaseWeights.Sum(); len(cfg.BaseWeights) > 0 && math.Abs(sum-1) > 0.01 {
		warnf("base weights sum to %.3f; they are renormalized to 1", sum)
	}
	for _, c := range scoring.Categories {
		if cfg.BaseWeights[c] < 0 {
			errorf("base weight for %s is negative", c)
		}
	}
	q := cfg.Quality
	if !(q.Excellent > q.VeryGood && q.VeryGood > q.Good && q.Good > q.Fair) {
		errorf("quality thresholds must descend: excellent %.0f, very good %.0f, good %.0f, fair %.0f",
			q.Excellent, q.VeryGood, q.Good, q.Fair)
	}
	if cfg.NeutralScore < 0 || cfg.NeutralScore > 100 {
		errorf("neutral score %.0f outside 0-100", cfg.NeutralScore)
	}
}
