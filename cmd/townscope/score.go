package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/pkg/config"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/surface"
	"github.com/townscope/townscope/pkg/town"
)

func addInputFlags(cmd *cobra.Command, in *inputFlags) {
	cmd.Flags().StringVar(&in.projectPath, "project", "", "Path to project root (default: search upward for .townscope/)")
	cmd.Flags().StringSliceVar(&in.towns, "towns", nil, "Town files or globs, e.g. 'data/**/*.json' (default: config data.towns)")
	cmd.Flags().StringVar(&in.profile, "profile", "", "Preference profile JSON (default: config data.profile)")
	cmd.Flags().StringVar(&in.scoringConfig, "scoring-config", "", "Scoring config YAML overriding the project's scoring section")
}

// session is everything a scoring command needs, loaded once.
type session struct {
	proj   *project
	cfg    *scoring.Config
	engine *scoring.Engine
}

func openSession(in inputFlags) (*session, error) {
	proj, err := resolveProject(in.projectPath)
	if err != nil {
		return nil, err
	}
	cfg, err := proj.scoringConfig(in.scoringConfig)
	if err != nil {
		return nil, err
	}
	return &session{proj: proj, cfg: cfg, engine: scoring.NewEngine(cfg)}, nil
}

func newScoreCmd() *cobra.Command {
	var (
		in        inputFlags
		outputFmt string
		factors   int
	)

	cmd := &cobra.Command{
		Use:   "score <town-id>",
		Short: "Score a single town against the profile",
		Long:  `Loads the towns and profile, scores one town, and explains the result category by category.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.OutOrStdout(), in, args[0], outputFmt, factors)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown")
	cmd.Flags().IntVar(&factors, "factors", 5, "Top factors to show")

	return cmd
}

func runScore(w io.Writer, in inputFlags, townID, outputFmt string, factors int) error {
	s, err := openSession(in)
	if err != nil {
		return err
	}
	towns, err := loadTowns(s.proj.townPatterns(in.towns))
	if err != nil {
		return err
	}
	p, err := loadProfile(s.proj.profilePath(in.profile))
	if err != nil {
		return err
	}

	var target *town.Town
	for i := range towns {
		if strings.EqualFold(towns[i].ID, townID) {
			target = &towns[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("town %q not found in %d loaded towns", townID, len(towns))
	}

	result := s.engine.Score(&p, target)
	report := surface.NewReport(&p, s.cfg, []scoring.MatchResult{result}, 1, 0)
	return render(w, report, outputFmt, factors)
}

func newRankCmd() *cobra.Command {
	var (
		in        inputFlags
		outputFmt string
		limit     int
		offset    int
		country   string
		workers   int
		save      bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank every town for the profile",
		Long:  `Scores all loaded towns in parallel and prints them best first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), cmd.OutOrStdout(), rankOpts{
				in:        in,
				outputFmt: outputFmt,
				limit:     limit,
				offset:    offset,
				country:   country,
				workers:   workers,
				save:      save,
				limitSet:  cmd.Flags().Changed("limit"),
				formatSet: cmd.Flags().Changed("output"),
			})
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown (default: config output.format)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum towns to show; 0 shows all (default: config output.limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many top results")
	cmd.Flags().StringVar(&country, "country", "", "Only rank towns in this country")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel scorers (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the ranking as JSON in the project's result directory")

	return cmd
}

type rankOpts struct {
	in        inputFlags
	outputFmt string
	limit     int
	offset    int
	country   string
	workers   int
	save      bool
	limitSet  bool
	formatSet bool
}

func runRank(ctx context.Context, w io.Writer, opts rankOpts) error {
	s, err := openSession(opts.in)
	if err != nil {
		return err
	}
	out := s.proj.cfg.Output
	limit := opts.limit
	if !opts.limitSet && out.Limit > 0 {
		limit = out.Limit
	}
	format := opts.outputFmt
	if !opts.formatSet && out.Format != "" {
		format = out.Format
	}
	workers := opts.workers
	if workers == 0 {
		workers = out.Workers
	}

	towns, err := loadTowns(s.proj.townPatterns(opts.in.towns))
	if err != nil {
		return err
	}
	if opts.country != "" {
		filtered := towns[:0:0]
		for _, t := range towns {
			if strings.EqualFold(t.Country, opts.country) {
				filtered = append(filtered, t)
			}
		}
		towns = filtered
	}
	p, err := loadProfile(s.proj.profilePath(opts.in.profile))
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := s.engine.Rank(ctx, &p, towns, scoring.RankOptions{
		Limit:   limit,
		Offset:  opts.offset,
		Workers: workers,
	})
	if err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	logging.Debug().Int("towns", len(towns)).Dur("elapsed", time.Since(start)).Msg("ranked towns")

	report := surface.NewReport(&p, s.cfg, results, len(towns), opts.offset)
	if opts.save {
		report.ID = uuid.NewString()
		saveReport(s.proj.root, report)
	}
	return render(w, report, format, 0)
}

func render(w io.Writer, report *surface.Report, format string, factors int) error {
	renderer, err := surface.ForFormat(format)
	if err != nil {
		return err
	}
	if tr, ok := renderer.(*surface.TerminalRenderer); ok && factors > 0 {
		tr.Factors = factors
	}
	if err := renderer.Render(w, report); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}

// saveReport persists a ranking to the project's result directory.
func saveReport(projectRoot string, report *surface.Report) {
	dir := config.ResultDir(projectRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create result dir: %v\n", err)
		return
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to marshal ranking: %v\n", err)
		return
	}

	name := report.GeneratedAt.Format("20060102T150405Z") + "_" + report.ID[:8] + ".json"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save ranking: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Ranking saved: %s\n", path)
}
