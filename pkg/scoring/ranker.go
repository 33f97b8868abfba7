package scoring

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// RankOptions controls paging and parallelism for Rank.
type RankOptions struct {
	Limit   int // <= 0 returns every town
	Offset  int
	Workers int // <= 0 uses GOMAXPROCS
}

// Rank scores every town and returns the page of results requested, best
// first. Towns with equal scores keep their input order. The only error is
// cancellation of ctx.
func (e *Engine) Rank(ctx context.Context, p *profile.Profile, towns []town.Town, opts RankOptions) ([]MatchResult, error) {
	results := make([]MatchResult, len(towns))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range towns {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Score(p, &towns[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
	return page(results, opts.Offset, opts.Limit), nil
}

func page(results []MatchResult, offset, limit int) []MatchResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []MatchResult{}
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

// RankTowns ranks towns for a profile with a fresh engine. A nil cfg uses Defaults.
func RankTowns(p *profile.Profile, towns []town.Town, opts RankOptions, cfg *Config) []MatchResult {
	results, _ := NewEngine(cfg).Rank(context.Background(), p, towns, opts)
	return results
}
