package mcts

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/colosseum/game"
)

// searchParallel grows cfg.Workers independent trees from the same root and
// merges their root children by move. Each worker has its own RNG and arena,
// so nothing is shared until the merge.
func (e *Engine) searchParallel(ctx context.Context, b *game.Board, me, adv game.Position, maxStep int, deadline, start time.Time) (Result, error) {
	workers := e.cfg.Workers
	stats := make([]Stats, workers)
	children := make([][]ChildSummary, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			t := newTree(b, me, adv, maxStep, e.newRNG(i))
			stats[i] = e.run(gctx, t, deadline)
			children[i] = t.rootChildren()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	merged := mergeChildren(children)
	best, err := pickBest(merged)
	if err != nil {
		return Result{}, err
	}

	st := Stats{Workers: workers, Children: merged}
	for _, s := range stats {
		st.Iterations += s.Iterations
		st.RootVisits += s.RootVisits
		st.TreeSize += s.TreeSize
		st.MaxDepth = max(st.MaxDepth, s.MaxDepth)
	}
	st.Elapsed = time.Since(start)
	return Result{Move: merged[best].Move, Tally: merged[best].Tally, Stats: st}, nil
}

// mergeChildren sums tallies and visits of equal moves across trees. The
// output keeps the order in which moves are first seen, worker by worker.
func mergeChildren(perTree [][]ChildSummary) []ChildSummary {
	index := make(map[game.Move]int)
	var out []ChildSummary
	for _, cs := range perTree {
		for _, c := range cs {
			i, ok := index[c.Move]
			if !ok {
				index[c.Move] = len(out)
				out = append(out, newChildSummary(c.Move, c.Visits, c.Tally))
				continue
			}
			tally := out[i].Tally
			tally.Merge(c.Tally)
			out[i] = newChildSummary(c.Move, out[i].Visits+c.Visits, tally)
		}
	}
	return out
}
