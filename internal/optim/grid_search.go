// Package optim tunes controller gains by closed-loop simulation.
package optim

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Evaluate scores one parameter set; lower is better.
type Evaluate func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, limit: 4}
}

// SetLimit bounds the number of concurrent evaluations.
func (g *GridSearch) SetLimit(n int) { g.limit = n }

// Candidates enumerates the full grid in lexical order of the ranges.
func (g *GridSearch) Candidates() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, make(map[string]float64), &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		c := make(map[string]float64, len(current))
		for k, v := range current {
			c[k] = v
		}
		*out = append(*out, c)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		g.enumerate(depth+1, current, out)
	}
	delete(current, paramName)
}

// Search evaluates every candidate and returns the best one. Candidates
// whose evaluation fails or scores NaN are skipped.
func (g *GridSearch) Search(ctx context.Context, eval Evaluate) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, errors.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	candidates := g.Candidates()
	scores := make([]float64, len(candidates))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.limit)

	var mu sync.Mutex
	failures := 0
	for i, params := range candidates {
		i, params := i, params
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := eval(ctx, params)
			if err != nil || math.IsNaN(score) {
				mu.Lock()
				failures++
				mu.Unlock()
				score = math.Inf(1)
			}
			scores[i] = score
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, 0, err
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	if len(order) == 0 || math.IsInf(scores[order[0]], 1) {
		return nil, math.Inf(1), errors.Errorf("no usable candidate (%d of %d failed)", failures, len(candidates))
	}
	return candidates[order[0]], scores[order[0]], nil
}
