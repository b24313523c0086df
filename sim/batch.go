package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent runners concurrently, at most parallel at a
// time (parallel <= 0 means one per runner). Results are returned in the
// order of runners. The first error cancels the remaining runs.
func RunAll(ctx context.Context, runners []*Runner, parallel int) ([]Result, error) {
	results := make([]Result, len(runners))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, r := range runners {
		i, r := i, r
		g.Go(func() error {
			res, err := r.Run(ctx)
			results[i] = res
			return err
		})
	}
	err := g.Wait()
	return results, err
}
