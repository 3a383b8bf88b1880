package scan

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// unitResult is what one worker hands back: records on success, diagnostics
// on partial or total failure. One bad unit never aborts the scan.
type unitResult struct {
	records []DependencyRecord
	diags   []Diagnostic
}

// runner executes discovery units on a bounded worker pool with rate-limited
// dispatch. Workers share no mutable state; each returns its own result and a
// join barrier waits for all of them before matching begins.
type runner struct {
	workers   int
	rateLimit int
}

func (r *runner) run(ctx context.Context, units []unit, fn func(context.Context, unit) unitResult) []unitResult {
	limiter := rate.NewLimiter(rate.Limit(r.rateLimit), r.rateLimit)

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	mu := sync.Mutex{}
	results := make([]unitResult, 0, len(units))

	for _, u := range units {
		wg.Add(1)
		go func(u unit) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			_ = limiter.Wait(ctx)

			res := fn(ctx, u)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(u)
	}

	wg.Wait()
	return results
}
