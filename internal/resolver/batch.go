package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// BatchOptions tunes a batch resolution run.
type BatchOptions struct {
	// Concurrency bounds the number of in-flight resolutions.
	Concurrency int
	// ItemTimeout applies per template; zero disables it. A timed-out
	// item produces an error entry, never aborts the batch.
	ItemTimeout time.Duration
}

// BatchItem is the outcome for one template in a batch.
type BatchItem struct {
	Name     string
	Chain    *rtbtypes.InheritanceChain
	Err      error
	Duration time.Duration
}

// BatchResult collects the per-item outcomes in input order.
type BatchResult struct {
	Items    []BatchItem
	Resolved int
	Failed   int
	Duration time.Duration
}

// ResolveBatch resolves multiple template names concurrently. Individual
// resolutions are independent; they race only on cache writes, which are
// idempotent (the same key always resolves to the same chain), so
// last-write-wins is safe without extra coordination.
func (r *Resolver) ResolveBatch(ctx context.Context, names []string, rctx rtbtypes.ResolutionContext, opts BatchOptions) *BatchResult {
	start := time.Now()
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	result := &BatchResult{Items: make([]BatchItem, len(names))}
	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	eg, egCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				mu.Lock()
				result.Items[i] = BatchItem{Name: name, Err: err}
				result.Failed++
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)

			itemCtx := egCtx
			var cancel context.CancelFunc
			if opts.ItemTimeout > 0 {
				itemCtx, cancel = context.WithTimeout(egCtx, opts.ItemTimeout)
				defer cancel()
			}

			itemStart := time.Now()
			chain, err := r.resolveWithDeadline(itemCtx, name, rctx)
			elapsed := time.Since(itemStart)

			mu.Lock()
			result.Items[i] = BatchItem{Name: name, Chain: chain, Err: err, Duration: elapsed}
			if err != nil {
				result.Failed++
			} else {
				result.Resolved++
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers report per-item failures through result entries, never as
	// group errors, so the batch always runs to completion.
	_ = eg.Wait()

	result.Duration = time.Since(start)
	logging.Batch("batch complete: %d resolved, %d failed in %v (concurrency %d)",
		result.Resolved, result.Failed, result.Duration, opts.Concurrency)
	return result
}

// resolveWithDeadline runs one resolution while honoring the item
// deadline. A resolution itself has no suspension points, so the timeout
// is observed between the deadline firing and the goroutine delivering
// its result.
func (r *Resolver) resolveWithDeadline(ctx context.Context, name string, rctx rtbtypes.ResolutionContext) (*rtbtypes.InheritanceChain, error) {
	type outcome struct {
		chain *rtbtypes.InheritanceChain
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		chain, err := r.ResolveInheritanceChain(context.Background(), name, rctx)
		ch <- outcome{chain: chain, err: err}
	}()

	select {
	case out := <-ch:
		return out.chain, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("resolution of %q timed out: %w", name, ctx.Err())
	}
}
