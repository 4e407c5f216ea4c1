// Package batch runs work over many items with bounded parallelism.
package batch

import (
	"context"
	"sync"
)

// ProgressFunc is called after each item finishes. Calls are serialized.
type ProgressFunc[T any] func(done, total int, item T)

// Result is the outcome of one item.
type Result[R any] struct {
	Value R
	Err   error
}

// Batcher applies a function to items concurrently.
type Batcher[T, R any] struct {
	concurrency int
	onProgress  ProgressFunc[T]
}

// New creates a Batcher that runs at most concurrency items at once.
func New[T, R any](concurrency int, onProgress ProgressFunc[T]) *Batcher[T, R] {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher[T, R]{
		concurrency: concurrency,
		onProgress:  onProgress,
	}
}

// Run calls fn for every item and returns the results in input order.
// Items not started before ctx is cancelled get ctx.Err() as their error.
func (b *Batcher[T, R]) Run(ctx context.Context, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	sem := make(chan struct{}, b.concurrency)
	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	finish := func(item T) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if b.onProgress != nil {
			b.onProgress(done, len(items), item)
		}
	}

	for i, item := range items {
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			finish(item)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			finish(item)
		}(i, item)
	}

	wg.Wait()
	return results
}
