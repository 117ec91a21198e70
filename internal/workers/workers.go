// Package workers provides a bounded-concurrency map helper for bulk
// operations. Results come back in input order regardless of which
// worker finished first.
package workers

import (
	"context"
	"sync"
)

// DefaultConcurrency is the worker count used when none is given.
const DefaultConcurrency = 4

// Map runs fn over items with at most concurrency workers and returns
// one result per item, in input order. Errors are collected per item,
// not short-circuited: a failed item does not stop the rest. The
// context cancels remaining work; items not started return ctx.Err().
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = fn(ctx, items[i])
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results, errs
}

// FirstError returns the first non-nil error, or nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CountErrors returns how many entries are non-nil.
func CountErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
