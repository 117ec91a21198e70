package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}

	results, errs := Map(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		// Later items finish first; order must still match the input.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("item-%d", n), nil
	})

	if err := FirstError(errs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, n := range items {
		if want := fmt.Sprintf("item-%d", n); results[i] != want {
			t.Errorf("result %d = %q, want %q", i, results[i], want)
		}
	}
}

func TestMap_CollectsErrorsPerItem(t *testing.T) {
	boom := errors.New("boom")
	results, errs := Map(context.Background(), []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n * 10, nil
	})

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("unexpected errors: %v", errs)
	}
	if errs[1] != boom {
		t.Errorf("expected boom at index 1, got %v", errs[1])
	}
	if results[0] != 10 || results[2] != 30 {
		t.Errorf("unexpected results: %v", results)
	}
	if CountErrors(errs) != 1 {
		t.Errorf("expected 1 error, got %d", CountErrors(errs))
	}
}

func TestMap_BoundsConcurrency(t *testing.T) {
	var active, peak int64
	items := make([]int, 20)

	_, errs := Map(context.Background(), items, 3, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return struct{}{}, nil
	})

	if err := FirstError(errs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Errorf("expected at most 3 concurrent workers, saw %d", got)
	}
}

func TestMap_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int64
	items := make([]int, 50)
	_, errs := Map(ctx, items, 1, func(ctx context.Context, _ int) (struct{}, error) {
		if atomic.AddInt64(&started, 1) == 1 {
			cancel()
		}
		return struct{}{}, ctx.Err()
	})

	if CountErrors(errs) == 0 {
		t.Error("expected cancelled items to carry errors")
	}
	var found bool
	for _, err := range errs {
		if errors.Is(err, context.Canceled) {
			found = true
		}
	}
	if !found {
		t.Error("expected context.Canceled among errors")
	}
}

func TestMap_Empty(t *testing.T) {
	results, errs := Map(context.Background(), nil, 4, func(_ context.Context, _ int) (int, error) {
		t.Fatal("fn must not run for empty input")
		return 0, nil
	})
	if len(results) != 0 || len(errs) != 0 {
		t.Errorf("expected empty results, got %v / %v", results, errs)
	}
}

func TestMap_DefaultConcurrency(t *testing.T) {
	results, errs := Map(context.Background(), []int{1, 2}, 0, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	if err := FirstError(errs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}
