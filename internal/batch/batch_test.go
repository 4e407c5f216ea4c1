package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRunPreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	b := New[int, int](3, nil)

	results := b.Run(context.Background(), items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	var got []int
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
		got = append(got, r.Value)
	}
	if diff := cmp.Diff([]int{50, 10, 40, 20, 30}, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak int64
	b := New[int, struct{}](2, nil)

	b.Run(context.Background(), make([]int, 10), func(context.Context, int) (struct{}, error) {
		n := atomic.AddInt64(&running, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return struct{}{}, nil
	})

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRunErrorsAndProgress(t *testing.T) {
	boom := errors.New("boom")
	var calls []int
	b := New[string, int](1, func(done, total int, item string) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		calls = append(calls, done)
	})

	results := b.Run(context.Background(), []string{"a", "bad", "c"}, func(_ context.Context, s string) (int, error) {
		if s == "bad" {
			return 0, boom
		}
		return len(s), nil
	})

	if !errors.Is(results[1].Err, boom) {
		t.Errorf("results[1].Err = %v, want boom", results[1].Err)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, calls); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran int64
	results := New[int, int](1, nil).Run(ctx, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		atomic.AddInt64(&ran, 1)
		return 0, nil
	})

	// select picks randomly between a ready semaphore and a closed context,
	// so some items may still run; the rest carry the context error.
	for i, r := range results {
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
	}
	if int(ran)+countErrs(results) != 3 {
		t.Errorf("ran %d with %d cancelled, want 3 total", ran, countErrs(results))
	}
}

func countErrs(results []Result[int]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
