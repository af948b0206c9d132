package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrSkip tells FanOut to drop an item without counting it as a failure.
var ErrSkip = errors.New("skip")

// FanOutResult is the fan-in of one FanOut call.
type FanOutResult[R any] struct {
	// Values holds the successful results in input order.
	Values []R
	// Errors holds one entry per failed item. Skipped items are absent.
	Errors []error
	// Skipped counts items whose task returned ErrSkip.
	Skipped int
}

// FanOut runs fn for every item with at most limit tasks in flight and
// waits for all of them. A failing or panicking task never stops the
// others; its error is collected instead.
func FanOut[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) FanOutResult[R] {
	if limit < 1 {
		limit = 1
	}

	type slot struct {
		val R
		err error
	}
	slots := make([]slot, len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	var mu sync.Mutex
	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					slots[i].err = fmt.Errorf("task panicked: %v", r)
					mu.Unlock()
				}
			}()
			val, ferr := fn(ctx, item)
			mu.Lock()
			slots[i] = slot{val: val, err: ferr}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var out FanOutResult[R]
	for _, s := range slots {
		switch {
		case s.err == nil:
			out.Values = append(out.Values, s.val)
		case errors.Is(s.err, ErrSkip):
			out.Skipped++
		default:
			out.Errors = append(out.Errors, s.err)
		}
	}
	return out
}
