package batch

import (
	"context"
	"errors"
	"time"
)

// ErrNilCallback is returned when Process is called without a callback.
var ErrNilCallback = errors.New("batch callback cannot be nil")

// ItemCallback processes a single item. index is the item's 0-based position.
type ItemCallback[T, R any] func(ctx context.Context, item T, index int) (R, error)

// ProgressCallback is an optional callback invoked after each item is processed.
type ProgressCallback func(progress *Progress)

// Result is the outcome of one item.
type Result[T, R any] struct {
	Item  T
	Index int
	// Value is the callback's return value; meaningful only when Err is nil.
	Value R
	Err   error
	// Skipped is set for items that were never started because the context ended.
	Skipped  bool
	Duration time.Duration
}

// OK reports whether the item was processed without error.
func (r Result[T, R]) OK() bool {
	return r.Err == nil && !r.Skipped
}

// Processor folds items through a callback, one at a time, in order.
type Processor[T, R any] struct {
	onProgress ProgressCallback
}

// NewProcessor creates a new processor.
func NewProcessor[T, R any]() *Processor[T, R] {
	return &Processor[T, R]{}
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T, R]) WithProgressCallback(callback ProgressCallback) *Processor[T, R] {
	p.onProgress = callback
	return p
}

// Process runs callback for every item and returns one Result per item, in input order.
// Item errors are captured in the results. The returned error is non-nil only when
// callback is nil or ctx ended before every item was started; the results are
// complete in both cases.
func (p *Processor[T, R]) Process(ctx context.Context, items []T, callback ItemCallback[T, R]) ([]Result[T, R], error) {
	if callback == nil {
		return nil, ErrNilCallback
	}

	results := make([]Result[T, R], len(items))
	progress := NewProgress(len(items))

	for i, item := range items {
		results[i] = Result[T, R]{Item: item, Index: i}

		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = Result[T, R]{Item: items[j], Index: j, Err: err, Skipped: true}
			}
			return results, err
		}

		start := time.Now()
		value, err := callback(ctx, item, i)
		results[i].Value = value
		results[i].Err = err
		results[i].Duration = time.Since(start)

		progress.AddProcessed(err != nil)
		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}

	return results, nil
}

// Failed returns the results that did not succeed, including skipped ones.
func Failed[T, R any](results []Result[T, R]) []Result[T, R] {
	var failed []Result[T, R]
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}
