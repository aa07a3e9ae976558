package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks the progress of a fold.
// It provides thread-safe access to progress metrics for UI updates.
type Progress struct {
	// TotalItems is the total number of items to process.
	TotalItems int

	// ProcessedItems is the number of items processed so far, failed or not.
	ProcessedItems int

	// FailedItems is the number of processed items whose callback returned an error.
	FailedItems int

	// StartTime is when processing started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a new progress tracker.
func NewProgress(totalItems int) *Progress {
	now := time.Now()
	return &Progress{
		TotalItems:     totalItems,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// AddProcessed records one processed item.
func (p *Progress) AddProcessed(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems++
	if failed {
		p.FailedItems++
	}
	p.LastUpdateTime = time.Now()
}

// PercentComplete returns the completion percentage (0-100).
func (p *Progress) PercentComplete() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.percentCompleteUnsafe()
}

// IsComplete returns true if all items have been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ProcessedItems >= p.TotalItems
}

// ElapsedTime returns the time elapsed since processing started.
func (p *Progress) ElapsedTime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.StartTime)
}

// EstimatedTimeRemaining estimates the remaining processing time based on current progress.
// Returns 0 if no items have been processed yet.
func (p *Progress) EstimatedTimeRemaining() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.ProcessedItems == 0 {
		return 0
	}

	elapsed := time.Since(p.StartTime)
	avgTimePerItem := elapsed / time.Duration(p.ProcessedItems)
	remainingItems := p.TotalItems - p.ProcessedItems

	return avgTimePerItem * time.Duration(remainingItems)
}

// ItemsPerSecond returns the processing rate in items per second.
func (p *Progress) ItemsPerSecond() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.itemsPerSecondUnsafe()
}

// Snapshot returns a thread-safe copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:      p.TotalItems,
		ProcessedItems:  p.ProcessedItems,
		FailedItems:     p.FailedItems,
		StartTime:       p.StartTime,
		LastUpdateTime:  p.LastUpdateTime,
		PercentComplete: p.percentCompleteUnsafe(),
		ElapsedTime:     time.Since(p.StartTime),
		ItemsPerSecond:  p.itemsPerSecondUnsafe(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	FailedItems     int
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
	ItemsPerSecond  float64
}

// percentCompleteUnsafe calculates percent complete without locking.
// Should only be called when already holding the lock.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return (float64(p.ProcessedItems) / float64(p.TotalItems)) * percentMultiplier
}

// itemsPerSecondUnsafe calculates items per second without locking.
// Should only be called when already holding the lock.
func (p *Progress) itemsPerSecondUnsafe() float64 {
	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}

// Reset resets the progress tracker to initial state.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.ProcessedItems = 0
	p.FailedItems = 0
	p.StartTime = now
	p.LastUpdateTime = now
}
