// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "time"

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// renderThrottle batches stream events so the viewport is rebuilt at a
// capped frame rate instead of once per chunk. It is used only from the
// Bubble Tea update loop.
type renderThrottle struct {
	pending   int
	lastFlush time.Time

	batchSize   int
	minInterval time.Duration

	now func() time.Time
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

func newRenderThrottle() *renderThrottle {
	return newRenderThrottleWithConfig(defaultBatchSize, defaultMaxFPS)
}

func newRenderThrottleWithConfig(batchSize, maxFPS int) *renderThrottle {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &renderThrottle{
		batchSize:   batchSize,
		minInterval: time.Second / time.Duration(maxFPS),
		now:         time.Now,
	}
}

// Mark records one event that changed the transcript.
func (r *renderThrottle) Mark() {
	r.pending++
}

// Ready reports whether enough events or time have accumulated for a
// redraw, and resets the counters when it does.
func (r *renderThrottle) Ready() bool {
	if r.pending == 0 {
		return false
	}
	now := r.now()
	if r.pending < r.batchSize && now.Sub(r.lastFlush) < r.minInterval {
		return false
	}
	r.pending = 0
	r.lastFlush = now
	return true
}

// Pending returns the number of events since the last redraw.
func (r *renderThrottle) Pending() int {
	return r.pending
}

// Reset forgets pending events after a forced redraw.
func (r *renderThrottle) Reset() {
	r.pending = 0
	r.lastFlush = r.now()
}
