// Package health provides the throughput and failure-rate bookkeeping used
// to gate pipeline health: a frame-rate calculator and a sliding-window
// error counter with hysteretic warning state.
package health

import (
	"time"

	"github.com/European-XFEL/imageproc/internal/timeutil"
)

// RateCalculator measures event throughput over a refresh interval.
//
// Update records one event. Refresh reports the rate and restarts the
// measurement window, but only once the configured interval has elapsed;
// on a miss nothing changes.
type RateCalculator struct {
	clock     timeutil.Clock
	interval  time.Duration
	counter   int64
	lastReset time.Time
}

// NewRateCalculator creates a calculator with the given refresh interval.
// A nil clock selects the real clock.
func NewRateCalculator(interval time.Duration, clock timeutil.Clock) *RateCalculator {
	if interval <= 0 {
		panic("health: non-positive refresh interval")
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RateCalculator{
		clock:     clock,
		interval:  interval,
		lastReset: clock.Now(),
	}
}

// Update increments the event counter.
func (r *RateCalculator) Update() {
	r.counter++
}

// Refresh returns the measured rate in events per second when the refresh
// interval has elapsed, resetting counter and clock. Before the interval
// has elapsed (including a zero elapsed time) it reports ok == false and
// has no side effects.
func (r *RateCalculator) Refresh() (rate float64, ok bool) {
	elapsed := r.clock.Since(r.lastReset)
	if elapsed < r.interval || elapsed == 0 {
		return 0, false
	}
	rate = float64(r.counter) / elapsed.Seconds()
	r.counter = 0
	r.lastReset = r.clock.Now()
	return rate, true
}

// Reset clears the counter and restarts the measurement window.
func (r *RateCalculator) Reset() {
	r.counter = 0
	r.lastReset = r.clock.Now()
}
