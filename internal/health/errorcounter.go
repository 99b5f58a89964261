package health

// ErrorCounter tracks the failed-to-total ratio of recent pipeline calls
// over a fixed-size sliding window and derives a hysteretic warning state:
// the warning engages when the failure fraction reaches
// threshold+epsilon, releases when it falls to threshold-epsilon, and holds
// its previous value in between. The inclusive bounds make the documented
// boundary cases (e.g. 11 failures in a window of 100 at threshold 0.1,
// epsilon 0.01) independent of floating-point rounding.
type ErrorCounter struct {
	window    []bool // ring buffer; true = error
	next      int
	count     int
	errors    int
	threshold float64
	epsilon   float64
	warn      bool
}

// NewErrorCounter creates a counter over a window of windowSize
// observations. windowSize must be >= 1 and threshold and epsilon must lie
// in [0,1]; violations are programming errors and panic.
func NewErrorCounter(windowSize int, threshold, epsilon float64) *ErrorCounter {
	if windowSize < 1 {
		panic("health: window size must be >= 1")
	}
	if threshold < 0 || threshold > 1 || epsilon < 0 || epsilon > 1 {
		panic("health: threshold and epsilon must be in [0,1]")
	}
	return &ErrorCounter{
		window:    make([]bool, windowSize),
		threshold: threshold,
		epsilon:   epsilon,
	}
}

// Append records one observation, evicting the oldest once the window is
// saturated, and recomputes the warning state.
func (c *ErrorCounter) Append(isError bool) {
	if c.count == len(c.window) {
		if c.window[c.next] {
			c.errors--
		}
	} else {
		c.count++
	}
	c.window[c.next] = isError
	if isError {
		c.errors++
	}
	c.next = (c.next + 1) % len(c.window)

	f := c.Fraction()
	switch {
	case f >= c.threshold+c.epsilon:
		c.warn = true
	case f <= c.threshold-c.epsilon:
		c.warn = false
	}
}

// Fraction returns the failure fraction over the current window contents,
// or 0 for an empty window.
func (c *ErrorCounter) Fraction() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.errors) / float64(c.count)
}

// Warn reports the current hysteretic warning state.
func (c *ErrorCounter) Warn() bool { return c.warn }

// Size returns the number of observations currently in the window.
func (c *ErrorCounter) Size() int { return c.count }

// Clear empties the window and releases the warning.
func (c *ErrorCounter) Clear() {
	for i := range c.window {
		c.window[i] = false
	}
	c.next = 0
	c.count = 0
	c.errors = 0
	c.warn = false
}
