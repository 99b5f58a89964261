package health

import (
	"math"
	"testing"
	"time"

	"github.com/European-XFEL/imageproc/internal/timeutil"
)

func TestRateCalculatorMissBeforeInterval(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rc := NewRateCalculator(time.Second, clock)

	rc.Update()
	rc.Update()

	clock.Advance(400 * time.Millisecond)
	if rate, ok := rc.Refresh(); ok {
		t.Errorf("Refresh before interval returned rate %v", rate)
	}

	// A miss must not reset the counter: the events still count once the
	// interval elapses.
	clock.Advance(600 * time.Millisecond)
	rate, ok := rc.Refresh()
	if !ok {
		t.Fatal("Refresh after interval returned no rate")
	}
	if math.Abs(rate-2.0) > 1e-9 {
		t.Errorf("rate = %v, want 2.0", rate)
	}
}

func TestRateCalculatorZeroElapsed(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	rc := NewRateCalculator(time.Second, clock)
	rc.Update()
	if _, ok := rc.Refresh(); ok {
		t.Error("Refresh with zero elapsed time must report no digest")
	}
}

func TestRateCalculatorResetsOnHit(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	rc := NewRateCalculator(time.Second, clock)

	for i := 0; i < 10; i++ {
		rc.Update()
	}
	clock.Advance(2 * time.Second)
	rate, ok := rc.Refresh()
	if !ok || math.Abs(rate-5.0) > 1e-9 {
		t.Fatalf("rate = %v (ok=%v), want 5.0", rate, ok)
	}

	// Counter and clock restarted: one event over one second.
	rc.Update()
	clock.Advance(time.Second)
	rate, ok = rc.Refresh()
	if !ok || math.Abs(rate-1.0) > 1e-9 {
		t.Errorf("rate after reset = %v (ok=%v), want 1.0", rate, ok)
	}
}

func TestRateCalculatorExplicitReset(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	rc := NewRateCalculator(time.Second, clock)
	rc.Update()
	clock.Advance(5 * time.Second)
	rc.Reset()

	clock.Advance(time.Second)
	rate, ok := rc.Refresh()
	if !ok {
		t.Fatal("Refresh after reset interval returned no rate")
	}
	if rate != 0 {
		t.Errorf("rate = %v, want 0 after Reset discarded events", rate)
	}
}

func TestRateCalculatorBadInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-positive interval")
		}
	}()
	NewRateCalculator(0, timeutil.RealClock{})
}
