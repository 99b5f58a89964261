package plotutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/European-XFEL/imageproc/internal/fit"
	"github.com/European-XFEL/imageproc/internal/pipeline"
)

func TestSaveProjectionWithModel(t *testing.T) {
	n := 64
	profile := make([]float64, n)
	for i := range profile {
		d := (float64(i) - 32) / 5
		profile[i] = 100 * math.Exp(-d*d/2)
	}

	path := filepath.Join(t.TempDir(), "projection.png")
	m := fit.Gauss1D(n, false)
	if err := SaveProjection("x projection", profile, m, []float64{100, 32, 5}, path); err != nil {
		t.Fatalf("SaveProjection() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestSaveProjectionWithoutModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.png")
	if err := SaveProjection("raw", []float64{1, 2, 3, 2, 1}, nil, nil, path); err != nil {
		t.Fatalf("SaveProjection() failed: %v", err)
	}
}

func TestTrendPlotter(t *testing.T) {
	tp := NewTrendPlotter()
	dir := filepath.Join(t.TempDir(), "trends")
	if err := tp.Start(dir); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	for i := 0; i < 20; i++ {
		tp.Sample(pipeline.Result{
			Success:   true,
			X0:        50 + float64(i)*0.1,
			Y0:        30,
			SX:        4,
			SY:        3,
			InRateHz:  10,
			OutRateHz: 10,
		})
	}
	// Failed frames stay out of the trends.
	tp.Sample(pipeline.Result{Success: false})
	if got := tp.SampleCount(); got != 20 {
		t.Errorf("SampleCount() = %d, want 20", got)
	}

	tp.Stop()
	tp.Sample(pipeline.Result{Success: true})
	if got := tp.SampleCount(); got != 20 {
		t.Errorf("sampling after Stop() recorded a frame: %d", got)
	}

	count, err := tp.GeneratePlots()
	if err != nil {
		t.Fatalf("GeneratePlots() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("GeneratePlots() = %d plots, want 3", count)
	}
	for _, name := range []string{"position.png", "width.png", "rate.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestGeneratePlotsWithoutStart(t *testing.T) {
	tp := NewTrendPlotter()
	if _, err := tp.GeneratePlots(); err == nil {
		t.Error("expected error without output directory")
	}
}
