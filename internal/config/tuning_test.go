package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/European-XFEL/imageproc/internal/frame"
	"github.com/European-XFEL/imageproc/internal/pipeline"
)

func TestEmptyConfigYieldsDefaults(t *testing.T) {
	opts, err := Empty().ToOptions()
	if err != nil {
		t.Fatalf("ToOptions() on empty config: %v", err)
	}
	want := pipeline.DefaultOptions()
	if opts != want {
		t.Errorf("empty config = %+v, want defaults %+v", opts, want)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "do_1d_fit": true,
  "peak_shape": "sech2",
  "fit_range": "auto",
  "range_for_auto": 2.5,
  "threshold": 0.05,
  "pixel_size": 1.2e-5,
  "rate_interval": "2s",
  "error_window": 50
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		t.Fatalf("ToOptions() failed: %v", err)
	}

	if !opts.Do1DFit {
		t.Error("Expected Do1DFit true")
	}
	if opts.Shape1D != pipeline.ShapeSech2 {
		t.Errorf("Shape1D = %q, want sech2", opts.Shape1D)
	}
	if opts.FitRange != pipeline.FitRangeAuto {
		t.Errorf("FitRange = %q, want auto", opts.FitRange)
	}
	if opts.RangeForAuto != 2.5 {
		t.Errorf("RangeForAuto = %v, want 2.5", opts.RangeForAuto)
	}
	if opts.Threshold != 0.05 {
		t.Errorf("Threshold = %v, want 0.05", opts.Threshold)
	}
	if opts.PixelSize != 1.2e-5 {
		t.Errorf("PixelSize = %v, want 1.2e-5", opts.PixelSize)
	}
	if opts.RateInterval != 2*time.Second {
		t.Errorf("RateInterval = %v, want 2s", opts.RateInterval)
	}
	if opts.ErrorWindow != 50 {
		t.Errorf("ErrorWindow = %d, want 50", opts.ErrorWindow)
	}

	// Fields not present in the file keep their defaults.
	if !opts.DoCentreOfMass {
		t.Error("Expected default DoCentreOfMass true to survive partial config")
	}
	if opts.ErrorThreshold != 0.1 {
		t.Errorf("ErrorThreshold = %v, want default 0.1", opts.ErrorThreshold)
	}
}

func TestLoadRegions(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "regions.json")

	testJSON := `{
  "fit_range": "user-defined",
  "user_range": [10, 50, 5, 40],
  "do_integration": true,
  "integration_region": [0, 16, 0, 16]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	opts, _ := cfg.ToOptions()

	wantUser := frame.ROI{X1: 10, X2: 50, Y1: 5, Y2: 40}
	if opts.UserRange != wantUser {
		t.Errorf("UserRange = %+v, want %+v", opts.UserRange, wantUser)
	}
	wantIntegration := frame.ROI{X1: 0, X2: 16, Y1: 0, Y2: 16}
	if opts.IntegrationRegion != wantIntegration {
		t.Errorf("IntegrationRegion = %+v, want %+v", opts.IntegrationRegion, wantIntegration)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// Wrong extension.
	if _, err := Load(filepath.Join(tmpDir, "tuning.yaml")); err == nil {
		t.Error("Expected error for non-.json extension")
	}

	// Missing file.
	if _, err := Load(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	// Malformed JSON.
	badPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := Load(badPath); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tmpDir := t.TempDir()

	cases := []struct {
		name string
		json string
	}{
		{"threshold above one", `{"threshold": 1.5}`},
		{"unknown peak shape", `{"peak_shape": "lorentz"}`},
		{"unknown fit range", `{"fit_range": "everything"}`},
		{"bad rate interval", `{"rate_interval": "soon"}`},
		{"invalid user range", `{"fit_range": "user-defined", "user_range": [5, 3, 0, 10]}`},
		{"zero error window", `{"error_window": 0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, "invalid.json")
			if err := os.WriteFile(path, []byte(tc.json), 0o644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Expected validation error for %s", tc.json)
			}
		})
	}
}
