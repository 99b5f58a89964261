// Package config loads processing tuning parameters from JSON files.
// Every field is a pointer so a partial file overrides only what it
// names; unset fields fall back to the pipeline defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/European-XFEL/imageproc/internal/frame"
	"github.com/European-XFEL/imageproc/internal/pipeline"
)

// TuningConfig is the JSON schema for processing parameters. The same
// document shape is accepted at startup and for runtime reconfiguration,
// so partial updates are safe.
type TuningConfig struct {
	// Stage toggles
	DoCentreOfMass   *bool `json:"do_centre_of_mass,omitempty"`
	Do1DFit          *bool `json:"do_1d_fit,omitempty"`
	Do2DFit          *bool `json:"do_2d_fit,omitempty"`
	DoGaussRotation  *bool `json:"do_gauss_rotation,omitempty"`
	DoProjections    *bool `json:"do_projections,omitempty"`
	DoIntegration    *bool `json:"do_integration,omitempty"`
	EnablePolynomial *bool `json:"enable_polynomial,omitempty"`
	SubtractPedestal *bool `json:"subtract_pedestal,omitempty"`

	// Fit configuration
	PeakShape    *string  `json:"peak_shape,omitempty"` // "gauss" or "sech2"
	FitRange     *string  `json:"fit_range,omitempty"`  // "full", "auto" or "user-defined"
	RangeForAuto *float64 `json:"range_for_auto,omitempty"`
	AutoRangeMin *int     `json:"auto_range_min,omitempty"`
	UserRange    *[4]int  `json:"user_range,omitempty"` // [x1, x2, y1, y2]

	IntegrationRegion *[4]int `json:"integration_region,omitempty"`

	// Thresholds
	Threshold    *float64 `json:"threshold,omitempty"`     // relative, in [0,1]
	AbsThreshold *float64 `json:"abs_threshold,omitempty"` // frame gate

	PixelSize *float64 `json:"pixel_size,omitempty"` // metres per pixel

	// Health bookkeeping
	RateInterval   *string  `json:"rate_interval,omitempty"` // duration string like "1s"
	ErrorWindow    *int     `json:"error_window,omitempty"`
	ErrorThreshold *float64 `json:"error_threshold,omitempty"`
	ErrorEpsilon   *float64 `json:"error_epsilon,omitempty"`
}

// Empty returns a TuningConfig with all fields unset.
func Empty() *TuningConfig {
	return &TuningConfig{}
}

// Load reads a TuningConfig from a JSON file. The path must carry a
// .json extension and the file must be under 1MB. The resulting document
// is validated by converting it to pipeline options.
func Load(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if _, err := cfg.ToOptions(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ToOptions overlays the set fields on the pipeline defaults and
// validates the combined result.
func (c *TuningConfig) ToOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if c.DoCentreOfMass != nil {
		opts.DoCentreOfMass = *c.DoCentreOfMass
	}
	if c.Do1DFit != nil {
		opts.Do1DFit = *c.Do1DFit
	}
	if c.Do2DFit != nil {
		opts.Do2DFit = *c.Do2DFit
	}
	if c.DoGaussRotation != nil {
		opts.DoGaussRotation = *c.DoGaussRotation
	}
	if c.DoProjections != nil {
		opts.DoProjections = *c.DoProjections
	}
	if c.DoIntegration != nil {
		opts.DoIntegration = *c.DoIntegration
	}
	if c.EnablePolynomial != nil {
		opts.EnablePolynomial = *c.EnablePolynomial
	}
	if c.SubtractPedestal != nil {
		opts.SubtractPedestal = *c.SubtractPedestal
	}
	if c.PeakShape != nil {
		opts.Shape1D = pipeline.PeakShape(*c.PeakShape)
	}
	if c.FitRange != nil {
		opts.FitRange = pipeline.FitRangeMode(*c.FitRange)
	}
	if c.RangeForAuto != nil {
		opts.RangeForAuto = *c.RangeForAuto
	}
	if c.AutoRangeMin != nil {
		opts.AutoRangeMin = *c.AutoRangeMin
	}
	if c.UserRange != nil {
		opts.UserRange = toROI(*c.UserRange)
	}
	if c.IntegrationRegion != nil {
		opts.IntegrationRegion = toROI(*c.IntegrationRegion)
	}
	if c.Threshold != nil {
		opts.Threshold = *c.Threshold
	}
	if c.AbsThreshold != nil {
		opts.AbsThreshold = *c.AbsThreshold
	}
	if c.PixelSize != nil {
		opts.PixelSize = *c.PixelSize
	}
	if c.RateInterval != nil && *c.RateInterval != "" {
		d, err := time.ParseDuration(*c.RateInterval)
		if err != nil {
			return opts, fmt.Errorf("invalid rate_interval %q: %w", *c.RateInterval, err)
		}
		opts.RateInterval = d
	}
	if c.ErrorWindow != nil {
		opts.ErrorWindow = *c.ErrorWindow
	}
	if c.ErrorThreshold != nil {
		opts.ErrorThreshold = *c.ErrorThreshold
	}
	if c.ErrorEpsilon != nil {
		opts.ErrorEpsilon = *c.ErrorEpsilon
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func toROI(v [4]int) frame.ROI {
	return frame.ROI{X1: v[0], X2: v[1], Y1: v[2], Y2: v[3]}
}
