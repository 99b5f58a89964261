// Package pipeline sequences the per-frame analysis: thresholding,
// background handling, projections, centre-of-mass, peak fitting, region
// integration and health bookkeeping. One Processor instance owns its
// per-stream state and handles one frame to completion before the next.
package pipeline

import (
	"fmt"
	"time"

	"github.com/European-XFEL/imageproc/internal/frame"
)

// FitRangeMode selects how the fit window is derived per frame.
type FitRangeMode string

const (
	// FitRangeFull fits over the whole (possibly cropped) frame.
	FitRangeFull FitRangeMode = "full"
	// FitRangeAuto windows the fit around the centroid at a configurable
	// number of standard deviations.
	FitRangeAuto FitRangeMode = "auto"
	// FitRangeUser fits inside a user-defined box.
	FitRangeUser FitRangeMode = "user-defined"
)

// PeakShape selects the 1-D fit model.
type PeakShape string

const (
	// ShapeGauss fits a Gaussian peak.
	ShapeGauss PeakShape = "gauss"
	// ShapeSech2 fits a squared hyperbolic secant peak.
	ShapeSech2 PeakShape = "sech2"
)

// Options configures which stages run and how. Disabled stages still emit
// zeroed outputs so the result schema stays stable for downstream
// consumers.
type Options struct {
	DoCentreOfMass   bool
	Do1DFit          bool
	Do2DFit          bool
	DoGaussRotation  bool
	DoProjections    bool
	DoIntegration    bool
	EnablePolynomial bool
	SubtractPedestal bool

	Shape1D PeakShape

	FitRange     FitRangeMode
	RangeForAuto float64   // sigma multiples for FitRangeAuto
	AutoRangeMin int       // minimum window width in pixels
	UserRange    frame.ROI // window for FitRangeUser

	IntegrationRegion frame.ROI

	// Threshold is relative to the frame maximum, in [0,1]; pixels below
	// Threshold*max are suppressed before centroiding. AbsThreshold gates
	// whole frames: a frame whose maximum is below it is dropped.
	Threshold    float64
	AbsThreshold float64

	// PixelSize converts fitted sigmas to beam widths; zero disables the
	// conversion (widths are reported as 0).
	PixelSize float64

	// Health bookkeeping.
	RateInterval   time.Duration
	ErrorWindow    int
	ErrorThreshold float64
	ErrorEpsilon   float64
}

// DefaultOptions returns the baseline configuration: centre-of-mass only,
// full fit range, health windows matching the usual beamline deployment.
func DefaultOptions() Options {
	return Options{
		DoCentreOfMass: true,
		Shape1D:        ShapeGauss,
		FitRange:       FitRangeFull,
		RangeForAuto:   3.0,
		AutoRangeMin:   10,
		Threshold:      0,
		RateInterval:   time.Second,
		ErrorWindow:    100,
		ErrorThreshold: 0.1,
		ErrorEpsilon:   0.01,
	}
}

// Validate rejects configurations that can never process a frame. These
// are configuration failures in the error taxonomy: callers surface them
// before the stream starts.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold %v outside [0,1]", o.Threshold)
	}
	if o.AbsThreshold < 0 {
		return fmt.Errorf("absolute threshold %v is negative", o.AbsThreshold)
	}
	if o.PixelSize < 0 {
		return fmt.Errorf("pixel size %v is negative", o.PixelSize)
	}
	switch o.FitRange {
	case FitRangeFull, FitRangeAuto, FitRangeUser:
	default:
		return fmt.Errorf("unknown fit range mode %q", o.FitRange)
	}
	if o.FitRange == FitRangeUser && !o.UserRange.Valid() {
		return fmt.Errorf("user fit range [%d:%d,%d:%d]: %w",
			o.UserRange.X1, o.UserRange.X2, o.UserRange.Y1, o.UserRange.Y2, frame.ErrInvalidRegion)
	}
	if o.FitRange == FitRangeAuto && o.RangeForAuto <= 0 {
		return fmt.Errorf("auto fit range needs positive sigma multiple, got %v", o.RangeForAuto)
	}
	if o.DoIntegration && !o.IntegrationRegion.Valid() {
		return fmt.Errorf("integration region [%d:%d,%d:%d]: %w",
			o.IntegrationRegion.X1, o.IntegrationRegion.X2,
			o.IntegrationRegion.Y1, o.IntegrationRegion.Y2, frame.ErrInvalidRegion)
	}
	switch o.Shape1D {
	case ShapeGauss, ShapeSech2, "":
	default:
		return fmt.Errorf("unknown 1-D peak shape %q", o.Shape1D)
	}
	if o.RateInterval <= 0 {
		return fmt.Errorf("rate interval %v is not positive", o.RateInterval)
	}
	if o.ErrorWindow < 1 {
		return fmt.Errorf("error window %d must be >= 1", o.ErrorWindow)
	}
	if o.ErrorThreshold < 0 || o.ErrorThreshold > 1 || o.ErrorEpsilon < 0 || o.ErrorEpsilon > 1 {
		return fmt.Errorf("error threshold %v / epsilon %v outside [0,1]",
			o.ErrorThreshold, o.ErrorEpsilon)
	}
	return nil
}
