package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/European-XFEL/imageproc/internal/centroid"
	"github.com/European-XFEL/imageproc/internal/fit"
	"github.com/European-XFEL/imageproc/internal/frame"
	"github.com/European-XFEL/imageproc/internal/health"
	"github.com/European-XFEL/imageproc/internal/monitoring"
	"github.com/European-XFEL/imageproc/internal/timeutil"
)

// ErrNotProcessing is returned by Process when no stream is active.
var ErrNotProcessing = errors.New("pipeline is not processing")

// ErrBadTransition is returned for lifecycle calls that are not legal in
// the current state.
var ErrBadTransition = errors.New("invalid state transition")

type axis int

const (
	axisX axis = iota
	axisY
)

// Processor owns the per-stream analysis state: health counters, warm-start
// fit parameters, optional background and mask frames, and the negotiated
// frame shape. It is single-writer: one frame is processed to completion
// before the next; the transport layer serialises delivery.
type Processor struct {
	opts  Options
	clock timeutil.Clock

	state State
	runID uuid.UUID

	// Shape negotiated from the first frame of the stream.
	width, height int

	inRate  *health.RateCalculator
	outRate *health.RateCalculator
	errs    *health.ErrorCounter

	background *frame.Frame
	mask       *frame.Frame

	// Last converged fit parameters, threaded into the next frame's fit as
	// the initial guess. Dropped whenever a fit reports a singular
	// covariance.
	warmX, warmY, warm2D []float64

	lastInRate  float64
	lastOutRate float64
	prevWarn    bool
}

// New creates an idle Processor. A nil clock selects the real clock.
// Configuration failures are reported before any stream starts.
func New(opts Options, clock timeutil.Clock) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline options: %w", err)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Processor{
		opts:    opts,
		clock:   clock,
		inRate:  health.NewRateCalculator(opts.RateInterval, clock),
		outRate: health.NewRateCalculator(opts.RateInterval, clock),
		errs:    health.NewErrorCounter(opts.ErrorWindow, opts.ErrorThreshold, opts.ErrorEpsilon),
	}, nil
}

// State returns the current lifecycle state.
func (p *Processor) State() State { return p.state }

// RunID identifies the current stream; it is assigned at Start.
func (p *Processor) RunID() uuid.UUID { return p.runID }

// Options returns the active configuration.
func (p *Processor) Options() Options { return p.opts }

// Start begins a stream: the run ID is assigned, health state cleared and
// the output schema considered negotiated from the next frame's shape.
func (p *Processor) Start() error {
	if p.state != StateIdle {
		return fmt.Errorf("start from %s: %w", p.state, ErrBadTransition)
	}
	p.runID = uuid.New()
	p.width, p.height = 0, 0
	p.warmX, p.warmY, p.warm2D = nil, nil, nil
	p.inRate.Reset()
	p.outRate.Reset()
	p.errs.Clear()
	p.prevWarn = false
	p.lastInRate, p.lastOutRate = 0, 0
	p.state = StateProcessing
	return nil
}

// End handles end-of-stream: rate state is discarded and the pipeline
// returns to idle. Ending an idle pipeline is a no-op; ending from Error is
// not allowed (use Reset).
func (p *Processor) End() error {
	if p.state == StateError {
		return fmt.Errorf("end from %s: %w", p.state, ErrBadTransition)
	}
	p.state = StateIdle
	p.warmX, p.warmY, p.warm2D = nil, nil, nil
	p.inRate.Reset()
	p.outRate.Reset()
	return nil
}

// Reset is the explicit recovery action out of the Error state.
func (p *Processor) Reset() {
	p.state = StateIdle
	p.warmX, p.warmY, p.warm2D = nil, nil, nil
	p.inRate.Reset()
	p.outRate.Reset()
	p.errs.Clear()
	p.prevWarn = false
}

// SetBackground installs the background frame subtracted from every
// incoming image. A shape mismatch against the negotiated stream shape is
// a configuration failure and moves the pipeline to Error.
func (p *Processor) SetBackground(bg *frame.Frame) error {
	if bg != nil && p.width != 0 && (bg.Width != p.width || bg.Height != p.height) {
		p.state = StateError
		return fmt.Errorf("background %dx%d vs stream %dx%d: %w",
			bg.Width, bg.Height, p.width, p.height, frame.ErrShapeMismatch)
	}
	p.background = bg
	return nil
}

// SetMask installs the pixel mask. Shape rules match SetBackground.
func (p *Processor) SetMask(mask *frame.Frame) error {
	if mask != nil && p.width != 0 && (mask.Width != p.width || mask.Height != p.height) {
		p.state = StateError
		return fmt.Errorf("mask %dx%d vs stream %dx%d: %w",
			mask.Width, mask.Height, p.width, p.height, frame.ErrShapeMismatch)
	}
	p.mask = mask
	return nil
}

// Process runs the configured stages over one frame and returns the result
// bundle. Per-frame failures (fit non-convergence, degenerate centroid,
// shape mismatches) are recorded in the error counter and reported through
// Result.Success; they never return an error and never stop the stream.
// A non-nil error means the pipeline was not processing or hit a
// configuration failure (which moves it to Error).
func (p *Processor) Process(img *frame.Frame, trainID uint64) (Result, error) {
	if p.state != StateProcessing {
		return Result{}, fmt.Errorf("process train %d in state %s: %w", trainID, p.state, ErrNotProcessing)
	}

	start := p.clock.Now()
	p.inRate.Update()

	res := Result{TrainID: trainID, Timestamp: start, Success: true}
	failed := false
	fail := func(stage string, err error) {
		failed = true
		res.Success = false
		res.StatusMessage = fmt.Sprintf("%s: %v", stage, err)
	}

	defer func() {
		p.errs.Append(failed)
		res.ErrorFraction = p.errs.Fraction()
		res.Warn = p.errs.Warn()
		// Only warn-state transitions are logged, not every repeated
		// failure.
		if res.Warn && !p.prevWarn {
			monitoring.Logf("ERROR: run %s health degraded at train %d: %s",
				p.runID, trainID, res.StatusMessage)
		} else if !res.Warn && p.prevWarn {
			monitoring.Logf("run %s health recovered at train %d", p.runID, trainID)
		}
		p.prevWarn = res.Warn

		if res.Success && !res.Dropped {
			p.outRate.Update()
		}
		if rate, ok := p.inRate.Refresh(); ok {
			p.lastInRate = rate
		}
		if rate, ok := p.outRate.Refresh(); ok {
			p.lastOutRate = rate
		}
		res.InRateHz = p.lastInRate
		res.OutRateHz = p.lastOutRate
		res.ProcessingTime = p.clock.Since(start)
	}()

	// Schema negotiation: the first frame of the stream fixes the shape.
	if p.width == 0 {
		p.width, p.height = img.Width, img.Height
	} else if img.Width != p.width || img.Height != p.height {
		fail("input", fmt.Errorf("frame %dx%d vs negotiated %dx%d: %w",
			img.Width, img.Height, p.width, p.height, frame.ErrShapeMismatch))
		return res, nil
	}

	res.MaxPixel = img.Max()
	if p.opts.AbsThreshold > 0 && res.MaxPixel < p.opts.AbsThreshold {
		res.Dropped = true
		res.Success = false
		res.StatusMessage = fmt.Sprintf("frame maximum %v below threshold %v",
			res.MaxPixel, p.opts.AbsThreshold)
		return res, nil
	}

	work := img.Clone()

	if p.background != nil {
		if _, err := frame.SubtractBackground(work, p.background, true); err != nil {
			fail("background", err)
			return res, nil
		}
	}
	if p.mask != nil {
		if _, err := frame.ApplyMask(work, p.mask, true); err != nil {
			fail("mask", err)
			return res, nil
		}
	}
	if p.opts.SubtractPedestal {
		frame.SubtractPedestal(work)
	}

	// The user-defined window restricts all further analysis. A window
	// that does not fit the stream's frames is a configuration failure.
	region := work
	originX, originY := 0, 0
	if p.opts.FitRange == FitRangeUser {
		sub, err := frame.SelectRegion(work, p.opts.UserRange)
		if err != nil {
			p.state = StateError
			fail("fit range", err)
			return res, fmt.Errorf("user fit range: %w", err)
		}
		region = sub
		originX, originY = p.opts.UserRange.X1, p.opts.UserRange.Y1
	}

	// Centre of mass over the thresholded window; also seeds the auto fit
	// range. A degenerate (fully suppressed) frame aborts before the fits.
	var com centroid.Result
	comOK := false
	if p.opts.DoCentreOfMass || p.opts.FitRange == FitRangeAuto {
		thresholded := region
		if p.opts.Threshold > 0 {
			thresholded = frame.Threshold(region, p.opts.Threshold*region.Max(), false)
		}
		c, err := centroid.Image(thresholded)
		if err != nil {
			fail("centre of mass", err)
			return res, nil
		}
		com = c
		comOK = true
		if p.opts.DoCentreOfMass {
			res.X0 = com.X0 + float64(originX)
			res.Y0 = com.Y0 + float64(originY)
			res.SX = com.SX
			res.SY = com.SY
		}
	}

	// Auto range shrinks the fit window around the centroid.
	fitRegion := region
	fitOriginX, fitOriginY := originX, originY
	if p.opts.FitRange == FitRangeAuto && comOK {
		w := fit.AutoRange(com.X0, com.Y0, com.SX, com.SY, p.opts.RangeForAuto,
			region.Width, region.Height, p.opts.AutoRangeMin)
		if sub, err := frame.SelectRegion(region, w); err == nil {
			fitRegion = sub
			fitOriginX += w.X1
			fitOriginY += w.Y1
		}
	}

	if p.opts.DoProjections || p.opts.Do1DFit {
		res.ProjectionX = frame.SumAlongY(fitRegion)
		if !fitRegion.IsProfile() {
			res.ProjectionY = frame.SumAlongX(fitRegion)
		}
	}

	if p.opts.Do1DFit {
		p.fit1D(&res, axisX, res.ProjectionX, fitOriginX, fail)
		if !fitRegion.IsProfile() {
			p.fit1D(&res, axisY, res.ProjectionY, fitOriginY, fail)
		}
		// The dual-axis amplitude coupling reports a volume-consistent
		// amplitude from the two independent fits.
		if res.FitStatusX.Converged() && res.FitStatusY.Converged() &&
			res.SX1D > 0 && res.SY1D > 0 {
			res.AX1DNorm = fit.NormalizedAmplitude(res.AX1D, res.SY1D)
			res.AY1DNorm = fit.NormalizedAmplitude(res.AY1D, res.SX1D)
		}
	}

	if p.opts.Do2DFit && !fitRegion.IsProfile() {
		p.fit2D(&res, fitRegion, fitOriginX, fitOriginY, fail)
	}

	if p.opts.DoIntegration {
		if sub, err := frame.SelectRegion(work, p.opts.IntegrationRegion); err != nil {
			fail("region integral", err)
		} else {
			res.RegionIntegral = sub.Sum()
		}
	}

	return res, nil
}

// fit1D fits one axis projection, threading the warm-start state.
func (p *Processor) fit1D(res *Result, ax axis, profile []float64, origin int, fail func(string, error)) {
	var m fit.Model
	poly := p.opts.EnablePolynomial && p.opts.Shape1D != ShapeSech2
	if p.opts.Shape1D == ShapeSech2 {
		m = fit.Sech2(len(profile))
	} else {
		m = fit.Gauss1D(len(profile), poly)
	}

	warm := p.warmX
	if ax == axisY {
		warm = p.warmY
	}
	if len(warm) != m.NumParams() {
		warm = nil
	}

	r := fit.Fit(m, profile, warm)

	stage := "x fit"
	if ax == axisY {
		stage = "y fit"
	}

	if !r.Status.Converged() {
		p.setWarm(ax, nil)
		p.setAxisResult(res, ax, r, origin)
		fail(stage, fmt.Errorf("status %d after %d iterations", r.Status, r.Iterations))
		return
	}
	if r.Singular() {
		// A singular covariance means the solution is untrustworthy as a
		// seed; uncertainties are reported as zero.
		p.setWarm(ax, nil)
	} else {
		p.setWarm(ax, r.Params)
	}
	p.setAxisResult(res, ax, r, origin)
}

func (p *Processor) setWarm(ax axis, params []float64) {
	if ax == axisX {
		p.warmX = params
	} else {
		p.warmY = params
	}
}

func (p *Processor) setAxisResult(res *Result, ax axis, r fit.Result, origin int) {
	a := r.Params[0]
	x0 := r.Params[1] + float64(origin)
	sigma := math.Abs(r.Params[2])
	width := 0.0
	if p.opts.PixelSize > 0 {
		width = fit.BeamWidth(sigma, p.opts.PixelSize)
	}
	if ax == axisX {
		res.FitStatusX = r.Status
		res.AX1D, res.X01D, res.SX1D = a, x0, sigma
		res.EX01D, res.ESX1D = r.Uncertainty(1), r.Uncertainty(2)
		res.BeamWidth1DX = width
	} else {
		res.FitStatusY = r.Status
		res.AY1D, res.Y01D, res.SY1D = a, x0, sigma
		res.EY01D, res.ESY1D = r.Uncertainty(1), r.Uncertainty(2)
		res.BeamWidth1DY = width
	}
}

// fit2D fits the 2-D peak model over the fit window.
func (p *Processor) fit2D(res *Result, region *frame.Frame, originX, originY int, fail func(string, error)) {
	m := fit.Gauss2D(region.Width, region.Height, p.opts.DoGaussRotation, p.opts.EnablePolynomial)

	warm := p.warm2D
	if len(warm) != m.NumParams() {
		warm = nil
	}

	r := fit.Fit(m, region.Data, warm)
	res.FitStatus2D = r.Status

	if !r.Status.Converged() {
		p.warm2D = nil
		fail("2d fit", fmt.Errorf("status %d after %d iterations", r.Status, r.Iterations))
		return
	}
	if r.Singular() {
		p.warm2D = nil
	} else {
		p.warm2D = r.Params
	}

	res.A2D = r.Params[0]
	res.X02D = r.Params[1] + float64(originX)
	res.Y02D = r.Params[2] + float64(originY)
	res.SX2D = math.Abs(r.Params[3])
	res.SY2D = math.Abs(r.Params[4])
	if p.opts.DoGaussRotation {
		res.Theta2D = r.Params[5]
	}
	if p.opts.PixelSize > 0 {
		res.BeamWidth2DX = fit.BeamWidth(res.SX2D, p.opts.PixelSize)
		res.BeamWidth2DY = fit.BeamWidth(res.SY2D, p.opts.PixelSize)
	}
}
