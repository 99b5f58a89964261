package pipeline

import (
	"time"

	"github.com/European-XFEL/imageproc/internal/fit"
)

// Result is the outward-facing bundle computed for one frame. Every field
// is always present; stages that are disabled or failed leave their fields
// zeroed so the output schema is identical on every frame.
type Result struct {
	TrainID   uint64
	Timestamp time.Time

	// Success is false when any stage failed or the frame was dropped;
	// StatusMessage then carries the most recent stage message.
	Success       bool
	Dropped       bool
	StatusMessage string

	MaxPixel float64

	// Centre-of-mass, in frame pixel coordinates.
	X0, Y0 float64
	SX, SY float64

	// Axis projections (populated when projections or 1-D fits run).
	ProjectionX []float64
	ProjectionY []float64

	// 1-D fits per axis. Positions are in frame pixel coordinates.
	FitStatusX, FitStatusY fit.Status
	AX1D, X01D, SX1D       float64
	AY1D, Y01D, SY1D       float64
	EX01D, ESX1D           float64
	EY01D, ESY1D           float64
	AX1DNorm, AY1DNorm     float64
	BeamWidth1DX           float64
	BeamWidth1DY           float64

	// 2-D fit.
	FitStatus2D                fit.Status
	A2D, X02D, Y02D            float64
	SX2D, SY2D, Theta2D        float64
	BeamWidth2DX, BeamWidth2DY float64

	RegionIntegral float64

	// Health.
	InRateHz      float64
	OutRateHz     float64
	ErrorFraction float64
	Warn          bool

	ProcessingTime time.Duration
}

// Fields flattens the scalar outputs into the named mapping forwarded to
// the output channel. Field names and groupings are fixed; consumers rely
// on them.
func (r *Result) Fields() map[string]float64 {
	b2f := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}
	return map[string]float64{
		"success":  b2f(r.Success),
		"maxPixel": r.MaxPixel,

		"x0": r.X0,
		"y0": r.Y0,
		"sx": r.SX,
		"sy": r.SY,

		"fitSuccessX":  float64(r.FitStatusX),
		"fitSuccessY":  float64(r.FitStatusY),
		"ax1d":         r.AX1D,
		"ay1d":         r.AY1D,
		"ax1dNorm":     r.AX1DNorm,
		"ay1dNorm":     r.AY1DNorm,
		"x01d":         r.X01D,
		"y01d":         r.Y01D,
		"sx1d":         r.SX1D,
		"sy1d":         r.SY1D,
		"ex01d":        r.EX01D,
		"ey01d":        r.EY01D,
		"esx1d":        r.ESX1D,
		"esy1d":        r.ESY1D,
		"beamWidth1dX": r.BeamWidth1DX,
		"beamWidth1dY": r.BeamWidth1DY,

		"fitSuccess2d": float64(r.FitStatus2D),
		"a2d":          r.A2D,
		"x02d":         r.X02D,
		"y02d":         r.Y02D,
		"sx2d":         r.SX2D,
		"sy2d":         r.SY2D,
		"theta2d":      r.Theta2D,
		"beamWidth2dX": r.BeamWidth2DX,
		"beamWidth2dY": r.BeamWidth2DY,

		"regionIntegral": r.RegionIntegral,

		"inRateHz":      r.InRateHz,
		"outRateHz":     r.OutRateHz,
		"errorFraction": r.ErrorFraction,
		"warn":          b2f(r.Warn),
	}
}
