package fit

import "math"

// StdDev2BeamSize converts a Gaussian standard deviation to the reported
// beam size (4 sigma full width).
const StdDev2BeamSize = 4.0

// FWHMFactor converts a Gaussian standard deviation to full width at half
// maximum.
var FWHMFactor = 2 * math.Sqrt(2*math.Ln2)

// BeamWidth converts a fitted sigma in pixels to a beam width in the pixel
// size's length unit.
func BeamWidth(sigma, pixelSize float64) float64 {
	return StdDev2BeamSize * pixelSize * sigma
}

// NormalizedAmplitude couples two independent single-axis fits into one
// volume-consistent peak amplitude: the amplitude fitted along one axis is
// divided by the other axis's sigma and sqrt(2 pi). This cross-term is
// intentional; it reports the amplitude a joint 2-D fit with unit-normalised
// transverse profile would have produced.
func NormalizedAmplitude(amplitude, sigmaOther float64) float64 {
	return amplitude / sigmaOther / math.Sqrt(2*math.Pi)
}
