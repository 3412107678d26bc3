package motion

import (
	"math"

	"github.com/deepteams/yavc/internal/raster"
)

// Default residual gates. Differences at or below these magnitudes are
// dropped before the transform.
const (
	DefaultThresholdY  = 1.0
	DefaultThresholdUV = 2.0
)

// Residual writes searched minus matched into y, u and v, zeroing every
// difference whose magnitude does not exceed the threshold of its plane.
// y must hold size*size values, u and v (size/2)^2.
func Residual(searched, matched *raster.Samples, thresholdY, thresholdUV float64, y, u, v []float64) {
	for i := range searched.Y {
		y[i] = gate(searched.Y[i]-matched.Y[i], thresholdY)
	}
	for i := range searched.U {
		u[i] = gate(searched.U[i]-matched.U[i], thresholdUV)
		v[i] = gate(searched.V[i]-matched.V[i], thresholdUV)
	}
}

func gate(d, threshold float64) float64 {
	if math.Abs(d) > threshold {
		return d
	}
	return 0
}
