package dsp

import "math"

// Full-range (JFIF) YCbCr <-> RGB conversion. U and V are centred on 128.

// RGBToYUV converts an 8-bit RGB triple to Y, U, V.
func RGBToYUV(r, g, b uint8) (y, u, v float64) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	y = 0.299*fr + 0.587*fg + 0.114*fb
	u = 128 - 0.168736*fr - 0.331264*fg + 0.5*fb
	v = 128 + 0.5*fr - 0.418688*fg - 0.081312*fb
	return y, u, v
}

// YUVToRGB converts Y, U, V back to an 8-bit RGB triple, rounding and
// clamping each component.
func YUVToRGB(y, u, v float64) (r, g, b uint8) {
	u -= 128
	v -= 128
	r = ClampSample(y + 1.402*v)
	g = ClampSample(y - 0.344136*u - 0.714136*v)
	b = ClampSample(y + 1.772*u)
	return r, g, b
}

// ClampSample rounds v to the nearest integer and clamps it to [0, 255].
func ClampSample(v float64) uint8 {
	return Clip8b(int(math.Round(v)))
}
