package dsp

import (
	"math"
	"testing"
)

func TestRGBToYUV_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		y, u, v float64
	}{
		{"black", 0, 0, 0, 0, 128, 128},
		{"white", 255, 255, 255, 255, 128, 128},
		{"gray", 128, 128, 128, 128, 128, 128},
		{"red", 255, 0, 0, 76.245, 84.97232, 255.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, u, v := RGBToYUV(tt.r, tt.g, tt.b)
			if math.Abs(y-tt.y) > 1e-3 || math.Abs(u-tt.u) > 1e-3 || math.Abs(v-tt.v) > 1e-3 {
				t.Errorf("RGBToYUV(%d,%d,%d) = %.3f,%.3f,%.3f, want %.3f,%.3f,%.3f",
					tt.r, tt.g, tt.b, y, u, v, tt.y, tt.u, tt.v)
			}
		})
	}
}

func TestYUVRoundTrip(t *testing.T) {
	for r := 0; r < 256; r += 17 {
		for g := 0; g < 256; g += 17 {
			for b := 0; b < 256; b += 17 {
				y, u, v := RGBToYUV(uint8(r), uint8(g), uint8(b))
				r2, g2, b2 := YUVToRGB(y, u, v)
				if absDiff(r2, uint8(r)) > 1 || absDiff(g2, uint8(g)) > 1 || absDiff(b2, uint8(b)) > 1 {
					t.Fatalf("round trip (%d,%d,%d) -> (%d,%d,%d)", r, g, b, r2, g2, b2)
				}
			}
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestClampSample(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-3, 0}, {0, 0}, {0.4, 0}, {0.5, 1}, {127.6, 128}, {255, 255}, {300, 255},
	}
	for _, tt := range tests {
		if got := ClampSample(tt.in); got != tt.want {
			t.Errorf("ClampSample(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
