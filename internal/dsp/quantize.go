package dsp

import (
	"math"

	"github.com/pkg/errors"
)

// Quantization matrices, row = vertical frequency. They are never mutated.
var (
	QuantLuma8 = [64]float64{
		16, 11, 10, 16, 24, 40, 51, 61,
		12, 12, 14, 19, 26, 58, 60, 55,
		14, 13, 16, 24, 40, 57, 69, 56,
		14, 17, 22, 29, 51, 87, 80, 62,
		18, 22, 37, 56, 68, 109, 103, 77,
		24, 35, 55, 64, 81, 104, 113, 92,
		49, 64, 78, 87, 103, 121, 120, 101,
		72, 92, 95, 98, 112, 100, 103, 99,
	}
	QuantLuma4 = [16]float64{
		8, 12, 24, 32,
		5, 14, 25, 34,
		16, 23, 24, 43,
		21, 24, 26, 48,
	}
	QuantChroma4 = [16]float64{
		8, 12, 20, 44,
		12, 14, 23, 46,
		27, 25, 39, 48,
		44, 44, 48, 48,
	}
	QuantChroma2 = [4]float64{
		4, 48,
		48, 48,
	}
)

// LumaQuant returns the luma matrix for an m*m unit.
func LumaQuant(m int) ([]float64, error) {
	switch m {
	case 8:
		return QuantLuma8[:], nil
	case 4:
		return QuantLuma4[:], nil
	}
	return nil, errors.Wrapf(ErrUnsupportedSize, "luma quantizer %d", m)
}

// ChromaQuant returns the chroma matrix for an m*m unit.
func ChromaQuant(m int) ([]float64, error) {
	switch m {
	case 4:
		return QuantChroma4[:], nil
	case 2:
		return QuantChroma2[:], nil
	}
	return nil, errors.Wrapf(ErrUnsupportedSize, "chroma quantizer %d", m)
}

// Quantize divides each coefficient by its matrix entry and rounds to the
// nearest integer.
func Quantize(in []float64, q []float64, out []int32) {
	for i := range q {
		out[i] = int32(math.Round(in[i] / q[i]))
	}
}

// Dequantize multiplies each quantized coefficient back by its matrix entry.
func Dequantize(in []int32, q []float64, out []float64) {
	for i := range q {
		out[i] = float64(in[i]) * q[i]
	}
}

// CoefficientGroup is one transform unit of a residual: a luma unit and the
// two co-located chroma units, all quantized.
type CoefficientGroup struct {
	Y []int32
	U []int32
	V []int32
}

// UnitSizes returns the luma and chroma unit edges used to tile a block of
// the given size. Blocks of 8 and above tile into 8x8/4x4 units; a 4x4 block
// is one 4x4/2x2 unit.
func UnitSizes(size int) (luma, chroma int, err error) {
	switch {
	case size == 4:
		return SmallLumaUnit, SmallChromaUnit, nil
	case size >= 8 && size&(size-1) == 0:
		return LumaUnit, ChromaUnit, nil
	}
	return 0, 0, errors.Wrapf(ErrUnsupportedSize, "block size %d", size)
}

// NumGroups returns how many coefficient groups a block of size produces.
func NumGroups(size int) int {
	if size < LumaUnit {
		return 1
	}
	n := size / LumaUnit
	return n * n
}

// TransformResidual forward-transforms and quantizes a residual block. y is
// size*size, u and v are (size/2)*(size/2), all row-major. Units are
// produced left-to-right, top-to-bottom.
func (t *Tables) TransformResidual(size int, y, u, v []float64) ([]CoefficientGroup, error) {
	lm, cm, err := UnitSizes(size)
	if err != nil {
		return nil, err
	}
	half := size / 2
	if len(y) < size*size || len(u) < half*half || len(v) < half*half {
		return nil, errors.Wrapf(ErrMalformedResidual, "residual planes for size %d", size)
	}
	lq, _ := LumaQuant(lm)
	cq, _ := ChromaQuant(cm)

	lumaTile := make([]float64, lm*lm)
	chromaTile := make([]float64, cm*cm)
	coeffs := make([]float64, lm*lm)

	groups := make([]CoefficientGroup, 0, NumGroups(size))
	for ty := 0; ty < size; ty += lm {
		for tx := 0; tx < size; tx += lm {
			g := CoefficientGroup{
				Y: make([]int32, lm*lm),
				U: make([]int32, cm*cm),
				V: make([]int32, cm*cm),
			}

			copyTile(lumaTile, y, size, tx, ty, lm)
			if err := t.Forward(lumaTile, lm, coeffs); err != nil {
				return nil, err
			}
			Quantize(coeffs, lq, g.Y)

			cx, cy := tx/2, ty/2
			copyTile(chromaTile, u, half, cx, cy, cm)
			if err := t.Forward(chromaTile, cm, coeffs); err != nil {
				return nil, err
			}
			Quantize(coeffs, cq, g.U)

			copyTile(chromaTile, v, half, cx, cy, cm)
			if err := t.Forward(chromaTile, cm, coeffs); err != nil {
				return nil, err
			}
			Quantize(coeffs, cq, g.V)

			groups = append(groups, g)
		}
	}
	return groups, nil
}

// ReconstructResidual dequantizes and inverse-transforms the groups of a
// block of the given size back into residual planes.
func (t *Tables) ReconstructResidual(size int, groups []CoefficientGroup) (y, u, v []float64, err error) {
	lm, cm, err := UnitSizes(size)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(groups) != NumGroups(size) {
		return nil, nil, nil, errors.Wrapf(ErrMalformedResidual,
			"size %d: %d coefficient groups, want %d", size, len(groups), NumGroups(size))
	}
	half := size / 2
	y = make([]float64, size*size)
	u = make([]float64, half*half)
	v = make([]float64, half*half)

	lq, _ := LumaQuant(lm)
	cq, _ := ChromaQuant(cm)
	coeffs := make([]float64, lm*lm)
	tile := make([]float64, lm*lm)

	i := 0
	for ty := 0; ty < size; ty += lm {
		for tx := 0; tx < size; tx += lm {
			g := groups[i]
			i++
			if len(g.Y) != lm*lm || len(g.U) != cm*cm || len(g.V) != cm*cm {
				return nil, nil, nil, errors.Wrapf(ErrMalformedResidual,
					"group %d: lengths %d/%d/%d", i-1, len(g.Y), len(g.U), len(g.V))
			}

			Dequantize(g.Y, lq, coeffs)
			if err := t.Inverse(coeffs, lm, tile); err != nil {
				return nil, nil, nil, err
			}
			pasteTile(y, size, tx, ty, tile, lm)

			cx, cy := tx/2, ty/2
			Dequantize(g.U, cq, coeffs)
			if err := t.Inverse(coeffs, cm, tile); err != nil {
				return nil, nil, nil, err
			}
			pasteTile(u, half, cx, cy, tile, cm)

			Dequantize(g.V, cq, coeffs)
			if err := t.Inverse(coeffs, cm, tile); err != nil {
				return nil, nil, nil, err
			}
			pasteTile(v, half, cx, cy, tile, cm)
		}
	}
	return y, u, v, nil
}

// copyTile copies the m*m tile at (x0,y0) of a stride-wide plane into dst.
func copyTile(dst, plane []float64, stride, x0, y0, m int) {
	for y := 0; y < m; y++ {
		copy(dst[y*m:y*m+m], plane[(y0+y)*stride+x0:])
	}
}

// pasteTile writes an m*m tile into a stride-wide plane at (x0,y0).
func pasteTile(plane []float64, stride, x0, y0 int, src []float64, m int) {
	for y := 0; y < m; y++ {
		copy(plane[(y0+y)*stride+x0:(y0+y)*stride+x0+m], src[y*m:y*m+m])
	}
}
