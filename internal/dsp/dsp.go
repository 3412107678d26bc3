// Package dsp provides the numeric kernels of the codec: the separable
// cosine transform and its coefficient tables, the fixed quantization
// matrices, the luma edge filter used by the deblocker and the RGB/YUV
// colour conversion.
//
// Sample planes are float64 slices in row-major order (index y*stride+x).
// Coefficient planes use the same layout with the row index being the
// vertical frequency.
package dsp

import "github.com/pkg/errors"

// Supported transform unit sizes and their size classes.
const (
	NumSizeClasses = 3

	LumaUnit        = 8 // luma tile edge for blocks of 8 and above
	ChromaUnit      = 4 // chroma tile edge for blocks of 8 and above
	SmallLumaUnit   = 4 // luma unit edge for a 4x4 block
	SmallChromaUnit = 2 // chroma unit edge for a 4x4 block
)

// Common errors.
var (
	ErrUnsupportedSize   = errors.New("dsp: unsupported transform size")
	ErrMalformedResidual = errors.New("dsp: malformed residual")
)

// SizeClass maps a transform edge length to its table slot:
// 8 -> 0, 4 -> 1, 2 -> 2.
func SizeClass(m int) (int, error) {
	switch m {
	case 8:
		return 0, nil
	case 4:
		return 1, nil
	case 2:
		return 2, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedSize, "size %d", m)
}

// classSize is the inverse of SizeClass.
func classSize(class int) int {
	return 8 >> class
}
