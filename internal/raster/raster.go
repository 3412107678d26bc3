// Package raster holds 4:2:0 frame planes and block extraction.
package raster

import (
	"image"
	"image/color"

	"github.com/deepteams/yavc/internal/dsp"
	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrOutOfBounds       = errors.New("raster: coordinate out of bounds")
	ErrInvalidDimensions = errors.New("raster: dimensions must be positive multiples of 4")
	ErrNilRaster         = errors.New("raster: nil raster")
)

// Raster is one frame in 4:2:0 layout. Luma is full resolution; U and V are
// half resolution on both axes, so the chroma sample for luma (x, y) is at
// (x/2, y/2). All planes are row-major.
type Raster struct {
	Width  int
	Height int
	Y      []float64
	U      []float64
	V      []float64
}

// New allocates a zeroed raster. Width and height must be positive and
// divisible by 4.
func New(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 || width%4 != 0 || height%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidDimensions, "%dx%d", width, height)
	}
	cw, ch := width/2, height/2
	return &Raster{
		Width:  width,
		Height: height,
		Y:      make([]float64, width*height),
		U:      make([]float64, cw*ch),
		V:      make([]float64, cw*ch),
	}, nil
}

// ChromaWidth returns the width of the U and V planes.
func (r *Raster) ChromaWidth() int { return r.Width / 2 }

// ChromaHeight returns the height of the U and V planes.
func (r *Raster) ChromaHeight() int { return r.Height / 2 }

// Contains reports whether the luma coordinate lies inside the raster.
func (r *Raster) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

func (r *Raster) check(x, y int) error {
	if !r.Contains(x, y) {
		return errors.Wrapf(ErrOutOfBounds, "(%d,%d) in %dx%d", x, y, r.Width, r.Height)
	}
	return nil
}

// Get returns the Y, U and V samples at luma coordinate (x, y).
func (r *Raster) Get(x, y int) (yv, uv, vv float64, err error) {
	if err := r.check(x, y); err != nil {
		return 0, 0, 0, err
	}
	ci := (y/2)*r.ChromaWidth() + x/2
	return r.Y[y*r.Width+x], r.U[ci], r.V[ci], nil
}

// Set writes luma at (x, y) and chroma at the cell covering it.
func (r *Raster) Set(x, y int, yv, uv, vv float64) error {
	if err := r.check(x, y); err != nil {
		return err
	}
	r.Y[y*r.Width+x] = yv
	ci := (y/2)*r.ChromaWidth() + x/2
	r.U[ci] = uv
	r.V[ci] = vv
	return nil
}

// SetAveraged writes luma at (x, y). The chroma cell is overwritten when
// first is set and otherwise averaged with the value already stored, so that
// the four luma positions of a 2x2 cell contribute to one chroma sample.
func (r *Raster) SetAveraged(x, y int, yv, uv, vv float64, first bool) error {
	if err := r.check(x, y); err != nil {
		return err
	}
	r.Y[y*r.Width+x] = yv
	ci := (y/2)*r.ChromaWidth() + x/2
	if first {
		r.U[ci] = uv
		r.V[ci] = vv
		return nil
	}
	r.U[ci] = (r.U[ci] + uv) / 2
	r.V[ci] = (r.V[ci] + vv) / 2
	return nil
}

// SetLuma writes only the luma sample at (x, y).
func (r *Raster) SetLuma(x, y int, yv float64) error {
	if err := r.check(x, y); err != nil {
		return err
	}
	r.Y[y*r.Width+x] = yv
	return nil
}

// Luma returns the luma sample at (x, y), or false outside the raster.
func (r *Raster) Luma(x, y int) (float64, bool) {
	if !r.Contains(x, y) {
		return 0, false
	}
	return r.Y[y*r.Width+x], true
}

// SetChroma writes U and V on the subsampled grid at (cx, cy).
func (r *Raster) SetChroma(cx, cy int, uv, vv float64) error {
	if cx < 0 || cy < 0 || cx >= r.ChromaWidth() || cy >= r.ChromaHeight() {
		return errors.Wrapf(ErrOutOfBounds, "chroma (%d,%d) in %dx%d", cx, cy, r.ChromaWidth(), r.ChromaHeight())
	}
	ci := cy*r.ChromaWidth() + cx
	r.U[ci] = uv
	r.V[ci] = vv
	return nil
}

// Snapshot returns a deep copy. Later edits to r never reach the copy.
func (r *Raster) Snapshot() *Raster {
	return &Raster{
		Width:  r.Width,
		Height: r.Height,
		Y:      append([]float64(nil), r.Y...),
		U:      append([]float64(nil), r.U...),
		V:      append([]float64(nil), r.V...),
	}
}

// Round rounds and clamps every sample to [0, 255] in place, giving the
// values a byte-oriented store reads back.
func (r *Raster) Round() {
	for _, p := range [][]float64{r.Y, r.U, r.V} {
		for i, v := range p {
			p[i] = float64(dsp.ClampSample(v))
		}
	}
}

// Equal reports whether both rasters have identical dimensions and samples.
func (r *Raster) Equal(o *Raster) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Width != o.Width || r.Height != o.Height {
		return false
	}
	return equalPlanes(r.Y, o.Y) && equalPlanes(r.U, o.U) && equalPlanes(r.V, o.V)
}

func equalPlanes(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FromImage converts img to a raster. The image bounds must be multiples of
// 4; callers scale beforehand. Chroma is averaged over each 2x2 cell the way
// SetAveraged accumulates it.
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, ErrNilRaster
	}
	b := img.Bounds()
	r, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			yv, uv, vv := dsp.RGBToYUV(c.R, c.G, c.B)
			// In-bounds by construction.
			_ = r.SetAveraged(x, y, yv, uv, vv, x%2 == 0 && y%2 == 0)
		}
	}
	return r, nil
}

// Image renders the raster as an opaque RGBA image.
func (r *Raster) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	cw := r.ChromaWidth()
	for y := 0; y < r.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < r.Width; x++ {
			ci := (y/2)*cw + x/2
			cr, cg, cb := dsp.YUVToRGB(r.Y[y*r.Width+x], r.U[ci], r.V[ci])
			row[4*x+0] = cr
			row[4*x+1] = cg
			row[4*x+2] = cb
			row[4*x+3] = 0xff
		}
	}
	return img
}
