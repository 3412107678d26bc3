package raster

import "github.com/deepteams/yavc/internal/dsp"

// Samples is a square block of samples copied out of a raster: Size*Size
// luma and validity values and (Size/2)*(Size/2) chroma values, row-major.
// Valid is 1 where the sample fell outside the source raster (the colour is
// then 0) and 0 for a real sample.
type Samples struct {
	Size  int
	Y     []float64
	U     []float64
	V     []float64
	Valid []float64
}

// NewSamples allocates a zeroed bundle for a size*size block.
func NewSamples(size int) *Samples {
	half := size / 2
	return &Samples{
		Size:  size,
		Y:     make([]float64, size*size),
		U:     make([]float64, half*half),
		V:     make([]float64, half*half),
		Valid: make([]float64, size*size),
	}
}

// reuse returns s resized to size when its storage is large enough, or a new
// bundle otherwise.
func (s *Samples) reuse(size int) *Samples {
	if s == nil || cap(s.Y) < size*size || cap(s.Valid) < size*size {
		return NewSamples(size)
	}
	half := size / 2
	if cap(s.U) < half*half || cap(s.V) < half*half {
		return NewSamples(size)
	}
	s.Size = size
	s.Y = s.Y[:size*size]
	s.Valid = s.Valid[:size*size]
	s.U = s.U[:half*half]
	s.V = s.V[:half*half]
	return s
}

// OutOfBounds reports whether any sample of the bundle lies outside the
// source raster.
func (s *Samples) OutOfBounds() bool {
	for _, v := range s.Valid {
		if v != 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of s.
func (s *Samples) Clone() *Samples {
	return &Samples{
		Size:  s.Size,
		Y:     append([]float64(nil), s.Y...),
		U:     append([]float64(nil), s.U...),
		V:     append([]float64(nil), s.V...),
		Valid: append([]float64(nil), s.Valid...),
	}
}

// ExtractBlock copies the size*size block whose top-left luma corner is
// (x, y). Samples outside the raster are marked in Valid and left at zero.
// The chroma pass covers size/2 on the subsampled grid starting at
// (x/2, y/2), rounded down. When reuse has enough capacity its storage is
// overwritten and returned instead of allocating.
func (r *Raster) ExtractBlock(x, y, size int, reuse *Samples) *Samples {
	s := reuse.reuse(size)
	for dy := 0; dy < size; dy++ {
		py := y + dy
		for dx := 0; dx < size; dx++ {
			px := x + dx
			i := dy*size + dx
			if px < 0 || py < 0 || px >= r.Width || py >= r.Height {
				s.Y[i] = 0
				s.Valid[i] = 1
				continue
			}
			s.Y[i] = r.Y[py*r.Width+px]
			s.Valid[i] = 0
		}
	}

	half := size / 2
	cw, ch := r.ChromaWidth(), r.ChromaHeight()
	cx0, cy0 := x>>1, y>>1
	for dy := 0; dy < half; dy++ {
		py := cy0 + dy
		for dx := 0; dx < half; dx++ {
			px := cx0 + dx
			i := dy*half + dx
			if px < 0 || py < 0 || px >= cw || py >= ch {
				s.U[i] = 0
				s.V[i] = 0
				continue
			}
			s.U[i] = r.U[py*cw+px]
			s.V[i] = r.V[py*cw+px]
		}
	}
	return s
}

// Paste writes a size*size block of luma and its (size/2)^2 chroma at luma
// position (x, y), skipping every sample that falls outside the raster. When
// round is set each sample is rounded and clamped to [0, 255].
func (r *Raster) Paste(x, y, size int, yp, up, vp []float64, round bool) {
	for dy := 0; dy < size; dy++ {
		py := y + dy
		if py < 0 || py >= r.Height {
			continue
		}
		for dx := 0; dx < size; dx++ {
			px := x + dx
			if px < 0 || px >= r.Width {
				continue
			}
			r.Y[py*r.Width+px] = sample(yp[dy*size+dx], round)
		}
	}

	half := size / 2
	cw, ch := r.ChromaWidth(), r.ChromaHeight()
	for dy := 0; dy < half; dy++ {
		py := y>>1 + dy
		if py < 0 || py >= ch {
			continue
		}
		for dx := 0; dx < half; dx++ {
			px := x>>1 + dx
			if px < 0 || px >= cw {
				continue
			}
			r.U[py*cw+px] = sample(up[dy*half+dx], round)
			r.V[py*cw+px] = sample(vp[dy*half+dx], round)
		}
	}
}

func sample(v float64, round bool) float64 {
	if !round {
		return v
	}
	return float64(dsp.ClampSample(v))
}
