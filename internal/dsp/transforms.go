package dsp

import (
	"math"

	"github.com/deepteams/yavc/internal/pool"
	"github.com/pkg/errors"
)

// 2-D separable DCT-II / DCT-III on square units of 8, 4 or 2 samples.
//
// Forward:  C[v][u] = s(u)s(v) * sum_{x,y} (P[y][x]-128) cos((2x+1)u pi/2m) cos((2y+1)v pi/2m)
// Inverse:  P[y][x] = 128 + sum_{u,v} C[v][u] s(u)s(v) cos((2x+1)u pi/2m) cos((2y+1)v pi/2m)
//
// with s(0) = 1/sqrt(m) and s(k) = sqrt(2/m). The normalisation product
// s(u)s(v) is taken as 1/m, sqrt(2)/m or 2/m directly so that the DC term of
// a flat unit survives the round trip bit-exact.

// Level is the sample offset removed before the forward transform.
const Level = 128

// Tables holds the precomputed basis products for every size class. It is
// built once by NewTables and is read-only afterwards, so a single value may
// be shared between goroutines.
type Tables struct {
	// forward[c][((v*m+u)*m+y)*m+x]: coefficient-major, for the forward pass.
	forward [NumSizeClasses][]float64
	// inverse[c][((y*m+x)*m+v)*m+u]: sample-major, for the inverse pass.
	inverse [NumSizeClasses][]float64
}

// NewTables computes the basis tables, one size class per task on g.
func NewTables(g *pool.Group) (*Tables, error) {
	t := &Tables{}
	err := g.Run(NumSizeClasses, func(class int) error {
		t.build(class)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "dsp: build transform tables")
	}
	return t, nil
}

// norm returns s(u)s(v) for an m-point transform.
func norm(u, v, m int) float64 {
	switch {
	case u == 0 && v == 0:
		return 1 / float64(m)
	case u == 0 || v == 0:
		return math.Sqrt2 / float64(m)
	default:
		return 2 / float64(m)
	}
}

func (t *Tables) build(class int) {
	m := classSize(class)
	n := m * m
	cos := make([]float64, n) // cos[k*m+i] = cos((2i+1)k pi/2m)
	for k := 0; k < m; k++ {
		for i := 0; i < m; i++ {
			cos[k*m+i] = math.Cos(float64(2*i+1) * float64(k) * math.Pi / float64(2*m))
		}
	}

	fwd := make([]float64, n*n)
	inv := make([]float64, n*n)
	for v := 0; v < m; v++ {
		for u := 0; u < m; u++ {
			s := norm(u, v, m)
			for y := 0; y < m; y++ {
				for x := 0; x < m; x++ {
					b := s * cos[u*m+x] * cos[v*m+y]
					fwd[((v*m+u)*m+y)*m+x] = b
					inv[((y*m+x)*m+v)*m+u] = b
				}
			}
		}
	}
	t.forward[class] = fwd
	t.inverse[class] = inv
}

// Forward transforms the m*m sample unit src into dst.
func (t *Tables) Forward(src []float64, m int, dst []float64) error {
	class, err := SizeClass(m)
	if err != nil {
		return err
	}
	n := m * m
	if len(src) < n || len(dst) < n {
		return errors.Wrapf(ErrUnsupportedSize, "forward %dx%d: buffers %d/%d", m, m, len(src), len(dst))
	}
	basis := t.forward[class]
	for k := 0; k < n; k++ {
		row := basis[k*n : k*n+n]
		var sum float64
		for i, p := range src[:n] {
			sum += (p - Level) * row[i]
		}
		dst[k] = sum
	}
	return nil
}

// Inverse transforms the m*m coefficient unit src back into samples in dst.
func (t *Tables) Inverse(src []float64, m int, dst []float64) error {
	class, err := SizeClass(m)
	if err != nil {
		return err
	}
	n := m * m
	if len(src) < n || len(dst) < n {
		return errors.Wrapf(ErrUnsupportedSize, "inverse %dx%d: buffers %d/%d", m, m, len(src), len(dst))
	}
	basis := t.inverse[class]
	for k := 0; k < n; k++ {
		row := basis[k*n : k*n+n]
		sum := float64(Level)
		for i, c := range src[:n] {
			sum += c * row[i]
		}
		dst[k] = sum
	}
	return nil
}
