package recon

import (
	"math"

	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/raster"
)

// Deblocking defaults. The offsets shift the alpha and beta table lookups.
const (
	DefaultStrength = 7
	alphaOffset     = 4
	betaOffset      = 51
)

// Deblock smooths the left and top luma edges of every vector target that
// does not touch the frame's left or top border, in vector order. It returns
// the number of edge lines that met the filter condition. Vectors are
// filtered serially because edges of neighbouring targets share samples and
// the result must not depend on scheduling.
func Deblock(composite *raster.Raster, vectors []*block.Vector, strength int) int {
	fp := dsp.LookupFilterParams(strength, alphaOffset, betaOffset)
	filtered := 0
	for _, v := range vectors {
		t := v.Target()
		if t.X == 0 || t.Y == 0 {
			continue
		}
		for line := 0; line < v.Size; line++ {
			if filterLine(composite, t.X, t.Y+line, 1, 0, fp) {
				filtered++
			}
		}
		for col := 0; col < v.Size; col++ {
			if filterLine(composite, t.X+col, t.Y, 0, 1, fp) {
				filtered++
			}
		}
	}
	return filtered
}

// filterLine filters across the boundary in front of (x, y) along the step
// (dx, dy): q0..q2 start at (x, y), p0..p2 lie behind it. Lines that reach
// outside the raster are left alone.
func filterLine(r *raster.Raster, x, y, dx, dy int, fp dsp.FilterParams) bool {
	var q, p [3]int
	for i := 0; i < 3; i++ {
		qv, ok := r.Luma(x+i*dx, y+i*dy)
		if !ok {
			return false
		}
		pv, ok := r.Luma(x-(i+1)*dx, y-(i+1)*dy)
		if !ok {
			return false
		}
		q[i] = int(math.Round(qv))
		p[i] = int(math.Round(pv))
	}
	q0, q1, p0, p1, ok := dsp.FilterEdge(q[0], q[1], q[2], p[0], p[1], p[2], fp)
	if !ok {
		return false
	}
	// All four positions were read above.
	_ = r.SetLuma(x, y, float64(q0))
	_ = r.SetLuma(x+dx, y+dy, float64(q1))
	_ = r.SetLuma(x-dx, y-dy, float64(p0))
	_ = r.SetLuma(x-2*dx, y-2*dy, float64(p1))
	return true
}
