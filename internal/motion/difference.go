package motion

import (
	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// Default limits of the unchanged-block gate, as mean squared differences.
const (
	DefaultUnchangedY  = 1.55
	DefaultUnchangedUV = 3.6
)

// DifferenceGate drops leaves that barely differ from the co-located region of
// the previous reconstruction, so they are neither searched nor coded.
type DifferenceGate struct {
	group *pool.Group
	limY  float64
	limUV float64
}

// NewDifferenceGate returns a gate with the given luma and chroma limits.
func NewDifferenceGate(g *pool.Group, limitY, limitUV float64) *DifferenceGate {
	return &DifferenceGate{group: g, limY: limitY, limUV: limitUV}
}

// Changed reports whether the mean squared difference between b and the same
// region of prev exceeds the limit on any plane.
func (d *DifferenceGate) Changed(b *block.Block, prev *raster.Raster) bool {
	ref := prev.ExtractBlock(b.Position.X, b.Position.Y, b.Size, nil)
	var sy, su, sv float64
	for i := range ref.Y {
		dy := ref.Y[i] - b.Samples.Y[i]
		sy += dy * dy
	}
	for i := range ref.U {
		du := ref.U[i] - b.Samples.U[i]
		dv := ref.V[i] - b.Samples.V[i]
		su += du * du
		sv += dv * dv
	}
	half := float64((b.Size / 2) * (b.Size / 2))
	sy /= float64(b.Size * b.Size)
	su /= half
	sv /= half
	return sy > d.limY || su > d.limUV || sv > d.limUV
}

// Filter returns the leaves that changed against prev, in their input order.
func (d *DifferenceGate) Filter(leaves []*block.Block, prev *raster.Raster) ([]*block.Block, error) {
	if prev == nil {
		return nil, errors.Wrap(raster.ErrNilRaster, "motion: difference gate")
	}
	keep := make([]bool, len(leaves))
	err := d.group.Run(len(leaves), func(i int) error {
		keep[i] = d.Changed(leaves[i], prev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	changed := make([]*block.Block, 0, len(leaves)/2)
	for i, b := range leaves {
		if keep[i] {
			changed = append(changed, b)
		}
	}
	return changed, nil
}
