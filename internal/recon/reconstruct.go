// Package recon rebuilds frames from intra blocks and motion vectors and
// smooths the block edges of the result.
package recon

import (
	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// ErrMissingReference is returned when a vector names a reference frame that
// is not available.
var ErrMissingReference = errors.New("recon: missing reference frame")

// Reconstructor composes frames on a shared worker group.
type Reconstructor struct {
	group  *pool.Group
	tables *dsp.Tables
}

// New returns a Reconstructor.
func New(g *pool.Group, tables *dsp.Tables) *Reconstructor {
	return &Reconstructor{group: g, tables: tables}
}

// Reconstruct builds the next frame. It starts from a copy of prev, writes
// every intra block and then every vector, each in parallel. Blocks and
// vector targets must not overlap. Errors of individual vectors are
// reported together once all of them have been processed.
func (rc *Reconstructor) Reconstruct(prev *raster.Raster, intra []*block.Block, vectors []*block.Vector, refs *ReferenceList) (*raster.Raster, error) {
	if prev == nil {
		return nil, errors.Wrap(raster.ErrNilRaster, "recon: previous frame")
	}
	composite := prev.Snapshot()

	err := rc.group.Run(len(intra), func(i int) error {
		b := intra[i]
		if b == nil || b.Samples == nil {
			return errors.Wrap(raster.ErrNilRaster, "recon: intra block without samples")
		}
		s := b.Samples
		composite.Paste(b.Position.X, b.Position.Y, b.Size, s.Y, s.U, s.V, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = rc.group.Run(len(vectors), func(i int) error {
		return rc.apply(composite, vectors[i], refs)
	})
	if err != nil {
		return nil, err
	}
	return composite, nil
}

// apply adds the decoded residual of v to the referenced samples and writes
// the sum at the vector's target.
func (rc *Reconstructor) apply(composite *raster.Raster, v *block.Vector, refs *ReferenceList) error {
	ref, err := refs.Resolve(v.Reference)
	if err != nil {
		return errors.Wrapf(err, "vector to %v", v.Target())
	}
	y, u, vv, err := rc.tables.ReconstructResidual(v.Size, v.Coefficients)
	if err != nil {
		return errors.Wrapf(err, "vector to %v", v.Target())
	}
	s := ref.ExtractBlock(v.Position.X, v.Position.Y, v.Size, nil)
	for i := range s.Y {
		s.Y[i] += y[i]
	}
	for i := range s.U {
		s.U[i] += u[i]
		s.V[i] += vv[i]
	}
	t := v.Target()
	composite.Paste(t.X, t.Y, v.Size, s.Y, s.U, s.V, true)
	return nil
}
