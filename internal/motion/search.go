// Package motion finds, for each leaf block, the best matching region in the
// reference frames and turns the match into a motion vector with a quantized
// residual.
package motion

import (
	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// Config tunes the search and the residual gate.
type Config struct {
	// Window is the maximum displacement on each axis.
	Window int
	// ThresholdY and ThresholdUV are the residual gates.
	ThresholdY  float64
	ThresholdUV float64
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		Window:      DefaultSearchWindow,
		ThresholdY:  DefaultThresholdY,
		ThresholdUV: DefaultThresholdUV,
	}
}

// Prediction is the search outcome of one frame. Vectors and Intra follow the
// order of the searched leaves.
type Prediction struct {
	Vectors []*block.Vector
	Intra   []*block.Block
	// MSE is the sum of the final, validity-free scores of all vectors.
	MSE float64
}

// Searcher runs the motion search of a frame, one task per leaf.
type Searcher struct {
	group  *pool.Group
	tables *dsp.Tables
	cfg    Config
}

// NewSearcher returns a Searcher. A non-positive window or a negative
// threshold selects the default.
func NewSearcher(g *pool.Group, tables *dsp.Tables, cfg Config) *Searcher {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ThresholdY < 0 {
		cfg.ThresholdY = def.ThresholdY
	}
	if cfg.ThresholdUV < 0 {
		cfg.ThresholdUV = def.ThresholdUV
	}
	return &Searcher{group: g, tables: tables, cfg: cfg}
}

// Search matches every leaf against refs, ordered most recent first, and the
// optional lookAhead frame. A match in refs[i] is tagged
// block.MaxReferences-i; one in lookAhead is tagged block.LookAheadReference.
// Leaves without any admissible candidate are returned as intra blocks.
func (s *Searcher) Search(leaves []*block.Block, refs []*raster.Raster, lookAhead *raster.Raster) (*Prediction, error) {
	if len(refs) > block.MaxReferences {
		refs = refs[:block.MaxReferences]
	}
	vectors := make([]*block.Vector, len(leaves))
	err := s.group.Run(len(leaves), func(i int) error {
		v, err := s.searchLeaf(leaves[i], refs, lookAhead)
		if err != nil {
			return errors.Wrapf(err, "block at %v", leaves[i].Position)
		}
		vectors[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	p := &Prediction{Vectors: make([]*block.Vector, 0, len(leaves))}
	for i, v := range vectors {
		if v == nil {
			p.Intra = append(p.Intra, leaves[i])
			continue
		}
		p.Vectors = append(p.Vectors, v)
		p.MSE += v.MSE
	}
	return p, nil
}

// searchLeaf returns nil when the leaf has no candidate in any reference.
func (s *Searcher) searchLeaf(leaf *block.Block, refs []*raster.Raster, lookAhead *raster.Raster) (*block.Vector, error) {
	if leaf == nil || leaf.Samples == nil {
		return nil, errors.Wrap(raster.ErrNilRaster, "motion: leaf without samples")
	}
	var (
		best    Result
		bestRef *raster.Raster
		tag     int
		scratch = raster.NewSamples(leaf.Size)
	)
	consider := func(ref *raster.Raster, reference int) {
		if ref == nil {
			return
		}
		r := search(ref, leaf.Samples, leaf.Position, s.cfg.Window, scratch)
		if r.Found && (!best.Found || r.MSE < best.MSE) {
			best, bestRef, tag = r, ref, reference
		}
	}
	for i, ref := range refs {
		consider(ref, block.MaxReferences-i)
	}
	consider(lookAhead, block.LookAheadReference)
	if !best.Found {
		return nil, nil
	}

	size := leaf.Size
	matched := bestRef.ExtractBlock(best.Position.X, best.Position.Y, size, nil)
	half := size / 2
	y := pool.GetFloat64(size * size)
	u := pool.GetFloat64(half * half)
	v := pool.GetFloat64(half * half)
	defer func() {
		pool.PutFloat64(y)
		pool.PutFloat64(u)
		pool.PutFloat64(v)
	}()
	Residual(leaf.Samples, matched, s.cfg.ThresholdY, s.cfg.ThresholdUV, y, u, v)
	groups, err := s.tables.TransformResidual(size, y, u, v)
	if err != nil {
		return nil, err
	}

	leaf.MSE = best.MSE
	leaf.Reference = tag
	return &block.Vector{
		Position:  best.Position,
		Span:      leaf.Position.Sub(best.Position),
		Size:      size,
		Reference: tag,
		MSE:       MSE(leaf.Samples, matched, false),
		Searched:  leaf,
		Matched: &block.Block{
			Position:  best.Position,
			Size:      size,
			Samples:   matched,
			MSE:       best.MSE,
			Reference: tag,
		},
		Coefficients: groups,
	}, nil
}
