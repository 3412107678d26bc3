// Package quadtree segments a frame into variable-size blocks. Each 128x128
// root region is split recursively while its colour deviation is above a
// threshold or it extends past the frame edge, down to 4x4.
package quadtree

import (
	"image"
	"math"

	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// DefaultErrorThreshold is the colour deviation above which a block is split.
const DefaultErrorThreshold = 45

// orderFactors scales the quadrant index into a block's order key, one entry
// per split depth (128 -> 64 -> 32 -> 16 -> 8 -> 4).
var orderFactors = [5]float64{0.1, 0.01, 0.001, 0.0001, 0.00001}

// Tree is the quadtree of one root region.
type Tree struct {
	Arena *block.Arena
	Root  block.ID
}

// Segmenter builds quadtrees for frames.
type Segmenter struct {
	group     *pool.Group
	threshold float64
}

// New returns a Segmenter that runs one task per root region on g and splits
// blocks whose deviation exceeds threshold.
func New(g *pool.Group, threshold float64) *Segmenter {
	return &Segmenter{group: g, threshold: threshold}
}

// Segment builds one tree per 128x128 root region. Roots are ordered by
// column, then row.
func (s *Segmenter) Segment(frame *raster.Raster) ([]*Tree, error) {
	if frame == nil {
		return nil, errors.Wrap(raster.ErrNilRaster, "quadtree: segment")
	}
	var origins []image.Point
	for x := 0; x < frame.Width; x += block.MaxSize {
		for y := 0; y < frame.Height; y += block.MaxSize {
			origins = append(origins, image.Pt(x, y))
		}
	}

	trees := make([]*Tree, len(origins))
	err := s.group.Run(len(origins), func(i int) error {
		trees[i] = s.buildTree(frame, origins[i], float64(i))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trees, nil
}

// Leaves collects the leaf blocks of every tree, one task per tree, and
// concatenates them in tree order.
func (s *Segmenter) Leaves(trees []*Tree) ([]*block.Block, error) {
	perTree := make([][]*block.Block, len(trees))
	err := s.group.Run(len(trees), func(i int) error {
		if trees[i] == nil {
			return nil
		}
		perTree[i] = trees[i].Arena.Leaves(trees[i].Root, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	n := 0
	for _, l := range perTree {
		n += len(l)
	}
	leaves := make([]*block.Block, 0, n)
	for _, l := range perTree {
		leaves = append(leaves, l...)
	}
	return leaves, nil
}

// Partition runs Segment and Leaves.
func (s *Segmenter) Partition(frame *raster.Raster) ([]*block.Block, error) {
	trees, err := s.Segment(frame)
	if err != nil {
		return nil, err
	}
	return s.Leaves(trees)
}

// builder carries the per-root state of one tree construction.
type builder struct {
	arena     *block.Arena
	stats     *cellStats
	bounds    image.Point
	threshold float64
}

func (s *Segmenter) buildTree(frame *raster.Raster, origin image.Point, order float64) *Tree {
	samples := frame.ExtractBlock(origin.X, origin.Y, block.MaxSize, nil)
	b := &builder{
		arena:     block.NewArena(64),
		stats:     newCellStats(samples),
		bounds:    image.Pt(frame.Width, frame.Height),
		threshold: s.threshold,
	}
	root := b.arena.Add(origin, block.MaxSize, samples)
	rb := b.arena.Get(root)
	rb.Order = order

	inner := image.Point{}
	rb.Mean = b.stats.mean(inner, block.MaxSize)
	dev := b.stats.deviation(rb.Mean, inner, block.MaxSize)
	if b.needsSplit(dev, origin, block.MaxSize) {
		b.subdivide(root, 0, inner)
	}
	return &Tree{Arena: b.arena, Root: root}
}

func (b *builder) needsSplit(dev float64, pos image.Point, size int) bool {
	return dev > b.threshold || pos.X+size > b.bounds.X || pos.Y+size > b.bounds.Y
}

// subdivide splits id into quadrants, dropping those that start outside the
// frame, and recurses into quadrants that still need splitting. inner is
// the block's offset inside the root region.
func (b *builder) subdivide(id block.ID, depth int, inner image.Point) {
	parent := b.arena.Get(id)
	if parent.Subdivided || parent.Size <= block.MinSize {
		return
	}
	pos, size, order := parent.Position, parent.Size, parent.Order
	frac := size / 2

	children := [4]block.ID{block.None, block.None, block.None, block.None}
	index := 0
	for ox := 0; ox < size; ox += frac {
		for oy := 0; oy < size; oy += frac {
			cpos := pos.Add(image.Pt(ox, oy))
			if cpos.X < 0 || cpos.Y < 0 || cpos.X >= b.bounds.X || cpos.Y >= b.bounds.Y {
				continue
			}
			cid := b.arena.AddChild(id, ox, oy, frac)
			child := b.arena.Get(cid)
			child.Order = order + orderFactors[depth]*float64(index)
			children[index] = cid
			index++

			cinner := inner.Add(image.Pt(ox, oy))
			child.Mean = b.stats.mean(cinner, frac)
			dev := b.stats.deviation(child.Mean, cinner, frac)
			if b.needsSplit(dev, cpos, frac) {
				b.subdivide(cid, depth+1, cinner)
			}
		}
	}
	if index == 0 {
		// Every quadrant fell outside the frame: keep the block as a leaf.
		return
	}
	parent = b.arena.Get(id)
	parent.Subdivided = true
	parent.Children = children
}

// cellStats caches the RGB value of every sample of a root region and the
// mean of each 4x4 cell, so that deviations of sub-blocks are computed
// without revisiting the colour conversion.
type cellStats struct {
	size  int
	rgb   [][3]int
	cells [][3]int
}

func newCellStats(s *raster.Samples) *cellStats {
	size := s.Size
	cs := &cellStats{
		size:  size,
		rgb:   make([][3]int, size*size),
		cells: make([][3]int, (size/4)*(size/4)),
	}
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			ci := (y/2)*half + x/2
			r, g, b := dsp.YUVToRGB(s.Y[y*size+x], s.U[ci], s.V[ci])
			cs.rgb[y*size+x] = [3]int{int(r), int(g), int(b)}
		}
	}
	cw := size / 4
	for cy := 0; cy < cw; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sum [3]int
			for y := 0; y < 4; y++ {
				for x := 0; x < 4; x++ {
					c := cs.rgb[(cy*4+y)*size+cx*4+x]
					sum[0] += c[0]
					sum[1] += c[1]
					sum[2] += c[2]
				}
			}
			cs.cells[cy*cw+cx] = [3]int{sum[0] / 16, sum[1] / 16, sum[2] / 16}
		}
	}
	return cs
}

// mean returns the rounded average of the 4x4 cell means covering the
// size*size block at inner.
func (cs *cellStats) mean(inner image.Point, size int) [3]int {
	cw := cs.size / 4
	n := size / 4
	var sum [3]float64
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := cs.cells[(inner.Y/4+y)*cw+inner.X/4+x]
			sum[0] += float64(c[0])
			sum[1] += float64(c[1])
			sum[2] += float64(c[2])
		}
	}
	count := float64(n * n)
	return [3]int{
		int(math.Round(sum[0] / count)),
		int(math.Round(sum[1] / count)),
		int(math.Round(sum[2] / count)),
	}
}

// deviation returns the sum of the per-channel standard deviations of the
// block's samples around mean.
func (cs *cellStats) deviation(mean [3]int, inner image.Point, size int) float64 {
	var acc [3]float64
	for y := 0; y < size; y++ {
		row := (inner.Y + y) * cs.size
		for x := 0; x < size; x++ {
			c := cs.rgb[row+inner.X+x]
			for k := 0; k < 3; k++ {
				d := float64(c[k] - mean[k])
				acc[k] += d * d
			}
		}
	}
	n := float64(size * size)
	return math.Sqrt(acc[0]/n) + math.Sqrt(acc[1]/n) + math.Sqrt(acc[2]/n)
}
