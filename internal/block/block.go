// Package block defines quadtree blocks, the arena that owns them and the
// motion vectors produced for matched blocks.
package block

import (
	"image"
	"math"

	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/raster"
)

// Reference bookkeeping shared by the search, the reconstructor and the
// stream.
const (
	// MaxReferences is the number of past frames kept for motion search.
	MaxReferences = 4
	// LookAheadReference tags a match found in the look-ahead frame.
	LookAheadReference = -1
)

// Size limits for quadtree blocks.
const (
	MaxSize = 128
	MinSize = 4
)

// ID addresses a Block inside its Arena.
type ID int32

// None marks an absent child.
const None ID = -1

// Block is one square quadtree node. Each block owns its samples; children
// receive copies of their quadrant when the parent is split.
type Block struct {
	Position image.Point
	Size     int
	Samples  *raster.Samples

	Subdivided bool
	Children   [4]ID

	// Mean is the rounded mean RGB of the block.
	Mean [3]int
	// Order is a stable sort key: parent order plus a depth-scaled quadrant
	// index.
	Order float64

	// Match data, attached by the motion search.
	MSE       float64
	Reference int
}

// Bounds returns the block footprint in frame coordinates.
func (b *Block) Bounds() image.Rectangle {
	return image.Rectangle{Min: b.Position, Max: b.Position.Add(image.Pt(b.Size, b.Size))}
}

// IsLeaf reports whether the block has no children.
func (b *Block) IsLeaf() bool { return !b.Subdivided }

// Arena owns every block of one quadtree. Blocks are addressed by ID so the
// tree holds no back references.
type Arena struct {
	blocks []Block
}

// NewArena returns an empty arena with room for n blocks.
func NewArena(n int) *Arena {
	return &Arena{blocks: make([]Block, 0, n)}
}

// Add stores a new block and returns its ID.
func (a *Arena) Add(pos image.Point, size int, samples *raster.Samples) ID {
	a.blocks = append(a.blocks, Block{
		Position:  pos,
		Size:      size,
		Samples:   samples,
		Children:  [4]ID{None, None, None, None},
		MSE:       math.Inf(1),
		Reference: 0,
	})
	return ID(len(a.blocks) - 1)
}

// Get returns the block for id. The pointer stays valid until the next Add.
func (a *Arena) Get(id ID) *Block {
	return &a.blocks[id]
}

// Len returns the number of blocks in the arena.
func (a *Arena) Len() int { return len(a.blocks) }

// AddChild copies the quadrant at (ox, oy) of the parent, relative to the
// parent's corner, into a new child block of the given size.
func (a *Arena) AddChild(parent ID, ox, oy, size int) ID {
	p := a.Get(parent)
	pos := p.Position.Add(image.Pt(ox, oy))
	samples := subSamples(p.Samples, ox, oy, size)
	return a.Add(pos, size, samples)
}

// Leaves appends the leaf blocks below id to dst in depth-first child order.
func (a *Arena) Leaves(id ID, dst []*Block) []*Block {
	b := a.Get(id)
	if !b.Subdivided {
		return append(dst, b)
	}
	for _, c := range b.Children {
		if c != None {
			dst = a.Leaves(c, dst)
		}
	}
	return dst
}

func subSamples(src *raster.Samples, ox, oy, size int) *raster.Samples {
	s := raster.NewSamples(size)
	if src == nil {
		return s
	}
	for y := 0; y < size; y++ {
		copy(s.Y[y*size:(y+1)*size], src.Y[(oy+y)*src.Size+ox:])
		copy(s.Valid[y*size:(y+1)*size], src.Valid[(oy+y)*src.Size+ox:])
	}
	half, srcHalf := size/2, src.Size/2
	for y := 0; y < half; y++ {
		row := (oy/2+y)*srcHalf + ox/2
		copy(s.U[y*half:(y+1)*half], src.U[row:])
		copy(s.V[y*half:(y+1)*half], src.V[row:])
	}
	return s
}

// Vector is a motion-compensated block: the samples of the Size*Size region
// at Position in the referenced frame, plus the decoded residual, reproduce
// the block at Position+Span.
type Vector struct {
	// Position is the top-left corner of the matched region.
	Position image.Point
	// Span is the searched block's position minus Position.
	Span      image.Point
	Size      int
	Reference int
	MSE       float64

	// Searched and Matched are only set on the encoder side.
	Searched *Block
	Matched  *Block

	// Coefficients holds the quantized residual units, left-to-right then
	// top-to-bottom.
	Coefficients []dsp.CoefficientGroup
}

// Target returns the top-left corner the vector reconstructs.
func (v *Vector) Target() image.Point {
	return v.Position.Add(v.Span)
}

// Footprint returns the region the vector writes during reconstruction.
func (v *Vector) Footprint() image.Rectangle {
	t := v.Target()
	return image.Rectangle{Min: t, Max: t.Add(image.Pt(v.Size, v.Size))}
}
