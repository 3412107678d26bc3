package motion

import (
	"image"
	"math"

	"github.com/deepteams/yavc/internal/raster"
)

const (
	initialRadius = 4
	refineRadius  = 2

	// DefaultSearchWindow bounds every candidate to this distance from the
	// searched block on each axis.
	DefaultSearchWindow = 48
)

// Result is the outcome of a search in one reference. Found is false when no
// candidate position was admissible; the other fields are then meaningless.
type Result struct {
	Found    bool
	Position image.Point
	MSE      float64
	// Trace holds the lowest MSE seen each time the radius was halved.
	Trace []float64
}

var hexCos, hexSin [6]float64

func init() {
	for i := range hexCos {
		a := float64(i+1) * math.Pi / 3
		hexCos[i] = math.Cos(a)
		hexSin[i] = math.Sin(a)
	}
}

// hexagonOffsets returns the six vertices of a hexagon of radius r at 60,
// 120, ..., 360 degrees, rounded to the nearest integer.
func hexagonOffsets(r int) [6]image.Point {
	var pts [6]image.Point
	for i := range pts {
		pts[i] = image.Pt(
			int(math.Round(hexCos[i]*float64(r))),
			int(math.Round(hexSin[i]*float64(r))),
		)
	}
	return pts
}

// squareOffsets returns the centre, the four axis neighbours and the four
// diagonal neighbours at distance r.
func squareOffsets(r int) [9]image.Point {
	return [9]image.Point{
		{0, 0},
		{r, 0}, {-r, 0}, {0, r}, {0, -r},
		{r, r}, {-r, r}, {r, -r}, {-r, -r},
	}
}

// candidate evaluates positions of one reference against one block, keeping
// the lowest-MSE position seen.
type candidate struct {
	ref     *raster.Raster
	target  *raster.Samples
	origin  image.Point
	window  int
	scratch *raster.Samples
	seen    map[image.Point]struct{}
	best    Result
}

func newCandidate(ref *raster.Raster, target *raster.Samples, origin image.Point, window int, scratch *raster.Samples) *candidate {
	return &candidate{
		ref:     ref,
		target:  target,
		origin:  origin,
		window:  window,
		scratch: scratch,
		seen:    make(map[image.Point]struct{}, 32),
		best:    Result{MSE: math.Inf(1)},
	}
}

// admissible reports whether p lies inside the search window and its corner
// inside the reference.
func (c *candidate) admissible(p image.Point) bool {
	d := p.Sub(c.origin)
	if d.X > c.window || d.X < -c.window || d.Y > c.window || d.Y < -c.window {
		return false
	}
	return c.ref.Contains(p.X, p.Y)
}

func (c *candidate) score(p image.Point) {
	c.scratch = c.ref.ExtractBlock(p.X, p.Y, c.target.Size, c.scratch)
	if mse := MSE(c.target, c.scratch, true); mse < c.best.MSE {
		c.best.Found = true
		c.best.Position = p
		c.best.MSE = mse
	}
}

// visit scores p unless it was already seen or is not admissible.
func (c *candidate) visit(p image.Point) {
	if _, ok := c.seen[p]; ok {
		return
	}
	if !c.admissible(p) {
		return
	}
	c.seen[p] = struct{}{}
	c.score(p)
}

// hexagon runs a hexagon search around the origin: the centre moves to the
// best vertex until the centre itself wins, then the radius halves. Once the
// radius reaches 1 a 3x3 pattern around the final centre is checked.
func (c *candidate) hexagon() {
	center := c.origin
	radius := initialRadius
	for radius > 1 {
		c.visit(center)
		for _, off := range hexagonOffsets(radius) {
			c.visit(center.Add(off))
		}
		if !c.best.Found || c.best.Position == center {
			radius /= 2
			c.best.Trace = append(c.best.Trace, c.best.MSE)
			continue
		}
		center = c.best.Position
	}
	for _, off := range squareOffsets(radius) {
		c.visit(center.Add(off))
	}
}

// refine scans every offset within refineRadius of the origin, keeping the
// current best unless a position scores strictly lower.
func (c *candidate) refine() {
	for dy := -refineRadius; dy <= refineRadius; dy++ {
		for dx := -refineRadius; dx <= refineRadius; dx++ {
			p := c.origin.Add(image.Pt(dx, dy))
			if c.admissible(p) {
				c.score(p)
			}
		}
	}
}

// Search finds the best match for target, whose top-left corner is origin,
// in ref: a hexagon search followed by exhaustive refinement.
func Search(ref *raster.Raster, target *raster.Samples, origin image.Point, window int) Result {
	return search(ref, target, origin, window, nil)
}

func search(ref *raster.Raster, target *raster.Samples, origin image.Point, window int, scratch *raster.Samples) Result {
	c := newCandidate(ref, target, origin, window, scratch)
	c.hexagon()
	c.refine()
	return c.best
}
