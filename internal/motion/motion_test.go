package motion

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
)

func newRaster(t testing.TB, w, h int, luma func(x, y int) float64) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Y[y*w+x] = luma(x, y)
		}
	}
	for i := range r.U {
		r.U[i] = 128
		r.V[i] = 128
	}
	return r
}

func flat(v float64) func(x, y int) float64 {
	return func(x, y int) float64 { return v }
}

func noise(seed int64, w int) func(x, y int) float64 {
	rng := rand.New(rand.NewSource(seed))
	vals := make(map[int]float64)
	return func(x, y int) float64 {
		i := y*w + x
		if v, ok := vals[i]; ok {
			return v
		}
		v := float64(rng.Intn(256))
		vals[i] = v
		return v
	}
}

// paraboloid is an isotropic bowl centred on (cx, cy).
func paraboloid(cx, cy float64) func(x, y int) float64 {
	return func(x, y int) float64 {
		dx, dy := float64(x)-cx, float64(y)-cy
		return 0.5 * (dx*dx + dy*dy)
	}
}

func leafAt(r *raster.Raster, x, y, size int) *block.Block {
	return &block.Block{
		Position: image.Pt(x, y),
		Size:     size,
		Samples:  r.ExtractBlock(x, y, size, nil),
		MSE:      math.Inf(1),
	}
}

func newTestSearcher(t testing.TB) *Searcher {
	t.Helper()
	g := pool.NewGroup(0)
	tables, err := dsp.NewTables(g)
	if err != nil {
		t.Fatalf("NewTables: %v", err)
	}
	return NewSearcher(g, tables, DefaultConfig())
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(s *raster.Samples)
		alpha     bool
		want      float64
		wantAlpha float64
	}{
		{
			name:      "identical",
			edit:      func(s *raster.Samples) {},
			want:      0,
			wantAlpha: 0,
		},
		{
			name: "luma squared twice",
			edit: func(s *raster.Samples) {
				s.Y[0] += 1
				s.Y[5] -= 1
			},
			want:      4.0 / 48,
			wantAlpha: 4.0 / 64,
		},
		{
			name: "chroma squared once",
			edit: func(s *raster.Samples) {
				s.U[0] += 1
				s.V[3] += 1
			},
			want:      2.0 / 48,
			wantAlpha: 2.0 / 64,
		},
		{
			name: "validity only with alpha",
			edit: func(s *raster.Samples) {
				s.Valid[0] = 1
				s.Valid[1] = 1
			},
			want:      0,
			wantAlpha: 4.0 / 64,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := raster.NewSamples(4)
			b := a.Clone()
			tt.edit(b)
			if got := MSE(a, b, false); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MSE(alpha=false) = %v, want %v", got, tt.want)
			}
			if got := MSE(a, b, true); math.Abs(got-tt.wantAlpha) > 1e-12 {
				t.Errorf("MSE(alpha=true) = %v, want %v", got, tt.wantAlpha)
			}
		})
	}
}

func TestMSE_AlphaAsymmetry(t *testing.T) {
	r := newRaster(t, 64, 64, noise(1, 64))
	inside := r.ExtractBlock(16, 16, 16, nil)
	edge := r.ExtractBlock(56, 56, 16, nil)
	if !edge.OutOfBounds() {
		t.Fatal("edge block should reach outside the raster")
	}
	withAlpha := MSE(inside, edge, true)
	without := MSE(inside, edge, false)
	if withAlpha == without {
		t.Fatalf("MSE with and without validity both %v", withAlpha)
	}
}

func TestHexagonOffsets(t *testing.T) {
	tests := []struct {
		r    int
		want [6]image.Point
	}{
		{4, [6]image.Point{{2, 3}, {-2, 3}, {-4, 0}, {-2, -3}, {2, -3}, {4, 0}}},
		{2, [6]image.Point{{1, 2}, {-1, 2}, {-2, 0}, {-1, -2}, {1, -2}, {2, 0}}},
	}
	for _, tt := range tests {
		if got := hexagonOffsets(tt.r); got != tt.want {
			t.Errorf("hexagonOffsets(%d) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestSearch_ShiftedBlock(t *testing.T) {
	const size = 16
	origin := image.Pt(120, 120)
	// The current frame's bowl is centred on the block; in the reference the
	// same content sits 3 pixels to the left and 2 pixels lower.
	cx, cy := 127.5, 127.5
	cur := newRaster(t, 256, 256, paraboloid(cx, cy))
	ref := newRaster(t, 256, 256, paraboloid(cx-3, cy+2))
	target := cur.ExtractBlock(origin.X, origin.Y, size, nil)

	got := Search(ref, target, origin, DefaultSearchWindow)
	if !got.Found {
		t.Fatal("no match found")
	}
	if got.MSE != 0 {
		t.Errorf("MSE = %v, want 0", got.MSE)
	}
	if span := origin.Sub(got.Position); span != image.Pt(3, -2) {
		t.Errorf("span = %v, want (3,-2)", span)
	}
	assertNonIncreasing(t, got.Trace)
}

func TestSearch_FlatGray(t *testing.T) {
	ref := newRaster(t, 128, 128, flat(128))
	target := ref.ExtractBlock(32, 48, 16, nil)
	got := Search(ref, target, image.Pt(32, 48), DefaultSearchWindow)
	if !got.Found || got.Position != image.Pt(32, 48) || got.MSE != 0 {
		t.Errorf("Search = %+v, want match at (32,48) with MSE 0", got)
	}
}

func TestSearch_Monotonic(t *testing.T) {
	ref := newRaster(t, 128, 128, noise(2, 128))
	cur := newRaster(t, 128, 128, noise(3, 128))
	for _, pos := range []image.Point{{0, 0}, {60, 20}, {124, 124}, {64, 64}} {
		size := 4
		if pos.X+8 <= 128 && pos.Y+8 <= 128 {
			size = 8
		}
		got := Search(ref, cur.ExtractBlock(pos.X, pos.Y, size, nil), pos, DefaultSearchWindow)
		if !got.Found {
			t.Fatalf("%v: no match", pos)
		}
		if len(got.Trace) == 0 {
			t.Fatalf("%v: empty trace", pos)
		}
		assertNonIncreasing(t, got.Trace)
		if last := got.Trace[len(got.Trace)-1]; got.MSE > last {
			t.Errorf("%v: final MSE %v above last traced %v", pos, got.MSE, last)
		}
	}
}

func TestSearch_StaysInWindow(t *testing.T) {
	const window = 6
	ref := newRaster(t, 128, 128, noise(4, 128))
	cur := newRaster(t, 128, 128, noise(5, 128))
	for _, pos := range []image.Point{{0, 0}, {40, 40}, {120, 8}} {
		got := Search(ref, cur.ExtractBlock(pos.X, pos.Y, 8, nil), pos, window)
		d := got.Position.Sub(pos)
		if d.X < -window || d.X > window || d.Y < -window || d.Y > window {
			t.Errorf("%v: match %v outside window", pos, got.Position)
		}
		if !ref.Contains(got.Position.X, got.Position.Y) {
			t.Errorf("%v: match %v outside raster", pos, got.Position)
		}
	}
}

func TestSearch_NoCandidate(t *testing.T) {
	ref := newRaster(t, 16, 16, flat(0))
	target := raster.NewSamples(4)
	got := Search(ref, target, image.Pt(200, 200), DefaultSearchWindow)
	if got.Found {
		t.Errorf("Search = %+v, want no match", got)
	}
}

func assertNonIncreasing(t *testing.T, trace []float64) {
	t.Helper()
	for i := 1; i < len(trace); i++ {
		if trace[i] > trace[i-1] {
			t.Errorf("trace %v increases at step %d", trace, i)
		}
	}
}

func TestResidual(t *testing.T) {
	a := raster.NewSamples(4)
	b := a.Clone()
	a.Y[0], a.Y[1], a.Y[2] = 10, 1, -1.5
	a.U[0], a.U[1] = 2, -2.5
	a.V[3] = 3

	y := make([]float64, 16)
	u := make([]float64, 4)
	v := make([]float64, 4)
	Residual(a, b, DefaultThresholdY, DefaultThresholdUV, y, u, v)

	wantY := []float64{10, 0, -1.5}
	for i, w := range wantY {
		if y[i] != w {
			t.Errorf("y[%d] = %v, want %v", i, y[i], w)
		}
	}
	if u[0] != 0 || u[1] != -2.5 {
		t.Errorf("u = %v, want [0 -2.5 ...]", u)
	}
	if v[3] != 3 {
		t.Errorf("v[3] = %v, want 3", v[3])
	}
}

func TestSearcher_FlatFrame(t *testing.T) {
	s := newTestSearcher(t)
	prev := newRaster(t, 128, 128, flat(128))
	cur := prev.Snapshot()
	leaves := []*block.Block{leafAt(cur, 0, 0, 128)}

	p, err := s.Search(leaves, []*raster.Raster{prev}, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(p.Vectors) != 1 || len(p.Intra) != 0 {
		t.Fatalf("got %d vectors, %d intra; want 1, 0", len(p.Vectors), len(p.Intra))
	}
	v := p.Vectors[0]
	if v.Span != (image.Point{}) || v.MSE != 0 || v.Reference != block.MaxReferences {
		t.Errorf("vector span %v mse %v ref %d; want (0,0), 0, %d", v.Span, v.MSE, v.Reference, block.MaxReferences)
	}
	if len(v.Coefficients) != dsp.NumGroups(128) {
		t.Fatalf("%d coefficient groups, want %d", len(v.Coefficients), dsp.NumGroups(128))
	}
	for gi, g := range v.Coefficients {
		for _, plane := range [][]int32{g.Y, g.U, g.V} {
			for i, c := range plane {
				if i == 0 && c != -64 || i > 0 && c != 0 {
					t.Fatalf("group %d coefficient %d = %d", gi, i, c)
				}
			}
		}
	}
}

func TestSearcher_ReferenceTags(t *testing.T) {
	s := newTestSearcher(t)
	cur := newRaster(t, 64, 64, noise(6, 64))
	other := newRaster(t, 64, 64, noise(7, 64))

	tests := []struct {
		name      string
		refs      []*raster.Raster
		lookAhead *raster.Raster
		want      int
	}{
		{"most recent", []*raster.Raster{cur, other}, nil, block.MaxReferences},
		{"second", []*raster.Raster{other, cur}, nil, block.MaxReferences - 1},
		{"look-ahead", []*raster.Raster{other}, cur, block.LookAheadReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaves := []*block.Block{leafAt(cur, 16, 16, 16), leafAt(cur, 32, 0, 8)}
			p, err := s.Search(leaves, tt.refs, tt.lookAhead)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			for _, v := range p.Vectors {
				if v.Reference != tt.want || v.MSE != 0 || v.Span != (image.Point{}) {
					t.Errorf("vector at %v: ref %d mse %v span %v; want ref %d exact", v.Target(), v.Reference, v.MSE, v.Span, tt.want)
				}
			}
		})
	}
}

func TestSearcher_NoReferences(t *testing.T) {
	s := newTestSearcher(t)
	cur := newRaster(t, 32, 32, noise(8, 32))
	leaves := []*block.Block{leafAt(cur, 0, 0, 16), leafAt(cur, 16, 0, 16)}
	p, err := s.Search(leaves, nil, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(p.Vectors) != 0 || len(p.Intra) != 2 {
		t.Errorf("got %d vectors, %d intra; want 0, 2", len(p.Vectors), len(p.Intra))
	}
}

func TestSearcher_NilLeaf(t *testing.T) {
	s := newTestSearcher(t)
	prev := newRaster(t, 32, 32, flat(0))
	if _, err := s.Search([]*block.Block{{Size: 8}}, []*raster.Raster{prev}, nil); err == nil {
		t.Error("expected error for a leaf without samples")
	}
}

func TestDifferenceGate(t *testing.T) {
	g := NewDifferenceGate(pool.NewGroup(2), DefaultUnchangedY, DefaultUnchangedUV)
	prev := newRaster(t, 32, 32, flat(100))
	tests := []struct {
		name string
		edit func(r *raster.Raster)
		want bool
	}{
		{"identical", func(r *raster.Raster) {}, false},
		{"luma +1", func(r *raster.Raster) { addPlane(r.Y, 1) }, false},
		{"luma +2", func(r *raster.Raster) { addPlane(r.Y, 2) }, true},
		{"chroma +1.5", func(r *raster.Raster) { addPlane(r.U, 1.5) }, false},
		{"chroma +2", func(r *raster.Raster) { addPlane(r.V, 2) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := prev.Snapshot()
			tt.edit(cur)
			leaf := leafAt(cur, 8, 8, 8)
			if got := g.Changed(leaf, prev); got != tt.want {
				t.Errorf("Changed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDifferenceGate_Filter(t *testing.T) {
	g := NewDifferenceGate(pool.NewGroup(0), DefaultUnchangedY, DefaultUnchangedUV)
	prev := newRaster(t, 32, 32, flat(100))
	cur := prev.Snapshot()
	for y := 16; y < 32; y++ {
		for x := 16; x < 32; x++ {
			cur.Y[y*32+x] = 200
		}
	}
	leaves := []*block.Block{
		leafAt(cur, 0, 0, 16), leafAt(cur, 0, 16, 16),
		leafAt(cur, 16, 0, 16), leafAt(cur, 16, 16, 16),
	}
	changed, err := g.Filter(leaves, prev)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(changed) != 1 || changed[0] != leaves[3] {
		t.Errorf("changed = %d blocks, want only the bottom-right one", len(changed))
	}
	if _, err := g.Filter(leaves, nil); err == nil {
		t.Error("Filter(nil prev): expected error")
	}
}

func addPlane(p []float64, d float64) {
	for i := range p {
		p[i] += d
	}
}

func BenchmarkSearch16(b *testing.B) {
	ref := newRaster(b, 256, 256, noise(9, 256))
	cur := newRaster(b, 256, 256, noise(10, 256))
	target := cur.ExtractBlock(96, 96, 16, nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Search(ref, target, image.Pt(96, 96), DefaultSearchWindow)
	}
}

func TestCandidate_Admissible(t *testing.T) {
	ref, err := raster.New(32, 16)
	if err != nil {
		t.Fatal(err)
	}
	c := newCandidate(ref, raster.NewSamples(4), image.Pt(28, 12), 8, nil)
	tests := []struct {
		p    image.Point
		want bool
	}{
		{image.Pt(28, 12), true},
		{image.Pt(31, 15), true},
		{image.Pt(32, 12), false},
		{image.Pt(28, 16), false},
		{image.Pt(-1, 12), false},
		{image.Pt(19, 12), false},
	}
	for _, tt := range tests {
		if got := c.admissible(tt.p); got != tt.want {
			t.Errorf("admissible(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
