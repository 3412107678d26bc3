package stream

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// Frame is one coded frame: its motion vectors and its intra blocks, each in
// coding order.
type Frame struct {
	Index   int
	Vectors []*block.Vector
	Intra   []*block.Block
}

// appendFrame serializes f. Positions, spans, references and coefficients
// are varints; intra samples are stored as rounded bytes.
func appendFrame(b []byte, f *Frame) ([]byte, error) {
	b = binary.AppendUvarint(b, uint64(f.Index))
	b = binary.AppendUvarint(b, uint64(len(f.Vectors)))
	for _, v := range f.Vectors {
		lm, cm, err := dsp.UnitSizes(v.Size)
		if err != nil {
			return nil, err
		}
		if len(v.Coefficients) != dsp.NumGroups(v.Size) {
			return nil, errors.Wrapf(dsp.ErrMalformedResidual, "vector to %v", v.Target())
		}
		b = binary.AppendVarint(b, int64(v.Position.X))
		b = binary.AppendVarint(b, int64(v.Position.Y))
		b = binary.AppendVarint(b, int64(v.Span.X))
		b = binary.AppendVarint(b, int64(v.Span.Y))
		b = binary.AppendUvarint(b, uint64(v.Size))
		b = binary.AppendVarint(b, int64(v.Reference))
		for _, g := range v.Coefficients {
			if len(g.Y) != lm*lm || len(g.U) != cm*cm || len(g.V) != cm*cm {
				return nil, errors.Wrapf(dsp.ErrMalformedResidual, "vector to %v", v.Target())
			}
			b = appendCoefficients(b, g.Y)
			b = appendCoefficients(b, g.U)
			b = appendCoefficients(b, g.V)
		}
	}

	b = binary.AppendUvarint(b, uint64(len(f.Intra)))
	for _, blk := range f.Intra {
		if blk.Samples == nil || blk.Samples.Size != blk.Size {
			return nil, errors.Wrapf(raster.ErrNilRaster, "intra block at %v", blk.Position)
		}
		b = binary.AppendVarint(b, int64(blk.Position.X))
		b = binary.AppendVarint(b, int64(blk.Position.Y))
		b = binary.AppendUvarint(b, uint64(blk.Size))
		b = appendSamples(b, blk.Samples.Y)
		b = appendSamples(b, blk.Samples.U)
		b = appendSamples(b, blk.Samples.V)
	}
	return b, nil
}

func appendCoefficients(b []byte, c []int32) []byte {
	for _, v := range c {
		b = binary.AppendVarint(b, int64(v))
	}
	return b
}

func appendSamples(b []byte, s []float64) []byte {
	for _, v := range s {
		b = append(b, dsp.ClampSample(v))
	}
	return b
}

// decoder walks a record payload.
type decoder struct {
	b   []byte
	err error
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.b)
	if n <= 0 {
		d.err = ErrTruncated
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.b)
	if n <= 0 {
		d.err = ErrTruncated
		return 0
	}
	d.b = d.b[n:]
	return v
}

// count reads a length prefix and rejects values above max. Every entry
// takes at least one byte, so a count beyond the remaining payload is
// truncated.
func (d *decoder) count(max int) int {
	v := d.uvarint()
	if d.err != nil {
		return 0
	}
	if v > uint64(max) {
		d.err = errors.Wrapf(ErrInvalidChunk, "count %d above %d", v, max)
		return 0
	}
	if v > uint64(len(d.b)) {
		d.err = errors.Wrapf(ErrTruncated, "count %d with %d bytes left", v, len(d.b))
		return 0
	}
	return int(v)
}

func (d *decoder) coord() int {
	v := d.varint()
	if d.err == nil && (v > math.MaxInt32 || v < math.MinInt32) {
		d.err = errors.Wrapf(ErrInvalidChunk, "coordinate %d", v)
		return 0
	}
	return int(v)
}

func (d *decoder) blockSize() int {
	v := d.uvarint()
	if d.err != nil {
		return 0
	}
	if v > block.MaxSize {
		d.err = errors.Wrapf(ErrInvalidChunk, "block size %d", v)
		return 0
	}
	size := int(v)
	if _, _, err := dsp.UnitSizes(size); err != nil {
		d.err = errors.Wrapf(ErrInvalidChunk, "block size %d", size)
		return 0
	}
	return size
}

func (d *decoder) coefficients(n int) []int32 {
	c := make([]int32, n)
	for i := range c {
		v := d.varint()
		if d.err == nil && (v > math.MaxInt32 || v < math.MinInt32) {
			d.err = errors.Wrapf(ErrInvalidChunk, "coefficient %d", v)
		}
		c[i] = int32(v)
	}
	return c
}

func (d *decoder) samples(dst []float64) {
	if d.err != nil {
		return
	}
	if len(d.b) < len(dst) {
		d.err = ErrTruncated
		return
	}
	for i := range dst {
		dst[i] = float64(d.b[i])
	}
	d.b = d.b[len(dst):]
}

// parseFrame decodes a record of a width x height stream.
func parseFrame(b []byte, width, height int) (*Frame, error) {
	d := &decoder{b: b}
	maxBlocks := (width / block.MinSize) * (height / block.MinSize)

	f := &Frame{Index: int(d.uvarint())}
	nv := d.count(maxBlocks)
	if d.err != nil {
		return nil, d.err
	}
	for i := 0; i < nv && d.err == nil; i++ {
		v := &block.Vector{}
		v.Position = image.Pt(d.coord(), d.coord())
		v.Span = image.Pt(d.coord(), d.coord())
		v.Size = d.blockSize()
		v.Reference = int(d.coord())
		if d.err != nil {
			break
		}
		lm, cm, _ := dsp.UnitSizes(v.Size)
		v.Coefficients = make([]dsp.CoefficientGroup, dsp.NumGroups(v.Size))
		for gi := range v.Coefficients {
			v.Coefficients[gi] = dsp.CoefficientGroup{
				Y: d.coefficients(lm * lm),
				U: d.coefficients(cm * cm),
				V: d.coefficients(cm * cm),
			}
		}
		f.Vectors = append(f.Vectors, v)
	}

	ni := d.count(maxBlocks)
	if d.err != nil {
		return nil, d.err
	}
	for i := 0; i < ni && d.err == nil; i++ {
		pos := image.Pt(d.coord(), d.coord())
		size := d.blockSize()
		if d.err != nil {
			break
		}
		s := raster.NewSamples(size)
		d.samples(s.Y)
		d.samples(s.U)
		d.samples(s.V)
		f.Intra = append(f.Intra, &block.Block{Position: pos, Size: size, Samples: s})
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(d.b) != 0 {
		return nil, errors.Wrapf(ErrInvalidChunk, "%d trailing bytes in frame record", len(d.b))
	}
	return f, nil
}

// appendRaster stores every plane of r as rounded bytes.
func appendRaster(b []byte, r *raster.Raster) []byte {
	b = appendSamples(b, r.Y)
	b = appendSamples(b, r.U)
	return appendSamples(b, r.V)
}

func parseRaster(b []byte, width, height int) (*raster.Raster, error) {
	r, err := raster.New(width, height)
	if err != nil {
		return nil, err
	}
	want := len(r.Y) + len(r.U) + len(r.V)
	if len(b) != want {
		return nil, errors.Wrapf(ErrTruncated, "start frame has %d bytes, want %d", len(b), want)
	}
	d := &decoder{b: b}
	d.samples(r.Y)
	d.samples(r.U)
	d.samples(r.V)
	return r, d.err
}
