package yavc

import (
	"image"
	"io"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/deepteams/yavc/internal/recon"
	"github.com/deepteams/yavc/internal/stream"
)

// Info describes a stream without decoding it.
type Info struct {
	Width, Height int
	// Frames is the number of coded frames after the start frame. It is 0
	// when the stream was written to a sink that could not seek.
	Frames int
	// DeblockStrength is the encoder's edge filter strength, or -1 when
	// the filter was off.
	DeblockStrength int
	Compressed      bool
}

func infoFromHeader(h stream.Header) Info {
	return Info{
		Width:           h.Width,
		Height:          h.Height,
		Frames:          h.Frames,
		DeblockStrength: h.DeblockStrength,
		Compressed:      h.Compressed,
	}
}

// GetInfo reads the stream header from r.
func GetInfo(r io.Reader) (Info, error) {
	b := make([]byte, stream.HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return Info{}, errors.Wrap(stream.ErrTruncated, err.Error())
	}
	h, err := stream.ParseHeader(b)
	if err != nil {
		return Info{}, errors.Wrap(err, "yavc: header")
	}
	return infoFromHeader(h), nil
}

// Decoder reads a stream and reproduces the encoder's reconstructions. A
// Decoder is not safe for concurrent use.
type Decoder struct {
	sr      *stream.Reader
	rc      *recon.Reconstructor
	refs    *recon.ReferenceList
	deblock int
	log     golog.Logger

	prev  *raster.Raster
	index int
}

// NewDecoder reads the stream header from r. A nil opts selects
// DefaultDecoderOptions.
func NewDecoder(r io.Reader, opts *DecoderOptions) (*Decoder, error) {
	if opts == nil {
		opts = DefaultDecoderOptions()
	}
	if opts.DeblockStrength > maxDeblock {
		return nil, errors.Errorf("yavc: invalid DeblockStrength %d (must be 0-%d or negative sentinel)", opts.DeblockStrength, maxDeblock)
	}
	sr, err := stream.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "yavc: header")
	}
	g := pool.NewGroup(opts.Workers)
	tables, err := dsp.NewTables(g)
	if err != nil {
		sr.Close()
		return nil, errors.Wrap(err, "yavc: transform tables")
	}

	deblock := sr.Header().DeblockStrength
	switch {
	case opts.DisableDeblock:
		deblock = -1
	case opts.DeblockStrength >= 0:
		deblock = opts.DeblockStrength
	}
	return &Decoder{
		sr:      sr,
		rc:      recon.New(g, tables),
		refs:    recon.NewReferenceList(),
		deblock: deblock,
		log:     resolveLogger(opts.Logger),
	}, nil
}

// Info returns the stream header.
func (d *Decoder) Info() Info { return infoFromHeader(d.sr.Header()) }

// Next decodes the next frame. The first call returns the start frame.
// io.EOF is returned after the last frame.
func (d *Decoder) Next() (*image.RGBA, error) {
	r, err := d.nextRaster()
	if err != nil {
		return nil, err
	}
	return r.Image(), nil
}

func (d *Decoder) nextRaster() (*raster.Raster, error) {
	start := time.Now()
	if d.prev == nil {
		r, err := d.sr.ReadStart()
		if err != nil {
			return nil, errors.Wrap(err, "yavc: start frame")
		}
		d.refs.Push(r)
		d.prev = r
		d.index++
		d.log.Debugw("decoded start frame", "elapsed", time.Since(start))
		return r.Snapshot(), nil
	}

	f, err := d.sr.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrapf(err, "yavc: frame %d", d.index)
	}
	composite, err := d.rc.Reconstruct(d.prev, f.Intra, f.Vectors, d.refs)
	if err != nil {
		return nil, errors.Wrapf(err, "yavc: frame %d", d.index)
	}
	filtered := 0
	if d.deblock >= 0 {
		filtered = recon.Deblock(composite, f.Vectors, d.deblock)
	}
	d.refs.Push(composite)
	d.prev = composite
	d.index++

	d.log.Debugw("decoded frame",
		"frame", f.Index,
		"vectors", len(f.Vectors),
		"intra", len(f.Intra),
		"filtered", filtered,
		"elapsed", time.Since(start),
	)
	return composite.Snapshot(), nil
}

// Close releases the decoder. It does not close the source.
func (d *Decoder) Close() error {
	d.sr.Close()
	return nil
}
