package yavc

import (
	"image"
	"io"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/deepteams/yavc/internal/dsp"
	"github.com/deepteams/yavc/internal/motion"
	"github.com/deepteams/yavc/internal/pool"
	"github.com/deepteams/yavc/internal/quadtree"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/deepteams/yavc/internal/recon"
	"github.com/deepteams/yavc/internal/stream"
)

// Encoder codes a sequence of equally sized frames into a stream. The first
// frame is stored raw; every later frame is coded against the previous
// reconstructions. An Encoder is not safe for concurrent use.
type Encoder struct {
	width, height int
	deblock       int
	skipUnchanged bool
	log           golog.Logger

	group  *pool.Group
	seg    *quadtree.Segmenter
	search *motion.Searcher
	gate   *motion.DifferenceGate
	rc     *recon.Reconstructor
	refs   *recon.ReferenceList
	sw     *stream.Writer

	prev  *raster.Raster
	index int
	stats Stats
}

// NewEncoder writes a stream header for width x height frames to w and
// returns an Encoder. A nil opts selects DefaultOptions.
func NewEncoder(w io.Writer, width, height int, opts *EncoderOptions) (*Encoder, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validateConfig(opts); err != nil {
		return nil, err
	}
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}

	g := pool.NewGroup(opts.Workers)
	tables, err := dsp.NewTables(g)
	if err != nil {
		return nil, errors.Wrap(err, "yavc: transform tables")
	}
	deblock := resolveDeblockStrength(opts.DeblockStrength, opts.DisableDeblock)
	level := stream.CompressionLevel(resolveCompressionLevel(opts.CompressionLevel))
	sw, err := stream.NewWriter(w, stream.Header{Width: width, Height: height, DeblockStrength: deblock}, level)
	if err != nil {
		return nil, errors.Wrap(err, "yavc: stream header")
	}

	return &Encoder{
		width:         width,
		height:        height,
		deblock:       deblock,
		skipUnchanged: opts.SkipUnchanged,
		log:           resolveLogger(opts.Logger),
		group:         g,
		seg:           quadtree.New(g, resolveErrorThreshold(opts.ErrorThreshold)),
		search: motion.NewSearcher(g, tables, motion.Config{
			Window:      resolveSearchWindow(opts.SearchWindow),
			ThresholdY:  resolveThreshold(opts.ResidualThresholdY, DefaultResidualThresholdY),
			ThresholdUV: resolveThreshold(opts.ResidualThresholdUV, DefaultResidualThresholdUV),
		}),
		gate: motion.NewDifferenceGate(g, motion.DefaultUnchangedY, motion.DefaultUnchangedUV),
		rc:   recon.New(g, tables),
		refs: recon.NewReferenceList(),
		sw:   sw,
	}, nil
}

// Encode converts img to YUV and codes it as the next frame. The image
// must have the size given to NewEncoder.
func (e *Encoder) Encode(img image.Image) (FrameStats, error) {
	if img == nil {
		return FrameStats{}, errors.Wrap(raster.ErrNilRaster, "yavc: encode")
	}
	frame, err := raster.FromImage(img)
	if err != nil {
		return FrameStats{}, errors.Wrap(err, "yavc: encode")
	}
	return e.encodeRaster(frame)
}

func (e *Encoder) encodeRaster(frame *raster.Raster) (FrameStats, error) {
	if frame.Width != e.width || frame.Height != e.height {
		return FrameStats{}, errors.Errorf("yavc: frame is %dx%d, stream is %dx%d", frame.Width, frame.Height, e.width, e.height)
	}
	start := time.Now()
	// Every stage works on the byte values a decoder reads back.
	frame.Round()
	fs := FrameStats{Index: e.index}
	if e.prev == nil {
		if err := e.encodeStart(frame); err != nil {
			return FrameStats{}, err
		}
	} else {
		if err := e.encodeInter(frame, &fs); err != nil {
			return FrameStats{}, errors.Wrapf(err, "yavc: frame %d", e.index)
		}
	}
	fs.Elapsed = time.Since(start)
	e.stats.add(fs)
	e.index++

	e.log.Debugw("encoded frame",
		"frame", fs.Index,
		"leaves", fs.Leaves,
		"vectors", fs.Vectors,
		"intra", fs.Intra,
		"skipped", fs.Skipped,
		"elapsed", fs.Elapsed,
	)
	return fs, nil
}

// encodeStart stores the first frame raw and keeps it as the first
// reference.
func (e *Encoder) encodeStart(frame *raster.Raster) error {
	ref := frame.Snapshot()
	if err := e.sw.WriteStart(ref); err != nil {
		return errors.Wrap(err, "yavc: start frame")
	}
	e.refs.Push(ref)
	e.prev = ref
	return nil
}

func (e *Encoder) encodeInter(frame *raster.Raster, fs *FrameStats) error {
	leaves, err := e.seg.Partition(frame)
	if err != nil {
		return err
	}
	fs.Leaves = len(leaves)
	if e.skipUnchanged {
		changed, err := e.gate.Filter(leaves, e.prev)
		if err != nil {
			return err
		}
		fs.Skipped = len(leaves) - len(changed)
		leaves = changed
	}

	pred, err := e.search.Search(leaves, e.refs.Frames(), nil)
	if err != nil {
		return err
	}
	composite, err := e.rc.Reconstruct(e.prev, pred.Intra, pred.Vectors, e.refs)
	if err != nil {
		return err
	}
	if e.deblock >= 0 {
		fs.FilteredEdges = recon.Deblock(composite, pred.Vectors, e.deblock)
	}
	if err := e.sw.WriteFrame(&stream.Frame{Index: e.index, Vectors: pred.Vectors, Intra: pred.Intra}); err != nil {
		return err
	}
	e.refs.Push(composite)
	e.prev = composite

	fs.Vectors = len(pred.Vectors)
	fs.Intra = len(pred.Intra)
	for _, v := range pred.Vectors {
		fs.VectorArea += v.Size * v.Size
	}
	if fs.Vectors > 0 {
		fs.MeanVectorMSE = pred.MSE / float64(fs.Vectors)
	}
	return nil
}

// Stats returns the running totals of all frames encoded so far.
func (e *Encoder) Stats() Stats { return e.stats }

// Frames returns the number of frames encoded so far, start frame included.
func (e *Encoder) Frames() int { return e.index }

// Close flushes the stream. When w implements io.WriteSeeker the frame count
// in the header is updated. Close does not close w.
func (e *Encoder) Close() error {
	if err := e.sw.Close(); err != nil {
		return errors.Wrap(err, "yavc: close")
	}
	e.log.Debugw("stream closed",
		"frames", e.stats.Frames,
		"vectors", e.stats.Vectors,
		"intra", e.stats.Intra,
		"skipped", e.stats.Skipped,
		"mse", e.stats.MeanVectorMSE(),
	)
	return nil
}
