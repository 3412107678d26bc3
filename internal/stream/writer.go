package stream

import (
	"io"
	"sync"

	"github.com/deepteams/yavc/internal/raster"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// queueDepth bounds the number of chunks waiting for the background writer.
const queueDepth = 8

// CompressionLevel selects how chunk payloads are compressed. Zero stores
// them as is; 1 to 4 map to the zstd speed presets from fastest to best.
type CompressionLevel int

// Compression levels.
const (
	CompressionNone CompressionLevel = iota
	CompressionFastest
	CompressionDefault
	CompressionBetter
	CompressionBest
)

func (l CompressionLevel) zstd() zstd.EncoderLevel {
	switch l {
	case CompressionFastest:
		return zstd.SpeedFastest
	case CompressionBetter:
		return zstd.SpeedBetterCompression
	case CompressionBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

type chunk struct {
	fourcc  uint32
	payload []byte
}

// Writer emits a stream. The header is written by NewWriter; chunks are
// compressed and written by a background goroutine fed through a bounded
// queue, so encoding the next frame overlaps with I/O. The first write error
// is returned by every later call and by Close. A Writer is not safe for
// concurrent use.
type Writer struct {
	w      io.Writer
	hdr    Header
	enc    *zstd.Encoder
	queue  chan chunk
	done   chan struct{}
	frames int

	// start is the header offset in a seekable sink, or -1.
	start int64

	mu     sync.Mutex
	err    error
	closed bool
}

// NewWriter writes the header for hdr to w and starts the background writer.
// hdr.Frames and hdr.Compressed are set by the writer.
func NewWriter(w io.Writer, hdr Header, level CompressionLevel) (*Writer, error) {
	if level < CompressionNone || level > CompressionBest {
		return nil, errors.Errorf("stream: invalid compression level %d", level)
	}
	hdr.Frames = 0
	hdr.Compressed = level != CompressionNone
	if _, err := ParseHeader(hdr.marshal()); err != nil {
		return nil, err
	}

	sw := &Writer{
		w:     w,
		hdr:   hdr,
		queue: make(chan chunk, queueDepth),
		done:  make(chan struct{}),
		start: -1,
	}
	if ws, ok := w.(io.WriteSeeker); ok {
		if off, err := ws.Seek(0, io.SeekCurrent); err == nil {
			sw.start = off
		}
	}
	if hdr.Compressed {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level.zstd()), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sw.enc = enc
	}
	if _, err := w.Write(hdr.marshal()); err != nil {
		return nil, errors.WithStack(err)
	}
	go sw.run()
	return sw, nil
}

// Header returns the header as written so far.
func (sw *Writer) Header() Header {
	h := sw.hdr
	h.Frames = sw.frames
	return h
}

func (sw *Writer) run() {
	defer close(sw.done)
	for c := range sw.queue {
		if sw.failed() != nil {
			continue
		}
		if err := sw.writeChunk(c); err != nil {
			sw.fail(err)
		}
	}
}

func (sw *Writer) writeChunk(c chunk) error {
	payload := c.payload
	if sw.enc != nil {
		payload = sw.enc.EncodeAll(c.payload, make([]byte, 0, len(c.payload)/2))
	}
	if len(payload) > MaxChunkPayload {
		return errors.Wrapf(ErrInvalidChunk, "%s payload of %d bytes", FourCCString(c.fourcc), len(payload))
	}
	if _, err := sw.w.Write(chunkHeader(c.fourcc, len(payload))); err != nil {
		return errors.WithStack(err)
	}
	if _, err := sw.w.Write(payload); err != nil {
		return errors.WithStack(err)
	}
	if len(payload)&1 != 0 {
		if _, err := sw.w.Write([]byte{0}); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (sw *Writer) fail(err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.err == nil {
		sw.err = err
	}
}

func (sw *Writer) failed() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}

func (sw *Writer) enqueue(c chunk) error {
	sw.mu.Lock()
	closed, err := sw.closed, sw.err
	sw.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err != nil {
		return err
	}
	sw.queue <- c
	return nil
}

// WriteStart queues the start frame. It must precede every WriteFrame.
func (sw *Writer) WriteStart(r *raster.Raster) error {
	if r == nil {
		return errors.Wrap(raster.ErrNilRaster, "stream: start frame")
	}
	if r.Width != sw.hdr.Width || r.Height != sw.hdr.Height {
		return errors.Wrapf(ErrInvalidChunk, "start frame %dx%d in a %dx%d stream", r.Width, r.Height, sw.hdr.Width, sw.hdr.Height)
	}
	return sw.enqueue(chunk{fourcc: FourCCSTRT, payload: appendRaster(nil, r)})
}

// WriteFrame serializes f and queues it. f may be reused once WriteFrame
// returns.
func (sw *Writer) WriteFrame(f *Frame) error {
	payload, err := appendFrame(nil, f)
	if err != nil {
		return errors.Wrapf(err, "frame %d", f.Index)
	}
	if err := sw.enqueue(chunk{fourcc: FourCCFRAM, payload: payload}); err != nil {
		return err
	}
	sw.frames++
	return nil
}

// Close drains the queue and, when the sink implements io.WriteSeeker,
// patches the frame count into the header. It does not close the sink.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	if sw.closed {
		sw.mu.Unlock()
		return ErrClosed
	}
	sw.closed = true
	sw.mu.Unlock()

	close(sw.queue)
	<-sw.done
	if sw.enc != nil {
		sw.enc.Close()
	}
	if err := sw.failed(); err != nil {
		return err
	}
	if ws, ok := sw.w.(io.WriteSeeker); ok && sw.start >= 0 {
		return sw.patchFrameCount(ws)
	}
	return nil
}

func (sw *Writer) patchFrameCount(ws io.WriteSeeker) error {
	end, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := ws.Seek(sw.start+frameCountOffset, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}
	h := sw.Header().marshal()
	if _, err := ws.Write(h[frameCountOffset : frameCountOffset+4]); err != nil {
		return errors.WithStack(err)
	}
	_, err = ws.Seek(end, io.SeekStart)
	return errors.WithStack(err)
}
