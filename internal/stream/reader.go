package stream

import (
	"encoding/binary"
	"io"

	"github.com/deepteams/yavc/internal/raster"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Reader iterates the chunks of a stream. Unknown chunks are skipped.
type Reader struct {
	r     io.Reader
	hdr   Header
	dec   *zstd.Decoder
	start bool
}

// NewReader reads and validates the stream header.
func NewReader(r io.Reader) (*Reader, error) {
	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errors.Wrap(ErrTruncated, err.Error())
	}
	hdr, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	sr := &Reader{r: r, hdr: hdr}
	if hdr.Compressed {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(MaxChunkPayload))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sr.dec = dec
	}
	return sr, nil
}

// Header returns the stream metadata.
func (sr *Reader) Header() Header { return sr.hdr }

// Close releases the decompressor. It does not close the source.
func (sr *Reader) Close() {
	if sr.dec != nil {
		sr.dec.Close()
	}
}

// next returns the next chunk. io.EOF marks a clean end of stream.
func (sr *Reader) next() (uint32, []byte, error) {
	var hb [ChunkHeaderSize]byte
	if _, err := io.ReadFull(sr.r, hb[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrap(ErrTruncated, "chunk header")
	}
	fourcc := binary.LittleEndian.Uint32(hb[0:4])
	size := binary.LittleEndian.Uint32(hb[4:8])
	if size > MaxChunkPayload {
		return 0, nil, errors.Wrapf(ErrInvalidChunk, "%s payload of %d bytes", FourCCString(fourcc), size)
	}
	payload := make([]byte, PaddedSize(size))
	if _, err := io.ReadFull(sr.r, payload); err != nil {
		return 0, nil, errors.Wrapf(ErrTruncated, "%s payload", FourCCString(fourcc))
	}
	payload = payload[:size]
	if sr.dec != nil {
		plain, err := sr.dec.DecodeAll(payload, nil)
		if err != nil {
			return 0, nil, errors.Wrapf(ErrInvalidChunk, "%s: %v", FourCCString(fourcc), err)
		}
		payload = plain
	}
	return fourcc, payload, nil
}

// ReadStart reads the start frame. It must be called before Next.
func (sr *Reader) ReadStart() (*raster.Raster, error) {
	for {
		fourcc, payload, err := sr.next()
		if err == io.EOF {
			return nil, errors.Wrap(ErrTruncated, "missing start frame")
		}
		if err != nil {
			return nil, err
		}
		switch fourcc {
		case FourCCSTRT:
			sr.start = true
			return parseRaster(payload, sr.hdr.Width, sr.hdr.Height)
		case FourCCFRAM:
			return nil, errors.Wrap(ErrInvalidChunk, "frame before start frame")
		}
	}
}

// Next returns the next frame record, or io.EOF after the last one.
func (sr *Reader) Next() (*Frame, error) {
	if !sr.start {
		return nil, errors.Wrap(ErrInvalidChunk, "start frame not read")
	}
	for {
		fourcc, payload, err := sr.next()
		if err != nil {
			return nil, err
		}
		switch fourcc {
		case FourCCFRAM:
			f, err := parseFrame(payload, sr.hdr.Width, sr.hdr.Height)
			if err != nil {
				return nil, errors.Wrap(err, "frame record")
			}
			return f, nil
		case FourCCSTRT:
			return nil, errors.Wrap(ErrInvalidChunk, "second start frame")
		}
	}
}
