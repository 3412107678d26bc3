// Package stream implements the yavc container: a fixed header followed by
// RIFF-style chunks holding the start frame and one record per coded frame.
// Chunk payloads are zstd-compressed unless the header says otherwise.
package stream

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// FourCC creates a FourCC value from four bytes (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Container FourCC values.
var (
	FourCCYAVC = FourCC('Y', 'A', 'V', 'C')
	FourCCSTRT = FourCC('S', 'T', 'R', 'T')
	FourCCFRAM = FourCC('F', 'R', 'A', 'M')
)

// Layout constants.
const (
	Version         = 1
	HeaderSize      = 24
	ChunkHeaderSize = 8
	MaxChunkPayload = 1 << 30

	// frameCountOffset is where the frame count sits inside the header.
	frameCountOffset = 16

	flagCompressed = 1 << 0
)

// Common errors.
var (
	ErrInvalidHeader = errors.New("stream: invalid header")
	ErrTruncated     = errors.New("stream: truncated data")
	ErrInvalidChunk  = errors.New("stream: invalid chunk")
	ErrClosed        = errors.New("stream: writer closed")
)

// Header is the stream metadata.
type Header struct {
	Width  int
	Height int
	// Frames counts the coded frames after the start frame. It is zero when
	// the stream was written to a sink that cannot seek.
	Frames int
	// DeblockStrength is the strength the encoder deblocked with, or -1.
	DeblockStrength int
	// Compressed reports whether chunk payloads are zstd-compressed.
	Compressed bool
}

func (h Header) marshal() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], FourCCYAVC)
	binary.LittleEndian.PutUint16(b[4:6], Version)
	var flags uint16
	if h.Compressed {
		flags |= flagCompressed
	}
	binary.LittleEndian.PutUint16(b[6:8], flags)
	binary.LittleEndian.PutUint32(b[8:12], uint32(h.Width))
	binary.LittleEndian.PutUint32(b[12:16], uint32(h.Height))
	binary.LittleEndian.PutUint32(b[16:20], uint32(h.Frames))
	binary.LittleEndian.PutUint32(b[20:24], uint32(int32(h.DeblockStrength)))
	return b
}

// ParseHeader validates and parses the fixed stream header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrTruncated
	}
	if binary.LittleEndian.Uint32(b[0:4]) != FourCCYAVC {
		return Header{}, errors.Wrap(ErrInvalidHeader, "bad magic")
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != Version {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "version %d", v)
	}
	flags := binary.LittleEndian.Uint16(b[6:8])
	h := Header{
		Width:           int(binary.LittleEndian.Uint32(b[8:12])),
		Height:          int(binary.LittleEndian.Uint32(b[12:16])),
		Frames:          int(binary.LittleEndian.Uint32(b[16:20])),
		DeblockStrength: int(int32(binary.LittleEndian.Uint32(b[20:24]))),
		Compressed:      flags&flagCompressed != 0,
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width%4 != 0 || h.Height%4 != 0 || h.Width > 1<<15 || h.Height > 1<<15 {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "dimensions %dx%d", h.Width, h.Height)
	}
	return h, nil
}

// chunkHeader returns the 8-byte header of a chunk.
func chunkHeader(fourcc uint32, size int) []byte {
	b := make([]byte, ChunkHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], fourcc)
	binary.LittleEndian.PutUint32(b[4:8], uint32(size))
	return b
}

// PaddedSize returns the payload size padded to an even number of bytes.
func PaddedSize(size uint32) uint32 {
	return size + (size & 1)
}

// FourCCString returns a human-readable string for a FourCC value.
func FourCCString(fourcc uint32) string {
	return string([]byte{byte(fourcc), byte(fourcc >> 8), byte(fourcc >> 16), byte(fourcc >> 24)})
}
