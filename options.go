package yavc

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Option defaults. Negative option values select these.
const (
	DefaultErrorThreshold      = 45
	DefaultSearchWindow        = 48
	DefaultResidualThresholdY  = 1.0
	DefaultResidualThresholdUV = 2.0
	DefaultDeblockStrength     = 7
	DefaultCompressionLevel    = 2

	maxSearchWindow   = 256
	maxDeblock        = 100
	maxCompression    = 4
	maxFrameDimension = 1 << 15
)

// EncoderOptions controls encoding parameters.
type EncoderOptions struct {
	// ErrorThreshold is the summed RGB standard deviation above which a
	// block is split (default 45). Values <= 0 select the default.
	ErrorThreshold float64

	// SearchWindow bounds motion vectors to this many pixels on each axis
	// (1-256, default 48). Values <= 0 select the default.
	SearchWindow int

	// ResidualThresholdY and ResidualThresholdUV drop residual samples whose
	// magnitude does not exceed them (defaults 1.0 and 2.0). Larger values
	// give smaller streams and more drift. Negative values select the
	// defaults.
	ResidualThresholdY  float64
	ResidualThresholdUV float64

	// DeblockStrength indexes the edge filter tables (0-100, default 7).
	// The default value -1 (or any value < 0) is treated as 7.
	DeblockStrength int

	// DisableDeblock turns the edge filter off. The choice is recorded in
	// the stream so that decoders follow it.
	DisableDeblock bool

	// SkipUnchanged leaves blocks that barely differ from the previous
	// frame out of the motion search; they keep the previous content.
	SkipUnchanged bool

	// Workers is the size of the worker pool. Zero or negative means
	// runtime.GOMAXPROCS(0).
	Workers int

	// CompressionLevel selects the zstd preset for stream chunks: 0 stores
	// them uncompressed, 1 is fastest and 4 is best (default 2).
	// The default value -1 (or any value < 0) is treated as 2.
	CompressionLevel int

	// Logger receives per-frame debug lines. Nil means the global logger.
	Logger golog.Logger
}

// DefaultOptions returns the default encoding options. Sentinel values (-1)
// are used where Go's zero value is a meaningful setting of its own.
func DefaultOptions() *EncoderOptions {
	return &EncoderOptions{
		ErrorThreshold:      -1, // sentinel: treated as 45
		SearchWindow:        -1, // sentinel: treated as 48
		ResidualThresholdY:  -1, // sentinel: treated as 1.0
		ResidualThresholdUV: -1, // sentinel: treated as 2.0
		DeblockStrength:     -1, // sentinel: treated as 7
		SkipUnchanged:       true,
		CompressionLevel:    -1, // sentinel: treated as 2
	}
}

// validateConfig returns an error describing the first invalid parameter,
// or nil. Negative values are valid sentinels for most fields, so only the
// upper bound is checked.
func validateConfig(opts *EncoderOptions) error {
	if opts.SearchWindow > maxSearchWindow {
		return errors.Errorf("yavc: invalid SearchWindow %d (must be 1-%d or <= 0 for default)", opts.SearchWindow, maxSearchWindow)
	}
	if opts.DeblockStrength > maxDeblock {
		return errors.Errorf("yavc: invalid DeblockStrength %d (must be 0-%d or negative sentinel)", opts.DeblockStrength, maxDeblock)
	}
	if opts.CompressionLevel > maxCompression {
		return errors.Errorf("yavc: invalid CompressionLevel %d (must be 0-%d or negative sentinel)", opts.CompressionLevel, maxCompression)
	}
	if opts.ResidualThresholdY > 255 || opts.ResidualThresholdUV > 255 {
		return errors.Errorf("yavc: invalid residual thresholds %.2f/%.2f (must be <= 255)", opts.ResidualThresholdY, opts.ResidualThresholdUV)
	}
	return nil
}

func validateDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width%4 != 0 || height%4 != 0 || width > maxFrameDimension || height > maxFrameDimension {
		return errors.Errorf("yavc: invalid frame size %dx%d (must be positive multiples of 4 up to %d)", width, height, maxFrameDimension)
	}
	return nil
}

// resolveErrorThreshold returns the effective split threshold.
func resolveErrorThreshold(v float64) float64 {
	if v <= 0 {
		return DefaultErrorThreshold
	}
	return v
}

// resolveSearchWindow returns the effective search window.
func resolveSearchWindow(v int) int {
	if v <= 0 {
		return DefaultSearchWindow
	}
	return v
}

// resolveThreshold returns v, or def for negative sentinels.
func resolveThreshold(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}

// resolveDeblockStrength returns the effective filter strength, or -1 when
// deblocking is disabled.
func resolveDeblockStrength(v int, disabled bool) int {
	switch {
	case disabled:
		return -1
	case v < 0:
		return DefaultDeblockStrength
	}
	return v
}

// resolveCompressionLevel returns the effective compression level.
func resolveCompressionLevel(v int) int {
	if v < 0 {
		return DefaultCompressionLevel
	}
	return v
}

// resolveLogger returns l, or the package's named global logger.
func resolveLogger(l golog.Logger) golog.Logger {
	if l == nil {
		return golog.Global().Named("yavc")
	}
	return l
}

// DecoderOptions controls decoding.
type DecoderOptions struct {
	// Workers is the size of the worker pool. Zero or negative means
	// runtime.GOMAXPROCS(0).
	Workers int

	// DeblockStrength overrides the strength recorded in the stream
	// (0-100). The default value -1 (or any value < 0) follows the stream.
	// Deviating from the encoder's setting makes the references drift.
	DeblockStrength int

	// DisableDeblock turns the edge filter off regardless of the stream.
	DisableDeblock bool

	// Logger receives per-frame debug lines. Nil means the global logger.
	Logger golog.Logger
}

// DefaultDecoderOptions returns options that follow the stream.
func DefaultDecoderOptions() *DecoderOptions {
	return &DecoderOptions{DeblockStrength: -1}
}
