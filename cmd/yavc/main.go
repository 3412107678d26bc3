// Command yavc encodes directories of BMP frames into YAVC streams and
// decodes them back to PNG files.
//
// Usage:
//
//	yavc enc [options] <dir>        0000.bmp, 0001.bmp, ... → stream
//	yavc dec [options] <input.yavc> stream → R_0000.png, R_0001.png, ...
//	yavc info <input.yavc>          Display stream metadata
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/deepteams/yavc"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "enc":
		err = runEnc(os.Args[2:])
	case "dec":
		err = runDec(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "yavc: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "yavc: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  yavc enc [options] <dir>          Encode numbered BMP frames (0000.bmp, ...)
  yavc dec [options] <input.yavc>   Decode a stream to R_0000.png, ...
  yavc info <input.yavc>            Display stream metadata

Run "yavc <command> -h" for command-specific options.
`)
}

func newLogger(verbose bool) golog.Logger {
	if verbose {
		return golog.NewDebugLogger("yavc")
	}
	return golog.NewLogger("yavc")
}

// --- enc ---

func runEnc(args []string) error {
	fs := flag.NewFlagSet("enc", flag.ContinueOnError)
	output := fs.String("o", "", "output path (default: <dir>.yavc next to the directory)")
	frames := fs.Int("frames", 0, "number of frame indices to try (0=number of directory entries)")
	threshold := fs.Float64("threshold", -1, "block split threshold (-1=default)")
	window := fs.Int("window", -1, "motion search window 1-256 (-1=default)")
	resY := fs.Float64("res_y", -1, "luma residual threshold (-1=default)")
	resUV := fs.Float64("res_uv", -1, "chroma residual threshold (-1=default)")
	deblock := fs.Int("deblock", -1, "deblocking strength 0-100 (-1=default)")
	noDeblock := fs.Bool("nodeblock", false, "disable deblocking")
	noSkip := fs.Bool("noskip", false, "search every block, including unchanged ones")
	level := fs.Int("z", -1, "zstd level 0-4, 0 stores chunks uncompressed (-1=default)")
	workers := fs.Int("workers", 0, "worker count (0=GOMAXPROCS)")
	verbose := fs.Bool("v", false, "log every frame")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("enc: missing input directory\nUsage: yavc enc [options] <dir>")
	}
	dir := fs.Arg(0)
	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	opts := yavc.DefaultOptions()
	opts.ErrorThreshold = *threshold
	opts.SearchWindow = *window
	opts.ResidualThresholdY = *resY
	opts.ResidualThresholdUV = *resUV
	opts.DeblockStrength = *deblock
	opts.DisableDeblock = *noDeblock
	opts.SkipUnchanged = !*noSkip
	opts.CompressionLevel = *level
	opts.Workers = *workers
	opts.Logger = logger

	n := *frames
	if n <= 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return errors.Wrap(err, "enc")
		}
		n = len(entries)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Clean(dir) + ".yavc"
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	count, err := encodeDir(out, dir, n, opts, logger)
	if err != nil {
		out.Close()
		os.Remove(outputPath)
		return errors.Wrap(err, "enc")
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return err
	}

	reportEncoded(os.Stderr, dir, outputPath, count)
	return nil
}

// reportEncoded prints the encode summary, with the output size when it can
// be read.
func reportEncoded(w io.Writer, dir, outputPath string, frames int) {
	if fi, err := os.Stat(outputPath); err == nil {
		fmt.Fprintf(w, "Encoded %s → %s (%d frames, %d bytes)\n", dir, outputPath, frames, fi.Size())
		return
	}
	fmt.Fprintf(w, "Encoded %s → %s (%d frames)\n", dir, outputPath, frames)
}

// frameName returns the file name of frame i.
func frameName(i int) string {
	return fmt.Sprintf("%04d.bmp", i)
}

// encodeDir encodes frames 0..n-1 of dir into w, skipping indices without a
// file. It returns the number of frames encoded.
func encodeDir(w io.Writer, dir string, n int, opts *yavc.EncoderOptions, logger golog.Logger) (int, error) {
	var (
		enc     *yavc.Encoder
		size    image.Point
		started = time.Now()
	)
	fail := func(err error) (int, error) {
		if enc != nil {
			enc.Close()
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, frameName(i))
		img, err := loadBMP(path)
		if errors.Is(err, os.ErrNotExist) {
			logger.Infow("skipping missing frame", "frame", i, "path", path)
			continue
		}
		if err != nil {
			return fail(errors.Wrapf(err, "frame %d", i))
		}

		if enc == nil {
			size = alignedSize(img.Bounds().Size())
			if enc, err = yavc.NewEncoder(w, size.X, size.Y, opts); err != nil {
				return 0, err
			}
		}
		if _, err := enc.Encode(scaleTo(img, size)); err != nil {
			return fail(err)
		}
	}
	if enc == nil {
		return 0, errors.Errorf("no frames found in %s", dir)
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}

	st := enc.Stats()
	logger.Infow("encoding done",
		"frames", st.Frames,
		"vectors", st.Vectors,
		"intra", st.Intra,
		"skipped", st.Skipped,
		"mse", st.MeanVectorMSE(),
		"elapsed", time.Since(started),
	)
	return st.Frames, nil
}

func loadBMP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, filepath.Base(path))
	}
	return img, nil
}

// alignedSize rounds both dimensions down to a multiple of 4, keeping at
// least 4.
func alignedSize(p image.Point) image.Point {
	align := func(v int) int {
		if v < 4 {
			return 4
		}
		return v &^ 3
	}
	return image.Pt(align(p.X), align(p.Y))
}

// scaleTo returns img when it already has the given size and a bilinear
// rescale otherwise.
func scaleTo(img image.Image, size image.Point) image.Image {
	b := img.Bounds()
	if b.Size() == size {
		return img
	}
	dst := image.NewNRGBA(image.Rectangle{Max: size})
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// --- dec ---

func runDec(args []string) error {
	fs := flag.NewFlagSet("dec", flag.ContinueOnError)
	output := fs.String("o", ".", "output directory")
	deblock := fs.Int("deblock", -1, "override the stream's deblocking strength 0-100 (-1=follow stream)")
	noDeblock := fs.Bool("nodeblock", false, "disable deblocking")
	workers := fs.Int("workers", 0, "worker count (0=GOMAXPROCS)")
	verbose := fs.Bool("v", false, "log every frame")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("dec: missing input file\nUsage: yavc dec [options] <input.yavc>")
	}
	inputPath := fs.Arg(0)
	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(*output, 0o755); err != nil {
		return err
	}

	dec, err := yavc.NewDecoder(in, &yavc.DecoderOptions{
		Workers:         *workers,
		DeblockStrength: *deblock,
		DisableDeblock:  *noDeblock,
		Logger:          logger,
	})
	if err != nil {
		return errors.Wrap(err, "dec")
	}
	defer dec.Close()

	n := 0
	for ; ; n++ {
		img, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "dec")
		}
		if err := writePNG(filepath.Join(*output, fmt.Sprintf("R_%04d.png", n)), img); err != nil {
			return errors.Wrap(err, "dec")
		}
	}

	fmt.Fprintf(os.Stderr, "Decoded %s → %s (%d frames)\n", inputPath, *output, n)
	return nil
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// --- info ---

func runInfo(args []string, w io.Writer) error {
	if len(args) < 1 {
		return errors.New("info: missing input file\nUsage: yavc info <input.yavc>")
	}
	inputPath := args[0]

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := yavc.GetInfo(in)
	if err != nil {
		return errors.Wrap(err, "info")
	}

	deblock := "off"
	if info.DeblockStrength >= 0 {
		deblock = fmt.Sprintf("%d", info.DeblockStrength)
	}
	fmt.Fprintf(w, "File:       %s\n", inputPath)
	fmt.Fprintf(w, "Dimensions: %d x %d\n", info.Width, info.Height)
	fmt.Fprintf(w, "Frames:     %d (+ start frame)\n", info.Frames)
	fmt.Fprintf(w, "Deblocking: %s\n", deblock)
	fmt.Fprintf(w, "Compressed: %v\n", info.Compressed)
	if fi, err := os.Stat(inputPath); err == nil {
		fmt.Fprintf(w, "File size:  %d bytes\n", fi.Size())
	}
	return nil
}
