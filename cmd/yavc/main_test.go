package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

// writeFrames writes BMP frames with the given indices into dir. Each frame
// is a gradient shifted by its index.
func writeFrames(t *testing.T, dir string, w, h int, indices ...int) {
	t.Helper()
	for _, i := range indices {
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetNRGBA(x, y, color.NRGBA{
					R: uint8((x + i) * 7),
					G: uint8(y * 5),
					B: uint8((x*y + i) % 256),
					A: 0xff,
				})
			}
		}
		f, err := os.Create(filepath.Join(dir, frameName(i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := bmp.Encode(f, img); err != nil {
			f.Close()
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEncInfoDec(t *testing.T) {
	tmp := t.TempDir()
	frames := filepath.Join(tmp, "frames")
	if err := os.Mkdir(frames, 0o755); err != nil {
		t.Fatal(err)
	}
	// Frame 2 is missing and the size is not aligned.
	writeFrames(t, frames, 34, 30, 0, 1, 3)
	stream := filepath.Join(tmp, "clip.yavc")

	if err := runEnc([]string{"-o", stream, "-frames", "4", frames}); err != nil {
		t.Fatalf("enc: %v", err)
	}

	var info bytes.Buffer
	if err := runInfo([]string{stream}, &info); err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"Dimensions: 32 x 28", "Frames:     2 ", "Deblocking: 7", "Compressed: true"} {
		if !strings.Contains(info.String(), want) {
			t.Errorf("info output missing %q:\n%s", want, info.String())
		}
	}

	out := filepath.Join(tmp, "out")
	if err := runDec([]string{"-o", out, stream}); err != nil {
		t.Fatalf("dec: %v", err)
	}
	for i := 0; i < 3; i++ {
		f, err := os.Open(filepath.Join(out, fmt.Sprintf("R_%04d.png", i)))
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got := img.Bounds().Size(); got != image.Pt(32, 28) {
			t.Errorf("frame %d: size %v, want (32,28)", i, got)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "R_0003.png")); !os.IsNotExist(err) {
		t.Errorf("R_0003.png: err = %v, want not exist", err)
	}
}

func TestEnc_DefaultFrameCount(t *testing.T) {
	tmp := t.TempDir()
	frames := filepath.Join(tmp, "frames")
	if err := os.Mkdir(frames, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFrames(t, frames, 16, 16, 0, 1)
	if err := runEnc([]string{"-nodeblock", "-z", "0", frames}); err != nil {
		t.Fatalf("enc: %v", err)
	}
	var info bytes.Buffer
	if err := runInfo([]string{frames + ".yavc"}, &info); err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{"Frames:     1 ", "Deblocking: off", "Compressed: false"} {
		if !strings.Contains(info.String(), want) {
			t.Errorf("info output missing %q:\n%s", want, info.String())
		}
	}
}

func TestCommandErrors(t *testing.T) {
	empty := t.TempDir()
	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"enc without input", func() error { return runEnc(nil) }, "missing input directory"},
		{"enc empty dir", func() error { return runEnc([]string{"-o", filepath.Join(empty, "x.yavc"), empty}) }, "no frames found"},
		{"enc bad window", func() error {
			dir := t.TempDir()
			writeFrames(t, dir, 8, 8, 0)
			return runEnc([]string{"-window", "999", "-o", filepath.Join(empty, "y.yavc"), dir})
		}, "SearchWindow"},
		{"dec without input", func() error { return runDec(nil) }, "missing input file"},
		{"info without input", func() error { return runInfo(nil, &bytes.Buffer{}) }, "missing input file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(empty, "x.yavc")); !os.IsNotExist(err) {
		t.Error("failed encode left its output behind")
	}
}

func TestReportEncoded(t *testing.T) {
	tmp := t.TempDir()
	present := filepath.Join(tmp, "a.yavc")
	if err := os.WriteFile(present, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, path, want string
	}{
		{"present", present, "(3 frames, 42 bytes)"},
		{"missing", filepath.Join(tmp, "gone.yavc"), "(3 frames)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			reportEncoded(&buf, "frames", tt.path, 3)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("got %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestAlignedSize(t *testing.T) {
	tests := []struct {
		in, want image.Point
	}{
		{image.Pt(640, 360), image.Pt(640, 360)},
		{image.Pt(34, 30), image.Pt(32, 28)},
		{image.Pt(3, 7), image.Pt(4, 4)},
	}
	for _, tt := range tests {
		if got := alignedSize(tt.in); got != tt.want {
			t.Errorf("alignedSize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScaleTo(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 10, 6))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 10, 10, 0xff
	}
	if got := scaleTo(src, image.Pt(10, 6)); got != image.Image(src) {
		t.Error("scaleTo with matching size should return its input")
	}
	got := scaleTo(src, image.Pt(8, 4))
	if got.Bounds().Size() != image.Pt(8, 4) {
		t.Fatalf("size = %v, want (8,4)", got.Bounds().Size())
	}
	r, _, _, _ := got.At(3, 2).RGBA()
	if d := int(r>>8) - 200; d < -1 || d > 1 {
		t.Errorf("flat image scaled to red %d, want 200", r>>8)
	}
}
