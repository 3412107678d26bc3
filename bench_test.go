package yavc

import (
	"bytes"
	"io"
	"testing"

	"github.com/edaniels/golog"
)

// Run with:
//
//	go test -bench=. -benchmem -run=^$

func benchOptions(b *testing.B) *EncoderOptions {
	opts := DefaultOptions()
	opts.Logger = golog.NewTestLogger(b)
	return opts
}

func BenchmarkEncode(b *testing.B) {
	for _, skip := range []bool{true, false} {
		name := "skip"
		if !skip {
			name = "search_all"
		}
		b.Run(name, func(b *testing.B) {
			frames := movingFrames(4, 256, 256)
			opts := benchOptions(b)
			opts.SkipUnchanged = skip
			var buf bytes.Buffer
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				buf.Reset()
				enc, err := NewEncoder(&buf, 256, 256, opts)
				if err != nil {
					b.Fatal(err)
				}
				for _, img := range frames {
					if _, err := enc.Encode(img); err != nil {
						b.Fatal(err)
					}
				}
				if err := enc.Close(); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(int64(buf.Len()))
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	frames := movingFrames(4, 256, 256)
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, 256, 256, benchOptions(b))
	if err != nil {
		b.Fatal(err)
	}
	for _, img := range frames {
		if _, err := enc.Encode(img); err != nil {
			b.Fatal(err)
		}
	}
	if err := enc.Close(); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dec, err := NewDecoder(bytes.NewReader(data), &DecoderOptions{DeblockStrength: -1, Logger: golog.NewTestLogger(b)})
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := dec.nextRaster(); err == io.EOF {
				break
			} else if err != nil {
				b.Fatal(err)
			}
		}
		dec.Close()
	}
}
