// Package yavc encodes image sequences into a compact stream of motion
// vectors and transform-coded residuals, and decodes them back.
//
// Each frame is split into a quadtree of square blocks from 128x128 down to
// 4x4. Every leaf is matched against up to four previously reconstructed
// frames with a hexagon search; the match is stored as a vector plus a
// quantized DCT residual. Leaves without a match are stored raw. Encoder and
// decoder run the same reconstruction and deblocking, so both sides keep
// identical reference frames.
//
// Basic usage for encoding:
//
//	enc, err := yavc.NewEncoder(w, width, height, yavc.DefaultOptions())
//	for _, img := range frames {
//		if _, err := enc.Encode(img); err != nil { ... }
//	}
//	err = enc.Close()
//
// Basic usage for decoding:
//
//	dec, err := yavc.NewDecoder(r, nil)
//	for {
//		img, err := dec.Next()
//		if err == io.EOF { break }
//	}
package yavc
