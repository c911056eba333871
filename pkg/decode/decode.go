// Package decode turns raw resource bytes into images off the cache
// coordinator thread.
//
// Decoding is a pure function over a byte buffer. The Dispatcher runs it on
// a fixed-size worker pool and posts results, tagged with the caller's load
// key, to a single channel the coordinator multiplexes; completion order is
// unrelated to submission order.
package decode

import (
	"bytes"
	"fmt"
	"image"
)

// Metadata is the intrinsic geometry of an image, extractable from a byte
// stream before the full payload has arrived.
type Metadata struct {
	Width  int
	Height int
}

// Image decodes data using every registered format.
func Image(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("decoder for %q produced no image", format)
	}
	return img, nil
}

// SniffMetadata attempts to extract image dimensions from the bytes received
// so far. It reports false until enough of the header has arrived; failure
// has no side effects, so callers may retry on every chunk.
func SniffMetadata(data []byte) (Metadata, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, false
	}
	return Metadata{Width: cfg.Width, Height: cfg.Height}, true
}
