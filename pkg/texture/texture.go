// Package texture abstracts the GPU texture-upload backend used by the
// image cache.
//
// The cache registers every successfully decoded image with a Registry (when
// one is configured) before the image becomes observable, and attaches the
// returned Handle to the image record. Consumers that paint with a GPU
// backend resolve the handle; software consumers ignore it and use the
// decoded bitmap directly.
package texture

import "fmt"

// Handle is an opaque identifier for a registered texture.
// The zero Handle means "no texture".
type Handle uint64

// IsValid reports whether the handle refers to a registered texture.
func (h Handle) IsValid() bool {
	return h != 0
}

// Format describes the pixel layout of texture data.
type Format int

const (
	// FormatRGBA8 is 8-bit-per-channel RGBA, the format the cache uploads.
	FormatRGBA8 Format = iota
	// FormatGray8 is single-channel 8-bit luminance.
	FormatGray8
)

// BytesPerPixel returns the size of one pixel in this format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatGray8:
		return 1
	default:
		return 4
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatGray8:
		return "gray8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Registry uploads pixel data to a rendering backend and returns an opaque
// handle for it.
//
// Implementations must be safe for calls from the cache coordinator
// goroutine; they are never called concurrently by the cache itself.
type Registry interface {
	// Register uploads one image worth of pixels. pix holds
	// width*height*format.BytesPerPixel() bytes in row-major order.
	Register(width, height int, format Format, pix []byte) (Handle, error)
}
