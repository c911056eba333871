package imagecache

import (
	"fmt"
	"image"

	"github.com/go-drift/imagecache/pkg/decode"
	"github.com/go-drift/imagecache/pkg/texture"
)

// Metadata is the intrinsic geometry of an image, known before its bytes
// have fully arrived.
type Metadata = decode.Metadata

// Image is one cached image record: the decoded bitmap plus the texture
// handle attached when a texture registry is configured.
//
// Records are immutable once observable; consumers on any goroutine may read
// them freely.
type Image struct {
	// Bitmap is the decoded pixel data.
	Bitmap image.Image
	// Width and Height are the bitmap's intrinsic size in pixels.
	Width  int
	Height int
	// Texture is the registered texture handle, or zero when no registry is
	// configured.
	Texture texture.Handle
}

func newImage(bitmap image.Image) *Image {
	b := bitmap.Bounds()
	return &Image{Bitmap: bitmap, Width: b.Dx(), Height: b.Dy()}
}

// ResponseKind discriminates the variants of an ImageResponse.
type ResponseKind int

const (
	// ResponseNone reports a load that produced no image: a decode failure,
	// or a network failure with no placeholder configured.
	ResponseNone ResponseKind = iota
	// ResponseLoaded carries a successfully fetched and decoded image.
	ResponseLoaded
	// ResponsePlaceholderLoaded carries the shared placeholder image,
	// substituted for a network-level failure.
	ResponsePlaceholderLoaded
	// ResponseMetadataLoaded carries image dimensions extracted mid-stream.
	// It is only ever delivered before a terminal response, and only to
	// listeners that asked for metadata.
	ResponseMetadataLoaded
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseNone:
		return "none"
	case ResponseLoaded:
		return "loaded"
	case ResponsePlaceholderLoaded:
		return "placeholder_loaded"
	case ResponseMetadataLoaded:
		return "metadata_loaded"
	default:
		return fmt.Sprintf("ResponseKind(%d)", int(k))
	}
}

// ImageResponse is a notification delivered to listeners of a load.
// Image is set for Loaded and PlaceholderLoaded; Metadata for
// MetadataLoaded; both are nil for None.
type ImageResponse struct {
	Kind     ResponseKind
	Image    *Image
	Metadata *Metadata
}

// Terminal reports whether this response ends the load. Every requester
// receives exactly one terminal response per request.
func (r ImageResponse) Terminal() bool {
	return r.Kind != ResponseMetadataLoaded
}

// ResponseFunc receives load notifications on the cache coordinator
// goroutine. Implementations must not block and must not call back into the
// cache's synchronous API.
type ResponseFunc func(ImageResponse)

// ImageState describes what the cache knows about a URL right now, as
// reported by the synchronous queries.
type ImageState int

const (
	// StateAvailable: a decoded image is ready.
	StateAvailable ImageState = iota
	// StateMetadataAvailable: the load is in flight but its dimensions are
	// known. Reported only by ImageOrMetadataIfAvailable.
	StateMetadataAvailable
	// StatePending: the URL is being loaded; nothing usable yet. The caller
	// should wait rather than issue another request.
	StatePending
	// StateLoadError: the load finished without a usable image.
	StateLoadError
	// StateNotRequested: the URL has never been requested. The caller must
	// issue a RequestImage to start a load.
	StateNotRequested
)

func (s ImageState) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateMetadataAvailable:
		return "metadata_available"
	case StatePending:
		return "pending"
	case StateLoadError:
		return "load_error"
	case StateNotRequested:
		return "not_requested"
	default:
		return fmt.Sprintf("ImageState(%d)", int(s))
	}
}

// UsePlaceholder controls whether synchronous queries treat a placeholder
// result as an available image or as a load error.
type UsePlaceholder int

const (
	// UsePlaceholderNo: placeholder results are reported as StateLoadError.
	UsePlaceholderNo UsePlaceholder = iota
	// UsePlaceholderYes: placeholder results are reported as available.
	UsePlaceholderYes
)

// ImageOrMetadata is the result of ImageOrMetadataIfAvailable: exactly one
// of Image or Metadata is set when the state is StateAvailable or
// StateMetadataAvailable.
type ImageOrMetadata struct {
	Image    *Image
	Metadata *Metadata
}
