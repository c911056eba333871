package decode

// Register the image formats a cache in a UI app is expected to handle.
// Stdlib codecs cover gif/jpeg/png; golang.org/x/image supplies the rest.
import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)
