package imagecache

import (
	"os"
	"path/filepath"

	"github.com/go-drift/imagecache/pkg/decode"
	"github.com/go-drift/imagecache/pkg/errors"
)

// loadPlaceholder reads and decodes the shared placeholder asset. A missing
// or undecodable asset is not fatal: the cache reports it and runs with no
// placeholder substitution.
func loadPlaceholder(opts Options) *Image {
	if opts.ResourceDir == "" {
		return nil
	}

	path := filepath.Join(opts.ResourceDir, opts.placeholderAsset())
	data, err := os.ReadFile(path)
	if err != nil {
		errors.Report(&errors.CacheError{
			Op:   "imagecache.loadPlaceholder",
			Kind: errors.KindConfig,
			URL:  path,
			Err:  err,
		})
		return nil
	}

	bitmap, err := decode.Image(data)
	if err != nil {
		errors.Report(&errors.CacheError{
			Op:   "imagecache.loadPlaceholder",
			Kind: errors.KindDecode,
			URL:  path,
			Err:  err,
		})
		return nil
	}

	return newImage(bitmap)
}
