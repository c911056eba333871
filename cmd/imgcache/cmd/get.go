package cmd

import (
	"fmt"
	"time"

	"github.com/go-drift/imagecache/pkg/imagecache"
	"github.com/go-drift/imagecache/pkg/texture"
)

func init() {
	RegisterCommand(&Command{
		Name:  "get",
		Short: "Load one or more image URLs through the cache",
		Long: `Load image URLs through the cache and report each result.

Duplicate URLs on the command line share a single fetch and decode; the
report shows that all requests were answered. Configuration is read from
imagecache.yaml in the --config directory if present.

Usage:
  imgcache get https://example.com/a.png https://example.com/b.jpg`,
		Usage: "imgcache get <url> [url...]",
		Run:   runGet,
	})
}

func runGet(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one URL is required\n\nUsage: imgcache get <url> [url...]")
	}

	cfg, err := imagecache.LoadOptional(configDir)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts.Registry = texture.NewMemoryRegistry()

	cache := imagecache.New(opts)

	type result struct {
		url  string
		resp imagecache.ImageResponse
	}
	results := make(chan result, len(args))

	for _, url := range args {
		url := url
		cache.RequestImageAndMetadata(url, nil, func(resp imagecache.ImageResponse) {
			if resp.Kind == imagecache.ResponseMetadataLoaded {
				fmt.Printf("%-10s %s %dx%d\n", "metadata", url, resp.Metadata.Width, resp.Metadata.Height)
				return
			}
			results <- result{url: url, resp: resp}
		})
	}

	failures := 0
	for i := 0; i < len(args); i++ {
		select {
		case res := <-results:
			printResult(res.url, res.resp)
			if res.resp.Kind == imagecache.ResponseNone {
				failures++
			}
		case <-time.After(2 * time.Minute):
			return fmt.Errorf("timed out waiting for %d remaining loads", len(args)-i)
		}
	}

	stats := cache.Stats()
	fmt.Printf("\n%d url(s), %d fetch key(s) issued, %d completed entr(ies)\n",
		len(args), stats.KeysIssued, stats.Completed)

	cache.Shutdown()

	if failures > 0 {
		return fmt.Errorf("%d load(s) produced no image", failures)
	}
	return nil
}

func printResult(url string, resp imagecache.ImageResponse) {
	switch resp.Kind {
	case imagecache.ResponseLoaded:
		fmt.Printf("%-10s %s %dx%d texture=%d\n", "loaded", url, resp.Image.Width, resp.Image.Height, resp.Image.Texture)
	case imagecache.ResponsePlaceholderLoaded:
		fmt.Printf("%-10s %s (placeholder %dx%d)\n", "fallback", url, resp.Image.Width, resp.Image.Height)
	default:
		fmt.Printf("%-10s %s\n", "failed", url)
	}
}
