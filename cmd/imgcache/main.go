package main

import (
	"os"

	"github.com/go-drift/imagecache/cmd/imgcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
