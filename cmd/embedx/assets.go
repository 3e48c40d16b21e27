package main

import (
	"embed"
	"io"
	"io/fs"
	"os"
)

//go:embed assets
var assets embed.FS

// bundledFiles holds one directory per owner, named <namespace>.<resource> inside
func bundledFiles() fs.FS {
	sub, err := fs.Sub(assets, "assets/files")
	if err != nil {
		panic("embedx: bundled assets missing: " + err.Error())
	}
	return sub
}

// openManifest opens path, or the bundled manifest when path is empty
func openManifest(path string) (io.ReadCloser, error) {
	if path == "" {
		return assets.Open("assets/manifest.yaml")
	}
	return os.Open(path)
}
