// Package zip bundles generated artifacts into a single in-memory archive
// for download endpoints.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Asset is one file inside the archive.
type Asset struct {
	Filename string
	Data     []byte
}

// Archive writes the assets into a zip and returns its bytes.
func Archive(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		w, err := zw.Create(asset.Filename)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
