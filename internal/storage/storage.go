// Package storage holds the binary site assets (logos, icons, product
// images). Every asset carries a version token, the git blob hash of its
// content, and writes follow the same compare-and-swap rule as documents.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrNotFound = errors.New("asset not found")
	ErrConflict = errors.New("asset sha mismatch")
	ErrBadPath  = errors.New("invalid asset path")
)

// AssetStore is implemented by the git, MinIO and memory backends.
type AssetStore interface {
	// List returns the file names directly under dir, sorted.
	List(ctx context.Context, dir string) ([]string, error)
	// Stat returns the asset's sha.
	Stat(ctx context.Context, p string) (string, error)
	// Put writes data at p. An empty expectedSHA means create-only.
	Put(ctx context.Context, p string, data []byte, expectedSHA string) (string, error)
	// URL is where clients can fetch the asset.
	URL(ctx context.Context, p string) (string, error)
}

// CleanPath validates an asset path and returns it without a leading slash.
func CleanPath(p string) (string, error) {
	c := path.Clean(strings.TrimPrefix(p, "/"))
	if p == "" || c == "." || c == ".." || strings.HasPrefix(c, "../") || strings.Contains(p, "\\") {
		return "", ErrBadPath
	}
	return c, nil
}

func checkSHA(exists bool, current, expected string) error {
	if !exists {
		if expected != "" {
			return ErrConflict
		}
		return nil
	}
	if current != expected {
		return ErrConflict
	}
	return nil
}

func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + p
}
