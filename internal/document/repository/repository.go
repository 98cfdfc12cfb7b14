package repository

import (
	"context"
	"errors"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/site"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document sha mismatch")
)

// Repository stores one snapshot per document kind. Put is a compare-and-swap
// on the SHA: expectedSHA must equal the stored SHA, or be empty when nothing
// is stored yet; otherwise it fails with ErrConflict and nothing is written.
type Repository interface {
	Get(ctx context.Context, kind site.Kind) (document.Snapshot, error)
	Put(ctx context.Context, kind site.Kind, data []byte, expectedSHA string) (document.Snapshot, error)
}

// checkSHA applies the compare-and-swap rule. exists reports whether a
// snapshot is stored and current is its SHA.
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
