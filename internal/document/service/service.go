package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/document/repository"
	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/pkg/logger"
	"github.com/sitecraft/siteadmin/pkg/metrics"
)

var (
	ErrNotFound = repository.ErrNotFound
	ErrConflict = repository.ErrConflict
	ErrInvalid  = errors.New("invalid document")
)

// Service defines the document operations used by the handler layer.
type Service interface {
	Get(ctx context.Context, kind site.Kind) (document.Snapshot, error)
	Update(ctx context.Context, kind site.Kind, data []byte, sha string) (document.Snapshot, error)
	Bootstrap(ctx context.Context) error
}

// New returns a Service over repo.
func New(repo repository.Repository) Service {
	return &documentService{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository,
// already seeded with the default documents.
func NewMemoryService() Service {
	svc := New(repository.NewMemoryRepo())
	if err := svc.Bootstrap(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

type documentService struct {
	repo repository.Repository
}

func (s *documentService) Get(ctx context.Context, kind site.Kind) (document.Snapshot, error) {
	if !kind.Valid() {
		return document.Snapshot{}, ErrNotFound
	}
	return s.repo.Get(ctx, kind)
}

// Update normalizes and validates data, then stores it if sha is still the
// current version.
func (s *documentService) Update(ctx context.Context, kind site.Kind, data []byte, sha string) (document.Snapshot, error) {
	if !kind.Valid() {
		return document.Snapshot{}, ErrNotFound
	}
	normalized, err := document.Normalize(kind, data)
	if err != nil {
		metrics.StoreWrites.WithLabelValues(kind.String(), metrics.OutcomeError).Inc()
		return document.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	v, err := jsontree.Parse(normalized)
	if err != nil {
		return document.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := site.Validate(kind, v); err != nil {
		metrics.StoreWrites.WithLabelValues(kind.String(), metrics.OutcomeError).Inc()
		return document.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	snap, err := s.repo.Put(ctx, kind, normalized, sha)
	switch {
	case errors.Is(err, repository.ErrConflict):
		metrics.StoreWrites.WithLabelValues(kind.String(), metrics.OutcomeConflict).Inc()
		logger.Infof("document: rejected %s write at stale sha %q", kind, sha)
		return document.Snapshot{}, err
	case err != nil:
		metrics.StoreWrites.WithLabelValues(kind.String(), metrics.OutcomeError).Inc()
		return document.Snapshot{}, fmt.Errorf("store %s: %w", kind, err)
	}
	metrics.StoreWrites.WithLabelValues(kind.String(), metrics.OutcomeOK).Inc()
	logger.Infof("document: %s %s -> %s", kind, sha, snap.SHA)
	return snap, nil
}

// Bootstrap writes the default snapshot for every document that does not
// exist yet. Losing a seed race to another instance is not an error.
func (s *documentService) Bootstrap(ctx context.Context) error {
	for _, kind := range site.Kinds {
		_, err := s.repo.Get(ctx, kind)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("bootstrap %s: %w", kind, err)
		}
		if _, err := s.repo.Put(ctx, kind, document.DefaultSnapshot(kind), ""); err != nil && !errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("bootstrap %s: %w", kind, err)
		}
		logger.Infof("document: seeded %s", kind)
	}
	return nil
}
