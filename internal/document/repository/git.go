package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/gitstore"
	"github.com/sitecraft/siteadmin/internal/site"
)

// GitRepo stores each document as data/<kind>.json in a git repository; the
// blob hash is the SHA.
type GitRepo struct {
	store *gitstore.Store
}

func NewGitRepo(store *gitstore.Store) *GitRepo {
	return &GitRepo{store: store}
}

func (g *GitRepo) Get(_ context.Context, kind site.Kind) (document.Snapshot, error) {
	data, sha, err := g.store.Read(document.FileName(kind))
	if errors.Is(err, gitstore.ErrNotFound) {
		return document.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return document.Snapshot{}, err
	}
	return document.Snapshot{Kind: kind, Data: data, SHA: sha}, nil
}

func (g *GitRepo) Put(_ context.Context, kind site.Kind, data []byte, expectedSHA string) (document.Snapshot, error) {
	sha, err := g.store.Write(document.FileName(kind), data, expectedSHA, fmt.Sprintf("Update %s", kind))
	if errors.Is(err, gitstore.ErrConflict) {
		return document.Snapshot{}, ErrConflict
	}
	if err != nil {
		return document.Snapshot{}, err
	}
	return document.Snapshot{Kind: kind, Data: data, SHA: sha, UpdatedAt: time.Now().UTC()}, nil
}
