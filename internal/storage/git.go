package storage

import (
	"context"
	"errors"

	"github.com/sitecraft/siteadmin/internal/gitstore"
)

// GitAssetStore commits assets into the same repository as the documents.
type GitAssetStore struct {
	store   *gitstore.Store
	baseURL string
}

func NewGitAssetStore(store *gitstore.Store, baseURL string) *GitAssetStore {
	return &GitAssetStore{store: store, baseURL: baseURL}
}

func (g *GitAssetStore) List(_ context.Context, dir string) ([]string, error) {
	return g.store.List(dir)
}

func (g *GitAssetStore) Stat(_ context.Context, p string) (string, error) {
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	sha, err := g.store.Stat(p)
	return sha, mapGitErr(err)
}

func (g *GitAssetStore) Put(_ context.Context, p string, data []byte, expectedSHA string) (string, error) {
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	sha, err := g.store.Write(p, data, expectedSHA, "Upload "+p)
	return sha, mapGitErr(err)
}

func (g *GitAssetStore) URL(_ context.Context, p string) (string, error) {
	return joinURL(g.baseURL, p), nil
}

func mapGitErr(err error) error {
	switch {
	case errors.Is(err, gitstore.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, gitstore.ErrConflict):
		return ErrConflict
	}
	return err
}
