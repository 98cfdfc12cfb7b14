// Package gitstore keeps files in a local git repository. Every write is a
// commit on main, and a file's version token is its git blob hash, so a
// writer can only replace the exact blob it last read.
package gitstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	ErrNotFound = errors.New("gitstore: file not found")
	ErrConflict = errors.New("gitstore: blob sha mismatch")
)

const branch = "main"

// BlobSHA is the git blob hash of data.
func BlobSHA(data []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, data).String()
}

type Store struct {
	mu     sync.Mutex
	root   string
	author string
	repo   *git.Repository
}

// Open opens the repository at dir, initialising it with a main branch when
// dir holds none.
func Open(dir, author string) (*Store, error) {
	if author == "" {
		author = "siteadmin"
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = initRepo(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open repo %s: %w", dir, err)
	}
	return &Store{root: dir, author: author, repo: repo}, nil
}

func initRepo(dir string) (*git.Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", branch, err)
	}
	return repo, nil
}

// headCommit returns nil for a repository without commits.
func (s *Store) headCommit() (*object.Commit, error) {
	ref, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	c, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load head commit: %w", err)
	}
	return c, nil
}

// Read returns the file at p on main and its blob hash.
func (s *Store) Read(p string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(p)
}

func (s *Store) read(p string) ([]byte, string, error) {
	p, err := clean(p)
	if err != nil {
		return nil, "", err
	}
	c, err := s.headCommit()
	if err != nil {
		return nil, "", err
	}
	if c == nil {
		return nil, "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	f, err := c.File(p)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", p, err)
	}
	r, err := f.Reader()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", p, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", p, err)
	}
	return data, f.Hash.String(), nil
}

// Stat returns the blob hash of the file at p.
func (s *Store) Stat(p string) (string, error) {
	_, sha, err := s.Read(p)
	return sha, err
}

// Write commits data at p. expectedSHA must be the file's current blob hash,
// or empty when the file must not exist yet; otherwise ErrConflict. Writing
// the current content again is a no-op.
func (s *Store) Write(p string, data []byte, expectedSHA, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := clean(p)
	if err != nil {
		return "", err
	}
	current, currentSHA, err := s.read(p)
	switch {
	case errors.Is(err, ErrNotFound):
		if expectedSHA != "" {
			return "", fmt.Errorf("%s does not exist, expected %s: %w", p, expectedSHA, ErrConflict)
		}
	case err != nil:
		return "", err
	case expectedSHA != currentSHA:
		return "", fmt.Errorf("%s is at %s, expected %q: %w", p, currentSHA, expectedSHA, ErrConflict)
	case bytes.Equal(current, data):
		return currentSHA, nil
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	full := filepath.Join(s.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", p, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	if _, err := wt.Add(p); err != nil {
		return "", fmt.Errorf("git add %s: %w", p, err)
	}
	if message == "" {
		message = "Update " + p
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: fmt.Sprintf("%s@siteadmin.local", sanitizeEmail(s.author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", p, err)
	}
	return BlobSHA(data), nil
}

// List returns the names of the files directly under dir on main, sorted. A
// missing directory lists as empty.
func (s *Store) List(dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.headCommit()
	if err != nil || c == nil {
		return []string{}, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir != "" {
		tree, err = tree.Tree(dir)
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return []string{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load tree %s: %w", dir, err)
		}
	}
	out := make([]string, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Mode == filemode.Dir || e.Mode == filemode.Submodule {
			continue
		}
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out, nil
}

// History returns up to limit commit messages touching the repository, newest
// first.
func (s *Store) History(limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.headCommit()
	if err != nil || c == nil {
		return nil, err
	}
	iter, err := s.repo.Log(&git.LogOptions{From: c.Hash})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()
	var out []string
	err = iter.ForEach(func(c *object.Commit) error {
		out = append(out, strings.TrimSpace(c.Message))
		if limit > 0 && len(out) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return out, nil
}

func clean(p string) (string, error) {
	c := path.Clean(strings.TrimPrefix(p, "/"))
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("gitstore: invalid path %q", p)
	}
	return c, nil
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
