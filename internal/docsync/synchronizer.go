// Package docsync keeps local drafts of the site documents consistent with a
// remote store that may change underneath them. Each document is guarded by
// an opaque version token; the store rejects writes carrying a stale token and
// the synchronizer recovers with a single refresh-and-reapply round.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
	"github.com/sitecraft/siteadmin/pkg/logger"
	"github.com/sitecraft/siteadmin/pkg/metrics"
)

// MaxSaveAttempts bounds the saves issued by one retrying operation.
const MaxSaveAttempts = 2

// ErrNotLoaded is returned when a document is used before its first fetch.
var ErrNotLoaded = errors.New("docsync: document not loaded")

// Remote is the versioned store the documents live in.
type Remote interface {
	// Fetch returns the current snapshot and its version token.
	Fetch(ctx context.Context, kind site.Kind) (jsontree.Value, string, error)
	// Save stores snapshot if version still matches the store's token and
	// returns the accepted snapshot with its new token. A mismatch is
	// reported as a *syncerr.ConflictError.
	Save(ctx context.Context, kind site.Kind, snapshot jsontree.Value, version string) (jsontree.Value, string, error)
}

// Document is a copy of one document's state.
type Document struct {
	Kind    site.Kind
	Origin  jsontree.Value
	Draft   jsontree.Value
	Version string
}

// HasChanges reports whether the draft differs from the origin.
func (d Document) HasChanges() bool { return !jsontree.Equal(d.Draft, d.Origin) }

// SaveResult describes a finished save.
type SaveResult struct {
	Kind     site.Kind
	Document Document
	// Skipped is set when there was nothing to save and no request was made.
	Skipped  bool
	Attempts int
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithValidation checks the draft with fn before it is sent. A failing check
// aborts the save without any request.
func WithValidation(fn func(site.Kind, jsontree.Value) error) Option {
	return func(s *Synchronizer) { s.validate = fn }
}

// Synchronizer owns the origin/draft pair and version token of one document.
// mu guards the pair and is never held across a remote call; ioMu keeps at
// most one fetch or save in flight per document.
type Synchronizer struct {
	kind     site.Kind
	remote   Remote
	validate func(site.Kind, jsontree.Value) error

	ioMu sync.Mutex

	mu      sync.Mutex
	loaded  bool
	origin  jsontree.Value
	draft   jsontree.Value
	version string
}

func NewSynchronizer(kind site.Kind, remote Remote, opts ...Option) *Synchronizer {
	s := &Synchronizer{kind: kind, remote: remote}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Synchronizer) Kind() site.Kind { return s.kind }

// Fetch replaces origin and draft with the store's current snapshot. Any
// local draft is dropped.
func (s *Synchronizer) Fetch(ctx context.Context) (Document, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.fetchLocked(ctx)
}

func (s *Synchronizer) fetchLocked(ctx context.Context) (Document, error) {
	snap, version, err := s.remote.Fetch(ctx, s.kind)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", s.kind, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin, s.draft, s.version = snap, snap, version
	s.loaded = true
	logger.Debugf("docsync: fetched %s at %s", s.kind, version)
	return s.documentLocked(), nil
}

// Loaded reports whether the document has been fetched.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Document returns a copy of the current state.
func (s *Synchronizer) Document() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Document{}, s.notLoaded()
	}
	return s.documentLocked(), nil
}

func (s *Synchronizer) documentLocked() Document {
	return Document{Kind: s.kind, Origin: s.origin, Draft: s.draft, Version: s.version}
}

func (s *Synchronizer) notLoaded() error {
	return fmt.Errorf("%s: %w", s.kind, ErrNotLoaded)
}

// Mutate replaces the draft with updater(draft). The origin is untouched and
// no request is made.
func (s *Synchronizer) Mutate(updater func(jsontree.Value) jsontree.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return s.notLoaded()
	}
	s.draft = updater(s.draft)
	return nil
}

// Update applies path edits to the draft.
func (s *Synchronizer) Update(edits ...jsontree.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return s.notLoaded()
	}
	next, err := jsontree.ApplyEdits(s.draft, edits)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.kind, err)
	}
	s.draft = next
	return nil
}

// HasChanges reports whether the draft differs structurally from the origin.
func (s *Synchronizer) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded && !jsontree.Equal(s.draft, s.origin)
}

// Discard resets the draft to the origin.
func (s *Synchronizer) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.origin
}

// PendingEdits returns the edits that turn the origin into the draft.
func (s *Synchronizer) PendingEdits() []jsontree.Edit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil
	}
	return jsontree.Diff(s.origin, s.draft)
}

// PendingPatch returns the draft as an RFC 7396 merge patch against the
// origin, or nil when there is nothing pending. Documents whose root is not an
// object (sections) are returned whole.
func (s *Synchronizer) PendingPatch() ([]byte, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	if !doc.HasChanges() {
		return nil, nil
	}
	draft, err := doc.Draft.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if doc.Origin.Kind() != jsontree.ObjectKind || doc.Draft.Kind() != jsontree.ObjectKind {
		return draft, nil
	}
	origin, err := doc.Origin.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(origin, draft)
}

// Save submits the draft with the current version token. Without pending
// changes it returns a skipped result and makes no request. On a version
// conflict local state is left as it was. Edits made while the request was in
// flight are rebased onto the accepted snapshot.
func (s *Synchronizer) Save(ctx context.Context) (SaveResult, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Synchronizer) saveLocked(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return SaveResult{}, s.notLoaded()
	}
	if jsontree.Equal(s.draft, s.origin) {
		res := SaveResult{Kind: s.kind, Document: s.documentLocked(), Skipped: true}
		s.mu.Unlock()
		metrics.SyncSaves.WithLabelValues(s.kind.String(), metrics.OutcomeSkipped).Inc()
		return res, nil
	}
	submitted, version := s.draft, s.version
	s.mu.Unlock()

	if s.validate != nil {
		if err := s.validate(s.kind, submitted); err != nil {
			return SaveResult{}, fmt.Errorf("save %s: %w", s.kind, err)
		}
	}

	accepted, newVersion, err := s.remote.Save(ctx, s.kind, submitted, version)
	if err != nil {
		if syncerr.IsConflict(err) {
			metrics.SyncSaves.WithLabelValues(s.kind.String(), metrics.OutcomeConflict).Inc()
			metrics.SyncConflicts.WithLabelValues(s.kind.String()).Inc()
			logger.Warnf("docsync: %s rejected, version %s is stale", s.kind, version)
		} else {
			metrics.SyncSaves.WithLabelValues(s.kind.String(), metrics.OutcomeError).Inc()
		}
		return SaveResult{}, fmt.Errorf("save %s: %w", s.kind, err)
	}
	metrics.SyncSaves.WithLabelValues(s.kind.String(), metrics.OutcomeOK).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := accepted
	if !jsontree.Same(s.draft, submitted) {
		if rebased, err := jsontree.ApplyEdits(accepted, jsontree.Diff(submitted, s.draft)); err == nil {
			draft = rebased
		} else {
			logger.Warnf("docsync: could not rebase %s edits made during save: %v", s.kind, err)
			draft = s.draft
		}
	}
	s.origin, s.draft, s.version = accepted, draft, newVersion
	logger.Infof("docsync: saved %s, version %s -> %s", s.kind, version, newVersion)
	return SaveResult{Kind: s.kind, Document: s.documentLocked(), Attempts: 1}, nil
}

// ApplyAndSave applies edits to the draft and saves. If the store reports a
// conflict the document is fetched again, the same edits are applied to the
// fresh origin and the save is tried once more.
func (s *Synchronizer) ApplyAndSave(ctx context.Context, edits ...jsontree.Edit) (SaveResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return SaveResult{}, s.notLoaded()
	}
	next, err := jsontree.ApplyEdits(s.draft, edits)
	if err != nil {
		s.mu.Unlock()
		return SaveResult{}, fmt.Errorf("update %s: %w", s.kind, err)
	}
	s.draft = next
	s.mu.Unlock()
	return s.saveWithRetry(ctx, edits, next, false)
}

// RefreshAndRetry fetches the document, re-applies the pending draft delta
// onto the fresh snapshot and saves it, with the same bound as ApplyAndSave.
func (s *Synchronizer) RefreshAndRetry(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return SaveResult{}, s.notLoaded()
	}
	delta, seen := jsontree.Diff(s.origin, s.draft), s.draft
	s.mu.Unlock()
	return s.saveWithRetry(ctx, delta, seen, true)
}

// saveWithRetry saves, refreshing and re-applying delta between attempts.
// seen is the draft delta was taken from; anything mutated after it is
// carried over to the refreshed draft as well.
func (s *Synchronizer) saveWithRetry(ctx context.Context, delta []jsontree.Edit, seen jsontree.Value, refreshFirst bool) (SaveResult, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	var conflict *syncerr.ConflictError
	for attempt := 1; attempt <= MaxSaveAttempts; attempt++ {
		if attempt > 1 || refreshFirst {
			if attempt > 1 {
				metrics.SyncRetries.WithLabelValues(s.kind.String()).Inc()
				logger.With("kind", s.kind.String(), "attempt", attempt).Info("docsync: retrying on a fresh snapshot")
			}
			next, err := s.refreshLocked(ctx, delta, seen)
			if err != nil {
				return SaveResult{}, err
			}
			seen = next
		}
		res, err := s.saveLocked(ctx)
		if err == nil {
			if !res.Skipped {
				res.Attempts = attempt
			}
			return res, nil
		}
		ce, ok := syncerr.AsConflict(err)
		if !ok {
			return SaveResult{}, err
		}
		conflict = ce
	}
	if conflict.Resource == "" {
		conflict.Resource = s.kind.String()
	}
	return SaveResult{}, fmt.Errorf("save %s: %w", s.kind, &syncerr.ConflictError{
		Resource:        conflict.Resource,
		ExpectedVersion: conflict.ExpectedVersion,
		Attempts:        MaxSaveAttempts,
		Message:         conflict.Message,
	})
}

// refreshLocked fetches the document and, in the same critical section that
// swaps in the fresh origin, rebuilds the draft from delta plus whatever was
// mutated since seen. On error local state is left as it was.
func (s *Synchronizer) refreshLocked(ctx context.Context, delta []jsontree.Edit, seen jsontree.Value) (jsontree.Value, error) {
	snap, version, err := s.remote.Fetch(ctx, s.kind)
	if err != nil {
		return jsontree.Value{}, fmt.Errorf("fetch %s: %w", s.kind, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	edits := delta
	if !jsontree.Same(seen, s.draft) {
		edits = append(append([]jsontree.Edit(nil), delta...), jsontree.Diff(seen, s.draft)...)
	}
	next, err := jsontree.ApplyEdits(snap, edits)
	if err != nil {
		return jsontree.Value{}, fmt.Errorf("reapply %s edits: %w", s.kind, err)
	}
	s.origin, s.draft, s.version = snap, next, version
	logger.Debugf("docsync: refreshed %s at %s", s.kind, version)
	return next, nil
}
