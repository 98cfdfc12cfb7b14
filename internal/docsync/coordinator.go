package docsync

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

// Coordinator groups the content, pages and sections documents into one
// editing session. Each document is still its own version domain: saves are
// independent and nothing is atomic across documents.
type Coordinator struct {
	syncs map[site.Kind]*Synchronizer
}

func NewCoordinator(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{syncs: make(map[site.Kind]*Synchronizer, len(site.Kinds))}
	for _, k := range site.Kinds {
		c.syncs[k] = NewSynchronizer(k, remote, opts...)
	}
	return c
}

// SaveReport collects the per-document outcome of a multi-document save.
type SaveReport struct {
	Results map[site.Kind]SaveResult
	Errors  map[site.Kind]error
}

// Saved lists the documents that were written, in kind order.
func (r SaveReport) Saved() []site.Kind {
	var out []site.Kind
	for _, k := range site.Kinds {
		if res, ok := r.Results[k]; ok && !res.Skipped {
			out = append(out, k)
		}
	}
	return out
}

// Err combines the per-document errors in kind order.
func (r SaveReport) Err() error {
	var err error
	for _, k := range site.Kinds {
		if e, ok := r.Errors[k]; ok {
			err = multierr.Append(err, e)
		}
	}
	return err
}

// Synchronizer returns the synchronizer for kind, or nil for an unknown kind.
func (c *Coordinator) Synchronizer(kind site.Kind) *Synchronizer {
	return c.syncs[kind]
}

func (c *Coordinator) get(kind site.Kind) (*Synchronizer, error) {
	s, ok := c.syncs[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	return s, nil
}

// Load fetches every document concurrently.
func (c *Coordinator) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, k := range site.Kinds {
		s := c.syncs[k]
		g.Go(func() error {
			_, err := s.Fetch(ctx)
			return err
		})
	}
	return g.Wait()
}

func (c *Coordinator) Document(kind site.Kind) (Document, error) {
	s, err := c.get(kind)
	if err != nil {
		return Document{}, err
	}
	return s.Document()
}

func (c *Coordinator) Mutate(kind site.Kind, updater func(jsontree.Value) jsontree.Value) error {
	s, err := c.get(kind)
	if err != nil {
		return err
	}
	return s.Mutate(updater)
}

func (c *Coordinator) Update(kind site.Kind, edits ...jsontree.Edit) error {
	s, err := c.get(kind)
	if err != nil {
		return err
	}
	return s.Update(edits...)
}

// HasPendingChanges reports whether any document has a draft that differs
// from its origin.
func (c *Coordinator) HasPendingChanges() bool {
	for _, k := range site.Kinds {
		if c.syncs[k].HasChanges() {
			return true
		}
	}
	return false
}

// Changed lists the documents with pending changes, in kind order.
func (c *Coordinator) Changed() []site.Kind {
	var out []site.Kind
	for _, k := range site.Kinds {
		if c.syncs[k].HasChanges() {
			out = append(out, k)
		}
	}
	return out
}

// SaveAll saves every changed document concurrently. With nothing changed it
// returns an empty report and makes no requests. A failure of one document
// does not stop the others; the returned error combines all failures.
func (c *Coordinator) SaveAll(ctx context.Context) (SaveReport, error) {
	return c.fanOut(ctx, (*Synchronizer).Save)
}

// RefreshAndRetry runs Synchronizer.RefreshAndRetry for every changed
// document, keeping their pending edits on top of the fresh snapshots.
func (c *Coordinator) RefreshAndRetry(ctx context.Context) (SaveReport, error) {
	return c.fanOut(ctx, (*Synchronizer).RefreshAndRetry)
}

func (c *Coordinator) fanOut(ctx context.Context, op func(*Synchronizer, context.Context) (SaveResult, error)) (SaveReport, error) {
	report := SaveReport{Results: map[site.Kind]SaveResult{}, Errors: map[site.Kind]error{}}
	changed := c.Changed()
	if len(changed) == 0 {
		logger.Debug("docsync: nothing to save")
		return report, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, k := range changed {
		s := c.syncs[k]
		g.Go(func() error {
			res, err := op(s, ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors[s.Kind()] = err
				return nil
			}
			report.Results[s.Kind()] = res
			return nil
		})
	}
	_ = g.Wait()
	return report, report.Err()
}

// DiscardChanges resets every draft to its origin. No request is made.
func (c *Coordinator) DiscardChanges() {
	for _, k := range site.Kinds {
		c.syncs[k].Discard()
	}
}

// UpdateAndSave applies edits to one document and saves it with a single
// refresh-and-reapply round on conflict.
func (c *Coordinator) UpdateAndSave(ctx context.Context, kind site.Kind, edits ...jsontree.Edit) (SaveResult, error) {
	s, err := c.get(kind)
	if err != nil {
		return SaveResult{}, err
	}
	return s.ApplyAndSave(ctx, edits...)
}
