package docsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/sitecraft/siteadmin/internal/jsontree"
	"github.com/sitecraft/siteadmin/internal/site"
	"github.com/sitecraft/siteadmin/internal/syncerr"
)

// fakeRemote is an in-memory versioned store. Versions are a per-kind
// counter. beforeSave hooks run ahead of the compare-and-swap and let a test
// play the part of another writer; beforeFetch runs ahead of every read.
type fakeRemote struct {
	mu         sync.Mutex
	docs        map[site.Kind]jsontree.Value
	versions    map[site.Kind]int
	fetches     map[site.Kind]int
	saves       map[site.Kind]int
	beforeSave  func(kind site.Kind, attempt int)
	beforeFetch func(kind site.Kind)
	failSave    error
}

func newFakeRemote(docs map[site.Kind]string) *fakeRemote {
	r := &fakeRemote{
		docs:     map[site.Kind]jsontree.Value{},
		versions: map[site.Kind]int{},
		fetches:  map[site.Kind]int{},
		saves:    map[site.Kind]int{},
	}
	for k, d := range docs {
		r.docs[k] = jsontree.MustParse(d)
		r.versions[k] = 1
	}
	return r
}

func (r *fakeRemote) token(kind site.Kind) string {
	return fmt.Sprintf("%s-v%d", kind, r.versions[kind])
}

func (r *fakeRemote) Fetch(_ context.Context, kind site.Kind) (jsontree.Value, string, error) {
	r.mu.Lock()
	hook := r.beforeFetch
	r.mu.Unlock()
	if hook != nil {
		hook(kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[kind]++
	doc, ok := r.docs[kind]
	if !ok {
		return jsontree.Value{}, "", syncerr.NotFound("GET", kind.String())
	}
	return doc, r.token(kind), nil
}

func (r *fakeRemote) Save(_ context.Context, kind site.Kind, snap jsontree.Value, version string) (jsontree.Value, string, error) {
	r.mu.Lock()
	r.saves[kind]++
	attempt := r.saves[kind]
	hook := r.beforeSave
	r.mu.Unlock()
	if hook != nil {
		hook(kind, attempt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return jsontree.Value{}, "", r.failSave
	}
	if version != r.token(kind) {
		return jsontree.Value{}, "", &syncerr.ConflictError{Resource: kind.String(), ExpectedVersion: version, Message: "sha mismatch"}
	}
	r.docs[kind] = snap
	r.versions[kind]++
	return snap, r.token(kind), nil
}

// commit writes as another client would, bumping the version.
func (r *fakeRemote) commit(kind site.Kind, edits ...jsontree.Edit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := jsontree.ApplyEdits(r.docs[kind], edits)
	if err != nil {
		panic(err)
	}
	r.docs[kind] = next
	r.versions[kind]++
}

func (r *fakeRemote) doc(kind site.Kind) jsontree.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[kind]
}

func (r *fakeRemote) requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.saves {
		n += c
	}
	return n
}
