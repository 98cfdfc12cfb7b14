package repository

import (
	"context"
	"sync"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/gitstore"
	"github.com/sitecraft/siteadmin/internal/site"
)

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	gs, err := gitstore.Open(t.TempDir(), "tester")
	require.NoError(t, err)

	return map[string]Repository{
		"memory": NewMemoryRepo(),
		"git":    NewGitRepo(gs),
		"redis":  NewRedisRepo(client, "test:doc:"),
	}
}

func TestRepositoryCompareAndSwap(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, site.KindPages)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = repo.Put(ctx, site.KindPages, []byte(`{"pages":{}}`), "bogus")
			assert.ErrorIs(t, err, ErrConflict)

			first, err := repo.Put(ctx, site.KindPages, []byte(`{"pages":{}}`), "")
			require.NoError(t, err)
			assert.Equal(t, document.ComputeSHA([]byte(`{"pages":{}}`)), first.SHA)

			got, err := repo.Get(ctx, site.KindPages)
			require.NoError(t, err)
			assert.Equal(t, first.SHA, got.SHA)
			assert.JSONEq(t, `{"pages":{}}`, string(got.Data))

			_, err = repo.Put(ctx, site.KindPages, []byte(`{"pages":{"a":{}}}`), "")
			assert.ErrorIs(t, err, ErrConflict)

			second, err := repo.Put(ctx, site.KindPages, []byte(`{"pages":{"b":{}}}`), first.SHA)
			require.NoError(t, err)

			_, err = repo.Put(ctx, site.KindPages, []byte(`{"pages":{"c":{}}}`), first.SHA)
			assert.ErrorIs(t, err, ErrConflict)

			got, err = repo.Get(ctx, site.KindPages)
			require.NoError(t, err)
			assert.Equal(t, second.SHA, got.SHA)
			assert.JSONEq(t, `{"pages":{"b":{}}}`, string(got.Data))

			_, err = repo.Get(ctx, site.KindSections)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepositoryOneWinnerPerVersion(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base, err := repo.Put(ctx, site.KindContent, []byte(`{}`), "")
			require.NoError(t, err)

			const writers = 8
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := repo.Put(ctx, site.KindContent, []byte{'{', '"', byte('a' + i), '"', ':', '1', '}'}, base.SHA)
					if err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
						return
					}
					assert.ErrorIs(t, err, ErrConflict)
				}(i)
			}
			wg.Wait()
			assert.Equal(t, 1, wins)
		})
	}
}
