package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitecraft/siteadmin/internal/document"
	"github.com/sitecraft/siteadmin/internal/site"
)

// RedisRepo stores each document as a hash under "<prefix><kind>" with the
// fields data, sha and updatedAt. Put watches the key and writes in a
// MULTI/EXEC block, so a concurrent writer makes the transaction fail.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

// NewRedisRepo creates a Redis-backed repository. Prefix may be empty.
func NewRedisRepo(client *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "siteadmin:doc:"
	}
	return &RedisRepo{client: client, prefix: prefix}
}

func (r *RedisRepo) key(kind site.Kind) string {
	return r.prefix + kind.String()
}

func (r *RedisRepo) Get(ctx context.Context, kind site.Kind) (document.Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, r.key(kind)).Result()
	if err != nil {
		return document.Snapshot{}, err
	}
	sha, ok := fields["sha"]
	if !ok {
		return document.Snapshot{}, ErrNotFound
	}
	updated, _ := time.Parse(time.RFC3339Nano, fields["updatedAt"])
	return document.Snapshot{Kind: kind, Data: []byte(fields["data"]), SHA: sha, UpdatedAt: updated}, nil
}

func (r *RedisRepo) Put(ctx context.Context, kind site.Kind, data []byte, expectedSHA string) (document.Snapshot, error) {
	key := r.key(kind)
	snap := document.Snapshot{
		Kind:      kind,
		Data:      append([]byte(nil), data...),
		SHA:       document.ComputeSHA(data),
		UpdatedAt: time.Now().UTC(),
	}
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "sha").Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}
		if err := checkSHA(exists, current, expectedSHA); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "data", string(data), "sha", snap.SHA, "updatedAt", snap.UpdatedAt.Format(time.RFC3339Nano))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return document.Snapshot{}, ErrConflict
	}
	if err != nil {
		return document.Snapshot{}, err
	}
	return snap, nil
}
