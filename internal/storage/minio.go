package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sitecraft/siteadmin/internal/gitstore"
)

const (
	shaMetaKey     = "Sha"
	presignExpires = 7 * 24 * time.Hour
)

// MinIOStorage stores assets as objects in one bucket. The sha travels as
// user metadata. MinIO has no conditional put, so the compare-and-swap is
// serialised per path inside this process only.
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(cfg *MinIOConfig) (*MinIOStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, publicURL: cfg.PublicURL, locks: map[string]*sync.Mutex{}}
	// ensure bucket exists (idempotent)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func (s *MinIOStorage) pathLock(p string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[p]
	if !ok {
		l = &sync.Mutex{}
		s.locks[p] = l
	}
	return l
}

func (s *MinIOStorage) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.Trim(path.Clean("/"+dir), "/")
	if prefix != "" {
		prefix += "/"
	}
	out := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list %s: %w", prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MinIOStorage) Stat(ctx context.Context, p string) (string, error) {
	p, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return s.stat(ctx, p)
}

func (s *MinIOStorage) stat(ctx context.Context, key string) (string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("minio stat %s: %w", key, err)
	}
	return objectSHA(info), nil
}

func (s *MinIOStorage) Put(ctx context.Context, p string, data []byte, expectedSHA string) (string, error) {
	key, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	lock := s.pathLock(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.stat(ctx, key)
	exists := err == nil
	if err != nil && err != ErrNotFound {
		return "", err
	}
	if err := checkSHA(exists, current, expectedSHA); err != nil {
		return "", err
	}
	sha := gitstore.BlobSHA(data)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType(key),
		UserMetadata: map[string]string{shaMetaKey: sha},
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return sha, nil
}

// URL returns PublicURL/<bucket>/<path>, or a presigned GET URL valid for a
// week when no public URL is configured.
func (s *MinIOStorage) URL(ctx context.Context, p string) (string, error) {
	if s.publicURL != "" {
		return joinURL(s.publicURL, s.bucket+"/"+p), nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, p, presignExpires, make(url.Values))
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

func objectSHA(info minio.ObjectInfo) string {
	for _, k := range []string{shaMetaKey, "X-Amz-Meta-" + shaMetaKey} {
		if v, ok := info.UserMetadata[k]; ok && v != "" {
			return v
		}
	}
	return info.Metadata.Get("X-Amz-Meta-" + shaMetaKey)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
