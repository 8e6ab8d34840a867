// Package storage reads and writes topology documents and reports on the
// local filesystem or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Options configure the S3 backend. They are ignored for local paths.
type Options struct {
	Region string
	// Endpoint overrides the S3 endpoint, e.g. for LocalStack or MinIO.
	Endpoint     string
	UsePathStyle bool
}

// Location is a parsed storage reference: either s3://bucket/key or a
// filesystem path.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

func (l Location) IsS3() bool { return l.Bucket != "" }

func (l Location) String() string {
	if l.IsS3() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// ParseLocation splits a reference into bucket and key, or keeps it as a
// filesystem path.
func ParseLocation(ref string) (Location, error) {
	if !strings.HasPrefix(ref, "s3://") {
		if ref == "" {
			return Location{}, errors.New("empty storage location")
		}
		return Location{Path: ref}, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Location{}, fmt.Errorf("invalid s3 location %q: %w", ref, err)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("invalid s3 location %q: missing bucket", ref)
	}
	return Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// Open returns the store behind ref and the key to use within it. Local
// paths are rooted at their parent directory.
func Open(ctx context.Context, ref string, opts Options) (BlobStore, string, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return nil, "", err
	}
	if !loc.IsS3() {
		return NewLocalStore(filepath.Dir(loc.Path)), filepath.Base(loc.Path), nil
	}
	store, err := LoadS3Store(ctx, loc.Bucket, opts)
	if err != nil {
		return nil, "", err
	}
	return store, loc.Key, nil
}

// Read fetches the object behind ref.
func Read(ctx context.Context, ref string, opts Options) ([]byte, error) {
	store, key, err := Open(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, key)
}

// Write stores data at ref.
func Write(ctx context.Context, ref string, data []byte, opts Options) error {
	store, key, err := Open(ctx, ref, opts)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

// Expand lists the objects behind a local directory or an s3:// prefix that
// is empty or ends in "/". Any other reference is returned unchanged.
func Expand(ctx context.Context, ref string, opts Options) ([]string, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return nil, err
	}

	if loc.IsS3() {
		if loc.Key != "" && !strings.HasSuffix(loc.Key, "/") {
			return []string{ref}, nil
		}
		store, err := LoadS3Store(ctx, loc.Bucket, opts)
		if err != nil {
			return nil, err
		}
		keys, err := store.List(ctx, loc.Key)
		if err != nil {
			return nil, err
		}
		refs := make([]string, 0, len(keys))
		for _, k := range keys {
			if strings.HasSuffix(k, "/") {
				continue
			}
			refs = append(refs, Location{Bucket: loc.Bucket, Key: k}.String())
		}
		return refs, nil
	}

	info, err := os.Stat(loc.Path)
	if err != nil || !info.IsDir() {
		return []string{ref}, nil
	}
	keys, err := NewLocalStore(loc.Path).List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", loc.Path, err)
	}
	refs := make([]string, len(keys))
	for i, k := range keys {
		refs[i] = filepath.Join(loc.Path, filepath.FromSlash(k))
	}
	return refs, nil
}
