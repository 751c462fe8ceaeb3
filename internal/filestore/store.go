// Package filestore defines the read-only object storage interface used to
// fetch configuration documents addressed as s3://bucket/key.
//
// Usage:
//
//	store, err := minio.New(ctx, filestore.ConfigFromEnv())
//	if err != nil { ... }
//	defer store.Close()
//
//	data, err := filestore.ReadAll(ctx, store, loc, filestore.MaxDocumentSize)
package filestore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/koustreak/sqlcontext/internal/errs"
)

// Scheme prefixes an object location.
const Scheme = "s3://"

// MaxDocumentSize bounds ReadAll for configuration documents.
const MaxDocumentSize = 4 << 20

// Store is the interface every storage provider implements.
type Store interface {
	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object without downloading it.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// Close releases any held resources.
	Close() error
}

// ObjectInfo describes a single stored object.
type ObjectInfo struct {
	Key          string
	Size         int64 // -1 if unknown
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}

// Location is a parsed s3://bucket/key address.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string { return Scheme + l.Bucket + "/" + l.Key }

// IsRemote reports whether s uses the s3:// scheme.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseLocation splits s3://bucket/key. Both parts must be non-empty.
func ParseLocation(s string) (Location, error) {
	if !IsRemote(s) {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "not an %s location: %q", Scheme, s)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(s, Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "location %q needs both bucket and key", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// ReadAll downloads the object at loc, refusing anything larger than limit
// bytes.
func ReadAll(ctx context.Context, s Store, loc Location, limit int64) ([]byte, error) {
	obj, err := s.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if info := obj.Info(); info != nil && info.Size > limit {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s is %d bytes, limit is %d", loc, info.Size, limit)
	}

	data, err := io.ReadAll(io.LimitReader(obj, limit+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read "+loc.String(), err)
	}
	if int64(len(data)) > limit {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s exceeds %d bytes", loc, limit)
	}
	return data, nil
}
