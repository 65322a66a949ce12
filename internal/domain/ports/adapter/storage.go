package adapter

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Path      string
	CreatedAt time.Time
}

type ObjectMetadata struct {
	SizeBytes   int64
	ContentType string
}

// ObjectStorage is the port for the output/input bucket. List and Metadata
// are read-only and safe to call concurrently across jobs.
type ObjectStorage interface {
	Upload(ctx context.Context, path, contentType string, r io.Reader) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Metadata(ctx context.Context, path string) (ObjectMetadata, error)
	// SignedReadURL returns a time-limited, credential-free URL for the
	// object. The artifact itself is never made public.
	SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
	// URI converts an object path into the provider-visible storage URI
	// (URI("") yields the bucket root prefix).
	URI(path string) string
}
