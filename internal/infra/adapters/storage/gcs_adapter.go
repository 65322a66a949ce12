// File: internal/infra/adapters/storage/gcs_adapter.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"social-video-orchestrator/internal/domain"
	"social-video-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*GCSAdapter)(nil)

// GCSAdapter implements the object storage port on a single GCS bucket. The
// synthesis provider writes artifacts into the same bucket via OutputGCSURI,
// which is why URI() exposes gs:// references.
type GCSAdapter struct {
	client *gcs.Client
	bucket string
}

func NewGCSAdapter(ctx context.Context, bucket, credentialFile string) (*GCSAdapter, error) {
	if bucket == "" {
		return nil, errors.New("gcs: empty bucket name")
	}
	var opts []option.ClientOption
	if credentialFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialFile))
	}
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &GCSAdapter{client: c, bucket: bucket}, nil
}

func (a *GCSAdapter) Upload(ctx context.Context, path, contentType string, r io.Reader) error {
	w := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs: upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: upload %s: %w", path, err)
	}
	return nil
}

func (a *GCSAdapter) List(ctx context.Context, prefix string) ([]adapter.ObjectInfo, error) {
	it := a.client.Bucket(a.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var out []adapter.ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", prefix, err)
		}
		out = append(out, adapter.ObjectInfo{Path: attrs.Name, CreatedAt: attrs.Created})
	}
	return out, nil
}

func (a *GCSAdapter) Metadata(ctx context.Context, path string) (adapter.ObjectMetadata, error) {
	attrs, err := a.client.Bucket(a.bucket).Object(path).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return adapter.ObjectMetadata{}, domain.ErrNotFound
		}
		return adapter.ObjectMetadata{}, fmt.Errorf("gcs: attrs %s: %w", path, err)
	}
	return adapter.ObjectMetadata{
		SizeBytes:   attrs.Size,
		ContentType: attrs.ContentType,
	}, nil
}

func (a *GCSAdapter) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	url, err := a.client.Bucket(a.bucket).SignedURL(path, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("gcs: sign %s: %w", path, err)
	}
	return url, nil
}

func (a *GCSAdapter) Delete(ctx context.Context, path string) error {
	err := a.client.Bucket(a.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", path, err)
	}
	return nil
}

func (a *GCSAdapter) URI(path string) string {
	return "gs://" + a.bucket + "/" + strings.TrimPrefix(path, "/")
}

func (a *GCSAdapter) Close() error { return a.client.Close() }
