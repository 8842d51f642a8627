package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"pageinsights/internal/clock"
)

// GCSConfig captures the parameters required to archive into GCS.
type GCSConfig struct {
	Bucket string
}

// GCSSink writes snapshots to a configured GCS bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
	clock  clock.Clock
}

// NewGCSSink wraps an existing storage client.
func NewGCSSink(client *storage.Client, cfg GCSConfig, clk clock.Clock) (*GCSSink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSSink{client: client, bucket: cfg.Bucket, clock: clk}, nil
}

// SaveSnapshot uploads the HTML to the bucket and returns a gs:// URI.
func (s *GCSSink) SaveSnapshot(ctx context.Context, pageID string, html []byte) (string, error) {
	if strings.TrimSpace(pageID) == "" {
		return "", fmt.Errorf("page id is required")
	}

	path := objectPath(pageID, html, s.clock.Now())
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = snapshotContentType
	if _, err := io.Copy(writer, bytes.NewReader(html)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("copy snapshot: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}
