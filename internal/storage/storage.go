// Package storage archives exported reports in Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Service provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type Service interface {
	// Upload writes r to object and returns its gs:// URI.
	Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error)

	// UploadFile uploads a local file under the given object name.
	UploadFile(ctx context.Context, object, filePath string) (string, error)

	// Fetch downloads object bytes from a gs:// URI.
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSService is the Cloud Storage implementation of Service for one bucket.
type GCSService struct {
	client *storage.Client
	bucket string
}

// NewGCSService creates a client using Application Default Credentials unless
// opts say otherwise.
func NewGCSService(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSService, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSService: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSService{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (s *GCSService) Close() error {
	return s.client.Close()
}

// Upload implements Service.
func (s *GCSService) Upload(ctx context.Context, object, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURI(s.bucket, object), nil
}

// UploadFile implements Service.
func (s *GCSService) UploadFile(ctx context.Context, object, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	return s.Upload(ctx, object, contentTypeFor(filePath), f)
}

// Fetch implements Service. The URI may point at any bucket.
func (s *GCSService) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading bytes: %w", err)
	}

	return data, nil
}

// ParseURI splits gs://bucket/path/to/object into bucket and object.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ObjectName builds a unique, date-partitioned object name such as
// exports/2026/10/18/<uuid>-expenses.csv.
func ObjectName(prefix, filename string, now time.Time) string {
	name := uuid.New().String() + "-" + path.Base(filename)
	return path.Join(prefix, now.UTC().Format("2006/01/02"), name)
}

func contentTypeFor(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".csv":
		return "text/csv"
	case ".json", ".jsonl":
		return "application/json"
	}
	return "application/octet-stream"
}

var _ Service = (*GCSService)(nil)
