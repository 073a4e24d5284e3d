package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ContentTypeGzipJSON is stored with every archived snapshot object.
const ContentTypeGzipJSON = "application/gzip"

// ErrObjectNotFound is returned when a key does not exist in the store.
var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject stores body under objectKey, replacing any existing object.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GetObject reads an object; ErrObjectNotFound if absent.
	GetObject(ctx context.Context, objectKey string) ([]byte, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}

// ArchiveSnapshotKey is the object key for an offloaded archive snapshot.
func ArchiveSnapshotKey(athleteID, entryID string) string {
	return fmt.Sprintf("athletes/%s/plan_archive/%s.json.gz", athleteID, entryID)
}

// PutJSONGzip encodes v as gzip-compressed JSON and stores it.
func PutJSONGzip(ctx context.Context, fs FileStorage, objectKey string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", objectKey, err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("compress %s: %w", objectKey, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", objectKey, err)
	}
	return fs.PutObject(ctx, objectKey, ContentTypeGzipJSON, buf.Bytes())
}

// GetJSONGzip loads a gzip-compressed JSON object into v.
func GetJSONGzip(ctx context.Context, fs FileStorage, objectKey string, v any) error {
	body, err := fs.GetObject(ctx, objectKey)
	if err != nil {
		return err
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("decompress %s: %w", objectKey, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", objectKey, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", objectKey, err)
	}
	return nil
}
