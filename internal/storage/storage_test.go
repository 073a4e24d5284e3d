package storage

import (
	"context"
	"errors"
	"kaizencoach/plan-service/internal/config"
	"kaizencoach/plan-service/internal/logger"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotDoc struct {
	Weeks []int  `json:"weeks"`
	Note  string `json:"note"`
}

func TestJSONGzipRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewMemoryStorage()
	key := ArchiveSnapshotKey("a1", "65f0c0ffee")
	assert.Equal(t, "athletes/a1/plan_archive/65f0c0ffee.json.gz", key)

	in := snapshotDoc{Weeks: []int{0, 1, 2}, Note: strings.Repeat("long plan ", 500)}
	require.NoError(t, PutJSONGzip(ctx, fs, key, in))

	raw, err := fs.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Less(t, len(raw), len(in.Note), "payload is compressed")

	var out snapshotDoc
	require.NoError(t, GetJSONGzip(ctx, fs, key, &out))
	assert.Equal(t, in, out)
}

func TestGetJSONGzip_Errors(t *testing.T) {
	ctx := context.Background()
	fs := NewMemoryStorage()

	var out snapshotDoc
	err := GetJSONGzip(ctx, fs, "missing", &out)
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	require.NoError(t, fs.PutObject(ctx, "plain", "application/json", []byte(`{"weeks":[1]}`)))
	assert.Error(t, GetJSONGzip(ctx, fs, "plain", &out), "not gzip")
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	fs := NewMemoryStorage()

	_, err := fs.GeneratePresignedDownloadURL(ctx, "k", time.Minute)
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	body := []byte("abc")
	require.NoError(t, fs.PutObject(ctx, "k", "text/plain", body))
	body[0] = 'z'
	got, err := fs.GetObject(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	u, err := fs.GeneratePresignedDownloadURL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://k?expires=60", u)

	require.NoError(t, fs.DeleteObject(ctx, "k"))
	assert.Equal(t, 0, fs.Len())
}

func TestS3Storage_PresignedDownloadURL(t *testing.T) {
	fs, err := NewS3Storage(context.Background(), config.S3Config{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "us-east-1",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		BucketName:      "plans",
	}, logger.Nop())
	require.NoError(t, err)

	raw, err := fs.GeneratePresignedDownloadURL(context.Background(), ArchiveSnapshotKey("a1", "e1"), 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/plans/athletes/a1/plan_archive/e1.json.gz", u.Path, "path-style addressing")
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
