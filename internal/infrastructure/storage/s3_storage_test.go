package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3ArtifactArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ArtifactArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{AccessKeyID: "test-key", SecretKey: "test-secret"}
		_, err := NewS3ArtifactArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{Bucket: "test-bucket", SecretKey: "test-secret"}
		_, err := NewS3ArtifactArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.StorageConfig{Bucket: "test-bucket", AccessKeyID: "test-key"}
		_, err := NewS3ArtifactArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		cfg := &config.StorageConfig{Bucket: "test-bucket", AccessKeyID: "test-key", SecretKey: "test-secret"}
		archive, err := NewS3ArtifactArchive(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, archive.presignExpiration)
		assert.Equal(t, "test-bucket", archive.GetBucket())
	})

	t.Run("options override config", func(t *testing.T) {
		cfg := &config.StorageConfig{Bucket: "test-bucket", AccessKeyID: "test-key", SecretKey: "test-secret"}
		archive, err := NewS3ArtifactArchive(cfg, WithPresignExpiration(time.Hour), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, archive.presignExpiration)
	})
}

// fakeS3 records PUT requests and answers list requests
type fakeS3 struct {
	mu      sync.Mutex
	puts    map[string][]byte
	types   map[string]string
	listXML string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.puts[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, f.listXML)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestArchive(t *testing.T, fake *fakeS3) *S3ArtifactArchive {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.StorageConfig{
		Bucket:       "artifacts",
		AccessKeyID:  "test-key",
		SecretKey:    "test-secret",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	}
	archive, err := NewS3ArtifactArchive(cfg,
		WithClock(func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }))
	require.NoError(t, err)
	archive.newID = func() string { return "id1" }
	return archive
}

func TestS3ArtifactArchive_Key(t *testing.T) {
	archive := newTestArchive(t, &fakeS3{})

	key := archive.Key(&report.Artifact{Kind: report.KindChart, Filename: "sales/dynamics_2024.png"})
	assert.Equal(t, "chart/2024/03/id1-sales_dynamics_2024.png", key)
}

func TestS3ArtifactArchive_Store(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}, types: map[string]string{}}
	archive := newTestArchive(t, fake)

	artifact := &report.Artifact{
		Kind:        report.KindWeeklyReport,
		Filename:    "Еженедельный_отчет.docx",
		ContentType: report.ContentTypeDOCX,
		Data:        []byte("docx-bytes"),
	}
	key, err := archive.Store(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, "weekly_report/2024/03/id1-Еженедельный_отчет.docx", key)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 1)
	for p, body := range fake.puts {
		assert.True(t, strings.HasPrefix(p, "/artifacts/weekly_report/2024/03/"))
		assert.Equal(t, []byte("docx-bytes"), body)
		assert.Equal(t, report.ContentTypeDOCX, fake.types[p])
	}
}

func TestS3ArtifactArchive_StoreEmpty(t *testing.T) {
	archive := newTestArchive(t, &fakeS3{})

	_, err := archive.Store(context.Background(), &report.Artifact{Filename: "x.png"})
	assert.Error(t, err)
}

func TestS3ArtifactArchive_List(t *testing.T) {
	fake := &fakeS3{listXML: `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>artifacts</Name>
  <Prefix>chart/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>10</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>chart/2024/03/a-x.png</Key><LastModified>2024-03-05T10:00:00.000Z</LastModified><Size>120</Size></Contents>
  <Contents><Key>chart/2024/03/b-y.png</Key><LastModified>2024-03-06T10:00:00.000Z</LastModified><Size>80</Size></Contents>
</ListBucketResult>`}
	archive := newTestArchive(t, fake)

	objects, err := archive.List(context.Background(), "chart/", 10)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "chart/2024/03/a-x.png", objects[0].Key)
	assert.Equal(t, int64(120), objects[0].Size)
	assert.Equal(t, 2024, objects[1].LastModified.Year())
}

func TestS3ArtifactArchive_DownloadURL(t *testing.T) {
	archive := newTestArchive(t, &fakeS3{})

	t.Run("empty key returns error", func(t *testing.T) {
		url, _, err := archive.DownloadURL(context.Background(), "", time.Minute)
		require.Error(t, err)
		assert.Empty(t, url)
	})

	t.Run("generates presigned URL", func(t *testing.T) {
		url, expiresAt, err := archive.DownloadURL(context.Background(), "chart/2024/03/id1-x.png", 0)
		require.NoError(t, err)
		assert.Contains(t, url, "/artifacts/chart/2024/03/id1-x.png")
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Equal(t, time.Date(2024, time.March, 5, 10, 15, 0, 0, time.UTC), expiresAt)
	})
}
