package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/infrastructure/config"
	"go.uber.org/zap/zaptest"
)

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(&config.StorageConfig{
			Bucket:    "provenance",
			AccessKey: "k",
			SecretKey: "s",
			Endpoint:  "minio:9000",
		}, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "provenance", storage.GetBucket())
	})
}

func TestS3ObjectStorage_ValidationOnly(t *testing.T) {
	storage, err := NewS3ObjectStorage(&config.StorageConfig{
		Bucket:    "provenance",
		AccessKey: "k",
		SecretKey: "s",
		Endpoint:  "http://localhost:9000",
	})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, storage.Upload(ctx, "", []byte("{}"), "application/json"))
	_, err = storage.Download(ctx, "")
	assert.Error(t, err)
	_, err = storage.ObjectExists(ctx, "")
	assert.Error(t, err)
}

// fakeS3 serves the handful of path-style S3 calls the storage makes
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3ObjectStorage_AgainstFakeEndpoint(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	storage, err := NewS3ObjectStorage(&config.StorageConfig{
		Bucket:       "provenance",
		AccessKey:    "k",
		SecretKey:    "s",
		Endpoint:     srv.URL,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := storage.ObjectExists(ctx, "products/1.json")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = storage.Download(ctx, "products/1.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	doc := []byte(`{"name":"Product #1"}`)
	require.NoError(t, storage.Upload(ctx, "products/1.json", doc, "application/json"))
	assert.Equal(t, "application/json", fake.types["/provenance/products/1.json"])

	exists, err = storage.ObjectExists(ctx, "products/1.json")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := storage.Download(ctx, "products/1.json")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMemoryObjectStorage(t *testing.T) {
	storage := NewMemoryObjectStorage()
	ctx := context.Background()

	assert.Error(t, storage.Upload(ctx, "", nil, ""))

	data := []byte("a")
	require.NoError(t, storage.Upload(ctx, "k", data, "text/plain"))
	data[0] = 'b'

	got, err := storage.Download(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	exists, err := storage.ObjectExists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = storage.Download(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
