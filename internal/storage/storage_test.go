package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postura/api/internal/config"
)

func TestEndpointHost(t *testing.T) {
	cases := []struct {
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"minio:9000", false, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"https://s3.example.com", false, "s3.example.com", true},
	}
	for _, tc := range cases {
		host, secure, err := endpointHost(tc.endpoint, tc.useSSL)
		require.NoError(t, err, tc.endpoint)
		assert.Equal(t, tc.wantHost, host, tc.endpoint)
		assert.Equal(t, tc.wantSecure, secure, tc.endpoint)
	}

	_, _, err := endpointHost("http://[::1", false)
	assert.Error(t, err)
}

func TestNewObjectStoreDoesNotDial(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint:       "http://127.0.0.1:9000",
		AccessKey:      "key",
		SecretKey:      "secret",
		BucketFirmware: "firmware",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"firmware"}, store.buckets)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.PresignGet(ctx, "firmware", "missing.bin", time.Minute)
	require.Error(t, err)

	require.NoError(t, store.Put(ctx, "firmware", "app/1.0.0.bin", strings.NewReader("image"), 5, "application/octet-stream"))

	data, ok := store.Object("firmware", "app/1.0.0.bin")
	require.True(t, ok)
	assert.Equal(t, "image", string(data))

	link, err := store.PresignGet(ctx, "firmware", "app/1.0.0.bin", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://firmware/app/1.0.0.bin?expires=900", link)
}
