package minio

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/brickstream/blobstore"
)

// TestStore_Integration runs against the server named by MINIO_ENDPOINT.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}

	client, err := Dial(endpoint, envOr("MINIO_ACCESS_KEY", "minioadmin"), envOr("MINIO_SECRET_KEY", "minioadmin"), false)
	require.NoError(t, err)

	ctx := context.Background()
	bucket := "brickstream-test"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, fmt.Sprintf("run-%d/", time.Now().UnixNano()))

	require.NoError(t, store.Put(ctx, "volume.json", []byte(`{"depth":3}`)))

	w, err := store.Create(ctx, "bricks.dat")
	require.NoError(t, err)
	_, err = w.Write([]byte("brick-0brick-1"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := store.Open(ctx, "bricks.dat")
	require.NoError(t, err)
	ext, err := blobstore.ReadExtent(ctx, b, 7, 7)
	require.NoError(t, err)
	assert.Equal(t, "brick-1", string(ext))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"bricks.dat", "volume.json"}, names)

	_, err = store.Open(ctx, "missing")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	for _, n := range names {
		require.NoError(t, store.Delete(ctx, n))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
