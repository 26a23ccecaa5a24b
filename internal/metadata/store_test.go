package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_BucketLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.GetBucket(ctx, "missing")
	assert.ErrorIs(t, err, ErrBucketNotFound)

	require.NoError(t, store.CreateBucket(ctx, &Bucket{Name: "b1", CreatedAt: time.Now()}))
	got, err := store.GetBucket(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", got.Name)

	buckets, err := store.ListBuckets(ctx)
	require.NoError(t, err)
	assert.Len(t, buckets, 1)

	require.NoError(t, store.DeleteBucket(ctx, "b1"))
	_, err = store.GetBucket(ctx, "b1")
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestMemStore_ObjectListingWithDelimiter(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.CreateBucket(ctx, &Bucket{Name: "b1"}))

	keys := []string{"akey1", "akey2", "akey3", "key/key1", "key1", "key2", "key3"}
	for _, k := range keys {
		require.NoError(t, store.PutObjectMeta(ctx, &ObjectMeta{Bucket: "b1", Key: k}))
	}

	listing, err := store.ListObjects(ctx, "b1", "", "/", "", 1000)
	require.NoError(t, err)
	assert.Len(t, listing.Objects, 6)
	assert.Equal(t, []string{"key/"}, listing.CommonPrefixes)
}

func TestMemStore_MultipartUploadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.CreateBucket(ctx, &Bucket{Name: "b1"}))

	upload := &MultipartUpload{Bucket: "b1", Key: "k", UploadID: "u1", CreatedAt: time.Now()}
	require.NoError(t, store.CreateMultipartUpload(ctx, upload))

	require.NoError(t, store.AddUploadPart(ctx, "b1", "k", "u1", &UploadPart{PartNumber: 1, ETag: "etag1"}))
	require.NoError(t, store.AddUploadPart(ctx, "b1", "k", "u1", &UploadPart{PartNumber: 2, ETag: "etag2"}))

	got, err := store.GetMultipartUpload(ctx, "b1", "k", "u1")
	require.NoError(t, err)
	assert.Len(t, got.Parts, 2)

	require.NoError(t, store.CompleteMultipartUpload(ctx, "b1", "k", "u1"))
	_, err = store.GetMultipartUpload(ctx, "b1", "k", "u1")
	assert.ErrorIs(t, err, ErrUploadNotFound)
}
