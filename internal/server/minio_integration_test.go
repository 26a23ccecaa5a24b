package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/piwi3910/nebulaio/internal/auth"
	"github.com/stretchr/testify/require"
)

// newMinioClient wires a real minio-go client against an in-process Server,
// the scenario the emulator exists to support: an application written
// against an S3 SDK, tested offline against this server instead of AWS.
func newMinioClient(t *testing.T) *minio.Client {
	t.Helper()

	srv := newTestServer(t)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	client, err := minio.New(ts.Listener.Addr().String(), &minio.Options{
		Creds:  credentials.NewStaticV4(auth.DefaultAccessKeyID, auth.DefaultSecretAccessKey, ""),
		Secure: false,
	})
	require.NoError(t, err)

	return client
}

func TestMinioClientBucketAndObjectRoundTrip(t *testing.T) {
	client := newMinioClient(t)
	ctx := t.Context()

	bucket := "minio-roundtrip"
	require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	require.True(t, exists)

	content := []byte("hello from a real s3 sdk client")
	_, err = client.PutObject(ctx, bucket, "greeting.txt", bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	require.NoError(t, err)

	obj, err := client.GetObject(ctx, bucket, "greeting.txt", minio.GetObjectOptions{})
	require.NoError(t, err)
	defer obj.Close()

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.Equal(t, content, got)

	require.NoError(t, client.RemoveObject(ctx, bucket, "greeting.txt", minio.RemoveObjectOptions{}))
	require.NoError(t, client.RemoveBucket(ctx, bucket))
}

func TestMinioClientMultipartUpload(t *testing.T) {
	client := newMinioClient(t)
	ctx := t.Context()

	bucket := "minio-multipart"
	require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))

	// minio-go switches to a multipart PutObject once the payload exceeds
	// its part-size threshold; a 6 MiB payload forces that path with a
	// single extra part.
	payload := bytes.Repeat([]byte("x"), 6*1024*1024)
	_, err := client.PutObject(ctx, bucket, "big.bin", bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/octet-stream", PartSize: 5 * 1024 * 1024})
	require.NoError(t, err)

	info, err := client.StatObject(ctx, bucket, "big.bin", minio.StatObjectOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), info.Size)
}
