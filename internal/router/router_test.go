package router

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePathStyle(t *testing.T) {
	r := httptest.NewRequest("GET", "/my-bucket/path/to/key.txt", nil)
	r.Host = "localhost:9000"

	target := Resolve(r, Config{})

	assert.Equal(t, ServiceS3, target.Service)
	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "path/to/key.txt", target.Key)
	assert.False(t, target.VHost)
	assert.Equal(t, "/my-bucket/path/to/key.txt", r.URL.Path)
}

func TestResolveVirtualHostedStyle(t *testing.T) {
	r := httptest.NewRequest("GET", "/key.txt", nil)
	r.Host = "my-bucket.s3.amazonaws.com"

	target := Resolve(r, Config{})

	assert.Equal(t, ServiceS3, target.Service)
	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "key.txt", target.Key)
	assert.True(t, target.VHost)
	assert.Equal(t, "/my-bucket/key.txt", r.URL.Path)
}

func TestResolveWebsiteHost(t *testing.T) {
	r := httptest.NewRequest("GET", "/index.html", nil)
	r.Host = "my-bucket.s3-website-us-east-1.amazonaws.com"

	target := Resolve(r, Config{})

	assert.Equal(t, ServiceS3Website, target.Service)
	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "index.html", target.Key)
}

func TestResolveCustomServiceEndpoint(t *testing.T) {
	r := httptest.NewRequest("GET", "/key.txt", nil)
	r.Host = "my-bucket.s3.example.test"

	target := Resolve(r, Config{ServiceEndpoint: "example.test"})

	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "key.txt", target.Key)
}

func TestResolveBareHostnameFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/key.txt", nil)
	r.Host = "assets.example.com"

	target := Resolve(r, Config{})

	assert.Equal(t, "assets.example.com", target.Bucket)
	assert.Equal(t, "key.txt", target.Key)
	assert.True(t, target.VHost)
}

func TestResolveBareHostnameFallbackDisabled(t *testing.T) {
	r := httptest.NewRequest("GET", "/my-bucket/key.txt", nil)
	r.Host = "assets.example.com"

	target := Resolve(r, Config{DisableVHostBuckets: true})

	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "key.txt", target.Key)
	assert.False(t, target.VHost)
}

func TestResolveLocalhostNeverTreatedAsBucket(t *testing.T) {
	r := httptest.NewRequest("GET", "/my-bucket/key.txt", nil)
	r.Host = "localhost:9000"

	target := Resolve(r, Config{})

	assert.Equal(t, "my-bucket", target.Bucket)
	assert.Equal(t, "key.txt", target.Key)
	assert.False(t, target.VHost)
}

func TestIsSDKRequestDetectsAmzHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/my-bucket/key.txt", nil)
	r.Header.Set("X-Amz-Content-Sha256", "UNSIGNED-PAYLOAD")

	assert.True(t, IsSDKRequest(r))
}

func TestIsSDKRequestDetectsPresignedQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/my-bucket/key.txt?X-Amz-Algorithm=AWS4-HMAC-SHA256", nil)

	assert.True(t, IsSDKRequest(r))
}

func TestIsSDKRequestFalseForPlainBrowserRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/index.html", nil)

	assert.False(t, IsSDKRequest(r))
}
