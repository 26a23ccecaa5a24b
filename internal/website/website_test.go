package website

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/internal/storage/fs"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *bucket.Service, *object.Service) {
	t.Helper()

	storage, err := fs.New(fs.Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	store := metadata.NewMemStore()
	bucketService := bucket.NewService(store, storage)
	objectService := object.NewService(store, storage, bucketService)

	return NewHandler(bucketService, objectService), bucketService, objectService
}

func TestServeBucketServesIndexDocument(t *testing.T) {
	h, bucketService, objectService := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "site")
	require.NoError(t, err)
	require.NoError(t, bucketService.SetWebsite(ctx, "site", &metadata.WebsiteConfig{IndexSuffix: "index.html", ErrorKey: "error.html"}))
	_, err = objectService.PutObject(ctx, "site", "index.html", strings.NewReader("hello"), 5, "text/html", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "site", "", false)

	require.Equal(t, 200, w.Code)
	require.Equal(t, "hello", w.Body.String())
}

func TestServeBucketFallsBackToErrorDocument(t *testing.T) {
	h, bucketService, objectService := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "site")
	require.NoError(t, err)
	require.NoError(t, bucketService.SetWebsite(ctx, "site", &metadata.WebsiteConfig{IndexSuffix: "index.html", ErrorKey: "error.html"}))
	_, err = objectService.PutObject(ctx, "site", "error.html", strings.NewReader("not found"), 9, "text/html", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/missing.html", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "site", "missing.html", false)

	require.Equal(t, 404, w.Code)
	require.Equal(t, "not found", w.Body.String())
}

func TestServeBucketAppliesRoutingRuleRedirect(t *testing.T) {
	h, bucketService, _ := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "site")
	require.NoError(t, err)
	cfg := &metadata.WebsiteConfig{IndexSuffix: "index.html"}
	cfg.RoutingRules = []metadata.WebsiteRoutingRule{{}}
	cfg.RoutingRules[0].Condition.KeyPrefixEquals = "old/"
	newKey := "new/"
	cfg.RoutingRules[0].Redirect.ReplaceKeyPrefixWith = &newKey
	cfg.RoutingRules[0].Redirect.HostName = "example.com"
	require.NoError(t, bucketService.SetWebsite(ctx, "site", cfg))

	req := httptest.NewRequest("GET", "/old/page.html", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "site", "old/page.html", false)

	require.Equal(t, 301, w.Code)
	require.Equal(t, "http://example.com/new/page.html", w.Header().Get("Location"))
}

func TestServeBucketRedirectsToTrailingSlashOnIndexMiss(t *testing.T) {
	h, bucketService, objectService := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "website0")
	require.NoError(t, err)
	require.NoError(t, bucketService.SetWebsite(ctx, "website0", &metadata.WebsiteConfig{IndexSuffix: "index.html"}))
	_, err = objectService.PutObject(ctx, "website0", "page/index.html", strings.NewReader("hi"), 2, "text/html", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/page", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "website0", "page", false)

	require.Equal(t, 302, w.Code)
	require.Equal(t, "/website0/page/", w.Header().Get("Location"))
}

func TestServeBucketRedirectsToTrailingSlashVHost(t *testing.T) {
	h, bucketService, objectService := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "website0")
	require.NoError(t, err)
	require.NoError(t, bucketService.SetWebsite(ctx, "website0", &metadata.WebsiteConfig{IndexSuffix: "index.html"}))
	_, err = objectService.PutObject(ctx, "website0", "page/index.html", strings.NewReader("hi"), 2, "text/html", nil)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/page", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "website0", "page", true)

	require.Equal(t, 302, w.Code)
	require.Equal(t, "/page/", w.Header().Get("Location"))
}

func TestServeBucketNoWebsiteConfigRendersHTML(t *testing.T) {
	h, bucketService, _ := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "plainbucket")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/key", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "plainbucket", "key", false)

	require.Equal(t, 404, w.Code)
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "Code: NoSuchWebsiteConfiguration")
	require.Contains(t, w.Body.String(), "Key: key")
}

func TestServeBucketRoutingRuleRedirectIncludesBucketForPathStyle(t *testing.T) {
	h, bucketService, _ := newTestHandler(t)
	ctx := t.Context()

	_, err := bucketService.CreateBucket(ctx, "website2")
	require.NoError(t, err)
	cfg := &metadata.WebsiteConfig{IndexSuffix: "index.html"}
	cfg.RoutingRules = []metadata.WebsiteRoutingRule{{}}
	cfg.RoutingRules[0].Condition.KeyPrefixEquals = "test/"
	newKey := "replacement/"
	cfg.RoutingRules[0].Redirect.ReplaceKeyPrefixWith = &newKey
	require.NoError(t, bucketService.SetWebsite(ctx, "website2", cfg))

	req := httptest.NewRequest("GET", "/test/key/", nil)
	w := httptest.NewRecorder()
	h.ServeBucket(w, req, "website2", "test/key/", false)

	require.Equal(t, 301, w.Code)
	require.Equal(t, "http://"+req.Host+"/website2/replacement/key/", w.Header().Get("Location"))
}
