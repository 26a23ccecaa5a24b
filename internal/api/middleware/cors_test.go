package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/storage/fs"
	"github.com/stretchr/testify/require"
)

func newTestCORSMiddleware(t *testing.T) (*S3CORSMiddleware, *bucket.Service) {
	t.Helper()

	store := metadata.NewMemStore()
	storage, err := fs.New(fs.Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	svc := bucket.NewService(store, storage)
	return NewS3CORSMiddleware(svc), svc
}

func newCORSRouter(m *S3CORSMiddleware) *chi.Mux {
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Options("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestS3CORSMiddlewarePassesThroughWithoutOrigin(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	_, err := svc.CreateBucket(context.Background(), "assets")
	require.NoError(t, err)

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/assets/logo.png", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestS3CORSMiddlewarePreflightAllowed(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	ctx := context.Background()
	_, err := svc.CreateBucket(ctx, "assets")
	require.NoError(t, err)
	require.NoError(t, svc.SetCORS(ctx, "assets", []metadata.CORSRule{
		{
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET"},
			AllowedHeaders: []string{"*"},
			MaxAgeSeconds:  600,
		},
	}))

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodOptions, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestS3CORSMiddlewarePreflightRejectedForUnlistedOrigin(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	ctx := context.Background()
	_, err := svc.CreateBucket(ctx, "assets")
	require.NoError(t, err)
	require.NoError(t, svc.SetCORS(ctx, "assets", []metadata.CORSRule{
		{
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET"},
		},
	}))

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodOptions, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestS3CORSMiddlewareActualRequestSetsExposeHeaders(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	ctx := context.Background()
	_, err := svc.CreateBucket(ctx, "assets")
	require.NoError(t, err)
	require.NoError(t, svc.SetCORS(ctx, "assets", []metadata.CORSRule{
		{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET"},
			ExposeHeaders:  []string{"X-Custom-Header"},
		},
	}))

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Custom-Header", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestS3CORSMiddlewarePreflightEchoesRequestedHeaders(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	ctx := context.Background()
	_, err := svc.CreateBucket(ctx, "assets")
	require.NoError(t, err)
	require.NoError(t, svc.SetCORS(ctx, "assets", []metadata.CORSRule{
		{
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"PUT"},
			AllowedHeaders: []string{"*"},
		},
	}))

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodOptions, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	req.Header.Set("Access-Control-Request-Headers", "X-Amz-Meta-Foo, Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "x-amz-meta-foo, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestS3CORSMiddlewarePreflightRejectedWhenNoCORSConfigured(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	_, err := svc.CreateBucket(context.Background(), "assets")
	require.NoError(t, err)

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodOptions, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestS3CORSMiddlewareActualRequestProceedsWithoutHeadersWhenNoCORSConfigured(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	_, err := svc.CreateBucket(context.Background(), "assets")
	require.NoError(t, err)

	r := newCORSRouter(m)
	req := httptest.NewRequest(http.MethodGet, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestS3CORSMiddlewareExposesRangeHeadersOnPartialContent(t *testing.T) {
	m, svc := newTestCORSMiddleware(t)
	ctx := context.Background()
	_, err := svc.CreateBucket(ctx, "assets")
	require.NoError(t, err)
	require.NoError(t, svc.SetCORS(ctx, "assets", []metadata.CORSRule{
		{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET"},
		},
	}))

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/{bucket}/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-9/100")
		w.WriteHeader(http.StatusPartialContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/assets/logo.png", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Range", "bytes=0-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusPartialContent, w.Code)
	require.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Accept-Ranges")
	require.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}
