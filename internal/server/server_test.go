package server

import (
	"net/http/httptest"
	"testing"

	"github.com/piwi3910/nebulaio/internal/config"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.Load(config.Options{DataDir: t.TempDir()})
	require.NoError(t, err)

	srv, err := New(cfg)
	require.NoError(t, err)

	return srv
}

func TestNewBuildsHealthyServer(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
}

func TestNewAppliesBucketPreconfig(t *testing.T) {
	cfg, err := config.Load(config.Options{
		DataDir:             t.TempDir(),
		ConfigureBucketArgs: []string{"preconfigured"},
	})
	require.NoError(t, err)

	srv, err := New(cfg)
	require.NoError(t, err)

	_, err = srv.bucketService.GetBucket(t.Context(), "preconfigured")
	require.NoError(t, err)
}

func TestListBucketsThroughRouter(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/", nil)
	// httptest's default Host (example.com) would be taken as a
	// virtual-host bucket name; localhost is always path-style.
	req.Host = "localhost:9000"
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "ListAllMyBucketsResult")
}
