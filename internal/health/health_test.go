package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/storage/backend"
	"github.com/piwi3910/nebulaio/internal/storage/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// erroringStorage wraps a real fs.Backend and fails GetStorageInfo on
// demand, the one behavior not worth standing up a full disk-full
// scenario for.
type erroringStorage struct {
	*fs.Backend
	failStorageInfo bool
}

func (e *erroringStorage) GetStorageInfo(ctx context.Context) (*backend.StorageInfo, error) {
	if e.failStorageInfo {
		return nil, context.DeadlineExceeded
	}
	return e.Backend.GetStorageInfo(ctx)
}

func newTestChecker(t *testing.T) (*Checker, metadata.Store, *fs.Backend) {
	t.Helper()
	storage, err := fs.New(fs.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	store := metadata.NewMemStore()
	return NewChecker(store, storage), store, storage
}

func TestNewChecker(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	require.NotNil(t, checker)
	assert.Equal(t, 5*time.Second, checker.cacheTTL)
}

func TestCheckHealthy(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	status := checker.Check(context.Background())

	require.NotNil(t, status)
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Contains(t, status.Checks, "storage")
	assert.Contains(t, status.Checks, "metadata")
	assert.Equal(t, StatusHealthy, status.Checks["storage"].Status)
	assert.Equal(t, StatusHealthy, status.Checks["metadata"].Status)
}

func TestCheckUnhealthyWithNilDependencies(t *testing.T) {
	checker := NewChecker(nil, nil)
	status := checker.Check(context.Background())

	require.NotNil(t, status)
	assert.Equal(t, StatusUnhealthy, status.Status)
}

func TestCheckStorage(t *testing.T) {
	t.Run("nil storage", func(t *testing.T) {
		checker := &Checker{}
		check := checker.CheckStorage(context.Background())
		assert.Equal(t, StatusUnhealthy, check.Status)
	})

	t.Run("healthy storage", func(t *testing.T) {
		checker, _, _ := newTestChecker(t)
		check := checker.CheckStorage(context.Background())
		assert.Equal(t, StatusHealthy, check.Status)
	})

	t.Run("storage error", func(t *testing.T) {
		storage, err := fs.New(fs.Config{DataDir: t.TempDir()})
		require.NoError(t, err)
		checker := &Checker{storage: &erroringStorage{Backend: storage, failStorageInfo: true}}
		check := checker.CheckStorage(context.Background())
		assert.Equal(t, StatusUnhealthy, check.Status)
	})
}

func TestCheckMetadata(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		checker := &Checker{}
		check := checker.CheckMetadata(context.Background())
		assert.Equal(t, StatusUnhealthy, check.Status)
	})

	t.Run("healthy store", func(t *testing.T) {
		checker, _, _ := newTestChecker(t)
		check := checker.CheckMetadata(context.Background())
		assert.Equal(t, StatusHealthy, check.Status)
	})
}

func TestIsReady(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		checker := &Checker{}
		assert.False(t, checker.IsReady(context.Background()))
	})

	t.Run("fully wired", func(t *testing.T) {
		checker, _, _ := newTestChecker(t)
		assert.True(t, checker.IsReady(context.Background()))
	})
}

func TestIsLive(t *testing.T) {
	checker := &Checker{}
	assert.True(t, checker.IsLive(context.Background()))
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]Check
		expected Status
	}{
		{
			name: "all healthy",
			checks: map[string]Check{
				"storage":  {Status: StatusHealthy},
				"metadata": {Status: StatusHealthy},
			},
			expected: StatusHealthy,
		},
		{
			name: "one degraded",
			checks: map[string]Check{
				"storage":  {Status: StatusDegraded},
				"metadata": {Status: StatusHealthy},
			},
			expected: StatusDegraded,
		},
		{
			name: "one unhealthy",
			checks: map[string]Check{
				"storage":  {Status: StatusUnhealthy},
				"metadata": {Status: StatusHealthy},
			},
			expected: StatusUnhealthy,
		},
		{
			name: "mixed",
			checks: map[string]Check{
				"storage":  {Status: StatusUnhealthy},
				"metadata": {Status: StatusDegraded},
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &Checker{}
			result := checker.determineOverallStatus(tt.checks)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCaching(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	checker.cacheTTL = 100 * time.Millisecond
	ctx := context.Background()

	status1 := checker.Check(ctx)
	timestamp1 := status1.Timestamp

	status2 := checker.Check(ctx)
	assert.Equal(t, timestamp1, status2.Timestamp)

	time.Sleep(150 * time.Millisecond)

	status3 := checker.Check(ctx)
	assert.NotEqual(t, timestamp1, status3.Timestamp)
}

func TestNewHandler(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	handler := NewHandler(checker)
	require.NotNil(t, handler)
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		checker, _, _ := newTestChecker(t)
		handler := NewHandler(checker)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler.HealthHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response, "status")
	})

	t.Run("unhealthy", func(t *testing.T) {
		checker := NewChecker(nil, nil)
		handler := NewHandler(checker)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		handler.HealthHandler(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestLivenessHandler(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	handler := NewHandler(checker)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.LivenessHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestReadinessHandler(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		checker, _, _ := newTestChecker(t)
		handler := NewHandler(checker)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		handler.ReadinessHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		checker := NewChecker(nil, nil)
		handler := NewHandler(checker)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		handler.ReadinessHandler(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestDetailedHandler(t *testing.T) {
	checker, _, _ := newTestChecker(t)
	handler := NewHandler(checker)

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	w := httptest.NewRecorder()

	handler.DetailedHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Contains(t, status.Checks, "storage")
	assert.Contains(t, status.Checks, "metadata")
}
