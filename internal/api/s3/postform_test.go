package s3

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildPostForm(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}

	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(fileContent))
	require.NoError(t, err)

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestPostObjectStoresKeyFromForm(t *testing.T) {
	h, r := newTestRouter(t)
	require.NoError(t, ensureBucket(h, "uploads"))

	body, contentType := buildPostForm(t, map[string]string{"key": "hello.txt"}, "hello.txt", "hello world")

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)

	reader, meta, err := h.object.GetObject(req.Context(), "uploads", "hello.txt")
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, int64(11), meta.Size)
}

func TestPostObjectSubstitutesFilenamePlaceholder(t *testing.T) {
	h, r := newTestRouter(t)
	require.NoError(t, ensureBucket(h, "uploads"))

	body, contentType := buildPostForm(t, map[string]string{"key": "incoming/${filename}"}, "report.csv", "a,b,c")

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)

	_, _, err := h.object.GetObject(req.Context(), "uploads", "incoming/report.csv")
	require.NoError(t, err)
}

func TestPostObjectSuccessActionStatusCreated(t *testing.T) {
	h, r := newTestRouter(t)
	require.NoError(t, ensureBucket(h, "uploads"))

	body, contentType := buildPostForm(t, map[string]string{
		"key":                   "created.txt",
		"success_action_status": "201",
	}, "created.txt", "payload")

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "<PostResponse>")
}

func TestPostObjectSuccessActionRedirect(t *testing.T) {
	h, r := newTestRouter(t)
	require.NoError(t, ensureBucket(h, "uploads"))

	body, contentType := buildPostForm(t, map[string]string{
		"key":                     "redirected.txt",
		"success_action_redirect": "https://example.com/done",
	}, "redirected.txt", "payload")

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	require.Contains(t, location, "bucket=uploads")
	require.Contains(t, location, "key=redirected.txt")
}

func TestPostObjectRequiresKeyField(t *testing.T) {
	h, r := newTestRouter(t)
	require.NoError(t, ensureBucket(h, "uploads"))

	body, contentType := buildPostForm(t, nil, "noop.txt", "payload")

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func ensureBucket(h *Handler, name string) error {
	_, err := h.bucket.CreateBucket(context.Background(), name)
	return err
}
