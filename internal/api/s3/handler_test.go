package s3

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/piwi3910/nebulaio/internal/auth"
	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/internal/storage/fs"
	"github.com/piwi3910/nebulaio/pkg/s3types"
	"github.com/stretchr/testify/require"
)

// newTestHandler wires a Handler against a real in-memory metadata store
// and a real filesystem storage backend rooted in a temp directory —
// there is no mock of either; both are cheap enough to run for real.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	storage, err := fs.New(fs.Config{DataDir: t.TempDir()})
	require.NoError(t, err)

	store := metadata.NewMemStore()

	authService := auth.NewService(auth.Config{})
	bucketService := bucket.NewService(store, storage)
	objectService := object.NewService(store, storage, bucketService)

	return NewHandler(authService, bucketService, objectService)
}

func newTestRouter(t *testing.T) (*Handler, *chi.Mux) {
	h := newTestHandler(t)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func doRequest(r *chi.Mux, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reqBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndListBuckets(t *testing.T) {
	_, r := newTestRouter(t)

	w := doRequest(r, http.MethodPut, "/my-bucket", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result s3types.ListAllMyBucketsResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Buckets.Bucket, 1)
	require.Equal(t, "my-bucket", result.Buckets.Bucket[0].Name)
}

func TestCreateBucketAlreadyExists(t *testing.T) {
	_, r := newTestRouter(t)

	w := doRequest(r, http.MethodPut, "/dup-bucket", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPut, "/dup-bucket", nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var errResp s3types.ErrorResponse
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &errResp))
	require.Equal(t, "BucketAlreadyExists", errResp.Code)
}

func TestHeadAndDeleteBucket(t *testing.T) {
	_, r := newTestRouter(t)

	doRequest(r, http.MethodPut, "/head-bucket", nil, nil)

	w := doRequest(r, http.MethodHead, "/head-bucket", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodDelete, "/head-bucket", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(r, http.MethodHead, "/head-bucket", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBucketNotEmpty(t *testing.T) {
	_, r := newTestRouter(t)

	doRequest(r, http.MethodPut, "/full-bucket", nil, nil)
	doRequest(r, http.MethodPut, "/full-bucket/object.txt", []byte("hi"), nil)

	w := doRequest(r, http.MethodDelete, "/full-bucket", nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPutGetHeadDeleteObject(t *testing.T) {
	_, r := newTestRouter(t)

	doRequest(r, http.MethodPut, "/obj-bucket", nil, nil)

	content := []byte("hello world")
	w := doRequest(r, http.MethodPut, "/obj-bucket/greeting.txt", content, map[string]string{
		"Content-Type":     "text/plain",
		"x-amz-meta-owner": "alice",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("ETag"))

	w = doRequest(r, http.MethodGet, "/obj-bucket/greeting.txt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, content, w.Body.Bytes())
	require.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	require.Equal(t, "alice", w.Header().Get("x-amz-meta-owner"))

	w = doRequest(r, http.MethodHead, "/obj-bucket/greeting.txt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "11", w.Header().Get("Content-Length"))

	w = doRequest(r, http.MethodDelete, "/obj-bucket/greeting.txt", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(r, http.MethodGet, "/obj-bucket/greeting.txt", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMissingObjectIsStillNoContent(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/ghost-bucket", nil, nil)

	w := doRequest(r, http.MethodDelete, "/ghost-bucket/never-existed.txt", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCopyObject(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/copy-src", nil, nil)
	doRequest(r, http.MethodPut, "/copy-dst", nil, nil)
	doRequest(r, http.MethodPut, "/copy-src/original.txt", []byte("payload"), map[string]string{"Content-Type": "text/plain"})

	w := doRequest(r, http.MethodPut, "/copy-dst/copied.txt", nil, map[string]string{
		"x-amz-copy-source": "/copy-src/original.txt",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/copy-dst/copied.txt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "payload", w.Body.String())
}

func TestListObjectsV1AndV2(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/list-bucket", nil, nil)
	doRequest(r, http.MethodPut, "/list-bucket/a.txt", []byte("a"), nil)
	doRequest(r, http.MethodPut, "/list-bucket/b.txt", []byte("b"), nil)

	w := doRequest(r, http.MethodGet, "/list-bucket", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var v1 s3types.ListBucketResultV1
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &v1))
	require.Len(t, v1.Contents, 2)

	w = doRequest(r, http.MethodGet, "/list-bucket?list-type=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var v2 s3types.ListBucketResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &v2))
	require.Len(t, v2.Contents, 2)
}

func TestMultipartUploadLifecycle(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/mp-bucket", nil, nil)

	w := doRequest(r, http.MethodPost, "/mp-bucket/big.bin?uploads", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var initiate s3types.InitiateMultipartUploadResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &initiate))
	require.NotEmpty(t, initiate.UploadId)

	part1 := bytes.Repeat([]byte("x"), object.MinPartSize)
	w = doRequest(r, http.MethodPut, "/mp-bucket/big.bin?partNumber=1&uploadId="+initiate.UploadId, part1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag1 := w.Header().Get("ETag")
	require.NotEmpty(t, etag1)

	part2 := []byte("final part")
	w = doRequest(r, http.MethodPut, "/mp-bucket/big.bin?partNumber=2&uploadId="+initiate.UploadId, part2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag2 := w.Header().Get("ETag")

	completeBody, err := xml.Marshal(s3types.CompleteMultipartUploadRequest{
		Part: []struct {
			PartNumber int    `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
		}{
			{PartNumber: 1, ETag: etag1},
			{PartNumber: 2, ETag: etag2},
		},
	})
	require.NoError(t, err)

	w = doRequest(r, http.MethodPost, "/mp-bucket/big.bin?uploadId="+initiate.UploadId, completeBody, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodHead, "/mp-bucket/big.bin", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAbortMultipartUpload(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/abort-bucket", nil, nil)

	w := doRequest(r, http.MethodPost, "/abort-bucket/part.bin?uploads", nil, nil)
	var initiate s3types.InitiateMultipartUploadResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &initiate))

	w = doRequest(r, http.MethodDelete, "/abort-bucket/part.bin?uploadId="+initiate.UploadId, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBulkDeleteObjects(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/bulk-bucket", nil, nil)
	doRequest(r, http.MethodPut, "/bulk-bucket/one.txt", []byte("1"), nil)
	doRequest(r, http.MethodPut, "/bulk-bucket/two.txt", []byte("2"), nil)

	deleteReq := s3types.DeleteRequest{
		Object: []struct {
			Key       string `xml:"Key"`
			VersionId string `xml:"VersionId,omitempty"`
		}{
			{Key: "one.txt"},
			{Key: "two.txt"},
			{Key: "missing.txt"},
		},
	}
	body, err := xml.Marshal(deleteReq)
	require.NoError(t, err)

	w := doRequest(r, http.MethodPost, "/bulk-bucket?delete", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result s3types.DeleteResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Deleted, 3)
}

func TestObjectTagging(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/tag-bucket", nil, nil)
	doRequest(r, http.MethodPut, "/tag-bucket/file.txt", []byte("data"), nil)

	tagging := s3types.Tagging{}
	tagging.TagSet.Tag = []s3types.Tag{{Key: "env", Value: "prod"}}
	body, err := xml.Marshal(tagging)
	require.NoError(t, err)

	w := doRequest(r, http.MethodPut, "/tag-bucket/file.txt?tagging", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/tag-bucket/file.txt?tagging", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result s3types.Tagging
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.TagSet.Tag, 1)
	require.Equal(t, "env", result.TagSet.Tag[0].Key)

	w = doRequest(r, http.MethodDelete, "/tag-bucket/file.txt?tagging", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBucketCORS(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/cors-bucket", nil, nil)

	cors := s3types.CORSConfiguration{
		CORSRule: []s3types.CORSRule{
			{
				AllowedOrigin: []string{"https://example.com"},
				AllowedMethod: []string{"GET", "PUT"},
			},
		},
	}
	body, err := xml.Marshal(cors)
	require.NoError(t, err)

	w := doRequest(r, http.MethodPut, "/cors-bucket?cors", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/cors-bucket?cors", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result s3types.CORSConfiguration
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.CORSRule, 1)

	w = doRequest(r, http.MethodDelete, "/cors-bucket?cors", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(r, http.MethodGet, "/cors-bucket?cors", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBucketWebsite(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/site-bucket", nil, nil)

	website := s3types.WebsiteConfiguration{
		IndexDocument: &s3types.IndexDocument{Suffix: "index.html"},
		ErrorDocument: &s3types.ErrorDocument{Key: "error.html"},
	}
	body, err := xml.Marshal(website)
	require.NoError(t, err)

	w := doRequest(r, http.MethodPut, "/site-bucket?website", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/site-bucket?website", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result s3types.WebsiteConfiguration
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "index.html", result.IndexDocument.Suffix)

	w = doRequest(r, http.MethodDelete, "/site-bucket?website", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBucketLifecycleRoundTripsOpaqueXML(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/lifecycle-bucket", nil, nil)

	rawXML := []byte(`<LifecycleConfiguration><Rule><ID>expire-logs</ID><Status>Enabled</Status><Prefix>logs/</Prefix></Rule></LifecycleConfiguration>`)

	w := doRequest(r, http.MethodPut, "/lifecycle-bucket?lifecycle", rawXML, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/lifecycle-bucket?lifecycle", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "expire-logs")
}

func TestGetObjectNotFound(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/empty-bucket", nil, nil)

	w := doRequest(r, http.MethodGet, "/empty-bucket/missing.txt", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var errResp s3types.ErrorResponse
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &errResp))
	require.Equal(t, "NoSuchKey", errResp.Code)
}
