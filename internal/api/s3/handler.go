// Package s3 implements the S3 REST API surface: bucket and object CRUD,
// multipart upload, copy, tagging, bulk delete, and bucket subresources
// (CORS, website, lifecycle, tagging). AWS Signature Version 4 verification
// happens one layer up, in internal/api/middleware; this package assumes a
// request has already cleared that gate (or anonymous access was allowed)
// by the time it reaches a handler.
package s3

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/piwi3910/nebulaio/internal/api/middleware"
	"github.com/piwi3910/nebulaio/internal/auth"
	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/internal/storage/backend"
	"github.com/piwi3910/nebulaio/pkg/s3errors"
	"github.com/piwi3910/nebulaio/pkg/s3types"
)

// anonymousOwner is the display owner used everywhere S3 responses expect
// an Owner block. The emulator has a single fixed account.
const anonymousOwner = "S3RVER"

// Handler handles S3 API requests.
type Handler struct {
	auth   *auth.Service
	bucket *bucket.Service
	object *object.Service
}

// NewHandler creates a new S3 API handler.
func NewHandler(authService *auth.Service, bucketService *bucket.Service, objectService *object.Service) *Handler {
	return &Handler{
		auth:   authService,
		bucket: bucketService,
		object: objectService,
	}
}

// RegisterRoutes registers S3 API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListBuckets)

	r.Route("/{bucket}", func(r chi.Router) {
		r.Put("/", h.handleBucketPut)
		r.Delete("/", h.handleBucketDelete)
		r.Head("/", h.HeadBucket)
		r.Get("/", h.handleBucketGet)
		r.Post("/", h.handleBucketPost)

		r.Route("/{key:.*}", func(r chi.Router) {
			r.Put("/", h.handleObjectPut)
			r.Get("/", h.handleObjectGet)
			r.Delete("/", h.handleObjectDelete)
			r.Head("/", h.HeadObject)
			r.Post("/", h.handleObjectPost)
		})
	})
}

// ListBuckets lists all buckets.
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	buckets, err := h.bucket.ListBuckets(ctx)
	if err != nil {
		writeError(w, err, "")
		return
	}

	response := s3types.ListAllMyBucketsResult{
		Owner: s3types.Owner{ID: anonymousOwner, DisplayName: anonymousOwner},
	}
	for _, b := range buckets {
		response.Buckets.Bucket = append(response.Buckets.Bucket, s3types.BucketInfo{
			Name:         b.Name,
			CreationDate: b.CreatedAt.Format(time.RFC3339),
		})
	}

	writeXML(w, http.StatusOK, response)
}

// handleBucketPut dispatches PUT requests on a bucket to either bucket
// creation or a subresource update, based on query parameters.
func (h *Handler) handleBucketPut(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch {
	case hasQuery(query, "cors"):
		h.PutBucketCORS(w, r)
	case hasQuery(query, "tagging"):
		h.PutBucketTagging(w, r)
	case hasQuery(query, "website"):
		h.PutBucketWebsite(w, r)
	case hasQuery(query, "lifecycle"):
		h.PutBucketLifecycle(w, r)
	case hasQuery(query, "acl"):
		h.PutBucketACL(w, r)
	default:
		h.CreateBucket(w, r)
	}
}

// handleBucketDelete dispatches DELETE requests on a bucket to either
// bucket removal or a subresource reset.
func (h *Handler) handleBucketDelete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch {
	case hasQuery(query, "cors"):
		h.DeleteBucketCORS(w, r)
	case hasQuery(query, "tagging"):
		h.DeleteBucketTagging(w, r)
	case hasQuery(query, "website"):
		h.DeleteBucketWebsite(w, r)
	case hasQuery(query, "lifecycle"):
		h.DeleteBucketLifecycle(w, r)
	default:
		h.DeleteBucket(w, r)
	}
}

// handleBucketGet dispatches GET requests on a bucket to a subresource read
// or to object listing.
func (h *Handler) handleBucketGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	switch {
	case hasQuery(query, "tagging"):
		h.GetBucketTagging(w, r)
	case hasQuery(query, "cors"):
		h.GetBucketCORS(w, r)
	case hasQuery(query, "lifecycle"):
		h.GetBucketLifecycle(w, r)
	case hasQuery(query, "website"):
		h.GetBucketWebsite(w, r)
	case hasQuery(query, "acl"):
		h.GetBucketACL(w, r)
	case hasQuery(query, "location"):
		h.GetBucketLocation(w, r)
	case hasQuery(query, "uploads"):
		h.ListMultipartUploads(w, r)
	case query.Get("list-type") == "2":
		h.ListObjectsV2(w, r)
	default:
		h.ListObjectsV1(w, r)
	}
}

// handleBucketPost dispatches POST requests on a bucket: bulk delete when
// the "delete" query parameter is present, otherwise a browser-form
// PostObject upload.
func (h *Handler) handleBucketPost(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if hasQuery(query, "delete") {
		h.DeleteObjects(w, r)
		return
	}
	h.PostObject(w, r)
}

// PostObject implements the browser-upload POST form handler: a
// multipart/form-data body whose fields (in order) configure the object
// created from the trailing "file" field. Fields after "file" are ignored,
// matching the form-field order browsers actually send.
func (h *Handler) PostObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/form-data") {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidRequest.WithMessage("bucket POST requires a multipart/form-data body"))
		return
	}
	boundary, ok := params["boundary"]
	if !ok {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidRequest.WithMessage("multipart/form-data body missing boundary"))
		return
	}

	var (
		key                   string
		keySeen               bool
		contentType           string
		successActionRedirect string
		successActionStatus   string
		fileReader            io.Reader
		fileName              string
	)

	reader := multipart.NewReader(r.Body, boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s3errors.WriteS3Error(w, s3errors.ErrInvalidRequest.WithMessage("malformed multipart/form-data body"))
			return
		}

		name := strings.ToLower(part.FormName())
		if name == "file" {
			fileReader = part
			fileName = part.FileName()
			break
		}

		value, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			s3errors.WriteS3Error(w, s3errors.ErrInvalidRequest.WithMessage("malformed multipart/form-data body"))
			return
		}

		switch name {
		case "key":
			key = string(value)
			keySeen = true
		case "content-type":
			contentType = string(value)
		case "success_action_redirect", "redirect":
			if successActionRedirect == "" {
				successActionRedirect = string(value)
			}
		case "success_action_status":
			successActionStatus = string(value)
		}
	}

	if !keySeen || key == "" {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidArgument.WithMessage("bucket POST form is missing required field \"key\""))
		return
	}
	if fileReader == nil {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidArgument.WithMessage("bucket POST form is missing required field \"file\""))
		return
	}

	key = strings.ReplaceAll(key, "${filename}", fileName)

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := &object.PutObjectOptions{EventType: events.EventObjectCreatedPost}
	meta, err := h.object.PutObjectWithOptions(ctx, bucketName, key, fileReader, -1, contentType, nil, opts)
	if err != nil {
		writeError(w, err, key)
		return
	}

	if successActionRedirect != "" {
		location, err := url.Parse(successActionRedirect)
		if err == nil {
			q := location.Query()
			q.Set("bucket", bucketName)
			q.Set("key", key)
			q.Set("etag", meta.ETag)
			location.RawQuery = q.Encode()
			w.Header().Set("Location", location.String())
			w.WriteHeader(http.StatusSeeOther)
			return
		}
	}

	switch successActionStatus {
	case "200":
		w.WriteHeader(http.StatusOK)
	case "201":
		location := "/" + bucketName + "/" + key
		w.Header().Set("Location", location)
		writeXML(w, http.StatusCreated, s3types.PostResponse{
			Location: location,
			Bucket:   bucketName,
			Key:      key,
			ETag:     meta.ETag,
		})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func hasQuery(query map[string][]string, key string) bool {
	_, ok := query[key]
	return ok
}

// CreateBucket creates a new bucket.
func (h *Handler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if _, err := h.bucket.CreateBucket(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.Header().Set("Location", "/"+bucketName)
	w.WriteHeader(http.StatusOK)
}

// DeleteBucket deletes a bucket.
func (h *Handler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.DeleteBucket(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HeadBucket checks if a bucket exists.
func (h *Handler) HeadBucket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.HeadBucket(ctx, bucketName); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetBucketLocation returns the bucket's region constraint. The emulator
// has a single fixed region, so every bucket reports the same value.
func (h *Handler) GetBucketLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.HeadBucket(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	writeXML(w, http.StatusOK, s3types.LocationConstraint{
		Namespace: "http://s3.amazonaws.com/doc/2006-03-01/",
	})
}

// GetBucketACL returns a stub ACL document: a single owner grant, since the
// emulator never enforces ACLs.
func (h *Handler) GetBucketACL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.HeadBucket(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	writeXML(w, http.StatusOK, stubACLPolicy())
}

// PutBucketACL accepts any ACL document without applying it, matching the
// emulator's stub-ACL non-goal.
func (h *Handler) PutBucketACL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.HeadBucket(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func stubACLPolicy() s3types.AccessControlPolicy {
	owner := s3types.Owner{ID: anonymousOwner, DisplayName: anonymousOwner}
	policy := s3types.AccessControlPolicy{
		Xsi:   "http://www.w3.org/2001/XMLSchema-instance",
		Owner: owner,
	}
	policy.AccessControlList.Grant = []s3types.Grant{
		{
			Grantee:    s3types.Grantee{Type: "CanonicalUser", ID: owner.ID, DisplayName: owner.DisplayName},
			Permission: "FULL_CONTROL",
		},
	}
	return policy
}

// ListObjectsV2 lists objects in a bucket using the continuation-token
// pagination style.
func (h *Handler) ListObjectsV2(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	query := r.URL.Query()

	prefix := query.Get("prefix")
	delimiter := query.Get("delimiter")
	continuationToken := query.Get("continuation-token")
	if continuationToken == "" {
		continuationToken = query.Get("start-after")
	}
	maxKeys := parseMaxKeys(query.Get("max-keys"))

	listing, err := h.object.ListObjects(ctx, bucketName, prefix, delimiter, continuationToken, maxKeys)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}

	response := s3types.ListBucketResult{
		Name:                  bucketName,
		Prefix:                prefix,
		Delimiter:             delimiter,
		MaxKeys:               maxKeys,
		IsTruncated:           listing.IsTruncated,
		ContinuationToken:     query.Get("continuation-token"),
		NextContinuationToken: listing.NextMarker,
		StartAfter:            query.Get("start-after"),
		KeyCount:              len(listing.Objects) + len(listing.CommonPrefixes),
	}
	response.Contents = objectInfoList(listing.Objects)
	response.CommonPrefixes = commonPrefixList(listing.CommonPrefixes)

	writeXML(w, http.StatusOK, response)
}

// ListObjectsV1 lists objects in a bucket using the legacy marker pagination
// style.
func (h *Handler) ListObjectsV1(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	query := r.URL.Query()

	prefix := query.Get("prefix")
	delimiter := query.Get("delimiter")
	marker := query.Get("marker")
	maxKeys := parseMaxKeys(query.Get("max-keys"))

	listing, err := h.object.ListObjects(ctx, bucketName, prefix, delimiter, marker, maxKeys)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}

	// NextMarker is only part of the v1 response when a delimiter was used;
	// a non-delimited truncated listing relies on the last returned key
	// instead (which the client already has).
	nextMarker := ""
	if delimiter != "" {
		nextMarker = listing.NextMarker
	}

	response := s3types.ListBucketResultV1{
		Name:        bucketName,
		Prefix:      prefix,
		Marker:      marker,
		NextMarker:  nextMarker,
		Delimiter:   delimiter,
		MaxKeys:     maxKeys,
		IsTruncated: listing.IsTruncated,
	}
	response.Contents = objectInfoList(listing.Objects)
	response.CommonPrefixes = commonPrefixList(listing.CommonPrefixes)

	writeXML(w, http.StatusOK, response)
}

// parseMaxKeys parses the max-keys query parameter, defaulting to 1000 when
// absent. An explicit max-keys=0 is honored as zero (an empty page) rather
// than treated as absent; any other out-of-range or malformed value also
// falls back to the default.
func parseMaxKeys(raw string) int {
	const defaultMaxKeys = 1000
	if raw == "" {
		return defaultMaxKeys
	}

	mk, err := strconv.Atoi(raw)
	if err != nil || mk < 0 || mk > defaultMaxKeys {
		return defaultMaxKeys
	}

	return mk
}

func objectInfoList(objects []*metadata.ObjectMeta) []s3types.ObjectInfo {
	result := make([]s3types.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		result = append(result, s3types.ObjectInfo{
			Key:          obj.Key,
			LastModified: obj.ModifiedAt.Format(time.RFC3339),
			ETag:         obj.ETag,
			Size:         obj.Size,
			StorageClass: obj.StorageClass,
			Owner:        &s3types.Owner{ID: anonymousOwner, DisplayName: anonymousOwner},
		})
	}
	return result
}

func commonPrefixList(prefixes []string) []s3types.CommonPrefix {
	result := make([]s3types.CommonPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		result = append(result, s3types.CommonPrefix{Prefix: p})
	}
	return result
}

// handleObjectPut dispatches PUT requests on an object key.
func (h *Handler) handleObjectPut(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("partNumber") != "" {
		h.UploadPart(w, r)
		return
	}
	if r.Header.Get("x-amz-copy-source") != "" {
		h.CopyObject(w, r)
		return
	}
	if hasQuery(query, "tagging") {
		h.PutObjectTagging(w, r)
		return
	}

	h.PutObject(w, r)
}

// handleObjectGet dispatches GET requests on an object key.
func (h *Handler) handleObjectGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("uploadId") != "" {
		h.ListParts(w, r)
		return
	}
	if hasQuery(query, "tagging") {
		h.GetObjectTagging(w, r)
		return
	}

	h.GetObject(w, r)
}

// handleObjectDelete dispatches DELETE requests on an object key.
func (h *Handler) handleObjectDelete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("uploadId") != "" {
		h.AbortMultipartUpload(w, r)
		return
	}
	if hasQuery(query, "tagging") {
		h.DeleteObjectTagging(w, r)
		return
	}

	h.DeleteObject(w, r)
}

// PutObject uploads an object.
func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := &object.PutObjectOptions{
		WebsiteRedirectLocation: r.Header.Get("x-amz-website-redirect-location"),
	}
	if tagHeader := r.Header.Get("x-amz-tagging"); tagHeader != "" {
		tags, err := object.ParseTaggingHeader(tagHeader)
		if err != nil {
			s3errors.WriteS3Error(w, s3errors.ErrInvalidTagError.WithMessage(err.Error()).WithResource(key))
			return
		}
		opts.Tags = tags
	}

	meta, err := h.object.PutObjectWithOptions(ctx, bucketName, key, r.Body, r.ContentLength, contentType, parseUserMetadata(r.Header), opts)
	if err != nil {
		writeError(w, err, key)
		return
	}

	w.Header().Set("ETag", meta.ETag)
	w.WriteHeader(http.StatusOK)
}

func parseUserMetadata(header http.Header) map[string]string {
	userMetadata := make(map[string]string)
	for name, values := range header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-amz-meta-") {
			userMetadata[strings.TrimPrefix(lower, "x-amz-meta-")] = values[0]
		}
	}
	return userMetadata
}

// GetObject retrieves an object, honoring a Range header when present:
// an in-bounds range is served as 206 Partial Content with Content-Range,
// a wholly out-of-bounds range is rejected with 416, and a range whose end
// runs past the object's size is clamped to the last byte.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	overrides, ovErr := parseResponseOverrides(r)
	if ovErr != nil {
		s3errors.WriteS3Error(w, ovErr.WithResource(key))
		return
	}

	reader, meta, err := h.object.GetObject(ctx, bucketName, key)
	if err != nil {
		writeError(w, err, key)
		return
	}
	defer reader.Close()

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		start, end, ok, unsatisfiable := parseRangeHeader(rangeHeader, meta.Size)
		if unsatisfiable {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", meta.Size))
			s3errors.WriteS3Error(w, s3errors.ErrInvalidRange.WithResource(key))

			return
		}

		if ok {
			writeObjectHeaders(w, meta)
			applyOverrideHeaders(w, overrides)
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, meta.Size))
			w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
			w.WriteHeader(http.StatusPartialContent)

			if start > 0 {
				if _, err := io.CopyN(io.Discard, reader, start); err != nil {
					return
				}
			}

			_, _ = io.CopyN(w, reader, end-start+1)

			return
		}
	}

	writeObjectHeaders(w, meta)
	applyOverrideHeaders(w, overrides)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// parseRangeHeader parses a single-range "bytes=..." Range header against
// objectSize. ok is false when there was no usable range (the whole object
// should be served); unsatisfiable is true when the range starts at or
// beyond the object's size, per RFC 7233 ("bytes=" with a start past EOF).
// A range whose end runs past the object's last byte is clamped rather than
// rejected. Multi-range requests only honor the first range.
func parseRangeHeader(rangeHeader string, objectSize int64) (start, end int64, ok, unsatisfiable bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(rangeHeader, prefix) || objectSize == 0 {
		return 0, 0, false, objectSize == 0 && strings.HasPrefix(rangeHeader, prefix)
	}

	spec, _, _ := strings.Cut(strings.TrimPrefix(rangeHeader, prefix), ",")

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false, false
	}

	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	switch {
	case startStr == "" && endStr == "":
		return 0, 0, false, false
	case startStr == "":
		// Suffix range: the last N bytes of the object.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false, false
		}

		if n > objectSize {
			n = objectSize
		}

		return objectSize - n, objectSize - 1, true, false
	default:
		s, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || s < 0 {
			return 0, 0, false, false
		}

		if s >= objectSize {
			return 0, 0, false, true
		}

		if endStr == "" {
			return s, objectSize - 1, true, false
		}

		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || e < s {
			return 0, 0, false, false
		}

		if e >= objectSize {
			e = objectSize - 1
		}

		return s, e, true, false
	}
}

// HeadObject retrieves object metadata.
func (h *Handler) HeadObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	overrides, ovErr := parseResponseOverrides(r)
	if ovErr != nil {
		s3errors.WriteS3Error(w, ovErr.WithResource(key))
		return
	}

	meta, err := h.object.HeadObject(ctx, bucketName, key)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeObjectHeaders(w, meta)
	applyOverrideHeaders(w, overrides)
	w.WriteHeader(http.StatusOK)
}

// responseOverrideHeaders maps a "response-*" query parameter to the
// response header it overrides, per the overridable-response-headers rules
// signed GET/HEAD requests may use.
var responseOverrideHeaders = map[string]string{
	"response-content-type":        "Content-Type",
	"response-content-language":    "Content-Language",
	"response-expires":             "Expires",
	"response-cache-control":       "Cache-Control",
	"response-content-disposition": "Content-Disposition",
	"response-content-encoding":    "Content-Encoding",
}

// parseResponseOverrides validates the response-* query parameters on a
// GET/HEAD request. Anonymous requests may not use any override; a
// parameter name outside responseOverrideHeaders is rejected outright.
func parseResponseOverrides(r *http.Request) (map[string]string, *s3errors.S3Error) {
	overrides := make(map[string]string)

	for name, values := range r.URL.Query() {
		if !strings.HasPrefix(name, "response-") {
			continue
		}

		header, known := responseOverrideHeaders[name]
		if !known {
			err := s3errors.ErrInvalidArgument.WithMessage(fmt.Sprintf("Invalid header override name: %q", name))
			return nil, &err
		}

		overrides[header] = values[0]
	}

	if len(overrides) == 0 {
		return nil, nil
	}

	if middleware.GetOwnerID(r.Context()) == "anonymous" {
		err := s3errors.ErrInvalidRequest.WithMessage("Cannot specify the response header override for an anonymous request")
		return nil, &err
	}

	return overrides, nil
}

// applyOverrideHeaders sets the response-* header overrides, replacing
// whatever writeObjectHeaders already derived from object metadata.
func applyOverrideHeaders(w http.ResponseWriter, overrides map[string]string) {
	for header, value := range overrides {
		w.Header().Set(header, value)
	}
}

func writeObjectHeaders(w http.ResponseWriter, meta *metadata.ObjectMeta) {
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.Header().Set("ETag", meta.ETag)
	w.Header().Set("Last-Modified", meta.ModifiedAt.Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	if meta.WebsiteRedirectLocation != "" {
		w.Header().Set("x-amz-website-redirect-location", meta.WebsiteRedirectLocation)
	}
	for k, v := range meta.Metadata {
		w.Header().Set("x-amz-meta-"+k, v)
	}
}

// DeleteObject deletes an object.
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	err := h.object.DeleteObject(ctx, bucketName, key)
	if err != nil && !errors.Is(err, metadata.ErrObjectNotFound) && !errors.Is(err, backend.ErrObjectNotFound) {
		writeError(w, err, key)
		return
	}

	// S3 returns 204 even if the object never existed.
	w.WriteHeader(http.StatusNoContent)
}

// DeleteObjects performs a batch delete (POST /{bucket}?delete).
func (h *Handler) DeleteObjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	var req s3types.DeleteRequest
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	objects := make([]object.DeleteObjectInput, 0, len(req.Object))
	for _, o := range req.Object {
		objects = append(objects, object.DeleteObjectInput{Key: o.Key})
	}

	result, err := h.object.DeleteObjects(ctx, bucketName, objects)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}

	response := s3types.DeleteResult{}
	if !req.Quiet {
		for _, d := range result.Deleted {
			response.Deleted = append(response.Deleted, struct {
				Key       string `xml:"Key"`
				VersionId string `xml:"VersionId,omitempty"`
			}{Key: d.Key})
		}
	}
	for _, e := range result.Errors {
		response.Error = append(response.Error, struct {
			Key     string `xml:"Key"`
			Code    string `xml:"Code"`
			Message string `xml:"Message"`
		}{Key: e.Key, Code: e.Code, Message: e.Message})
	}

	writeXML(w, http.StatusOK, response)
}

// CopyObject copies an object from one bucket/key to another.
func (h *Handler) CopyObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dstBucket := chi.URLParam(r, "bucket")
	dstKey := chi.URLParam(r, "key")

	copySource := strings.TrimPrefix(r.Header.Get("x-amz-copy-source"), "/")
	unescaped, err := unescapeCopySource(copySource)
	if err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidCopySource.WithMessage(err.Error()))
		return
	}
	parts := strings.SplitN(unescaped, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidCopySource.WithMessage("copy source must be of the form /bucket/key"))
		return
	}
	srcBucket, srcKey := parts[0], parts[1]

	opts := &object.CopyObjectOptions{}
	if directive := r.Header.Get("x-amz-tagging-directive"); strings.EqualFold(directive, "REPLACE") {
		opts.TaggingDirective = object.TaggingDirectiveReplace
		if tagHeader := r.Header.Get("x-amz-tagging"); tagHeader != "" {
			tags, err := object.ParseTaggingHeader(tagHeader)
			if err != nil {
				s3errors.WriteS3Error(w, s3errors.ErrInvalidTagError.WithMessage(err.Error()).WithResource(dstKey))
				return
			}
			opts.Tags = tags
		}
	} else {
		opts.TaggingDirective = object.TaggingDirectiveCopy
	}

	meta, err := h.object.CopyObjectWithOptions(ctx, srcBucket, srcKey, dstBucket, dstKey, opts)
	if err != nil {
		writeError(w, err, srcKey)
		return
	}

	response := s3types.CopyObjectResult{
		ETag:         meta.ETag,
		LastModified: meta.ModifiedAt.Format(time.RFC3339),
	}

	writeXML(w, http.StatusOK, response)
}

func unescapeCopySource(src string) (string, error) {
	if !strings.Contains(src, "%") {
		return src, nil
	}
	return url.QueryUnescape(src)
}

// handleObjectPost dispatches POST requests on an object key (multipart
// upload lifecycle operations).
func (h *Handler) handleObjectPost(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if hasQuery(query, "uploads") {
		h.CreateMultipartUpload(w, r)
		return
	}
	if query.Get("uploadId") != "" {
		h.CompleteMultipartUpload(w, r)
		return
	}

	s3errors.WriteS3Error(w, s3errors.ErrInvalidRequest.WithMessage("unsupported object POST request"))
}

// CreateMultipartUpload initiates a multipart upload.
func (h *Handler) CreateMultipartUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	upload, err := h.object.CreateMultipartUpload(ctx, bucketName, key, contentType, parseUserMetadata(r.Header))
	if err != nil {
		writeError(w, err, key)
		return
	}

	response := s3types.InitiateMultipartUploadResult{
		Bucket:   bucketName,
		Key:      key,
		UploadId: upload.UploadID,
	}

	writeXML(w, http.StatusOK, response)
}

// UploadPart uploads a part of a multipart upload, either from the
// request body or, when X-Amz-Copy-Source is set, by copying a byte
// range from an existing object (UploadPartCopy).
func (h *Handler) UploadPart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")
	query := r.URL.Query()

	uploadID := query.Get("uploadId")

	partNumber, err := strconv.Atoi(query.Get("partNumber"))
	if err != nil || partNumber < 1 || partNumber > object.MaxPartNumber {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidArgument.WithMessage("invalid part number"))
		return
	}

	if copySource := strings.TrimPrefix(r.Header.Get("x-amz-copy-source"), "/"); copySource != "" {
		h.uploadPartCopy(w, r, bucketName, key, uploadID, partNumber, copySource)
		return
	}

	part, err := h.object.UploadPart(ctx, bucketName, key, uploadID, partNumber, r.Body, r.ContentLength)
	if err != nil {
		writeError(w, err, key)
		return
	}

	w.Header().Set("ETag", part.ETag)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) uploadPartCopy(w http.ResponseWriter, r *http.Request, dstBucket, dstKey, uploadID string, partNumber int, copySource string) {
	ctx := r.Context()

	unescaped, err := unescapeCopySource(copySource)
	if err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidCopySource.WithMessage(err.Error()))
		return
	}
	parts := strings.SplitN(unescaped, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		s3errors.WriteS3Error(w, s3errors.ErrInvalidCopySource.WithMessage("copy source must be of the form /bucket/key"))
		return
	}
	srcBucket, srcKey := parts[0], parts[1]

	part, err := h.object.UploadPartCopy(ctx, dstBucket, dstKey, uploadID, partNumber, srcBucket, srcKey, r.Header.Get("x-amz-copy-source-range"))
	if err != nil {
		writeError(w, err, srcKey)
		return
	}

	writeXML(w, http.StatusOK, s3types.CopyPartResult{
		ETag:         part.ETag,
		LastModified: part.LastModified.Format(time.RFC3339),
	})
}

// CompleteMultipartUpload assembles the finished object from its parts.
func (h *Handler) CompleteMultipartUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")
	uploadID := r.URL.Query().Get("uploadId")

	var req s3types.CompleteMultipartUploadRequest
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	parts := make([]object.CompletePart, 0, len(req.Part))
	for _, p := range req.Part {
		parts = append(parts, object.CompletePart{ETag: p.ETag, PartNumber: p.PartNumber})
	}

	meta, err := h.object.CompleteMultipartUpload(ctx, bucketName, key, uploadID, parts)
	if err != nil {
		writeError(w, err, key)
		return
	}

	response := s3types.CompleteMultipartUploadResult{
		Location: fmt.Sprintf("/%s/%s", bucketName, key),
		Bucket:   bucketName,
		Key:      key,
		ETag:     meta.ETag,
	}

	writeXML(w, http.StatusOK, response)
}

// AbortMultipartUpload cancels an in-progress multipart upload.
func (h *Handler) AbortMultipartUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")
	uploadID := r.URL.Query().Get("uploadId")

	if err := h.object.AbortMultipartUpload(ctx, bucketName, key, uploadID); err != nil {
		writeError(w, err, key)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMultipartUploads lists in-progress multipart uploads.
func (h *Handler) ListMultipartUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	uploads, err := h.object.ListMultipartUploads(ctx, bucketName)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}

	response := s3types.ListMultipartUploadsResult{
		Bucket: bucketName,
	}
	for _, upload := range uploads {
		response.Upload = append(response.Upload, s3types.MultipartUploadInfo{
			Key:          upload.Key,
			UploadId:     upload.UploadID,
			Initiator:    &s3types.Owner{ID: anonymousOwner, DisplayName: anonymousOwner},
			Owner:        &s3types.Owner{ID: anonymousOwner, DisplayName: anonymousOwner},
			StorageClass: upload.StorageClass,
			Initiated:    upload.CreatedAt.Format(time.RFC3339),
		})
	}

	writeXML(w, http.StatusOK, response)
}

// ListParts lists the parts uploaded so far for a multipart upload.
func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")
	query := r.URL.Query()

	uploadID := query.Get("uploadId")
	maxParts := parseMaxKeys(query.Get("max-parts"))
	partNumberMarker, _ := strconv.Atoi(query.Get("part-number-marker"))

	result, err := h.object.ListParts(ctx, bucketName, key, uploadID, maxParts, partNumberMarker)
	if err != nil {
		writeError(w, err, key)
		return
	}

	response := s3types.ListPartsResult{
		Bucket:   bucketName,
		Key:      key,
		UploadId: uploadID,
	}
	for _, p := range result.Parts {
		response.Part = append(response.Part, s3types.PartInfo{
			PartNumber:   p.PartNumber,
			LastModified: p.LastModified.Format(time.RFC3339),
			ETag:         p.ETag,
			Size:         p.Size,
		})
	}

	writeXML(w, http.StatusOK, response)
}

// Object tagging subresource handlers.

func (h *Handler) PutObjectTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	var req s3types.Tagging
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	tags := make(map[string]string, len(req.TagSet.Tag))
	for _, t := range req.TagSet.Tag {
		tags[t.Key] = t.Value
	}

	if err := h.object.PutObjectTagging(ctx, bucketName, key, tags); err != nil {
		writeError(w, err, key)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetObjectTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	tags, err := h.object.GetObjectTagging(ctx, bucketName, key)
	if err != nil {
		writeError(w, err, key)
		return
	}

	response := s3types.Tagging{}
	for k, v := range tags {
		response.TagSet.Tag = append(response.TagSet.Tag, s3types.Tag{Key: k, Value: v})
	}

	writeXML(w, http.StatusOK, response)
}

func (h *Handler) DeleteObjectTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	if err := h.object.DeleteObjectTagging(ctx, bucketName, key); err != nil {
		writeError(w, err, key)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Bucket subresource handlers.

func (h *Handler) PutBucketTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	var req s3types.Tagging
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	tags := make(map[string]string, len(req.TagSet.Tag))
	for _, t := range req.TagSet.Tag {
		tags[t.Key] = t.Value
	}

	if err := h.bucket.PutBucketTagging(ctx, bucketName, tags); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetBucketTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	tags, err := h.bucket.GetBucketTagging(ctx, bucketName)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}
	if len(tags) == 0 {
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchTagSet.WithResource(bucketName))
		return
	}

	response := s3types.Tagging{}
	for k, v := range tags {
		response.TagSet.Tag = append(response.TagSet.Tag, s3types.Tag{Key: k, Value: v})
	}

	writeXML(w, http.StatusOK, response)
}

func (h *Handler) DeleteBucketTagging(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.DeleteBucketTagging(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutBucketCORS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	var req s3types.CORSConfiguration
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	rules, err := h.bucket.ParseAndValidateCORSRules(req.CORSRule)
	if err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	if err := h.bucket.SetCORS(ctx, bucketName, rules); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) GetBucketCORS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	rules, err := h.bucket.GetCORS(ctx, bucketName)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}
	if len(rules) == 0 {
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchCORSConfiguration.WithResource(bucketName))
		return
	}

	response := s3types.CORSConfiguration{}
	for _, rule := range rules {
		response.CORSRule = append(response.CORSRule, s3types.CORSRule{
			AllowedOrigin: rule.AllowedOrigins,
			AllowedMethod: rule.AllowedMethods,
			AllowedHeader: rule.AllowedHeaders,
			ExposeHeader:  rule.ExposeHeaders,
			MaxAgeSeconds: rule.MaxAgeSeconds,
		})
	}

	writeXML(w, http.StatusOK, response)
}

func (h *Handler) DeleteBucketCORS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.DeleteCORS(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutBucketWebsite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	var req s3types.WebsiteConfiguration
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrMalformedXML.WithMessage(err.Error()))
		return
	}

	website := websiteConfigFromXML(req)
	if err := h.bucket.SetWebsite(ctx, bucketName, website); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func websiteConfigFromXML(req s3types.WebsiteConfiguration) *metadata.WebsiteConfig {
	website := &metadata.WebsiteConfig{}
	if req.IndexDocument != nil {
		website.IndexSuffix = req.IndexDocument.Suffix
	}
	if req.ErrorDocument != nil {
		website.ErrorKey = req.ErrorDocument.Key
	}
	for _, rule := range req.RoutingRules {
		var r metadata.WebsiteRoutingRule
		if rule.Condition != nil {
			r.Condition.KeyPrefixEquals = rule.Condition.KeyPrefixEquals
			r.Condition.HttpErrorCodeReturnedEquals = rule.Condition.HttpErrorCodeReturnedEquals
		}
		r.Redirect.Protocol = rule.Redirect.Protocol
		r.Redirect.HostName = rule.Redirect.HostName
		r.Redirect.ReplaceKeyPrefixWith = rule.Redirect.ReplaceKeyPrefixWith
		r.Redirect.ReplaceKeyWith = rule.Redirect.ReplaceKeyWith
		r.Redirect.HttpRedirectCode = rule.Redirect.HttpRedirectCode
		website.RoutingRules = append(website.RoutingRules, r)
	}
	return website
}

func (h *Handler) GetBucketWebsite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	website, err := h.bucket.GetWebsite(ctx, bucketName)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}

	response := s3types.WebsiteConfiguration{}
	if website.IndexSuffix != "" {
		response.IndexDocument = &s3types.IndexDocument{Suffix: website.IndexSuffix}
	}
	if website.ErrorKey != "" {
		response.ErrorDocument = &s3types.ErrorDocument{Key: website.ErrorKey}
	}
	for _, rule := range website.RoutingRules {
		xmlRule := s3types.RoutingRule{
			Redirect: s3types.Redirect{
				Protocol:             rule.Redirect.Protocol,
				HostName:             rule.Redirect.HostName,
				ReplaceKeyPrefixWith: rule.Redirect.ReplaceKeyPrefixWith,
				ReplaceKeyWith:       rule.Redirect.ReplaceKeyWith,
				HttpRedirectCode:     rule.Redirect.HttpRedirectCode,
			},
		}
		if rule.Condition.KeyPrefixEquals != "" || rule.Condition.HttpErrorCodeReturnedEquals != "" {
			xmlRule.Condition = &s3types.Condition{
				KeyPrefixEquals:             rule.Condition.KeyPrefixEquals,
				HttpErrorCodeReturnedEquals: rule.Condition.HttpErrorCodeReturnedEquals,
			}
		}
		response.RoutingRules = append(response.RoutingRules, xmlRule)
	}

	writeXML(w, http.StatusOK, response)
}

func (h *Handler) DeleteBucketWebsite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.DeleteWebsite(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutBucketLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s3errors.WriteS3Error(w, s3errors.ErrIncompleteBody.WithResource(bucketName))
		return
	}

	if err := h.bucket.SetLifecycle(ctx, bucketName, body); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetBucketLifecycle returns the raw lifecycle XML as stored. The emulator
// never parses or enforces lifecycle rules, so the bytes round-trip as-is.
func (h *Handler) GetBucketLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	rawXML, err := h.bucket.GetLifecycle(ctx, bucketName)
	if err != nil {
		writeError(w, err, bucketName)
		return
	}
	if len(rawXML) == 0 {
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchLifecycleConfiguration.WithResource(bucketName))
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rawXML)
}

func (h *Handler) DeleteBucketLifecycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bucketName := chi.URLParam(r, "bucket")

	if err := h.bucket.DeleteLifecycle(ctx, bucketName); err != nil {
		writeError(w, err, bucketName)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Response helpers.

func writeXML(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

// writeError maps a service-layer error to an S3 XML error response.
// bucket.Service already returns s3errors.S3Error values directly;
// object.Service wraps the metadata/storage sentinel errors with fmt.Errorf,
// so those are matched with errors.Is through the %w chain.
func writeError(w http.ResponseWriter, err error, resource string) {
	var s3err s3errors.S3Error
	if errors.As(err, &s3err) {
		s3errors.WriteS3Error(w, s3err.WithResource(resource))
		return
	}

	var tagErr *object.TagValidationError

	var chunkSizeErr *auth.ChunkSizeError

	switch {
	case errors.As(err, &tagErr):
		s3errors.WriteS3Error(w, s3errors.ErrInvalidTagError.WithMessage(tagErr.Error()).WithResource(resource))
	case errors.As(err, &chunkSizeErr):
		s3errors.WriteS3Error(w, s3errors.ErrInvalidChunkSize.WithMessage(chunkSizeErr.Error()).WithResource(resource))
	case errors.Is(err, auth.ErrIncompleteChunkedBody):
		s3errors.WriteS3Error(w, s3errors.ErrIncompleteBody.WithResource(resource))
	case errors.Is(err, auth.ErrChunkSignatureMismatch):
		s3errors.WriteS3Error(w, s3errors.ErrSignatureDoesNotMatch.WithResource(resource))
	case errors.Is(err, metadata.ErrBucketNotFound), errors.Is(err, backend.ErrBucketNotFound):
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchBucket.WithResource(resource))
	case errors.Is(err, metadata.ErrObjectNotFound), errors.Is(err, backend.ErrObjectNotFound):
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchKey.WithResource(resource))
	case errors.Is(err, metadata.ErrUploadNotFound):
		s3errors.WriteS3Error(w, s3errors.ErrNoSuchUpload.WithResource(resource))
	default:
		s3errors.WriteS3Error(w, s3errors.ErrInternalError.WithMessage(err.Error()).WithResource(resource))
	}
}
