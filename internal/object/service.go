// Package object provides object storage operations for the emulator.
//
// The object service handles object-level operations: PUT/GET/HEAD/DELETE,
// multipart upload, copy, tagging, and bulk delete. Objects are stored
// through a pluggable storage backend (internal/storage/fs by default)
// while metadata lives in the metadata store. There is no versioning, no
// object lock, and no ACL enforcement — every object has exactly one
// current representation.
package object

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: MD5 required for S3 ETag compatibility
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/piwi3910/nebulaio/internal/events"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/metrics"
	"github.com/piwi3910/nebulaio/internal/storage/backend"
)

// Tag validation constants.
const (
	MaxTagsPerResource = 10
	MaxTagKeyLength    = 128
	MaxTagValueLength  = 256
)

// TagValidationError represents a tag validation error.
type TagValidationError struct {
	Message string
}

func (e *TagValidationError) Error() string {
	return e.Message
}

// ValidateTags validates tags according to S3 tagging rules.
func ValidateTags(tags map[string]string) error {
	if len(tags) > MaxTagsPerResource {
		return &TagValidationError{
			Message: fmt.Sprintf("tag count exceeds maximum of %d", MaxTagsPerResource),
		}
	}

	for key, value := range tags {
		keyLen := utf8.RuneCountInString(key)
		valueLen := utf8.RuneCountInString(value)

		if keyLen == 0 {
			return &TagValidationError{Message: "tag key cannot be empty"}
		}
		if keyLen > MaxTagKeyLength {
			return &TagValidationError{
				Message: fmt.Sprintf("tag key '%s' exceeds maximum length of %d characters", key, MaxTagKeyLength),
			}
		}
		if valueLen > MaxTagValueLength {
			return &TagValidationError{
				Message: fmt.Sprintf("tag value for key '%s' exceeds maximum length of %d characters", key, MaxTagValueLength),
			}
		}
		if strings.HasPrefix(strings.ToLower(key), "aws:") {
			return &TagValidationError{
				Message: fmt.Sprintf("tag key '%s' uses reserved 'aws:' prefix", key),
			}
		}
	}

	return nil
}

// ParseTaggingHeader parses the x-amz-tagging header format (key1=value1&key2=value2).
func ParseTaggingHeader(header string) (map[string]string, error) {
	if header == "" {
		return map[string]string{}, nil
	}

	tags := make(map[string]string)

	for pair := range strings.SplitSeq(header, "&") {
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid tag format: %s", pair)
		}

		key, err := url.QueryUnescape(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid tag key encoding: %w", err)
		}

		value, err := url.QueryUnescape(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid tag value encoding: %w", err)
		}

		if _, exists := tags[key]; exists {
			return nil, fmt.Errorf("duplicate tag key: %s", key)
		}

		tags[key] = value
	}

	if err := ValidateTags(tags); err != nil {
		return nil, err
	}

	return tags, nil
}

// StorageBackend is the interface for object byte storage.
type StorageBackend interface {
	backend.Backend
	backend.MultipartBackend
}

// Service handles object operations.
type Service struct {
	store         metadata.Store
	storage       StorageBackend
	bucketService BucketService
	emitter       EventEmitter
}

// BucketService is the subset of bucket operations the object service needs.
type BucketService interface {
	GetBucket(ctx context.Context, name string) (*metadata.Bucket, error)
}

// EventEmitter is the subset of events.Emitter the object service needs to
// publish object mutation notifications. A nil EventEmitter (the default)
// makes event emission a no-op.
type EventEmitter interface {
	Emit(eventType events.EventType, bucket, key string, size int64, etag, principalID string)
}

// eventPrincipalID is the fixed 21-character hex stub principal recorded
// on every emitted event.
const eventPrincipalID = "a1b2c3d4e5f6a7b8c9d0e"

// DeleteObjectInput represents an object to delete in a batch operation.
type DeleteObjectInput struct {
	Key string
}

// DeletedObject represents a successfully deleted object.
type DeletedObject struct {
	Key string
}

// DeleteError represents an error deleting a specific object.
type DeleteError struct {
	Key     string
	Code    string
	Message string
}

// DeleteObjectsResult represents the result of a batch delete operation.
type DeleteObjectsResult struct {
	Deleted []DeletedObject
	Errors  []DeleteError
}

// NewService creates a new object service.
func NewService(store metadata.Store, storage StorageBackend, bucketService BucketService) *Service {
	return &Service{
		store:         store,
		storage:       storage,
		bucketService: bucketService,
	}
}

// SetEmitter attaches an event emitter. Called once during server startup;
// left unset, the service emits nothing.
func (s *Service) SetEmitter(emitter EventEmitter) {
	s.emitter = emitter
}

func (s *Service) emit(eventType events.EventType, bucket, key string, size int64, etag string) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(eventType, bucket, key, size, etag, eventPrincipalID)
}

// PutObjectOptions contains optional parameters for PutObject.
type PutObjectOptions struct {
	Tags                    map[string]string
	WebsiteRedirectLocation string

	// EventType overrides the emitted event name. Defaults to
	// s3:ObjectCreated:Put when zero, letting the POST-Form handler
	// report itself as s3:ObjectCreated:Post.
	EventType events.EventType
}

// PutObject stores an object.
func (s *Service) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string, userMetadata map[string]string) (*metadata.ObjectMeta, error) {
	return s.PutObjectWithOptions(ctx, bucket, key, reader, size, contentType, userMetadata, nil)
}

// PutObjectWithOptions stores an object with additional options including tags.
func (s *Service) PutObjectWithOptions(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string, userMetadata map[string]string, opts *PutObjectOptions) (*metadata.ObjectMeta, error) {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	tags, err := s.validateAndGetTags(opts)
	if err != nil {
		return nil, err
	}

	result, err := s.storage.PutObject(ctx, bucket, key, reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	now := time.Now()
	meta := &metadata.ObjectMeta{
		Bucket:       bucket,
		Key:          key,
		Size:         result.Size,
		ETag:         fmt.Sprintf(`"%s"`, result.ETag),
		ContentType:  contentType,
		StorageClass: "STANDARD",
		CreatedAt:    now,
		ModifiedAt:   now,
		Metadata:     userMetadata,
		Tags:         tags,
	}
	if opts != nil {
		meta.WebsiteRedirectLocation = opts.WebsiteRedirectLocation
	}

	if err := s.store.PutObjectMeta(ctx, meta); err != nil {
		_ = s.storage.DeleteObject(ctx, bucket, key)
		return nil, fmt.Errorf("failed to store object metadata: %w", err)
	}

	eventType := events.EventObjectCreatedPut
	if opts != nil && opts.EventType != "" {
		eventType = opts.EventType
	}
	s.emit(eventType, bucket, key, meta.Size, meta.ETag)

	return meta, nil
}

func (s *Service) validateAndGetTags(opts *PutObjectOptions) (map[string]string, error) {
	if opts != nil && opts.Tags != nil {
		if err := ValidateTags(opts.Tags); err != nil {
			return nil, fmt.Errorf("invalid tags: %w", err)
		}
		return opts.Tags, nil
	}
	return nil, nil
}

// GetObject retrieves an object.
func (s *Service) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, *metadata.ObjectMeta, error) {
	meta, err := s.store.GetObjectMeta(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.storage.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	return reader, meta, nil
}

// HeadObject retrieves object metadata without the body.
func (s *Service) HeadObject(ctx context.Context, bucket, key string) (*metadata.ObjectMeta, error) {
	return s.store.GetObjectMeta(ctx, bucket, key)
}

// DeleteObject permanently deletes an object.
func (s *Service) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.deleteObjectData(ctx, bucket, key); err != nil {
		return err
	}
	if err := s.deleteObjectMetadata(ctx, bucket, key); err != nil {
		return err
	}
	s.emit(events.EventObjectRemovedDelete, bucket, key, 0, "")
	return nil
}

func (s *Service) deleteObjectData(ctx context.Context, bucket, key string) error {
	err := s.storage.DeleteObject(ctx, bucket, key)
	if err != nil && !errors.Is(err, backend.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete object data: %w", err)
	}
	return nil
}

func (s *Service) deleteObjectMetadata(ctx context.Context, bucket, key string) error {
	err := s.store.DeleteObjectMeta(ctx, bucket, key)
	if err != nil && !errors.Is(err, metadata.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete object metadata: %w", err)
	}
	return nil
}

// ListObjects lists objects in a bucket.
func (s *Service) ListObjects(ctx context.Context, bucket, prefix, delimiter, marker string, maxKeys int) (*metadata.ObjectListing, error) {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return s.store.ListObjects(ctx, bucket, prefix, delimiter, marker, maxKeys)
}

// TaggingDirective specifies how to handle tags during copy.
type TaggingDirective string

const (
	// TaggingDirectiveCopy copies tags from the source object (default).
	TaggingDirectiveCopy TaggingDirective = "COPY"
	// TaggingDirectiveReplace uses tags from the request headers.
	TaggingDirectiveReplace TaggingDirective = "REPLACE"
)

// CopyObjectOptions contains optional parameters for CopyObject.
type CopyObjectOptions struct {
	Tags             map[string]string
	TaggingDirective TaggingDirective
}

// CopyObject copies an object, preserving source tags by default.
func (s *Service) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (*metadata.ObjectMeta, error) {
	return s.CopyObjectWithOptions(ctx, srcBucket, srcKey, dstBucket, dstKey, nil)
}

// CopyObjectWithOptions copies an object with additional options including tagging directive.
func (s *Service) CopyObjectWithOptions(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts *CopyObjectOptions) (*metadata.ObjectMeta, error) {
	reader, srcMeta, err := s.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return nil, fmt.Errorf("source object not found: %w", err)
	}
	defer func() { _ = reader.Close() }()

	var tags map[string]string
	if opts != nil && opts.TaggingDirective == TaggingDirectiveReplace {
		if opts.Tags != nil {
			if err := ValidateTags(opts.Tags); err != nil {
				return nil, fmt.Errorf("invalid tags: %w", err)
			}
			tags = opts.Tags
		}
	} else {
		tags = srcMeta.Tags
	}

	putOpts := &PutObjectOptions{Tags: tags, EventType: events.EventObjectCreatedCopy}
	return s.PutObjectWithOptions(ctx, dstBucket, dstKey, reader, srcMeta.Size, srcMeta.ContentType, srcMeta.Metadata, putOpts)
}

// PutObjectTagging sets tags on an object with validation.
func (s *Service) PutObjectTagging(ctx context.Context, bucket, key string, tags map[string]string) error {
	if err := ValidateTags(tags); err != nil {
		return err
	}
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return fmt.Errorf("bucket not found: %w", err)
	}

	meta, err := s.store.GetObjectMeta(ctx, bucket, key)
	if err != nil {
		return err
	}

	meta.Tags = tags
	return s.store.PutObjectMeta(ctx, meta)
}

// GetObjectTagging returns tags for an object.
func (s *Service) GetObjectTagging(ctx context.Context, bucket, key string) (map[string]string, error) {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	meta, err := s.store.GetObjectMeta(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	if meta.Tags == nil {
		return make(map[string]string), nil
	}
	return meta.Tags, nil
}

// DeleteObjectTagging deletes all tags from an object.
func (s *Service) DeleteObjectTagging(ctx context.Context, bucket, key string) error {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return fmt.Errorf("bucket not found: %w", err)
	}

	meta, err := s.store.GetObjectMeta(ctx, bucket, key)
	if err != nil {
		return err
	}

	meta.Tags = nil
	return s.store.PutObjectMeta(ctx, meta)
}

// Multipart upload operations.

// CreateMultipartUpload initiates a multipart upload.
func (s *Service) CreateMultipartUpload(ctx context.Context, bucket, key, contentType string, userMetadata map[string]string) (*metadata.MultipartUpload, error) {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return nil, err
	}

	uploadID := generateUploadID()

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	upload := &metadata.MultipartUpload{
		Bucket:       bucket,
		Key:          key,
		UploadID:     uploadID,
		ContentType:  contentType,
		StorageClass: "STANDARD",
		Metadata:     userMetadata,
		CreatedAt:    time.Now(),
	}

	if err := s.storage.CreateMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return nil, fmt.Errorf("failed to create multipart upload storage: %w", err)
	}

	if err := s.store.CreateMultipartUpload(ctx, upload); err != nil {
		_ = s.storage.AbortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, fmt.Errorf("failed to store multipart upload metadata: %w", err)
	}

	metrics.MultipartUploadsActive.Inc()

	return upload, nil
}

// MinPartSize is the minimum size for all parts except the last one (5MB).
const MinPartSize = 5 * 1024 * 1024

// MaxPartNumber is the maximum allowed part number.
const MaxPartNumber = 10000

// MaxPartsPerUpload is the maximum number of parts allowed per upload (AWS limit: 10,000).
const MaxPartsPerUpload = 10000

// UploadPart uploads a part of a multipart upload.
func (s *Service) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, reader io.Reader, size int64) (*metadata.UploadPart, error) {
	if partNumber < 1 || partNumber > MaxPartNumber {
		return nil, fmt.Errorf("invalid part number: must be between 1 and %d", MaxPartNumber)
	}

	upload, err := s.store.GetMultipartUpload(ctx, bucket, key, uploadID)
	if err != nil {
		return nil, err
	}

	isOverwrite := false
	for _, existingPart := range upload.Parts {
		if existingPart.PartNumber == partNumber {
			isOverwrite = true
			break
		}
	}
	if !isOverwrite && len(upload.Parts) >= MaxPartsPerUpload {
		return nil, fmt.Errorf("maximum number of parts (%d) exceeded", MaxPartsPerUpload)
	}

	result, err := s.storage.PutPart(ctx, bucket, key, uploadID, partNumber, reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store part: %w", err)
	}

	part := &metadata.UploadPart{
		PartNumber:   partNumber,
		Size:         result.Size,
		ETag:         fmt.Sprintf(`"%s"`, result.ETag),
		LastModified: time.Now(),
	}

	if err := s.store.AddUploadPart(ctx, bucket, key, upload.UploadID, part); err != nil {
		return nil, fmt.Errorf("failed to update upload metadata: %w", err)
	}

	return part, nil
}

// UploadPartCopy uploads a part of a multipart upload by copying a byte
// range (or the whole object, if rangeHeader is empty) from an existing
// object, per the X-Amz-Copy-Source-Range semantics.
func (s *Service) UploadPartCopy(ctx context.Context, dstBucket, dstKey, uploadID string, partNumber int, srcBucket, srcKey, rangeHeader string) (*metadata.UploadPart, error) {
	if partNumber < 1 || partNumber > MaxPartNumber {
		return nil, fmt.Errorf("invalid part number: must be between 1 and %d", MaxPartNumber)
	}

	reader, srcMeta, err := s.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return nil, fmt.Errorf("source object not found: %w", err)
	}
	defer func() { _ = reader.Close() }()

	start, end := int64(0), srcMeta.Size-1
	if rangeHeader != "" {
		start, end, err = parseCopySourceRange(rangeHeader, srcMeta.Size)
		if err != nil {
			return nil, err
		}
	}
	size := end - start + 1

	if start > 0 {
		if _, err := io.CopyN(io.Discard, reader, start); err != nil {
			return nil, fmt.Errorf("failed to seek source object: %w", err)
		}
	}

	return s.UploadPart(ctx, dstBucket, dstKey, uploadID, partNumber, io.LimitReader(reader, size), size)
}

// parseCopySourceRange parses an "bytes=start-end" X-Amz-Copy-Source-Range
// header, inclusive on both ends, against the source object's size.
func parseCopySourceRange(rangeHeader string, objectSize int64) (start, end int64, err error) {
	const prefix = "bytes="
	if !strings.HasPrefix(rangeHeader, prefix) {
		return 0, 0, fmt.Errorf("invalid copy source range: %q", rangeHeader)
	}

	parts := strings.SplitN(strings.TrimPrefix(rangeHeader, prefix), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid copy source range: %q", rangeHeader)
	}

	start, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid copy source range start: %w", err)
	}
	end, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid copy source range end: %w", err)
	}

	if start < 0 || end < start || end >= objectSize {
		return 0, 0, fmt.Errorf("copy source range out of bounds: %q", rangeHeader)
	}
	return start, end, nil
}

// CompletePart represents a part in the complete multipart upload request.
type CompletePart struct {
	ETag       string
	PartNumber int
}

// CompleteMultipartUpload completes a multipart upload.
func (s *Service) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, requestParts []CompletePart) (*metadata.ObjectMeta, error) {
	upload, err := s.store.GetMultipartUpload(ctx, bucket, key, uploadID)
	if err != nil {
		return nil, err
	}

	partMap := s.buildPartMap(upload)
	if err := s.validateRequestParts(requestParts, partMap); err != nil {
		return nil, err
	}

	partNumbers := s.extractPartNumbers(requestParts)

	result, err := s.storage.CompleteParts(ctx, bucket, key, uploadID, partNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	_ = result

	totalSize, finalETag := s.calculateFinalETag(partNumbers, partMap)

	now := time.Now()
	meta := &metadata.ObjectMeta{
		Bucket:       bucket,
		Key:          key,
		Size:         totalSize,
		ETag:         finalETag,
		ContentType:  upload.ContentType,
		StorageClass: upload.StorageClass,
		CreatedAt:    now,
		ModifiedAt:   now,
		Metadata:     upload.Metadata,
	}

	if err := s.store.PutObjectMeta(ctx, meta); err != nil {
		return nil, fmt.Errorf("failed to store object metadata: %w", err)
	}

	_ = s.store.CompleteMultipartUpload(ctx, bucket, key, uploadID)
	metrics.MultipartUploadsActive.Dec()

	s.emit(events.EventObjectCreatedCompleteMultipartUpload, bucket, key, meta.Size, meta.ETag)

	return meta, nil
}

func (s *Service) buildPartMap(upload *metadata.MultipartUpload) map[int]*metadata.UploadPart {
	partMap := make(map[int]*metadata.UploadPart)
	for i := range upload.Parts {
		partMap[upload.Parts[i].PartNumber] = &upload.Parts[i]
	}
	return partMap
}

func (s *Service) validateRequestParts(requestParts []CompletePart, partMap map[int]*metadata.UploadPart) error {
	if len(requestParts) == 0 {
		return errors.New("at least one part must be specified")
	}
	if err := s.verifyPartsAscending(requestParts); err != nil {
		return err
	}
	return s.verifyPartsExistAndMatch(requestParts, partMap)
}

func (s *Service) verifyPartsAscending(requestParts []CompletePart) error {
	prevPartNumber := 0
	for _, reqPart := range requestParts {
		if reqPart.PartNumber <= prevPartNumber {
			return errors.New("parts must be in ascending order")
		}
		prevPartNumber = reqPart.PartNumber
	}
	return nil
}

func (s *Service) verifyPartsExistAndMatch(requestParts []CompletePart, partMap map[int]*metadata.UploadPart) error {
	for i, reqPart := range requestParts {
		uploadedPart, exists := partMap[reqPart.PartNumber]
		if !exists {
			return fmt.Errorf("part %d not found", reqPart.PartNumber)
		}

		requestETag := strings.Trim(reqPart.ETag, `"`)
		uploadedETag := strings.Trim(uploadedPart.ETag, `"`)
		if requestETag != uploadedETag {
			return fmt.Errorf("ETag mismatch for part %d: expected %s, got %s", reqPart.PartNumber, uploadedETag, requestETag)
		}

		if i < len(requestParts)-1 && uploadedPart.Size < MinPartSize {
			return fmt.Errorf("part %d is too small (%d bytes); minimum size is %d bytes except for the last part",
				reqPart.PartNumber, uploadedPart.Size, MinPartSize)
		}
	}
	return nil
}

func (s *Service) extractPartNumbers(requestParts []CompletePart) []int {
	partNumbers := make([]int, 0, len(requestParts))
	for _, reqPart := range requestParts {
		partNumbers = append(partNumbers, reqPart.PartNumber)
	}
	return partNumbers
}

func (s *Service) calculateFinalETag(partNumbers []int, partMap map[int]*metadata.UploadPart) (int64, string) {
	var (
		totalSize int64
		etagBytes []byte
	)

	for _, partNum := range partNumbers {
		part := partMap[partNum]
		totalSize += part.Size
		etag := strings.Trim(part.ETag, `"`)
		hashBytes, _ := hex.DecodeString(etag)
		etagBytes = append(etagBytes, hashBytes...)
	}

	combinedHash := md5.Sum(etagBytes) //nolint:gosec // G401: MD5 required for S3 ETag compatibility
	finalETag := fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(combinedHash[:]), len(partNumbers))

	return totalSize, finalETag
}

// AbortMultipartUpload aborts a multipart upload.
func (s *Service) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	if _, err := s.store.GetMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return err
	}

	if err := s.storage.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return fmt.Errorf("failed to abort multipart upload storage: %w", err)
	}

	if err := s.store.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		return fmt.Errorf("failed to remove multipart upload metadata: %w", err)
	}

	metrics.MultipartUploadsActive.Dec()

	return nil
}

// ListMultipartUploads lists all in-progress multipart uploads for a bucket.
func (s *Service) ListMultipartUploads(ctx context.Context, bucket string) ([]*metadata.MultipartUpload, error) {
	return s.store.ListMultipartUploads(ctx, bucket)
}

// ListPartsResult contains the result of listing parts with pagination info.
type ListPartsResult struct {
	Parts                []metadata.UploadPart
	NextPartNumberMarker int
	IsTruncated          bool
}

// ListParts lists the parts of a multipart upload with pagination.
func (s *Service) ListParts(ctx context.Context, bucket, key, uploadID string, maxParts, partNumberMarker int) (*ListPartsResult, error) {
	upload, err := s.store.GetMultipartUpload(ctx, bucket, key, uploadID)
	if err != nil {
		return nil, err
	}

	if maxParts <= 0 || maxParts > 1000 {
		maxParts = 1000
	}

	parts := make([]metadata.UploadPart, len(upload.Parts))
	copy(parts, upload.Parts)
	sortParts(parts)

	var filteredParts []metadata.UploadPart
	for _, part := range parts {
		if part.PartNumber > partNumberMarker {
			filteredParts = append(filteredParts, part)
		}
	}

	result := &ListPartsResult{}
	if len(filteredParts) > maxParts {
		result.Parts = filteredParts[:maxParts]
		result.IsTruncated = true
		result.NextPartNumberMarker = result.Parts[maxParts-1].PartNumber
	} else {
		result.Parts = filteredParts
	}

	return result, nil
}

// sortParts sorts parts by part number in ascending order.
func sortParts(parts []metadata.UploadPart) {
	for i := range len(parts) - 1 {
		for j := i + 1; j < len(parts); j++ {
			if parts[i].PartNumber > parts[j].PartNumber {
				parts[i], parts[j] = parts[j], parts[i]
			}
		}
	}
}

// DeleteObjects deletes multiple objects in a batch.
func (s *Service) DeleteObjects(ctx context.Context, bucket string, objects []DeleteObjectInput) (*DeleteObjectsResult, error) {
	if _, err := s.bucketService.GetBucket(ctx, bucket); err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	result := &DeleteObjectsResult{
		Deleted: make([]DeletedObject, 0),
		Errors:  make([]DeleteError, 0),
	}

	for _, obj := range objects {
		if obj.Key == "" {
			result.Errors = append(result.Errors, DeleteError{
				Code:    "InvalidArgument",
				Message: "Object key cannot be empty",
			})
			continue
		}

		if err := s.DeleteObject(ctx, bucket, obj.Key); err != nil {
			result.Errors = append(result.Errors, DeleteError{
				Key:     obj.Key,
				Code:    getErrorCode(err),
				Message: err.Error(),
			})
			continue
		}

		result.Deleted = append(result.Deleted, DeletedObject{Key: obj.Key})
	}

	return result, nil
}

// getErrorCode returns an S3 error code based on the error.
func getErrorCode(err error) string {
	if errors.Is(err, metadata.ErrObjectNotFound) || errors.Is(err, backend.ErrObjectNotFound) {
		return "NoSuchKey"
	}
	return "InternalError"
}

func generateUploadID() string {
	return uuid.New().String()
}
