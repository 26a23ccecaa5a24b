package testutil

import (
	"time"

	"github.com/piwi3910/nebulaio/internal/metadata"
)

// Test fixture constants.
const (
	// DefaultTestBucketName is the default bucket name for tests.
	DefaultTestBucketName = "test-bucket"
	// DefaultTestObjectKey is the default object key for tests.
	DefaultTestObjectKey = "test-key"
	// DefaultTestETag is a sample ETag for tests.
	DefaultTestETag = "d41d8cd98f00b204e9800998ecf8427e"
	// DefaultTestContentType is the default content type for tests.
	DefaultTestContentType = "application/octet-stream"
)

// NewTestBucket creates a bucket with test defaults.
// Override fields as needed for specific test cases.
func NewTestBucket(name string) *metadata.Bucket {
	if name == "" {
		name = DefaultTestBucketName
	}

	return &metadata.Bucket{
		Name:      name,
		CreatedAt: time.Now(),
	}
}

// NewTestObjectMeta creates object metadata with test defaults.
// Override fields as needed for specific test cases.
func NewTestObjectMeta(bucket, key string, size int64) *metadata.ObjectMeta {
	if bucket == "" {
		bucket = DefaultTestBucketName
	}

	if key == "" {
		key = DefaultTestObjectKey
	}

	now := time.Now()

	return &metadata.ObjectMeta{
		Bucket:       bucket,
		Key:          key,
		Size:         size,
		ContentType:  DefaultTestContentType,
		ETag:         DefaultTestETag,
		CreatedAt:    now,
		ModifiedAt:   now,
		StorageClass: "STANDARD",
	}
}

// NewTestMultipartUpload creates a multipart upload with test defaults.
func NewTestMultipartUpload(bucket, key, uploadID string) *metadata.MultipartUpload {
	if bucket == "" {
		bucket = DefaultTestBucketName
	}

	if key == "" {
		key = DefaultTestObjectKey
	}

	if uploadID == "" {
		uploadID = "test-upload-id"
	}

	return &metadata.MultipartUpload{
		UploadID:  uploadID,
		Bucket:    bucket,
		Key:       key,
		CreatedAt: time.Now(),
	}
}

// TestData provides common test data slices.
var TestData = struct {
	// SmallData is a small byte slice for testing (16 bytes).
	SmallData []byte
	// MediumData is a medium byte slice for testing (1KB).
	MediumData []byte
	// LargeData is a large byte slice for testing (1MB).
	LargeData []byte
}{
	SmallData:  make([]byte, 16),
	MediumData: make([]byte, 1024),
	LargeData:  make([]byte, 1024*1024),
}

func init() {
	for i := range TestData.SmallData {
		TestData.SmallData[i] = byte(i % 256)
	}

	for i := range TestData.MediumData {
		TestData.MediumData[i] = byte(i % 256)
	}

	for i := range TestData.LargeData {
		TestData.LargeData[i] = byte(i % 256)
	}
}
