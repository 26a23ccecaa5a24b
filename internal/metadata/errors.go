package metadata

import "errors"

var (
	// ErrBucketNotFound indicates the named bucket has no metadata record.
	ErrBucketNotFound = errors.New("metadata: bucket not found")
	// ErrObjectNotFound indicates the named key has no metadata record.
	ErrObjectNotFound = errors.New("metadata: object not found")
	// ErrUploadNotFound indicates the multipart upload id is unknown.
	ErrUploadNotFound = errors.New("metadata: multipart upload not found")
)
