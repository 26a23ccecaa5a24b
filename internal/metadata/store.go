package metadata

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the interface for the metadata store: buckets, object metadata,
// multipart upload bookkeeping, and bucket subresources. It holds no object
// bytes — those live in the storage backend (internal/storage/fs).
type Store interface {
	Close() error

	CreateBucket(ctx context.Context, bucket *Bucket) error
	GetBucket(ctx context.Context, name string) (*Bucket, error)
	DeleteBucket(ctx context.Context, name string) error
	ListBuckets(ctx context.Context) ([]*Bucket, error)
	UpdateBucket(ctx context.Context, bucket *Bucket) error

	PutObjectMeta(ctx context.Context, meta *ObjectMeta) error
	GetObjectMeta(ctx context.Context, bucket, key string) (*ObjectMeta, error)
	DeleteObjectMeta(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix, delimiter, marker string, maxKeys int) (*ObjectListing, error)

	CreateMultipartUpload(ctx context.Context, upload *MultipartUpload) error
	GetMultipartUpload(ctx context.Context, bucket, key, uploadID string) (*MultipartUpload, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	AddUploadPart(ctx context.Context, bucket, key, uploadID string, part *UploadPart) error
	ListMultipartUploads(ctx context.Context, bucket string) ([]*MultipartUpload, error)

	Reset(ctx context.Context) error
}

// Bucket represents a storage bucket and its subresource configuration.
// Everything beyond CORS, Website, and Tagging round-trips as opaque XML
// bytes rather than being parsed and enforced.
type Bucket struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	CORS          []CORSRule  `json:"cors,omitempty"`
	Website       *WebsiteConfig `json:"website,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	LifecycleXML  []byte `json:"lifecycle_xml,omitempty"`
	ACLXML        []byte `json:"acl_xml,omitempty"`
}

// CORSRule represents one CORS configuration rule.
type CORSRule struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
	ExposeHeaders  []string `json:"expose_headers"`
	MaxAgeSeconds  int      `json:"max_age_seconds"`
}

// WebsiteRoutingRule represents a single website routing rule.
type WebsiteRoutingRule struct {
	Condition struct {
		KeyPrefixEquals             string `json:"key_prefix_equals"`
		HttpErrorCodeReturnedEquals string `json:"http_error_code_returned_equals"`
	} `json:"condition"`
	Redirect struct {
		Protocol             string `json:"protocol"`
		HostName             string `json:"host_name"`
		ReplaceKeyPrefixWith *string `json:"replace_key_prefix_with,omitempty"`
		ReplaceKeyWith       *string `json:"replace_key_with,omitempty"`
		HttpRedirectCode     string `json:"http_redirect_code"`
	} `json:"redirect"`
}

// WebsiteConfig represents bucket website hosting configuration.
type WebsiteConfig struct {
	IndexSuffix   string               `json:"index_suffix"`
	ErrorKey      string               `json:"error_key"`
	RoutingRules  []WebsiteRoutingRule `json:"routing_rules,omitempty"`
}

// ObjectMeta represents object metadata (the byte payload lives in the
// storage backend, addressed by bucket+key).
type ObjectMeta struct {
	Bucket                  string            `json:"bucket"`
	Key                     string            `json:"key"`
	Size                    int64             `json:"size"`
	ETag                    string            `json:"etag"`
	ContentType             string            `json:"content_type"`
	StorageClass            string            `json:"storage_class"`
	CreatedAt               time.Time         `json:"created_at"`
	ModifiedAt              time.Time         `json:"modified_at"`
	Metadata                map[string]string `json:"metadata,omitempty"`
	Tags                    map[string]string `json:"tags,omitempty"`
	WebsiteRedirectLocation string            `json:"website_redirect_location,omitempty"`
}

// ObjectListing is the result of a prefix/delimiter listing over one page.
type ObjectListing struct {
	Objects        []*ObjectMeta `json:"objects"`
	CommonPrefixes []string      `json:"common_prefixes"`
	IsTruncated    bool          `json:"is_truncated"`
	NextMarker     string        `json:"next_marker,omitempty"`
}

// MultipartUpload represents an in-progress multipart upload.
type MultipartUpload struct {
	Bucket       string            `json:"bucket"`
	Key          string            `json:"key"`
	UploadID     string            `json:"upload_id"`
	ContentType  string            `json:"content_type"`
	StorageClass string            `json:"storage_class,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Parts        []UploadPart      `json:"parts"`
}

// UploadPart represents a single part of a multipart upload.
type UploadPart struct {
	PartNumber   int       `json:"part_number"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// AccessKey is a single account credential pair. The emulator provisions a
// fixed dummy account (S3RVER/S3RVER) plus any preconfigured at startup.
type AccessKey struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	DisplayName     string `json:"display_name"`
}

// memStore is an in-memory Store. It is the default backing for metadata;
// the byte payload for each object always lives in the storage backend.
type memStore struct {
	mu       sync.RWMutex
	buckets  map[string]*Bucket
	objects  map[string]map[string]*ObjectMeta
	uploads  map[string]map[string]*MultipartUpload // bucket -> uploadID -> upload
}

// NewMemStore constructs an in-memory metadata store.
func NewMemStore() Store {
	return &memStore{
		buckets: make(map[string]*Bucket),
		objects: make(map[string]map[string]*ObjectMeta),
		uploads: make(map[string]map[string]*MultipartUpload),
	}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) CreateBucket(_ context.Context, bucket *Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket.Name] = bucket
	if _, ok := s.objects[bucket.Name]; !ok {
		s.objects[bucket.Name] = make(map[string]*ObjectMeta)
	}
	return nil
}

func (s *memStore) GetBucket(_ context.Context, name string) (*Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[name]
	if !ok {
		return nil, ErrBucketNotFound
	}
	return b, nil
}

func (s *memStore) DeleteBucket(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		return ErrBucketNotFound
	}
	delete(s.buckets, name)
	delete(s.objects, name)
	delete(s.uploads, name)
	return nil
}

func (s *memStore) ListBuckets(_ context.Context) ([]*Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) UpdateBucket(_ context.Context, bucket *Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket.Name]; !ok {
		return ErrBucketNotFound
	}
	s.buckets[bucket.Name] = bucket
	return nil
}

func (s *memStore) PutObjectMeta(_ context.Context, meta *ObjectMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.objects[meta.Bucket]
	if !ok {
		return ErrBucketNotFound
	}
	objs[meta.Key] = meta
	return nil
}

func (s *memStore) GetObjectMeta(_ context.Context, bucket, key string) (*ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.objects[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	m, ok := objs[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return m, nil
}

func (s *memStore) DeleteObjectMeta(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs, ok := s.objects[bucket]
	if !ok {
		return ErrBucketNotFound
	}
	delete(objs, key)
	return nil
}

func (s *memStore) ListObjects(_ context.Context, bucket, prefix, delimiter, marker string, maxKeys int) (*ObjectListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs, ok := s.objects[bucket]
	if !ok {
		return nil, ErrBucketNotFound
	}
	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	listing := &ObjectListing{}
	if maxKeys == 0 {
		return listing, nil
	}

	seenPrefixes := make(map[string]bool)
	for _, k := range keys {
		if prefix != "" && !strings.HasPrefix(k, prefix) {
			continue
		}
		if marker != "" && k <= marker {
			continue
		}
		if delimiter != "" {
			rest := k[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if !seenPrefixes[cp] {
					if maxKeys >= 0 && len(listing.Objects)+len(listing.CommonPrefixes) >= maxKeys {
						listing.IsTruncated = true
						listing.NextMarker = cp
						break
					}
					seenPrefixes[cp] = true
					listing.CommonPrefixes = append(listing.CommonPrefixes, cp)
				}
				continue
			}
		}
		if maxKeys >= 0 && len(listing.Objects)+len(listing.CommonPrefixes) >= maxKeys {
			listing.IsTruncated = true
			listing.NextMarker = k
			break
		}
		listing.Objects = append(listing.Objects, objs[k])
	}
	sort.Strings(listing.CommonPrefixes)
	return listing, nil
}

func (s *memStore) CreateMultipartUpload(_ context.Context, upload *MultipartUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.uploads[upload.Bucket]
	if !ok {
		m = make(map[string]*MultipartUpload)
		s.uploads[upload.Bucket] = m
	}
	m[upload.UploadID] = upload
	return nil
}

func (s *memStore) GetMultipartUpload(_ context.Context, bucket, key, uploadID string) (*MultipartUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.uploads[bucket]
	if !ok {
		return nil, ErrUploadNotFound
	}
	u, ok := m[uploadID]
	if !ok || u.Key != key {
		return nil, ErrUploadNotFound
	}
	return u, nil
}

func (s *memStore) AbortMultipartUpload(_ context.Context, bucket, _, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.uploads[bucket]
	if !ok {
		return ErrUploadNotFound
	}
	delete(m, uploadID)
	return nil
}

func (s *memStore) CompleteMultipartUpload(_ context.Context, bucket, _, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.uploads[bucket]
	if !ok {
		return ErrUploadNotFound
	}
	delete(m, uploadID)
	return nil
}

func (s *memStore) AddUploadPart(_ context.Context, bucket, _, uploadID string, part *UploadPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.uploads[bucket]
	if !ok {
		return ErrUploadNotFound
	}
	u, ok := m[uploadID]
	if !ok {
		return ErrUploadNotFound
	}
	for i, p := range u.Parts {
		if p.PartNumber == part.PartNumber {
			u.Parts[i] = *part
			return nil
		}
	}
	u.Parts = append(u.Parts, *part)
	return nil
}

func (s *memStore) ListMultipartUploads(_ context.Context, bucket string) ([]*MultipartUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.uploads[bucket]
	if !ok {
		return nil, nil
	}
	out := make([]*MultipartUpload, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*Bucket)
	s.objects = make(map[string]map[string]*ObjectMeta)
	s.uploads = make(map[string]map[string]*MultipartUpload)
	return nil
}

