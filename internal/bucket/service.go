package bucket

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/pkg/s3errors"
	"github.com/piwi3910/nebulaio/pkg/s3types"
)

// Tag validation constants for buckets.
const (
	MaxTagsPerBucket  = 50 // Buckets can have more tags than objects
	MaxTagKeyLength   = 128
	MaxTagValueLength = 256
)

// validateBucketTags validates tags according to S3 tagging rules for buckets.
func validateBucketTags(tags map[string]string) error {
	if len(tags) > MaxTagsPerBucket {
		return fmt.Errorf("tag count exceeds maximum of %d", MaxTagsPerBucket)
	}

	for key, value := range tags {
		keyLen := utf8.RuneCountInString(key)
		valueLen := utf8.RuneCountInString(value)

		if keyLen == 0 {
			return fmt.Errorf("tag key cannot be empty")
		}
		if keyLen > MaxTagKeyLength {
			return fmt.Errorf("tag key '%s' exceeds maximum length of %d characters", key, MaxTagKeyLength)
		}
		if valueLen > MaxTagValueLength {
			return fmt.Errorf("tag value for key '%s' exceeds maximum length of %d characters", key, MaxTagValueLength)
		}
		if strings.HasPrefix(strings.ToLower(key), "aws:") {
			return fmt.Errorf("tag key '%s' uses reserved 'aws:' prefix", key)
		}
	}

	return nil
}

// Service handles bucket operations.
type Service struct {
	store   metadata.Store
	storage object.StorageBackend
}

// NewService creates a new bucket service.
func NewService(store metadata.Store, storage object.StorageBackend) *Service {
	return &Service{
		store:   store,
		storage: storage,
	}
}

// bucketNameRegex validates S3 bucket naming rules.
var bucketNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// CreateBucket creates a new bucket.
func (s *Service) CreateBucket(ctx context.Context, name string) (*metadata.Bucket, error) {
	if err := validateBucketName(name); err != nil {
		return nil, err
	}

	if _, err := s.store.GetBucket(ctx, name); err == nil {
		return nil, s3errors.ErrBucketAlreadyExists.WithResource(name)
	}

	bucket := &metadata.Bucket{
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.store.CreateBucket(ctx, bucket); err != nil {
		return nil, s3errors.ErrInternalError.WithMessage("failed to create bucket metadata: " + err.Error())
	}

	if err := s.storage.CreateBucket(ctx, name); err != nil {
		_ = s.store.DeleteBucket(ctx, name)
		return nil, s3errors.ErrInternalError.WithMessage("failed to create bucket storage: " + err.Error())
	}

	return bucket, nil
}

// GetBucket retrieves a bucket by name.
func (s *Service) GetBucket(ctx context.Context, name string) (*metadata.Bucket, error) {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return nil, s3errors.ErrNoSuchBucket.WithResource(name)
	}
	return bucket, nil
}

// DeleteBucket deletes a bucket.
func (s *Service) DeleteBucket(ctx context.Context, name string) error {
	if _, err := s.store.GetBucket(ctx, name); err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	listing, err := s.store.ListObjects(ctx, name, "", "", "", 1)
	if err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to check bucket contents: " + err.Error())
	}
	if len(listing.Objects) > 0 {
		return s3errors.ErrBucketNotEmpty.WithResource(name)
	}

	uploads, err := s.store.ListMultipartUploads(ctx, name)
	if err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to check bucket multipart uploads: " + err.Error())
	}
	if len(uploads) > 0 {
		return s3errors.ErrBucketNotEmpty.WithResource(name)
	}

	if err := s.storage.DeleteBucket(ctx, name); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete bucket storage: " + err.Error())
	}

	if err := s.store.DeleteBucket(ctx, name); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete bucket metadata: " + err.Error())
	}

	return nil
}

// ListBuckets lists all buckets the emulator knows about. There is a
// single fixed account, so there is no per-owner filtering.
func (s *Service) ListBuckets(ctx context.Context) ([]*metadata.Bucket, error) {
	buckets, err := s.store.ListBuckets(ctx)
	if err != nil {
		return nil, s3errors.ErrInternalError.WithMessage("failed to list buckets: " + err.Error())
	}
	return buckets, nil
}

// HeadBucket checks if a bucket exists.
func (s *Service) HeadBucket(ctx context.Context, name string) error {
	if _, err := s.store.GetBucket(ctx, name); err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}
	return nil
}

// PutBucketTagging sets bucket tags with validation.
func (s *Service) PutBucketTagging(ctx context.Context, name string, tags map[string]string) error {
	if err := validateBucketTags(tags); err != nil {
		return err
	}

	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.Tags = tags
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to set bucket tags: " + err.Error())
	}
	return nil
}

// GetBucketTagging returns bucket tags.
func (s *Service) GetBucketTagging(ctx context.Context, name string) (map[string]string, error) {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return nil, s3errors.ErrNoSuchBucket.WithResource(name)
	}

	if bucket.Tags == nil {
		return make(map[string]string), nil
	}
	return bucket.Tags, nil
}

// DeleteBucketTagging deletes all bucket tags.
func (s *Service) DeleteBucketTagging(ctx context.Context, name string) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.Tags = nil
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete bucket tags: " + err.Error())
	}
	return nil
}

// SetCORS sets CORS configuration for a bucket.
func (s *Service) SetCORS(ctx context.Context, name string, rules []metadata.CORSRule) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.CORS = rules
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to set CORS configuration: " + err.Error())
	}
	return nil
}

// GetCORS returns CORS configuration for a bucket.
func (s *Service) GetCORS(ctx context.Context, name string) ([]metadata.CORSRule, error) {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return nil, s3errors.ErrNoSuchBucket.WithResource(name)
	}
	if len(bucket.CORS) == 0 {
		return nil, s3errors.ErrNoSuchCORSConfiguration.WithResource(name)
	}
	return bucket.CORS, nil
}

// DeleteCORS deletes CORS configuration for a bucket.
func (s *Service) DeleteCORS(ctx context.Context, name string) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.CORS = nil
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete CORS configuration: " + err.Error())
	}
	return nil
}

// SetWebsite sets the static website hosting configuration for a bucket.
func (s *Service) SetWebsite(ctx context.Context, name string, website *metadata.WebsiteConfig) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.Website = website
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to set website configuration: " + err.Error())
	}
	return nil
}

// GetWebsite returns the static website hosting configuration for a bucket.
func (s *Service) GetWebsite(ctx context.Context, name string) (*metadata.WebsiteConfig, error) {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return nil, s3errors.ErrNoSuchBucket.WithResource(name)
	}
	if bucket.Website == nil {
		return nil, s3errors.ErrNoSuchWebsiteConfiguration.WithResource(name)
	}
	return bucket.Website, nil
}

// DeleteWebsite deletes the static website hosting configuration for a bucket.
func (s *Service) DeleteWebsite(ctx context.Context, name string) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.Website = nil
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete website configuration: " + err.Error())
	}
	return nil
}

// SetLifecycle stores lifecycle rules as opaque XML; the emulator never
// enforces expiration, it only round-trips the configuration.
func (s *Service) SetLifecycle(ctx context.Context, name string, rawXML []byte) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.LifecycleXML = rawXML
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to set lifecycle configuration: " + err.Error())
	}
	return nil
}

// GetLifecycle returns the raw lifecycle configuration XML for a bucket.
func (s *Service) GetLifecycle(ctx context.Context, name string) ([]byte, error) {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return nil, s3errors.ErrNoSuchBucket.WithResource(name)
	}
	if len(bucket.LifecycleXML) == 0 {
		return nil, s3errors.ErrNoSuchLifecycleConfiguration.WithResource(name)
	}
	return bucket.LifecycleXML, nil
}

// DeleteLifecycle deletes lifecycle rules for a bucket.
func (s *Service) DeleteLifecycle(ctx context.Context, name string) error {
	bucket, err := s.store.GetBucket(ctx, name)
	if err != nil {
		return s3errors.ErrNoSuchBucket.WithResource(name)
	}

	bucket.LifecycleXML = nil
	if err := s.store.UpdateBucket(ctx, bucket); err != nil {
		return s3errors.ErrInternalError.WithMessage("failed to delete lifecycle configuration: " + err.Error())
	}
	return nil
}

// validateBucketName validates S3 bucket naming rules.
func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return s3errors.ErrInvalidBucketName.WithMessage("bucket name must be between 3 and 63 characters")
	}

	if !bucketNameRegex.MatchString(name) {
		return s3errors.ErrInvalidBucketName.WithMessage("bucket name can only contain lowercase letters, numbers, hyphens, and periods")
	}

	if name[0] == '.' || name[len(name)-1] == '.' {
		return s3errors.ErrInvalidBucketName.WithMessage("bucket name cannot start or end with a period")
	}

	if name[0] == '-' || name[len(name)-1] == '-' {
		return s3errors.ErrInvalidBucketName.WithMessage("bucket name cannot start or end with a hyphen")
	}

	ipRegex := regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	if ipRegex.MatchString(name) {
		return s3errors.ErrInvalidBucketName.WithMessage("bucket name cannot be formatted as an IP address")
	}

	return nil
}

// FindMatchingCORSRule finds a CORS rule that matches the given origin and method.
func (s *Service) FindMatchingCORSRule(rules []metadata.CORSRule, origin, method string) *metadata.CORSRule {
	for i := range rules {
		rule := &rules[i]
		if _, matched := MatchCORSOrigin(rule.AllowedOrigins, origin); !matched {
			continue
		}

		methodAllowed := false
		for _, allowedMethod := range rule.AllowedMethods {
			if strings.EqualFold(allowedMethod, method) {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			continue
		}

		return rule
	}
	return nil
}

// ParseAndValidateCORSRules converts S3 CORS rules to internal format with validation.
func (s *Service) ParseAndValidateCORSRules(s3Rules []s3types.CORSRule) ([]metadata.CORSRule, error) {
	if len(s3Rules) == 0 {
		return nil, fmt.Errorf("CORS configuration must have at least one rule")
	}
	if len(s3Rules) > 100 {
		return nil, fmt.Errorf("CORS configuration cannot have more than 100 rules")
	}

	rules := make([]metadata.CORSRule, 0, len(s3Rules))
	for i, s3Rule := range s3Rules {
		if len(s3Rule.AllowedOrigin) == 0 {
			return nil, fmt.Errorf("rule %d: AllowedOrigin is required", i+1)
		}
		if len(s3Rule.AllowedMethod) == 0 {
			return nil, fmt.Errorf("rule %d: AllowedMethod is required", i+1)
		}

		validMethods := map[string]bool{
			"GET": true, "PUT": true, "POST": true, "DELETE": true, "HEAD": true,
		}
		for _, method := range s3Rule.AllowedMethod {
			if !validMethods[strings.ToUpper(method)] {
				return nil, fmt.Errorf("rule %d: invalid method '%s'", i+1, method)
			}
		}

		if s3Rule.MaxAgeSeconds < 0 {
			return nil, fmt.Errorf("rule %d: MaxAgeSeconds cannot be negative", i+1)
		}
		if s3Rule.MaxAgeSeconds > 86400 {
			return nil, fmt.Errorf("rule %d: MaxAgeSeconds cannot exceed 86400", i+1)
		}

		rules = append(rules, metadata.CORSRule{
			AllowedOrigins: s3Rule.AllowedOrigin,
			AllowedMethods: s3Rule.AllowedMethod,
			AllowedHeaders: s3Rule.AllowedHeader,
			ExposeHeaders:  s3Rule.ExposeHeader,
			MaxAgeSeconds:  s3Rule.MaxAgeSeconds,
		})
	}

	return rules, nil
}

// MatchCORSOrigin checks if the origin matches any of the allowed origins.
// Returns the origin to use in the response and whether it matched. A rule
// like "http://*.bar.com" wildcards subdomains of bar.com; the scheme on
// either side is stripped before the wildcard is evaluated, since S3's own
// CORSRule examples write the scheme into AllowedOrigin.
func MatchCORSOrigin(allowedOrigins []string, origin string) (string, bool) {
	domain := stripScheme(origin)

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return "*", true
		}
		if allowed == origin {
			return origin, true
		}

		allowedDomain := stripScheme(allowed)
		if suffix, ok := strings.CutPrefix(allowedDomain, "*"); ok {
			if strings.HasSuffix(domain, suffix) && len(domain) > len(suffix) {
				return origin, true
			}
		}
	}
	return "", false
}

// stripScheme removes a leading "scheme://" from s, if present.
func stripScheme(s string) string {
	if idx := strings.Index(s, "://"); idx != -1 {
		return s[idx+3:]
	}
	return s
}
