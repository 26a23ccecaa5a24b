// Package router resolves an incoming HTTP request's addressing style
// (path-style vs virtual-host-style) and rewrites it to the canonical
// /{bucket}/{key} shape the rest of the server expects, the way the
// teacher's chi middleware chain normalizes requests before they reach
// a handler.
package router

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"
)

// Service identifies which S3-compatible surface a request targets.
type Service string

const (
	// ServiceS3 is the ordinary REST API surface.
	ServiceS3 Service = "s3"
	// ServiceS3Website is the static website hosting surface.
	ServiceS3Website Service = "s3-website"
)

// Config controls how Host headers are interpreted.
type Config struct {
	// ServiceEndpoint is the domain suffix recognized for
	// virtual-host-style addressing, e.g. "amazonaws.com".
	ServiceEndpoint string
	// DisableVHostBuckets turns off the bare-hostname-as-bucket fallback
	// (the CLI's --no-vhost-buckets flag).
	DisableVHostBuckets bool
}

// hostPatternTemplate matches "{bucket.}s3{-website}{-region}.{endpoint}" hosts.
// The endpoint itself is spliced in per-request since it is configurable.
var hostPatternTemplate = `^(?:(.+)\.)?s3(-website)?(?:[-.][^.]+)?\.%s$`

// Target is the resolved addressing decision for one request.
type Target struct {
	Service Service
	Bucket  string
	Key     string
	VHost   bool
}

// Resolve computes the addressing target for r and rewrites r.URL.Path
// in place to the canonical /{bucket}/{key} shape. The Host header and
// r.URL.Path are left untouched otherwise.
func Resolve(r *http.Request, cfg Config) Target {
	host := normalizeHost(r.Host)
	endpoint := cfg.ServiceEndpoint
	if endpoint == "" {
		endpoint = "amazonaws.com"
	}

	path := strings.TrimPrefix(r.URL.Path, "/")

	if bucket, service, ok := matchServiceHost(host, endpoint); ok {
		return rewrite(r, service, bucket, path, true)
	}

	if !cfg.DisableVHostBuckets && looksLikeBucketHost(host, endpoint) {
		return rewrite(r, ServiceS3, host, path, true)
	}

	parts := strings.SplitN(path, "/", 2)
	bucket := ""
	key := ""
	if path != "" {
		bucket = parts[0]
		if len(parts) > 1 {
			key = parts[1]
		}
	}
	return Target{Service: ServiceS3, Bucket: bucket, Key: key, VHost: false}
}

func matchServiceHost(host, endpoint string) (bucket string, service Service, ok bool) {
	pattern := regexp.MustCompile(fmt.Sprintf(hostPatternTemplate, regexp.QuoteMeta(endpoint)))
	m := pattern.FindStringSubmatch(host)
	if m == nil {
		return "", "", false
	}
	service = ServiceS3
	if m[2] != "" {
		service = ServiceS3Website
	}
	return m[1], service, true
}

// looksLikeBucketHost reports whether host, taken whole, is plausibly a
// bucket name rather than an IP, localhost, or this machine's own
// hostname — the fallback addressing mode for custom domains fronting a
// single bucket.
func looksLikeBucketHost(host, endpoint string) bool {
	if host == "" || host == endpoint {
		return false
	}
	if net.ParseIP(host) != nil {
		return false
	}
	if host == "localhost" {
		return false
	}
	if osHostname, err := os.Hostname(); err == nil && strings.EqualFold(host, osHostname) {
		return false
	}
	return true
}

func rewrite(r *http.Request, service Service, bucket, path string, vhost bool) Target {
	key := path
	if bucket != "" {
		if path != "" {
			r.URL.Path = "/" + bucket + "/" + path
		} else {
			r.URL.Path = "/" + bucket
		}
	}
	return Target{Service: service, Bucket: bucket, Key: key, VHost: vhost}
}

func normalizeHost(value string) string {
	host := strings.TrimSpace(value)
	if host == "" {
		return ""
	}
	if parsedHost, _, err := net.SplitHostPort(host); err == nil {
		host = parsedHost
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

// IsSDKRequest reports whether r carries any marker (header or query
// parameter) that identifies it as coming from an AWS SDK rather than a
// browser — such requests always target the s3 service regardless of
// host, per the website-vs-API disambiguation rule.
func IsSDKRequest(r *http.Request) bool {
	for name := range r.Header {
		if strings.HasPrefix(strings.ToLower(name), "x-amz-") {
			return true
		}
	}
	for name := range r.URL.Query() {
		if strings.HasPrefix(strings.ToLower(name), "x-amz-") {
			return true
		}
	}
	return false
}
