// Package website implements static website hosting: index/error document
// resolution and routing-rule evaluation for buckets that carry a
// WebsiteConfig. It sits where the teacher's s3 handler sits for the REST
// API surface, but serves plain HTTP instead of S3 XML responses, the way
// a browser hitting a *.s3-website.* host expects.
package website

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/internal/object"
	"github.com/piwi3910/nebulaio/internal/storage/backend"
)

// Handler serves website-hosting requests resolved by internal/router.
type Handler struct {
	bucket *bucket.Service
	object *object.Service
}

// NewHandler creates a website Handler backed by the given services.
func NewHandler(bucketService *bucket.Service, objectService *object.Service) *Handler {
	return &Handler{bucket: bucketService, object: objectService}
}

// ServeBucket serves one request against bucketName/key once
// internal/router has identified it as targeting the website surface.
// vhost reports whether the request addressed the bucket via a virtual-host
// (bucket.endpoint) host header rather than a path-style (endpoint/bucket)
// one, which determines whether Location headers built here need the
// bucket name folded into the path.
func (h *Handler) ServeBucket(w http.ResponseWriter, r *http.Request, bucketName, key string, vhost bool) {
	ctx := r.Context()

	cfg, err := h.bucket.GetWebsite(ctx, bucketName)
	if err != nil || cfg == nil {
		writeWebsiteErrorHTML(w, http.StatusNotFound, "NoSuchWebsiteConfiguration", key)
		return
	}

	if rule := matchRoutingRule(cfg.RoutingRules, key, ""); rule != nil {
		h.redirect(w, r, rule, bucketName, key, vhost)
		return
	}

	suffix := cfg.IndexSuffix
	if suffix == "" {
		suffix = "index.html"
	}

	lookupKey := key
	if lookupKey == "" || strings.HasSuffix(lookupKey, "/") {
		lookupKey = lookupKey + suffix
	}

	meta, err := h.object.HeadObject(ctx, bucketName, lookupKey)
	if err != nil && lookupKey == key {
		// The literal key is missing; a directory-style index document one
		// level down means the "real" resource is the trailing-slash form.
		if _, indexErr := h.object.HeadObject(ctx, bucketName, lookupKey+"/"+suffix); indexErr == nil {
			w.Header().Set("Location", addressPath(bucketName, key, vhost)+"/")
			w.WriteHeader(http.StatusFound)
			return
		}
	}

	if err == nil && meta.WebsiteRedirectLocation != "" {
		w.Header().Set("Location", meta.WebsiteRedirectLocation)
		w.WriteHeader(http.StatusFound)
		return
	}

	reader, meta, err := h.object.GetObject(ctx, bucketName, lookupKey)
	if err != nil {
		h.serveError(w, r, cfg, bucketName, key, vhost, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.Header().Set("ETag", meta.ETag)
	w.Header().Set("Last-Modified", meta.ModifiedAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// serveError applies routing rules keyed on the error status, then falls
// back to the bucket's ErrorDocument, or to a generated HTML error page
// when none is configured. If the ErrorDocument cannot be read, only the
// status code is written.
func (h *Handler) serveError(w http.ResponseWriter, r *http.Request, cfg *metadata.WebsiteConfig, bucketName, key string, vhost bool, objErr error) {
	status := http.StatusNotFound
	if !errors.Is(objErr, metadata.ErrObjectNotFound) && !errors.Is(objErr, backend.ErrObjectNotFound) {
		status = http.StatusInternalServerError
	}

	if rule := matchRoutingRule(cfg.RoutingRules, key, strconv.Itoa(status)); rule != nil {
		h.redirect(w, r, rule, bucketName, key, vhost)
		return
	}

	errorKey := cfg.ErrorKey
	if errorKey == "" {
		code := "NoSuchKey"
		if status == http.StatusInternalServerError {
			code = "InternalError"
		}
		writeWebsiteErrorHTML(w, status, code, key)
		return
	}

	reader, meta, err := h.object.GetObject(r.Context(), bucketName, errorKey)
	if err != nil {
		w.WriteHeader(status)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.WriteHeader(status)
	_, _ = io.Copy(w, reader)
}

// matchRoutingRule returns the first rule whose condition matches key and,
// when errorCode is non-empty, the HTTP error code that triggered lookup.
// An empty errorCode only matches rules with no error-code condition.
func matchRoutingRule(rules []metadata.WebsiteRoutingRule, key, errorCode string) *metadata.WebsiteRoutingRule {
	for i := range rules {
		rule := rules[i]
		if rule.Condition.KeyPrefixEquals != "" && !strings.HasPrefix(key, rule.Condition.KeyPrefixEquals) {
			continue
		}
		if rule.Condition.HttpErrorCodeReturnedEquals != "" && rule.Condition.HttpErrorCodeReturnedEquals != errorCode {
			continue
		}
		if rule.Condition.HttpErrorCodeReturnedEquals == "" && errorCode != "" {
			continue
		}
		return &rule
	}
	return nil
}

// redirect builds and sends the Location response for a matched routing
// rule, applying ReplaceKeyPrefixWith/ReplaceKeyWith when present. When the
// rule doesn't name an explicit HostName, the redirect stays on the
// request's own host, and the path needs the bucket name folded back in
// for path-style addressing since bucketName never appears in r.URL.Path
// under virtual-host addressing.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, rule *metadata.WebsiteRoutingRule, bucketName, key string, vhost bool) {
	newKey := key
	switch {
	case rule.Redirect.ReplaceKeyWith != nil:
		newKey = *rule.Redirect.ReplaceKeyWith
	case rule.Redirect.ReplaceKeyPrefixWith != nil:
		newKey = *rule.Redirect.ReplaceKeyPrefixWith + strings.TrimPrefix(key, rule.Condition.KeyPrefixEquals)
	}

	protocol := rule.Redirect.Protocol
	if protocol == "" {
		protocol = "http"
		if r.TLS != nil {
			protocol = "https"
		}
	}

	host := rule.Redirect.HostName
	usingRequestHost := host == ""
	if usingRequestHost {
		host = r.Host
	}

	path := "/" + newKey
	if usingRequestHost {
		path = addressPath(bucketName, newKey, vhost)
	}

	code := http.StatusMovedPermanently
	if rule.Redirect.HttpRedirectCode != "" {
		if n, err := strconv.Atoi(rule.Redirect.HttpRedirectCode); err == nil {
			code = n
		}
	}

	w.Header().Set("Location", protocol+"://"+host+path)
	w.WriteHeader(code)
}

// addressPath builds the URL path that addresses key within bucketName
// consistent with how the original request was addressed: path-style
// requests carry the bucket name as the first path segment, virtual-host
// requests carry it in the Host header instead.
func addressPath(bucketName, key string, vhost bool) string {
	if vhost {
		return "/" + key
	}
	return "/" + bucketName + "/" + key
}

// writeWebsiteErrorHTML renders a minimal HTML error document carrying the
// S3 error code and offending key, per the website engine's exception to
// the S3 API's XML error convention.
func writeWebsiteErrorHTML(w http.ResponseWriter, status int, code, key string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "<html>\n<head><title>"+code+"</title></head>\n<body>\n"+
		"<h1>"+code+"</h1>\n<ul>\n<li>Code: "+code+"</li>\n<li>Key: "+key+"</li>\n</ul>\n</body>\n</html>\n")
}
