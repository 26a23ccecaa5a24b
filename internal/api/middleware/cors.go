package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/piwi3910/nebulaio/internal/bucket"
	"github.com/piwi3910/nebulaio/internal/metadata"
	"github.com/piwi3910/nebulaio/pkg/s3errors"
)

// S3CORSMiddleware evaluates preflight and actual cross-origin requests
// against a bucket's own CORS configuration, matching the per-bucket rule
// model S3 exposes rather than a single global origin allowlist.
type S3CORSMiddleware struct {
	bucketService *bucket.Service
}

// NewS3CORSMiddleware creates a new S3 CORS middleware.
func NewS3CORSMiddleware(bucketService *bucket.Service) *S3CORSMiddleware {
	return &S3CORSMiddleware{
		bucketService: bucketService,
	}
}

// Handler returns the middleware handler function.
func (m *S3CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// If no origin header, this is not a CORS request
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Extract bucket name from URL. Middleware mounted with Use runs
		// before chi has matched a route, so the route parameter may not be
		// set yet; the first path segment names the bucket in that case.
		bucketName := chi.URLParam(r, "bucket")
		if bucketName == "" {
			bucketName, _, _ = strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
		}
		if bucketName == "" {
			// For root-level operations (like ListBuckets), allow CORS with defaults
			m.setDefaultCORSHeaders(w, origin, r.Method)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)

			return
		}

		// Get bucket's CORS configuration
		rules, err := m.bucketService.GetCORS(r.Context(), bucketName)
		if err != nil {
			var s3Err s3errors.S3Error
			if !errors.As(err, &s3Err) || s3Err.Code != "NoSuchCORSConfiguration" {
				// Bucket not found or other error - let the request proceed to
				// the handler, which will produce the right error itself.
				next.ServeHTTP(w, r)
				return
			}

			// No CORS configuration is the same as a bucket with zero CORS
			// rules: FindMatchingCORSRule never matches, so preflight still
			// gets its 403 and an actual request still proceeds without any
			// CORS headers set (the browser will reject the response).
			rules = nil
		}

		// Handle preflight request (OPTIONS)
		if r.Method == http.MethodOptions {
			m.handlePreflight(w, r, rules, origin)
			return
		}

		// Handle actual request
		m.handleActualRequest(w, r, next, rules, origin)
	})
}

// handlePreflight handles CORS preflight OPTIONS requests.
func (m *S3CORSMiddleware) handlePreflight(w http.ResponseWriter, r *http.Request, rules []metadata.CORSRule, origin string) {
	// Get the requested method from Access-Control-Request-Method header
	requestMethod := r.Header.Get("Access-Control-Request-Method")
	if requestMethod == "" {
		// Not a valid preflight request
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Get requested headers
	requestHeaders := r.Header.Get("Access-Control-Request-Headers")

	// Find a matching CORS rule
	rule := m.bucketService.FindMatchingCORSRule(rules, origin, requestMethod)
	if rule == nil {
		// No matching rule - return 403
		w.WriteHeader(http.StatusForbidden)
		return
	}

	// Check if requested headers are allowed
	if requestHeaders != "" {
		if !m.areHeadersAllowed(rule.AllowedHeaders, requestHeaders) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	// Set CORS preflight response headers
	allowedOrigin, _ := bucket.MatchCORSOrigin(rule.AllowedOrigins, origin)
	w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(rule.AllowedMethods, ", "))

	// Echo back the headers the browser asked to send, lowercased, rather
	// than the bucket's configured allowlist - the browser only needs to
	// know the headers it requested were approved.
	if requestHeaders != "" {
		echoed := make([]string, 0)

		for h := range strings.SplitSeq(requestHeaders, ",") {
			h = strings.ToLower(strings.TrimSpace(h))
			if h != "" {
				echoed = append(echoed, h)
			}
		}

		if len(echoed) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(echoed, ", "))
		}
	}

	if rule.MaxAgeSeconds > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(rule.MaxAgeSeconds))
	}

	// Vary header is important for caching
	w.Header().Add("Vary", "Origin")
	w.Header().Add("Vary", "Access-Control-Request-Method")
	w.Header().Add("Vary", "Access-Control-Request-Headers")

	w.WriteHeader(http.StatusOK)
}

// handleActualRequest handles the actual CORS request (not preflight).
func (m *S3CORSMiddleware) handleActualRequest(w http.ResponseWriter, r *http.Request, next http.Handler, rules []metadata.CORSRule, origin string) {
	// Find a matching CORS rule
	rule := m.bucketService.FindMatchingCORSRule(rules, origin, r.Method)
	if rule == nil {
		// No matching rule - proceed without CORS headers
		// The browser will reject the response
		next.ServeHTTP(w, r)
		return
	}

	// Set CORS response headers
	allowedOrigin, _ := bucket.MatchCORSOrigin(rule.AllowedOrigins, origin)
	w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)

	if len(rule.ExposeHeaders) > 0 {
		w.Header().Set("Access-Control-Expose-Headers", strings.Join(rule.ExposeHeaders, ", "))
	}

	// Vary header is important for caching
	w.Header().Add("Vary", "Origin")

	// Accept-Ranges/Content-Range are only meaningful to a cross-origin
	// caller on a 206 Partial Content response, so they're added to
	// Access-Control-Expose-Headers as the status is written rather than
	// unconditionally on every response.
	next.ServeHTTP(&partialContentExposingWriter{ResponseWriter: w}, r)
}

// partialContentExposingWriter adds Accept-Ranges and Content-Range to
// Access-Control-Expose-Headers when the wrapped handler answers with a
// 206 Partial Content status.
type partialContentExposingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *partialContentExposingWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true

		if status == http.StatusPartialContent {
			rangeHeaders := []string{"Accept-Ranges", "Content-Range"}

			if existing := w.Header().Get("Access-Control-Expose-Headers"); existing != "" {
				merged := append(strings.Split(existing, ", "), rangeHeaders...)
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(unique(merged), ", "))
			} else {
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(rangeHeaders, ", "))
			}
		}
	}

	w.ResponseWriter.WriteHeader(status)
}

func (w *partialContentExposingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	return w.ResponseWriter.Write(b)
}

// areHeadersAllowed checks if all requested headers are allowed by the CORS rule.
func (m *S3CORSMiddleware) areHeadersAllowed(allowedHeaders []string, requestedHeaders string) bool {
	if len(allowedHeaders) == 0 {
		// No headers allowed but headers were requested
		return requestedHeaders == ""
	}

	// Check for wildcard
	if slices.Contains(allowedHeaders, "*") {
		return true
	}

	// Parse requested headers
	for reqHeader := range strings.SplitSeq(requestedHeaders, ",") {
		reqHeader = strings.TrimSpace(strings.ToLower(reqHeader))
		if reqHeader == "" {
			continue
		}

		found := false

		for _, allowed := range allowedHeaders {
			if strings.ToLower(allowed) == reqHeader {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// setDefaultCORSHeaders sets minimal CORS headers for non-bucket operations.
func (m *S3CORSMiddleware) setDefaultCORSHeaders(w http.ResponseWriter, origin, method string) {
	// For root operations (like ListBuckets), we can allow based on origin
	// In production, this might be more restrictive
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Amz-Date, X-Amz-Content-SHA256")
	w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Amz-Request-Id")
	w.Header().Set("Access-Control-Max-Age", "3600")
	w.Header().Add("Vary", "Origin")
}

// unique returns a slice with duplicate strings removed.
func unique(strs []string) []string {
	seen := make(map[string]bool)

	result := make([]string, 0, len(strs))
	for _, s := range strs {
		lower := strings.ToLower(s)
		if !seen[lower] {
			seen[lower] = true

			result = append(result, s)
		}
	}

	return result
}

