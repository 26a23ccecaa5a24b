// Package testutil provides fixtures and assertion helpers shared across
// the server's test suite. It deliberately stops short of mocking
// metadata.Store or backend.Backend — every package's tests construct a
// real metadata.NewMemStore() and a real fs.Backend rooted in a t.TempDir()
// instead, since both are cheap to build and exercising the real
// implementation catches drift a hand-written mock would hide.
package testutil

import (
	"os"
	"strings"
)

// ContainsString checks if the string s contains the substring substr.
// This is a convenience wrapper around strings.Contains for test assertions.
func ContainsString(s, substr string) bool {
	return strings.Contains(s, substr)
}

// ContainsStringInsensitive checks if the string s contains the substring substr (case-insensitive).
// Useful for comparing error messages or log output where case may vary.
func ContainsStringInsensitive(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// GetEnvOrDefault returns the environment variable value or a default if not set.
// This is useful for configurable test parameters like test timeouts or resource limits.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MultipartUploadKey generates a consistent key for multipart upload storage.
// Format: "bucket/key/uploadID".
func MultipartUploadKey(bucket, key, uploadID string) string {
	return bucket + "/" + key + "/" + uploadID
}
