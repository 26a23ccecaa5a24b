// Package auth provides AWS Signature V4 verification for the emulator.
//
// The emulator has exactly one account model: a fixed dummy account
// (access key S3RVER, secret S3RVER) plus any additional keys the operator
// preconfigures at startup. There is no JWT, no IAM policy evaluation, no
// external identity provider — SigV4 is the only authentication mechanism.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/piwi3910/nebulaio/internal/metadata"
)

// DefaultAccessKeyID and DefaultSecretAccessKey are the fixed dummy
// credentials every emulator instance provisions, matching the reference
// implementation's single built-in account.
const (
	DefaultAccessKeyID     = "S3RVER"
	DefaultSecretAccessKey = "S3RVER"
)

// Config holds auth service configuration.
type Config struct {
	// AllowMismatchedSignatures accepts a well-formed but incorrect
	// signature as belonging to the declared account. Tests only.
	AllowMismatchedSignatures bool
}

// Service resolves access keys against the account registry and checks
// SigV4 signatures.
type Service struct {
	config Config
	keys   map[string]metadata.AccessKey
}

// NewService creates an auth service seeded with the default account.
func NewService(config Config) *Service {
	s := &Service{
		config: config,
		keys:   make(map[string]metadata.AccessKey),
	}
	s.keys[DefaultAccessKeyID] = metadata.AccessKey{
		AccessKeyID:     DefaultAccessKeyID,
		SecretAccessKey: DefaultSecretAccessKey,
		DisplayName:     "S3RVER",
	}
	return s
}

// AddAccessKey registers an additional account, used by --configure-bucket
// style startup preconfiguration.
func (s *Service) AddAccessKey(key metadata.AccessKey) {
	s.keys[key.AccessKeyID] = key
}

var errAccessKeyNotFound = errors.New("auth: access key not found")

// ValidateAccessKey resolves an access key ID to its credential record.
func (s *Service) ValidateAccessKey(_ context.Context, accessKeyID string) (*metadata.AccessKey, error) {
	key, ok := s.keys[accessKeyID]
	if !ok {
		return nil, errAccessKeyNotFound
	}
	return &key, nil
}

// ValidateSignature compares a computed signature against the one supplied
// by the client, constant-time. When AllowMismatchedSignatures is set a
// mismatch is tolerated (used only to exercise clients that sign requests
// incorrectly on purpose).
func (s *Service) ValidateSignature(_ context.Context, accessKeyID, stringToSign, signature string) error {
	key, ok := s.keys[accessKeyID]
	if !ok {
		return errAccessKeyNotFound
	}

	h := hmac.New(sha256.New, []byte(key.SecretAccessKey))
	h.Write([]byte(stringToSign))
	expected := hex.EncodeToString(h.Sum(nil))

	if hmac.Equal([]byte(signature), []byte(expected)) {
		return nil
	}
	if s.config.AllowMismatchedSignatures {
		return nil
	}
	return errSignatureMismatch
}

var errSignatureMismatch = errors.New("auth: signature mismatch")
