package events

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"
)

// S3Event represents an S3 event notification.
type S3Event struct {
	// Records contains the event records
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord represents a single S3 event record.
type S3EventRecord struct {
	EventVersion      string            `json:"eventVersion"`
	EventSource       string            `json:"eventSource"`
	AWSRegion         string            `json:"awsRegion"`
	EventTime         time.Time         `json:"eventTime"`
	EventName         string            `json:"eventName"`
	UserIdentity      UserIdentity      `json:"userIdentity"`
	RequestParameters map[string]string `json:"requestParameters"`
	ResponseElements  map[string]string `json:"responseElements"`
	S3                S3Entity          `json:"s3"`
}

// UserIdentity contains user identity information.
type UserIdentity struct {
	PrincipalID string `json:"principalId"`
}

// S3Entity contains S3-specific event data.
type S3Entity struct {
	SchemaVersion   string   `json:"s3SchemaVersion"`
	ConfigurationID string   `json:"configurationId,omitempty"`
	Bucket          S3Bucket `json:"bucket"`
	Object          S3Object `json:"object"`
}

// S3Bucket contains bucket information.
type S3Bucket struct {
	Name          string       `json:"name"`
	OwnerIdentity UserIdentity `json:"ownerIdentity"`
	ARN           string       `json:"arn"`
}

// S3Object contains object information.
type S3Object struct {
	Key       string `json:"key"`
	ETag      string `json:"eTag,omitempty"`
	Sequencer string `json:"sequencer,omitempty"`
	Size      int64  `json:"size"`
}

// EventType represents the type of S3 event.
type EventType string

// S3 event types the emulator emits. The object service records a fixed
// 21-character hex stub principal ID on every record.
const (
	EventObjectCreatedPut                     EventType = "s3:ObjectCreated:Put"
	EventObjectCreatedPost                    EventType = "s3:ObjectCreated:Post"
	EventObjectCreatedCopy                    EventType = "s3:ObjectCreated:Copy"
	EventObjectCreatedCompleteMultipartUpload EventType = "s3:ObjectCreated:CompleteMultipartUpload"
	EventObjectRemovedDelete                  EventType = "s3:ObjectRemoved:Delete"
)

// StubBucketOwnerID is the fixed 14-character hex owner identity used in
// every bucket entity of an emitted event.
const StubBucketOwnerID = "a1b2c3d4e5f601"

// NewS3Event builds a single-record S3 event envelope.
func NewS3Event(eventType EventType, bucket, key string, size int64, etag, principalID string) *S3Event {
	now := time.Now()

	return &S3Event{
		Records: []S3EventRecord{
			{
				EventVersion: "2.0",
				EventSource:  "aws:s3",
				AWSRegion:    "us-east-1",
				EventTime:    now,
				EventName:    string(eventType),
				UserIdentity: UserIdentity{
					PrincipalID: "AWS:" + principalID,
				},
				RequestParameters: map[string]string{
					"sourceIPAddress": "127.0.0.1",
				},
				ResponseElements: map[string]string{
					"x-amz-request-id": randomHex(8),
					"x-amz-id-2":       randomHex(32),
				},
				S3: S3Entity{
					SchemaVersion:   "1.0",
					ConfigurationID: "testConfigId",
					Bucket: S3Bucket{
						Name: bucket,
						OwnerIdentity: UserIdentity{
							PrincipalID: StubBucketOwnerID,
						},
						ARN: "arn:aws:s3:::" + bucket,
					},
					Object: S3Object{
						Key:       key,
						Size:      size,
						ETag:      etag,
						Sequencer: sequencer(now),
					},
				},
			},
		},
	}
}

// ToJSON serializes the event to JSON.
func (e *S3Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// sequencer returns a hex-encoded, strictly increasing timestamp, used
// by S3 clients to order events for the same key.
func sequencer(t time.Time) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.UnixNano()))
	return hex.EncodeToString(buf[:])
}
