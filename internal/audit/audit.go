// Package audit records security-relevant gateway events to an external,
// append-only sink. Writes are best-effort: the command path never fails
// because the sink does.
package audit

import (
	"context"
	"fmt"

	"github.com/markb/plcgate/internal/plc"
)

// Action tags. One event is recorded per gateway invocation.
const (
	ActionCommand      = "COMMAND"
	ActionCommandError = "COMMAND_ERROR"
)

// Event is a single audit record. Actor fields may be empty on failure paths
// that never resolved an identity.
type Event struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId,omitempty"`
	Email     string       `json:"email,omitempty"`
	Action    string       `json:"action"`
	Timestamp string       `json:"timestamp"`
	SourceIP  string       `json:"sourceIP"`
	UserAgent string       `json:"userAgent,omitempty"`
	Command   *plc.Command `json:"command,omitempty"`
	Result    string       `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Sink appends events to an external store.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Config selects and configures the sink backend.
type Config struct {
	// Backend is "cloudwatch", "s3", or "log".
	Backend string

	// LogGroup is the CloudWatch Logs group name.
	LogGroup string

	// Bucket is the S3 bucket for the s3 backend.
	Bucket string

	// Region is the AWS region.
	Region string

	// Endpoint overrides the AWS endpoint (for localstack and tests).
	Endpoint string

	// AccessKeyID is the AWS access key (optional if using IAM roles).
	AccessKeyID string

	// SecretAccessKey is the AWS secret key (optional if using IAM roles).
	SecretAccessKey string
}

// NewSink creates the configured sink backend.
func NewSink(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Backend {
	case "cloudwatch":
		return NewCloudWatch(ctx, cfg)
	case "s3":
		return NewS3(ctx, cfg)
	case "log", "":
		return NewLogSink(), nil
	default:
		return nil, fmt.Errorf("audit: unknown backend %q", cfg.Backend)
	}
}
