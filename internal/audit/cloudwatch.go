package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// DefaultLogGroup is the audit log group when none is configured.
const DefaultLogGroup = "/plcgate/audit"

// cloudWatchAPI is the CloudWatch Logs surface the sink consumes.
type cloudWatchAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatch appends events to a CloudWatch Logs group, one stream per UTC
// calendar date. Stream creation is idempotent.
type CloudWatch struct {
	client cloudWatchAPI
	group  string
	now    func() time.Time
}

// NewCloudWatch creates a CloudWatch Logs sink.
func NewCloudWatch(ctx context.Context, cfg Config) (*CloudWatch, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var cwOpts []func(*cloudwatchlogs.Options)
	if cfg.Endpoint != "" {
		cwOpts = append(cwOpts, func(o *cloudwatchlogs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	group := cfg.LogGroup
	if group == "" {
		group = DefaultLogGroup
	}

	return &CloudWatch{
		client: cloudwatchlogs.NewFromConfig(awsCfg, cwOpts...),
		group:  group,
		now:    time.Now,
	}, nil
}

// Write appends one event to today's stream, creating the stream first.
// A pre-existing stream is not an error.
func (c *CloudWatch) Write(ctx context.Context, event Event) error {
	now := c.now().UTC()
	stream := now.Format("2006-01-02")

	_, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			return fmt.Errorf("audit: create log stream: %w", err)
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	_, err = c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(stream),
		LogEvents: []types.InputLogEvent{{
			Timestamp: aws.Int64(now.UnixMilli()),
			Message:   aws.String(string(payload)),
		}},
	})
	if err != nil {
		return fmt.Errorf("audit: put log events: %w", err)
	}
	return nil
}
