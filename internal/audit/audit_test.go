package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/plcgate/internal/plc"
)

type fakeCloudWatch struct {
	createErr     error
	putErr        error
	createdStream string
	createdGroup  string
	putInput      *cloudwatchlogs.PutLogEventsInput
}

func (f *fakeCloudWatch) CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.createdGroup = aws.ToString(params.LogGroupName)
	f.createdStream = aws.ToString(params.LogStreamName)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeCloudWatch) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.putInput = params
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCloudWatchWrite(t *testing.T) {
	fake := &fakeCloudWatch{}
	sink := &CloudWatch{
		client: fake,
		group:  "/plcgate/audit",
		now:    fixedClock(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)),
	}

	event := Event{
		ID:        "evt-1",
		UserID:    "user-123",
		Email:     "user@example.com",
		Action:    ActionCommand,
		Timestamp: "2026-03-15T10:30:00Z",
		SourceIP:  "10.0.0.1",
		Command:   &plc.Command{Command: "read", Area: "DB1", Address: "100"},
		Result:    "success",
	}

	err := sink.Write(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, "/plcgate/audit", fake.createdGroup)
	assert.Equal(t, "2026-03-15", fake.createdStream, "stream should be named after the UTC date")

	require.NotNil(t, fake.putInput)
	assert.Equal(t, "2026-03-15", aws.ToString(fake.putInput.LogStreamName))
	require.Len(t, fake.putInput.LogEvents, 1)

	logEvent := fake.putInput.LogEvents[0]
	assert.Equal(t, sink.now().UnixMilli(), aws.ToInt64(logEvent.Timestamp))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(logEvent.Message)), &decoded))
	assert.Equal(t, event.UserID, decoded.UserID)
	assert.Equal(t, event.Action, decoded.Action)
	require.NotNil(t, decoded.Command)
	assert.Equal(t, "read", decoded.Command.Command)
}

func TestCloudWatchWriteStreamAlreadyExists(t *testing.T) {
	fake := &fakeCloudWatch{createErr: &cwtypes.ResourceAlreadyExistsException{}}
	sink := &CloudWatch{
		client: fake,
		group:  "/plcgate/audit",
		now:    fixedClock(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)),
	}

	err := sink.Write(context.Background(), Event{Action: ActionCommand})
	require.NoError(t, err, "an existing stream is not an error")
	assert.NotNil(t, fake.putInput, "event should still be written")
}

func TestCloudWatchWriteCreateFails(t *testing.T) {
	fake := &fakeCloudWatch{createErr: errors.New("access denied")}
	sink := &CloudWatch{client: fake, group: "/plcgate/audit", now: time.Now}

	err := sink.Write(context.Background(), Event{Action: ActionCommand})
	require.Error(t, err)
	assert.Nil(t, fake.putInput, "no write should be attempted after a failed create")
}

func TestCloudWatchWritePutFails(t *testing.T) {
	fake := &fakeCloudWatch{putErr: errors.New("throttled")}
	sink := &CloudWatch{client: fake, group: "/plcgate/audit", now: time.Now}

	err := sink.Write(context.Background(), Event{Action: ActionCommandError})
	require.Error(t, err)
}

type fakeS3 struct {
	putErr error
	bucket string
	key    string
	body   []byte
	ctype  string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	f.ctype = aws.ToString(params.ContentType)
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Write(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3{
		client: fake,
		bucket: "plcgate-audit",
		now:    fixedClock(time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)),
	}

	event := Event{
		ID:     "evt-42",
		UserID: "user-123",
		Action: ActionCommand,
	}

	err := sink.Write(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, "plcgate-audit", fake.bucket)
	assert.Equal(t, "audit/2026/03/15/evt-42.json", fake.key)
	assert.Equal(t, "application/json", fake.ctype)

	var decoded Event
	require.NoError(t, json.Unmarshal(fake.body, &decoded))
	assert.Equal(t, "user-123", decoded.UserID)
}

func TestS3WriteGeneratesEventID(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3{
		client: fake,
		bucket: "plcgate-audit",
		now:    fixedClock(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)),
	}

	err := sink.Write(context.Background(), Event{Action: ActionCommandError})
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(fake.body, &decoded))
	assert.NotEmpty(t, decoded.ID, "an ID should be assigned when the caller omits one")
	assert.Equal(t, "audit/2026/03/15/"+decoded.ID+".json", fake.key)
}

func TestS3WriteError(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("no such bucket")}
	sink := &S3{client: fake, bucket: "missing", now: time.Now}

	err := sink.Write(context.Background(), Event{Action: ActionCommand})
	require.Error(t, err)
}

func TestNewSinkDispatch(t *testing.T) {
	ctx := context.Background()

	sink, err := NewSink(ctx, Config{Backend: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)

	sink, err = NewSink(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink, "log is the default backend")

	_, err = NewSink(ctx, Config{Backend: "s3"})
	require.Error(t, err, "s3 backend requires a bucket")

	_, err = NewSink(ctx, Config{Backend: "kafka"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestLogSinkWrite(t *testing.T) {
	sink := NewLogSink()
	err := sink.Write(context.Background(), Event{
		Action: ActionCommand,
		UserID: "user-1",
	})
	assert.NoError(t, err)
}
