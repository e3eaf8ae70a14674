package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakecraft/silversmith/pkg/types"
)

type fakeSNS struct {
	publishFn func(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

func (f *fakeSNS) Publish(ctx context.Context, input *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return f.publishFn(ctx, input)
}

func TestSNSSink_Send(t *testing.T) {
	var gotTopic, gotSubject, gotMessage string
	client := &fakeSNS{publishFn: func(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
		gotTopic = *input.TopicArn
		gotSubject = *input.Subject
		gotMessage = *input.Message
		return &sns.PublishOutput{}, nil
	}}

	sink, err := NewSNSSink("arn:aws:sns:us-east-1:123456789012:reports", "", WithSNSClient(client))
	require.NoError(t, err)
	assert.Equal(t, "sns", sink.Name())

	report := testReport()
	require.NoError(t, sink.Send(context.Background(), report))

	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:reports", gotTopic)
	assert.Equal(t, "[error] silversmith run 2025-08-18", gotSubject)

	var got types.RunReport
	require.NoError(t, json.Unmarshal([]byte(gotMessage), &got))
	assert.Equal(t, report.Failed, got.Failed)
}

func TestSNSSink_SendError(t *testing.T) {
	client := &fakeSNS{publishFn: func(context.Context, *sns.PublishInput) (*sns.PublishOutput, error) {
		return nil, errors.New("topic gone")
	}}
	sink, err := NewSNSSink("arn:aws:sns:us-east-1:123456789012:reports", "", WithSNSClient(client))
	require.NoError(t, err)

	err = sink.Send(context.Background(), testReport())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "topic gone")
}

func TestNewSNSSink_RequiresTopic(t *testing.T) {
	_, err := NewSNSSink("", "")
	assert.Error(t, err)
}
