package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// fakeSNSClient captures Publish inputs.
type fakeSNSClient struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sns.PublishOutput{}, nil
}

func TestSNSSinkDeliver(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:ap-south-1:0:hot-topics",
		client:   client,
		log:      ensureLogger(nil),
	}

	evt := Event{RunID: "r1", PlatformID: "weibo"}
	if err := sink.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("publishes = %d", len(client.inputs))
	}
	input := client.inputs[0]
	if *input.TopicArn != sink.topicARN {
		t.Fatalf("topic arn = %q", *input.TopicArn)
	}
	if *input.MessageAttributes["platform_id"].StringValue != "weibo" {
		t.Fatalf("platform_id attribute = %#v", input.MessageAttributes)
	}

	var decoded Event
	if err := json.Unmarshal([]byte(*input.Message), &decoded); err != nil {
		t.Fatalf("message is not the event JSON: %v", err)
	}
	if decoded.RunID != "r1" {
		t.Fatalf("decoded = %#v", decoded)
	}
}

func TestSNSSinkPublishError(t *testing.T) {
	sink := &snsSink{
		id:       "topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:ap-south-1:0:hot-topics",
		client:   &fakeSNSClient{err: errors.New("access denied")},
		log:      ensureLogger(nil),
	}

	if err := sink.Deliver(context.Background(), Event{RunID: "r1"}); err == nil {
		t.Fatalf("expected publish error")
	}
}
