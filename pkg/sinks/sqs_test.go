package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// fakeSQSClient captures SendMessage inputs.
type fakeSQSClient struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSSinkDeliver(t *testing.T) {
	client := &fakeSQSClient{}
	sink := &sqsSink{
		id:       "queue",
		typ:      TypeSQS,
		queueURL: "https://sqs.ap-south-1.amazonaws.com/0/hot-topics",
		client:   client,
		log:      ensureLogger(nil),
	}

	evt := Event{RunID: "r1", PlatformID: "zhihu", PlatformName: "知乎"}
	if err := sink.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("sends = %d", len(client.inputs))
	}
	input := client.inputs[0]
	if *input.QueueUrl != sink.queueURL {
		t.Fatalf("queue url = %q", *input.QueueUrl)
	}
	if *input.MessageAttributes["platform_id"].StringValue != "zhihu" {
		t.Fatalf("platform_id attribute = %#v", input.MessageAttributes)
	}
	if *input.MessageAttributes["run_id"].StringValue != "r1" {
		t.Fatalf("run_id attribute = %#v", input.MessageAttributes)
	}

	var decoded Event
	if err := json.Unmarshal([]byte(*input.MessageBody), &decoded); err != nil {
		t.Fatalf("body is not the event JSON: %v", err)
	}
	if decoded.PlatformName != "知乎" {
		t.Fatalf("decoded = %#v", decoded)
	}
}

func TestSQSSinkSendError(t *testing.T) {
	sink := &sqsSink{
		id:       "queue",
		typ:      TypeSQS,
		queueURL: "https://example.com/q",
		client:   &fakeSQSClient{err: errors.New("throttled")},
		log:      ensureLogger(nil),
	}

	if err := sink.Deliver(context.Background(), Event{RunID: "r1"}); err == nil {
		t.Fatalf("expected send error")
	}
}
