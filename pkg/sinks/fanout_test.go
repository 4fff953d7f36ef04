package sinks

import (
	"context"
	"errors"
	"testing"
)

// recordingSink captures delivered events or fails on demand.
type recordingSink struct {
	id     string
	fail   bool
	events []Event
}

func (r *recordingSink) ID() string   { return r.id }
func (r *recordingSink) Type() string { return "recording" }

func (r *recordingSink) Deliver(_ context.Context, evt Event) error {
	if r.fail {
		return errors.New("delivery refused")
	}
	r.events = append(r.events, evt)
	return nil
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a := &recordingSink{id: "a"}
	b := &recordingSink{id: "b"}
	fanout := NewFanout([]Sink{a, b, nil})

	if fanout.Size() != 2 {
		t.Fatalf("Size = %d", fanout.Size())
	}

	n, err := fanout.Deliver(context.Background(), Event{RunID: "r1", PlatformID: "zhihu"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if n != 2 {
		t.Fatalf("delivered = %d", n)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("events a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestFanoutIsolatesFailures(t *testing.T) {
	bad := &recordingSink{id: "bad", fail: true}
	good := &recordingSink{id: "good"}
	fanout := NewFanout([]Sink{bad, good})

	n, err := fanout.Deliver(context.Background(), Event{RunID: "r1", PlatformID: "weibo"})
	if err == nil {
		t.Fatalf("expected joined error from failing sink")
	}
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if len(good.events) != 1 {
		t.Fatalf("good sink should still receive the event")
	}
}

func TestFanoutEmpty(t *testing.T) {
	var fanout *Fanout
	if n, err := fanout.Deliver(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout: n=%d err=%v", n, err)
	}
}
