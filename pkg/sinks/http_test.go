package sinks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSinkPostsEvent(t *testing.T) {
	var gotMethod, gotContentType, gotAuth string
	var gotEvent Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink, err := newHTTPSink(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            server.URL,
			Method:         "POST",
			Headers:        map[string]string{"Authorization": "Bearer token"},
			TimeoutSeconds: 5,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPSink: %v", err)
	}

	evt := Event{RunID: "r1", PlatformID: "zhihu", PlatformName: "知乎"}
	if err := sink.Deliver(context.Background(), evt); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if gotMethod != "POST" {
		t.Fatalf("method = %q", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if gotAuth != "Bearer token" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotEvent.RunID != "r1" || gotEvent.PlatformID != "zhihu" {
		t.Fatalf("event = %#v", gotEvent)
	}
}

func TestHTTPSinkErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "downstream unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sink, err := newHTTPSink(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{URL: server.URL, Method: "POST", TimeoutSeconds: 5},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPSink: %v", err)
	}

	if err := sink.Deliver(context.Background(), Event{RunID: "r1"}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}
