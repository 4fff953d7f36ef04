package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSinkAppendsNDJSON(t *testing.T) {
	dir := t.TempDir()
	sink, err := newFileSink(context.Background(), SinkConfig{
		ID:   "local",
		Type: TypeFile,
		File: &FileSinkConfig{Dir: dir},
	}, nil)
	if err != nil {
		t.Fatalf("newFileSink: %v", err)
	}

	at := time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	events := []Event{
		{RunID: "20260825T060000Z", PlatformID: "zhihu", CollectedAt: at},
		{RunID: "20260825T060000Z", PlatformID: "weibo", CollectedAt: at},
	}
	for _, evt := range events {
		if err := sink.Deliver(context.Background(), evt); err != nil {
			t.Fatalf("Deliver(%s): %v", evt.PlatformID, err)
		}
	}

	path := filepath.Join(dir, "2026-08-25", "20260825T060000Z.ndjson")
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var lines []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, evt)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0].PlatformID != "zhihu" || lines[1].PlatformID != "weibo" {
		t.Fatalf("order = %q,%q", lines[0].PlatformID, lines[1].PlatformID)
	}
}

func TestFileSinkRequiresConfig(t *testing.T) {
	if _, err := newFileSink(context.Background(), SinkConfig{ID: "x", Type: TypeFile}, nil); err == nil {
		t.Fatalf("expected error without file config")
	}
}
