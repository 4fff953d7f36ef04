package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileSink appends each event as one NDJSON line to a per-run file under
// a dated directory: <dir>/<YYYY-MM-DD>/<run_id>.ndjson.
type fileSink struct {
	id  string
	dir string
	typ string

	mu sync.Mutex
}

func newFileSink(_ context.Context, cfg SinkConfig, _ Logger) (Sink, error) {
	if cfg.File == nil {
		return nil, fmt.Errorf("sink %q missing file configuration", cfg.ID)
	}
	return &fileSink{
		id:  cfg.ID,
		typ: TypeFile,
		dir: cfg.File.Dir,
	}, nil
}

func (f *fileSink) ID() string   { return f.id }
func (f *fileSink) Type() string { return f.typ }

func (f *fileSink) Deliver(_ context.Context, evt Event) error {
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	at := evt.CollectedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	dir := filepath.Join(f.dir, at.Format("2006-01-02"))
	path := filepath.Join(dir, evt.RunID+".ndjson")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event line: %w", err)
	}
	return nil
}
