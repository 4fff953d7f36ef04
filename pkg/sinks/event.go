package sinks

import (
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
)

// Item is the wire form of one normalized hot item.
type Item struct {
	Title string         `json:"title"`
	Rank  int            `json:"rank"`
	URL   string         `json:"url,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// FailurePayload is the wire form of a per-platform failure.
type FailurePayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is the payload delivered downstream: one platform's outcome from
// one aggregation run.
type Event struct {
	RunID        string          `json:"run_id"`
	PlatformID   string          `json:"platform_id"`
	PlatformName string          `json:"platform_name"`
	Items        []Item          `json:"items,omitempty"`
	Failure      *FailurePayload `json:"failure,omitempty"`
	CollectedAt  time.Time       `json:"collected_at"`
}

// NewEvent converts a platform's fetch result into a deliverable event.
func NewEvent(runID, platformID, platformName string, res domain.FetchResult) Event {
	evt := Event{
		RunID:        runID,
		PlatformID:   platformID,
		PlatformName: platformName,
		CollectedAt:  time.Now().UTC(),
	}

	if res.Failure != nil {
		evt.Failure = &FailurePayload{
			Kind:    string(res.Failure.Kind),
			Message: res.Failure.Message,
		}
		return evt
	}

	evt.Items = make([]Item, 0, len(res.Items))
	for _, it := range res.Items {
		evt.Items = append(evt.Items, Item{
			Title: it.Title,
			Rank:  it.Rank,
			URL:   it.URL,
			Extra: it.Extra,
		})
	}
	return evt
}
