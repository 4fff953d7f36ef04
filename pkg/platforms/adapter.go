package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/pkg/httpclient"
)

// RawResponse carries a platform's decoded JSON body, untouched beyond
// decoding. Normalization happens downstream.
type RawResponse struct {
	PlatformID string
	Body       any
}

// Adapter fetches the raw trending payload for one platform. Exactly one
// attempt per call; retry policy belongs to the caller.
type Adapter interface {
	Fetch(ctx context.Context, p Platform) (RawResponse, error)
}

// AdapterRegistry resolves the adapter variant for a platform's mode.
type AdapterRegistry struct {
	standard Adapter
	custom   Adapter
}

// NewAdapterRegistry pairs the two fetch strategies.
func NewAdapterRegistry(standard, custom Adapter) *AdapterRegistry {
	return &AdapterRegistry{standard: standard, custom: custom}
}

// AdapterFor selects the adapter by the platform's derived mode.
func (r *AdapterRegistry) AdapterFor(p Platform) (Adapter, error) {
	if r == nil {
		return nil, errors.New("adapter registry is nil")
	}
	switch p.Mode() {
	case ModeCustom:
		if r.custom == nil {
			return nil, errors.New("no custom adapter registered")
		}
		return r.custom, nil
	default:
		if r.standard == nil {
			return nil, errors.New("no standard adapter registered")
		}
		return r.standard, nil
	}
}

// classifyFetchError maps a client error onto the transport taxonomy,
// distinguishing deadline hits.
func classifyFetchError(platformID string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.KindTimeout, platformID, "request deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(domain.KindTimeout, platformID, "request timed out", err)
	}
	return domain.WrapError(domain.KindTransport, platformID, "request failed", err)
}

// decodeJSONBody parses the response body, classifying invalid JSON.
func decodeJSONBody(platformID string, body []byte) (any, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, domain.WrapError(domain.KindParse, platformID, "response body is not valid JSON", err)
	}
	return decoded, nil
}

// responseSnippet trims a body for inclusion in error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// requestContext applies a per-platform timeout override on top of the
// shared client timeout.
func requestContext(ctx context.Context, p Platform) (context.Context, context.CancelFunc) {
	if p.Request != nil && p.Request.TimeoutSeconds > 0 {
		return context.WithTimeout(ctx, secondsToDuration(p.Request.TimeoutSeconds))
	}
	return ctx, func() {}
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

var _ httpclient.Client = (*httpclient.RestyClient)(nil)
