package platforms

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/pkg/httpclient"
)

// standardAdapter calls the shared aggregation API, parameterized by the
// platform id. Response envelope: {"status": ..., "id": ..., "items": [...]}.
type standardAdapter struct {
	client  httpclient.Client
	baseURL string
}

// NewStandardAdapter builds the shared-aggregation-API adapter.
func NewStandardAdapter(client httpclient.Client, baseURL string) Adapter {
	return &standardAdapter{
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

func (a *standardAdapter) Fetch(ctx context.Context, p Platform) (RawResponse, error) {
	if p.Mode() != ModeStandard {
		return RawResponse{}, domain.NewError(domain.KindConfig, p.ID,
			fmt.Sprintf("standard adapter received custom-mode platform %q", p.ID))
	}
	if a.baseURL == "" {
		return RawResponse{}, domain.NewError(domain.KindConfig, p.ID, "aggregation API base URL is empty")
	}

	// latest asks the aggregation API to bypass its cache when it can.
	endpoint := fmt.Sprintf("%s/api/s?id=%s&latest", a.baseURL, url.QueryEscape(p.ID))

	reqCtx, cancel := requestContext(ctx, p)
	defer cancel()

	resp, err := a.client.Get(reqCtx, endpoint, p.Headers())
	if err != nil {
		return RawResponse{}, classifyFetchError(p.ID, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return RawResponse{}, domain.NewError(domain.KindUpstream, p.ID,
			fmt.Sprintf("aggregation API returned status %d body: %s", code, responseSnippet(body)))
	}

	decoded, err := decodeJSONBody(p.ID, body)
	if err != nil {
		return RawResponse{}, err
	}

	if err := checkEnvelopeStatus(p.ID, decoded); err != nil {
		return RawResponse{}, err
	}

	return RawResponse{PlatformID: p.ID, Body: decoded}, nil
}

// checkEnvelopeStatus rejects envelopes whose status is neither
// "success" nor "cache". The body is valid JSON, so this counts as the
// upstream service refusing, not a parse problem.
func checkEnvelopeStatus(platformID string, decoded any) error {
	envelope, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := envelope["status"]
	if !ok {
		return nil
	}
	status, ok := raw.(string)
	if !ok {
		return domain.NewError(domain.KindUpstream, platformID,
			fmt.Sprintf("aggregation API status field has unexpected type %T", raw))
	}
	if status != "success" && status != "cache" {
		return domain.NewError(domain.KindUpstream, platformID,
			fmt.Sprintf("aggregation API reported status %q", status))
	}
	return nil
}
