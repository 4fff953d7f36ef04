package platforms

import (
	"context"
	"fmt"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/pkg/httpclient"
)

// customAdapter calls a platform's own endpoint. No shape is assumed
// beyond "valid JSON that is a mapping or a sequence"; interpreting the
// shape is the normalizer's job, driven by the platform's field mapping.
type customAdapter struct {
	client httpclient.Client
}

// NewCustomAdapter builds the arbitrary-endpoint adapter.
func NewCustomAdapter(client httpclient.Client) Adapter {
	return &customAdapter{client: client}
}

func (a *customAdapter) Fetch(ctx context.Context, p Platform) (RawResponse, error) {
	if p.Mode() != ModeCustom {
		return RawResponse{}, domain.NewError(domain.KindConfig, p.ID,
			fmt.Sprintf("custom adapter received standard-mode platform %q", p.ID))
	}

	reqCtx, cancel := requestContext(ctx, p)
	defer cancel()

	var body any
	if p.Request != nil && len(p.Request.Body) > 0 {
		body = p.Request.Body
	}

	resp, err := a.client.Do(reqCtx, p.Method(), p.APIURL, p.Headers(), body)
	if err != nil {
		return RawResponse{}, classifyFetchError(p.ID, err)
	}

	raw := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return RawResponse{}, domain.NewError(domain.KindUpstream, p.ID,
			fmt.Sprintf("endpoint returned status %d body: %s", code, responseSnippet(raw)))
	}

	decoded, err := decodeJSONBody(p.ID, raw)
	if err != nil {
		return RawResponse{}, err
	}

	switch decoded.(type) {
	case map[string]any, []any:
	default:
		return RawResponse{}, domain.NewError(domain.KindSchema, p.ID,
			fmt.Sprintf("endpoint returned JSON of type %T, expected object or array", decoded))
	}

	return RawResponse{PlatformID: p.ID, Body: decoded}, nil
}
