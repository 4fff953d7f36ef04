package normalize

import (
	"fmt"
	"strings"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"github.com/trendscribe/trend-aggregator/pkg/platforms"
)

// Package normalize maps raw adapter responses onto the uniform HotItem
// model. Everything here is pure: same input, same output, input never
// mutated.

// Warning records a non-fatal condition for a single response element.
type Warning struct {
	Element int
	Reason  string
}

// Result carries the normalized items plus any per-element warnings.
type Result struct {
	Items    []domain.HotItem
	Warnings []Warning
}

// Normalize converts a raw response into ranked hot items according to
// the platform's mode. Ranks are 1-based and contiguous over the
// returned sequence, in source order.
func Normalize(p platforms.Platform, raw platforms.RawResponse) (Result, error) {
	if p.Mode() == platforms.ModeCustom {
		return normalizeCustom(p, raw.Body)
	}
	return normalizeStandard(p.ID, raw.Body)
}

// normalizeStandard handles the aggregation API envelope:
// {"status": ..., "id": ..., "items": [{"title": ..., "url": ...}, ...]}
// A bare top-level list is accepted as the items list itself.
func normalizeStandard(platformID string, body any) (Result, error) {
	elements, err := standardElements(platformID, body)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, elem := range elements {
		entry, ok := elem.(map[string]any)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Element: i, Reason: fmt.Sprintf("element is %T, expected object", elem)})
			continue
		}

		title, ok := stringField(entry["title"])
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Element: i, Reason: "missing or blank title"})
			continue
		}

		item := domain.HotItem{
			PlatformID: platformID,
			Title:      title,
			Rank:       len(res.Items) + 1,
		}
		if u, ok := stringField(entry["url"]); ok {
			item.URL = u
		}
		item.Extra = extraFields(entry, "title", "url")

		res.Items = append(res.Items, item)
	}

	return res, nil
}

func standardElements(platformID string, body any) ([]any, error) {
	switch v := body.(type) {
	case []any:
		return v, nil
	case map[string]any:
		raw, ok := v["items"]
		if !ok {
			return nil, domain.NewError(domain.KindSchema, platformID, "standard response has no items field")
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, domain.NewError(domain.KindSchema, platformID, fmt.Sprintf("items field is %T, expected array", raw))
		}
		return list, nil
	default:
		return nil, domain.NewError(domain.KindSchema, platformID, fmt.Sprintf("standard response is %T, expected object or array", body))
	}
}

// normalizeCustom handles arbitrary endpoint shapes using the platform's
// configured field mapping. A response that already matches the standard
// envelope needs no mapping at all.
func normalizeCustom(p platforms.Platform, body any) (Result, error) {
	if isStandardShape(body) {
		return normalizeStandard(p.ID, body)
	}

	elements, err := customElements(p, body)
	if err != nil {
		return Result{}, err
	}

	if p.FieldMapping == nil || strings.TrimSpace(p.FieldMapping.Title) == "" {
		// Nothing to extract without a title mapping; not fatal, the
		// platform just yields an empty list this run.
		return Result{Warnings: []Warning{{Element: -1, Reason: "no field mapping configured for non-standard response"}}}, nil
	}

	mapping := *p.FieldMapping

	var res Result
	for i, elem := range elements {
		entry, ok := elem.(map[string]any)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Element: i, Reason: fmt.Sprintf("element is %T, expected object", elem)})
			continue
		}

		rawTitle, found := platforms.NestedValue(entry, mapping.Title)
		if !found {
			res.Warnings = append(res.Warnings, Warning{Element: i, Reason: fmt.Sprintf("title path %q not found", mapping.Title)})
			continue
		}
		title, ok := stringField(rawTitle)
		if !ok {
			res.Warnings = append(res.Warnings, Warning{Element: i, Reason: fmt.Sprintf("title path %q is not a usable string", mapping.Title)})
			continue
		}

		item := domain.HotItem{
			PlatformID: p.ID,
			Title:      title,
			Rank:       len(res.Items) + 1,
		}

		if mapping.ItemID != "" {
			if rawID, ok := platforms.NestedValue(entry, mapping.ItemID); ok {
				item.URL = p.BuildItemURL(scalarString(rawID))
			}
		}
		if mapping.PublishTime != "" {
			if ts, ok := platforms.NestedValue(entry, mapping.PublishTime); ok && ts != nil {
				item.Extra = map[string]any{"pubDate": ts}
			}
		}

		res.Items = append(res.Items, item)
	}

	return res, nil
}

// customElements locates the element list inside a custom response:
// explicit data_path first, then (when fallback is allowed) a bare
// top-level array or the configured wrapper keys. Guessing beyond that
// is a schema error, never a silent default.
func customElements(p platforms.Platform, body any) ([]any, error) {
	if p.DataPath != "" {
		if resolved, ok := platforms.NestedValue(body, p.DataPath); ok {
			if list, ok := resolved.([]any); ok {
				return list, nil
			}
			return nil, domain.NewError(domain.KindSchema, p.ID,
				fmt.Sprintf("data_path %q does not point at an array", p.DataPath))
		}
		if !p.FallbackAllowed() {
			return nil, domain.NewError(domain.KindSchema, p.ID,
				fmt.Sprintf("data_path %q not found in response", p.DataPath))
		}
	}

	if !p.FallbackAllowed() && p.DataPath == "" {
		return nil, domain.NewError(domain.KindSchema, p.ID, "no data_path configured and fallback disabled")
	}

	if list, ok := body.([]any); ok {
		return list, nil
	}

	if m, ok := body.(map[string]any); ok && p.FallbackAllowed() {
		for _, key := range p.EffectiveFallbackFields() {
			if list, ok := m[key].([]any); ok {
				return list, nil
			}
		}
	}

	return nil, domain.NewError(domain.KindSchema, p.ID, "response cannot be interpreted as a sequence of elements")
}

// isStandardShape reports whether a custom response already matches the
// standard envelope (items list whose elements carry a title).
func isStandardShape(body any) bool {
	m, ok := body.(map[string]any)
	if !ok {
		return false
	}
	items, ok := m["items"].([]any)
	if !ok {
		return false
	}
	if len(items) == 0 {
		return true
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return false
	}
	_, hasTitle := first["title"]
	return hasTitle
}

// stringField returns a trimmed non-empty string for a raw JSON value.
func stringField(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// scalarString renders scalar JSON values (string or number ids) as a
// string; anything else yields "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case int, int64:
		return fmt.Sprintf("%d", t)
	default:
		return ""
	}
}

// extraFields copies auxiliary keys into a fresh map, excluding the
// consumed ones. Returns nil when nothing is left.
func extraFields(entry map[string]any, consumed ...string) map[string]any {
	skip := make(map[string]struct{}, len(consumed))
	for _, k := range consumed {
		skip[k] = struct{}{}
	}

	var extra map[string]any
	for k, v := range entry {
		if _, ok := skip[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}
