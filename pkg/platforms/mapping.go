package platforms

import "strings"

// DefaultFallbackFields are the wrapper keys tried when a custom
// response is a mapping and no data_path matched.
var DefaultFallbackFields = []string{"data", "list", "items", "result"}

// FallbackAllowed reports whether wrapper-key fallback applies for the
// platform (defaults to true).
func (p Platform) FallbackAllowed() bool {
	if p.FallbackEnabled == nil {
		return true
	}
	return *p.FallbackEnabled
}

// EffectiveFallbackFields returns the configured fallback keys or the
// defaults.
func (p Platform) EffectiveFallbackFields() []string {
	if len(p.FallbackFields) > 0 {
		return p.FallbackFields
	}
	return DefaultFallbackFields
}

// NestedValue resolves a dot-separated path ("data.items" or
// "templateMaterial.widgetTitle") inside a decoded JSON mapping.
func NestedValue(obj any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}

	current := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// BuildItemURL renders the platform's url_builder template for an item
// id. Without a base_url the item id is used as the link verbatim.
func (p Platform) BuildItemURL(itemID string) string {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ""
	}
	if p.URLBuilder == nil || p.URLBuilder.BaseURL == "" {
		return itemID
	}

	tmpl := p.URLBuilder.Template
	if tmpl == "" {
		tmpl = "{base_url}/{itemId}"
	}
	out := strings.ReplaceAll(tmpl, "{base_url}", strings.TrimRight(p.URLBuilder.BaseURL, "/"))
	out = strings.ReplaceAll(out, "{itemId}", strings.TrimLeft(itemID, "/"))
	return out
}
