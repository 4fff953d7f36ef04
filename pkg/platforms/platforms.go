package platforms

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/trendscribe/trend-aggregator/internal/domain"
	"gopkg.in/yaml.v3"
)

// Package platforms holds the declarative platform registry and the
// fetch adapters dispatching against it.

// Mode selects the fetch strategy for a platform.
type Mode string

const (
	// ModeStandard dispatches through the shared aggregation API,
	// keyed by platform id.
	ModeStandard Mode = "standard"
	// ModeCustom dispatches directly to the platform's own endpoint.
	ModeCustom Mode = "custom"
)

// RequestConfig overrides request behavior for a custom platform.
type RequestConfig struct {
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Body           map[string]any    `json:"body" yaml:"body"`
}

// FieldMapping names the keys (dot-separated for nesting) that carry
// item fields in a custom platform's response elements.
type FieldMapping struct {
	Title       string `json:"title" yaml:"title"`
	ItemID      string `json:"item_id" yaml:"item_id"`
	PublishTime string `json:"publish_time" yaml:"publish_time"`
}

// URLBuilder turns an item id into a full link via a template with
// {base_url} and {itemId} placeholders.
type URLBuilder struct {
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Template string `json:"template" yaml:"template"`
}

// Platform is one entry of the declarative platform registry.
// Mode is derived: a platform with an api_url is custom, otherwise it is
// served by the shared aggregation API.
type Platform struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	APIURL string `json:"api_url" yaml:"api_url"`

	Request *RequestConfig `json:"request" yaml:"request"`

	DataPath        string        `json:"data_path" yaml:"data_path"`
	FallbackEnabled *bool         `json:"fallback_enabled" yaml:"fallback_enabled"`
	FallbackFields  []string      `json:"fallback_fields" yaml:"fallback_fields"`
	FieldMapping    *FieldMapping `json:"field_mapping" yaml:"field_mapping"`
	URLBuilder      *URLBuilder   `json:"url_builder" yaml:"url_builder"`
}

// Mode derives the dispatch mode from the presence of api_url.
func (p Platform) Mode() Mode {
	if strings.TrimSpace(p.APIURL) != "" {
		return ModeCustom
	}
	return ModeStandard
}

// Method returns the configured HTTP method, defaulting to GET.
func (p Platform) Method() string {
	if p.Request != nil {
		if m := strings.ToUpper(strings.TrimSpace(p.Request.Method)); m != "" {
			return m
		}
	}
	return "GET"
}

// Headers returns per-platform header overrides (may be nil).
func (p Platform) Headers() map[string]string {
	if p.Request == nil || len(p.Request.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.Request.Headers))
	for k, v := range p.Request.Headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

type registryFile struct {
	Platforms []Platform `json:"platforms" yaml:"platforms"`
}

// Registry materializes the ordered platform list loaded from a config
// file. Declaration order is the iteration and reporting order for all
// downstream components.
type Registry struct {
	platforms []Platform
	idx       map[string]Platform
}

// LoadRegistry loads and validates the platform registry from a
// YAML/JSON file. All problems surface as config-kind errors before any
// network access happens.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, domain.NewError(domain.KindConfig, "", "platforms file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, domain.WrapError(domain.KindConfig, "", "open platforms file", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.WrapError(domain.KindConfig, "", "read platforms file", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry builds a registry from raw YAML or JSON content.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	fileReg, err := decodeRegistry(data, ext)
	if err != nil {
		return nil, err
	}
	if len(fileReg.Platforms) == 0 {
		return nil, domain.NewError(domain.KindConfig, "", "platforms file contains no platform entries")
	}
	return NewRegistry(fileReg.Platforms)
}

// NewRegistry validates an already-parsed platform list.
func NewRegistry(entries []Platform) (*Registry, error) {
	reg := &Registry{
		platforms: make([]Platform, len(entries)),
		idx:       make(map[string]Platform, len(entries)),
	}

	for i := range entries {
		p := sanitizePlatform(entries[i])
		if err := validatePlatform(p); err != nil {
			return nil, domain.WrapError(domain.KindConfig, p.ID, fmt.Sprintf("platform[%d]", i), err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, domain.NewError(domain.KindConfig, p.ID, fmt.Sprintf("duplicate platform id %q", p.ID))
		}
		reg.platforms[i] = p
		reg.idx[p.ID] = p
	}

	return reg, nil
}

func decodeRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yamlUnmarshal},
		{name: "yaml", ext: ".yml", fn: yamlUnmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, domain.NewError(domain.KindConfig, "", "platforms file format not recognized (expected YAML or JSON)")
}

func yamlUnmarshal(data []byte, out any) error {
	return yaml.Unmarshal(data, out)
}

func sanitizePlatform(p Platform) Platform {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.APIURL = strings.TrimSpace(p.APIURL)
	p.DataPath = strings.TrimSpace(p.DataPath)

	if p.URLBuilder != nil {
		b := *p.URLBuilder
		b.BaseURL = strings.TrimSpace(b.BaseURL)
		b.Template = strings.TrimSpace(b.Template)
		if b.Template == "" {
			b.Template = "{base_url}/{itemId}"
		}
		p.URLBuilder = &b
	}

	return p
}

func validatePlatform(p Platform) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for platform %q", p.ID)
	}
	if p.APIURL != "" {
		parsed, err := url.Parse(p.APIURL)
		if err != nil {
			return fmt.Errorf("api_url for platform %q is not a valid URL: %w", p.ID, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("api_url for platform %q must be absolute", p.ID)
		}
	}
	return nil
}

// All returns the platforms in declaration order.
func (r *Registry) All() []Platform {
	if r == nil {
		return nil
	}
	out := make([]Platform, len(r.platforms))
	copy(out, r.platforms)
	return out
}

// ByID returns the platform entry for the given id.
func (r *Registry) ByID(id string) (Platform, bool) {
	if r == nil {
		return Platform{}, false
	}
	p, ok := r.idx[strings.TrimSpace(id)]
	return p, ok
}

// Len returns the number of registered platforms.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.platforms)
}
