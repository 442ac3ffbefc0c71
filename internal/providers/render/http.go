package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/gate"
)

const renderDefaultTimeout = 5 * time.Minute

// Options controls how the render client is configured.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Gate       *gate.Gate
}

// HTTPRenderer calls the rendering service over HTTP. The image-generation
// round trip inside the service is subject to the provider's global
// concurrency limit, so every call passes through the generation gate.
type HTTPRenderer struct {
	baseURL string
	apiKey  string
	client  *http.Client
	gate    *gate.Gate
}

type renderRequest struct {
	Brand   string   `json:"brand"`
	Title   string   `json:"title"`
	Lines   []string `json:"lines"`
	Variant string   `json:"variant"`
	Hint    string   `json:"hint,omitempty"`
}

// NewHTTPRenderer creates a render client. The gate is required; rendering
// without admission control would trip the provider's concurrency limit.
func NewHTTPRenderer(opts Options) (*HTTPRenderer, error) {
	if opts.Gate == nil {
		return nil, fmt.Errorf("render: gate is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("render: base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: renderDefaultTimeout}
	}
	return &HTTPRenderer{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		client:  client,
		gate:    opts.Gate,
	}, nil
}

// Render acquires the generation gate, performs the render round trip and
// always releases the permit, including on error.
func (r *HTTPRenderer) Render(ctx context.Context, req Request) (*Artifacts, error) {
	if req.Brand == nil {
		return nil, fmt.Errorf("%w: brand is required", domain.ErrValidation)
	}

	permit, err := r.gate.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: waiting for generation slot: %w", err)
	}
	defer r.gate.Release(permit)

	payload := renderRequest{
		Brand:   req.Brand.ID,
		Title:   req.Title,
		Lines:   req.Lines,
		Variant: string(req.Variant),
		Hint:    req.Hint,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("render: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("render: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &domain.TransientError{Provider: "render", Reason: resp.Status}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var artifacts Artifacts
	if err := json.NewDecoder(resp.Body).Decode(&artifacts); err != nil {
		return nil, fmt.Errorf("render: decode response: %w", err)
	}
	return &artifacts, nil
}

var _ Renderer = (*HTTPRenderer)(nil)
