package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const geminiDefaultTimeout = 20 * time.Second

// GeminiOptions configures the Gemini text client.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Generator
}

// GeminiGenerator calls the Gemini generateContent API and degrades to its
// fallback on any wire or parse failure. Content generation must never block
// a job, so errors here surface as canned content, not as failures.
type GeminiGenerator struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	fallback Generator
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiBatchPayload struct {
	Items []BrandContent `json:"items"`
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewStaticGenerator()
	}
	return &GeminiGenerator{
		apiKey:   opts.APIKey,
		model:    model,
		baseURL:  baseURL,
		client:   client,
		fallback: fallback,
	}, nil
}

// GenerateBatch asks for n distinct content items in one call. Short or
// malformed responses are returned as-is; the caller pads with Fallback.
func (g *GeminiGenerator) GenerateBatch(ctx context.Context, n int, hint string) ([]BrandContent, error) {
	items, ok := g.generate(ctx, g.buildBatchPrompt(n, hint), 0.8)
	if !ok {
		return g.fallback.GenerateBatch(ctx, n, hint)
	}
	if len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// Differentiate rewrites base into n distinct variants. On failure every
// brand gets the base content unchanged, which is the degraded behavior
// rather than an error.
func (g *GeminiGenerator) Differentiate(ctx context.Context, base BrandContent, n int) ([]BrandContent, error) {
	items, ok := g.generate(ctx, g.buildDifferentiatePrompt(base, n), 0.6)
	if !ok || len(items) < n {
		return g.fallback.Differentiate(ctx, base, n)
	}
	return items[:n], nil
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string, temperature float64) ([]BrandContent, bool) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      temperature,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, false
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return nil, false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, false
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false
	}
	text := g.extractText(out)
	if text == "" {
		return nil, false
	}
	parsed, err := parsePayload(text)
	if err != nil || len(parsed.Items) == 0 {
		return nil, false
	}
	return parsed.Items, true
}

func (g *GeminiGenerator) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func (g *GeminiGenerator) extractText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func (g *GeminiGenerator) buildBatchPrompt(n int, hint string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You write short-form social media copy. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"items":[{"title":string,"lines":string[],"caption":string}]}`)
	fmt.Fprintf(sb, ". Produce exactly %d items, each for a different brand, each with a distinct angle. Keep titles under 60 characters and at most 4 lines per item.", n)
	if hint != "" {
		fmt.Fprintf(sb, " Theme: %q.", hint)
	}
	return sb.String()
}

func (g *GeminiGenerator) buildDifferentiatePrompt(base BrandContent, n int) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You rewrite social media copy so that parallel posts do not read identically. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"items":[{"title":string,"lines":string[],"caption":string}]}`)
	fmt.Fprintf(sb, ". Produce exactly %d variants of the input that keep its meaning but differ in wording. Input: title=%q, lines=%q, caption=%q.", n, base.Title, strings.Join(base.Lines, " / "), base.Caption)
	return sb.String()
}

func parsePayload(raw string) (geminiBatchPayload, error) {
	var zero geminiBatchPayload
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded geminiBatchPayload
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

// extractJSONFragment strips markdown code fences and leading prose that the
// model occasionally wraps around the JSON body.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```JSON")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

var _ Generator = (*GeminiGenerator)(nil)
