package textgen

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func geminiBody(text string) string {
	quoted := strings.ReplaceAll(text, `"`, `\"`)
	quoted = strings.ReplaceAll(quoted, "\n", `\n`)
	return `{"candidates":[{"content":{"role":"model","parts":[{"text":"` + quoted + `"}]}}]}`
}

func TestGeminiGenerateBatchParsesItems(t *testing.T) {
	payload := `{"items":[{"title":"One","lines":["a"],"caption":"c1"},{"title":"Two","lines":["b"],"caption":"c2"}]}`
	gen, err := NewGeminiGenerator(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("x-goog-api-key"); got != "dummy" {
				t.Fatalf("api key header = %q", got)
			}
			return jsonResponse(geminiBody(payload)), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}
	items, err := gen.GenerateBatch(context.Background(), 2, "coffee")
	if err != nil {
		t.Fatalf("GenerateBatch returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Title != "One" || items[1].Caption != "c2" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestGeminiGenerateBatchStripsCodeFence(t *testing.T) {
	payload := "```json\n{\"items\":[{\"title\":\"Fenced\",\"lines\":[],\"caption\":\"\"}]}\n```"
	gen, err := NewGeminiGenerator(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(geminiBody(payload)), nil
		})},
	})
	if err != nil {
		t.Fatal(err)
	}
	items, err := gen.GenerateBatch(context.Background(), 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "Fenced" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestGeminiGenerateBatchFallsBackOnTransportError(t *testing.T) {
	gen, err := NewGeminiGenerator(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
	})
	if err != nil {
		t.Fatal(err)
	}
	items, err := gen.GenerateBatch(context.Background(), 3, "bakery")
	if err != nil {
		t.Fatalf("GenerateBatch returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3 fallback records", len(items))
	}
	for i, it := range items {
		if it.Title == "" {
			t.Fatalf("items[%d] has empty title", i)
		}
	}
}

func TestGeminiDifferentiateDegradesToBase(t *testing.T) {
	gen, err := NewGeminiGenerator(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(geminiBody(`{"items":[]}`)), nil
		})},
	})
	if err != nil {
		t.Fatal(err)
	}
	base := BrandContent{Title: "Morning brew", Lines: []string{"fresh"}, Caption: "cap"}
	items, err := gen.Differentiate(context.Background(), base, 2)
	if err != nil {
		t.Fatalf("Differentiate returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Title != base.Title {
		t.Fatalf("first variant title = %q, want base title", items[0].Title)
	}
}

func TestFallbackUsesHint(t *testing.T) {
	c := Fallback(0, "street food")
	if !strings.Contains(c.Title, "Street Food") {
		t.Fatalf("Title = %q, want hint title-cased", c.Title)
	}
	c = Fallback(4, "")
	if c.Title == "" || len(c.Lines) == 0 {
		t.Fatalf("empty fallback: %+v", c)
	}
}
