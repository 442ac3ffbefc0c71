// Package textgen produces the written content that goes into rendered
// outputs: batched per-brand copy for post jobs and textual differentiation
// for reel jobs where several brands share a base content set.
package textgen

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BrandContent is one brand's worth of generated copy.
type BrandContent struct {
	Title   string   `json:"title"`
	Lines   []string `json:"lines"`
	Caption string   `json:"caption"`
}

// Generator produces content in batches. GenerateBatch may return fewer than
// n items; callers pad the remainder with Fallback. Differentiate rewrites a
// base content set into n textually distinct variants.
type Generator interface {
	GenerateBatch(ctx context.Context, n int, hint string) ([]BrandContent, error)
	Differentiate(ctx context.Context, base BrandContent, n int) ([]BrandContent, error)
}

// Fallback returns a deterministic stand-in for one batch slot. It is what
// the pipeline pads with when the batch call fails or comes up short.
func Fallback(seq int, hint string) BrandContent {
	c := cases.Title(language.Und)
	topic := hint
	if topic == "" {
		topic = "daily highlight"
	}
	return BrandContent{
		Title:   fmt.Sprintf("%s #%d", c.String(topic), seq+1),
		Lines:   []string{c.String(topic), "More to come"},
		Caption: fmt.Sprintf("%s, part %d.", c.String(topic), seq+1),
	}
}

// StaticGenerator serves canned content. It backs the Gemini client when the
// API is unreachable and is the sole generator in offline environments.
type StaticGenerator struct{}

// NewStaticGenerator creates a generator that never calls out.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// GenerateBatch returns n fallback records.
func (s *StaticGenerator) GenerateBatch(ctx context.Context, n int, hint string) ([]BrandContent, error) {
	items := make([]BrandContent, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, Fallback(i, hint))
	}
	return items, nil
}

// Differentiate suffixes the base title per variant. The outputs are only
// nominally distinct, which is the documented degraded behavior.
func (s *StaticGenerator) Differentiate(ctx context.Context, base BrandContent, n int) ([]BrandContent, error) {
	items := make([]BrandContent, 0, n)
	for i := 0; i < n; i++ {
		v := base
		if i > 0 {
			v.Title = fmt.Sprintf("%s (%d)", base.Title, i+1)
		}
		items = append(items, v)
	}
	return items, nil
}

var _ Generator = (*StaticGenerator)(nil)
