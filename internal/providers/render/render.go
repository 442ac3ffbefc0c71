// Package render is the boundary to the brand/content rendering service that
// produces the actual pixels and video frames. The pipeline only needs
// "render artifacts for brand X, tell me if it worked".
package render

import (
	"context"

	"server/internal/domain"
)

// Request carries everything the rendering service needs for one brand.
type Request struct {
	Brand   *domain.Brand
	Title   string
	Lines   []string
	Variant domain.Variant
	Hint    string
}

// Artifacts references the rendered outputs.
type Artifacts struct {
	ThumbnailURL  string `json:"thumbnail_url"`
	VideoURL      string `json:"video_url"`
	BackgroundURL string `json:"background_url"`
	Caption       string `json:"caption"`
	PlatformTitle string `json:"platform_title"`
}

// Renderer generates a brand's artifacts.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Artifacts, error)
}
