// Package publish contains the per-platform publishing clients. Each client
// takes artifact references and a caption and returns the external post id.
package publish

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// Request references the artifacts to publish on one platform.
type Request struct {
	VideoURL     string
	ImageURL     string
	ThumbnailURL string
	Caption      string
	Title        string
	IsReel       bool
}

// Result is the outcome of a successful publish.
type Result struct {
	PostID string
}

// Publisher publishes one artifact to one platform.
type Publisher interface {
	Platform() domain.Platform
	Publish(ctx context.Context, req Request) (*Result, error)
}

// Set maps platforms to their publishers.
type Set map[domain.Platform]Publisher

// NewSet indexes publishers by platform. Duplicate platforms are a wiring
// bug and panic at startup.
func NewSet(publishers ...Publisher) Set {
	s := make(Set, len(publishers))
	for _, p := range publishers {
		if _, dup := s[p.Platform()]; dup {
			panic(fmt.Sprintf("publish: duplicate publisher for %s", p.Platform()))
		}
		s[p.Platform()] = p
	}
	return s
}

// For returns the publisher for a platform.
func (s Set) For(platform domain.Platform) (Publisher, bool) {
	p, ok := s[platform]
	return p, ok
}
