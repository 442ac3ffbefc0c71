package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
)

// JobRequestJSON is the canonical job-creation contract accepted by the API
// and persisted alongside the job row.
type JobRequestJSON struct {
	Title     string   `json:"title"`
	Lines     []string `json:"lines"`
	Brands    []string `json:"brands"`
	Variant   string   `json:"variant"`
	Hint      string   `json:"hint"`
	Platforms []string `json:"platforms"`
}

const (
	// MaxLines caps the content lines rendered onto one reel or carousel.
	MaxLines = 12
	// MaxBrands caps the fan-out of a single job.
	MaxBrands = 10
)

// Normalize trims whitespace, drops empty entries and applies defaults.
func (r *JobRequestJSON) Normalize() {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Variant = strings.ToLower(strings.TrimSpace(r.Variant))
	r.Hint = strings.TrimSpace(r.Hint)
	r.Lines = trimAll(r.Lines)
	r.Brands = trimAll(r.Brands)
	r.Platforms = trimAll(r.Platforms)
	if len(r.Lines) > MaxLines {
		r.Lines = r.Lines[:MaxLines]
	}
	if len(r.Platforms) == 0 {
		r.Platforms = []string{string(domain.PlatformInstagram)}
	}
}

// Validate ensures the request satisfies the contract before a job is created.
func (r JobRequestJSON) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(r.Brands) == 0 {
		return fmt.Errorf("%w: at least one brand is required", domain.ErrValidation)
	}
	if len(r.Brands) > MaxBrands {
		return fmt.Errorf("%w: at most %d brands per job", domain.ErrValidation, MaxBrands)
	}
	if !domain.Variant(r.Variant).Valid() {
		return fmt.Errorf("%w: variant must be light, dark or post", domain.ErrValidation)
	}
	for _, p := range r.Platforms {
		if !knownPlatform(p) {
			return fmt.Errorf("%w: unknown platform %q", domain.ErrValidation, p)
		}
	}
	return nil
}

// PlatformList converts the validated platform strings to typed values.
func (r JobRequestJSON) PlatformList() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		out = append(out, domain.Platform(p))
	}
	return out
}

func knownPlatform(p string) bool {
	for _, k := range domain.KnownPlatforms {
		if string(k) == p {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MustMarshal panics on marshal failure; only used for values the service
// builds itself.
func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
