package domain

import "time"

// ScheduleStatus enumerates scheduled publication lifecycle states.
type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusPublishing ScheduleStatus = "publishing"
	ScheduleStatusPublished  ScheduleStatus = "published"
	ScheduleStatusPartial    ScheduleStatus = "partial"
	ScheduleStatusFailed     ScheduleStatus = "failed"
)

// PlatformResult records the outcome of one platform publish attempt.
type PlatformResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScheduledPublication is one future publish action for a brand's artifact.
type ScheduledPublication struct {
	ID            string
	UserID        string
	ContentRef    string
	Caption       string
	PlatformTitle string
	Platforms     []Platform
	ScheduledAt   time.Time
	Brand         string
	Variant       Variant
	JobID         string
	Status        ScheduleStatus
	Results       map[Platform]PlatformResult
	// RetryPlatforms and SkipPlatforms are directives set when a partial
	// outcome is retried: attempt only the former, never the latter.
	RetryPlatforms []Platform
	SkipPlatforms  []Platform
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PlatformsToAttempt returns the platforms the next publish run must hit,
// honoring retry directives so platforms that already succeeded are skipped.
func (s *ScheduledPublication) PlatformsToAttempt() []Platform {
	if len(s.RetryPlatforms) > 0 {
		return s.RetryPlatforms
	}
	if len(s.SkipPlatforms) == 0 {
		return s.Platforms
	}
	skip := make(map[Platform]struct{}, len(s.SkipPlatforms))
	for _, p := range s.SkipPlatforms {
		skip[p] = struct{}{}
	}
	out := make([]Platform, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		if _, ok := skip[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// ClassifyOutcome derives the terminal status from a full per-platform result
// map: published when everything succeeded, failed when nothing did, partial
// otherwise.
func ClassifyOutcome(results map[Platform]PlatformResult) ScheduleStatus {
	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0 && succeeded > 0:
		return ScheduleStatusPublished
	case succeeded == 0:
		return ScheduleStatusFailed
	default:
		return ScheduleStatusPartial
	}
}
