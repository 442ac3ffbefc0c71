package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errMsg string) error
	UpdateProgress(ctx context.Context, jobID string, step string, progress int) error
	SetBrandOutput(ctx context.Context, jobID, brandID string, output *BrandOutput) error
	UpdateBrandStatus(ctx context.Context, jobID, brandID string, status BrandOutputStatus, errMsg string) error
	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
	ListByStatus(ctx context.Context, status JobStatus) ([]*GenerationJob, error)
}

// ScheduleRepository defines persistence for scheduled publications,
// including the atomic claim used by concurrent publisher loops.
type ScheduleRepository interface {
	Create(ctx context.Context, s *ScheduledPublication) error
	GetByID(ctx context.Context, id string) (*ScheduledPublication, error)
	// ClaimDue atomically flips every scheduled row with scheduledAt <= now
	// to publishing and returns the claimed rows. Rows locked by a
	// concurrent claimer are skipped, so each row is delivered to exactly
	// one caller.
	ClaimDue(ctx context.Context, now time.Time) ([]*ScheduledPublication, error)
	SetOutcome(ctx context.Context, id string, status ScheduleStatus, results map[Platform]PlatformResult, errMsg string) error
	UpdateForRetry(ctx context.Context, id string, scheduledAt time.Time, retryPlatforms, skipPlatforms []Platform) error
	UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error
	// TakenSlots lists the exact instants currently occupied by scheduled or
	// publishing rows for the brand+variant pair.
	TakenSlots(ctx context.Context, brand string, variant Variant) ([]time.Time, error)
}

// BrandRepository provides typed brand configuration lookup.
type BrandRepository interface {
	GetByID(ctx context.Context, id string) (*Brand, error)
	ListActive(ctx context.Context) ([]*Brand, error)
}
