package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
)

type memScheduleRepo struct {
	mu    sync.Mutex
	items map[string]*domain.ScheduledPublication
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{items: make(map[string]*domain.ScheduledPublication)}
}

func (r *memScheduleRepo) Create(ctx context.Context, s *domain.ScheduledPublication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if cp.Status == "" {
		cp.Status = domain.ScheduleStatusScheduled
	}
	r.items[cp.ID] = &cp
	return nil
}

func (r *memScheduleRepo) GetByID(ctx context.Context, id string) (*domain.ScheduledPublication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memScheduleRepo) ClaimDue(ctx context.Context, now time.Time) ([]*domain.ScheduledPublication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var claimed []*domain.ScheduledPublication
	for _, s := range r.items {
		if s.Status == domain.ScheduleStatusScheduled && !s.ScheduledAt.After(now) {
			s.Status = domain.ScheduleStatusPublishing
			cp := *s
			claimed = append(claimed, &cp)
		}
	}
	return claimed, nil
}

func (r *memScheduleRepo) SetOutcome(ctx context.Context, id string, status domain.ScheduleStatus, results map[domain.Platform]domain.PlatformResult, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	s.Results = results
	s.ErrorMessage = errMsg
	s.RetryPlatforms = nil
	s.SkipPlatforms = nil
	return nil
}

func (r *memScheduleRepo) UpdateForRetry(ctx context.Context, id string, scheduledAt time.Time, retryPlatforms, skipPlatforms []domain.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = domain.ScheduleStatusScheduled
	s.ScheduledAt = scheduledAt
	s.RetryPlatforms = retryPlatforms
	s.SkipPlatforms = skipPlatforms
	s.ErrorMessage = ""
	return nil
}

func (r *memScheduleRepo) UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status == domain.ScheduleStatusPublishing || s.Status == domain.ScheduleStatusPublished {
		return nil
	}
	s.ScheduledAt = scheduledAt
	s.Status = domain.ScheduleStatusScheduled
	return nil
}

func (r *memScheduleRepo) TakenSlots(ctx context.Context, brand string, variant domain.Variant) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, s := range r.items {
		if s.Brand == brand && s.Variant == variant &&
			(s.Status == domain.ScheduleStatusScheduled || s.Status == domain.ScheduleStatusPublishing) {
			out = append(out, s.ScheduledAt)
		}
	}
	return out, nil
}

var _ domain.ScheduleRepository = (*memScheduleRepo)(nil)

func TestNextSlotWaitsForLaunchDate(t *testing.T) {
	repo := newMemScheduleRepo()
	launch := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	alloc := NewAllocator(repo, launch, "UTC")
	brand := &domain.Brand{ID: "brandX", SlotOffset: 0}

	ref := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	slot, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), slot,
		"first light hour on launch day, never earlier")
}

func TestNextSlotSkipsPastHoursToday(t *testing.T) {
	repo := newMemScheduleRepo()
	launch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	alloc := NewAllocator(repo, launch, "UTC")
	brand := &domain.Brand{ID: "brandX", SlotOffset: 0}

	ref := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	slot, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 20, 16, 0, 0, 0, time.UTC), slot)
}

func TestNextSlotSkipsOccupiedInstants(t *testing.T) {
	repo := newMemScheduleRepo()
	launch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	alloc := NewAllocator(repo, launch, "UTC")
	brand := &domain.Brand{ID: "brandX", SlotOffset: 0}
	ref := time.Date(2026, 1, 19, 23, 0, 0, 0, time.UTC)

	first, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &domain.ScheduledPublication{
		ID:          "s1",
		Brand:       "brandX",
		Variant:     domain.VariantLight,
		ScheduledAt: first,
	}))

	second, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "allocation after a claim must move on")
	assert.True(t, second.After(first))
}

func TestNextSlotVariantsNeverCollide(t *testing.T) {
	repo := newMemScheduleRepo()
	launch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	alloc := NewAllocator(repo, launch, "UTC")
	brand := &domain.Brand{ID: "brandX", SlotOffset: 0}
	ref := time.Date(2026, 1, 19, 23, 0, 0, 0, time.UTC)

	light, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	dark, err := alloc.NextSlot(context.Background(), brand, domain.VariantDark, ref)
	require.NoError(t, err)
	assert.NotEqual(t, light, dark, "light and dark run disjoint hour grids")

	// a dark booking must not consume a light candidate
	require.NoError(t, repo.Create(context.Background(), &domain.ScheduledPublication{
		ID: "s1", Brand: "brandX", Variant: domain.VariantDark, ScheduledAt: dark,
	}))
	lightAgain, err := alloc.NextSlot(context.Background(), brand, domain.VariantLight, ref)
	require.NoError(t, err)
	assert.Equal(t, light, lightAgain)
}

func TestNextSlotPostGrid(t *testing.T) {
	repo := newMemScheduleRepo()
	launch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	alloc := NewAllocator(repo, launch, "UTC")
	brand := &domain.Brand{ID: "brandY", SlotOffset: 2}

	ref := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	slot, err := alloc.NextSlot(context.Background(), brand, domain.VariantPost, ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 20, 11, 0, 0, 0, time.UTC), slot,
		"morning post hour shifted by the brand offset")
}

func TestNextSlotRejectsUnknownVariant(t *testing.T) {
	alloc := NewAllocator(newMemScheduleRepo(), time.Time{}, "UTC")
	_, err := alloc.NextSlot(context.Background(), &domain.Brand{ID: "b"}, domain.Variant("weird"), time.Now())
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCandidateHoursWrapAroundMidnight(t *testing.T) {
	hours := candidateHours(domain.VariantDark, 10)
	assert.Equal(t, []int{6, 14, 22}, hours)
}
