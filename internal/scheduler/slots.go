// Package scheduler owns the publication side: deterministic slot allocation
// on each brand's daily grid and the publish loop that claims due items.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"server/internal/domain"
)

// Base hours of the shared daily grid. Reels run a 4-hour cadence with
// light and dark alternating; posts get a morning and an afternoon slot.
// A brand's integer hour offset shifts its whole grid so no two brands
// target the same wall-clock hour.
var (
	lightBaseHours = []int{0, 8, 16}
	darkBaseHours  = []int{4, 12, 20}
	postBaseHours  = []int{9, 16}
)

const scanBoundDays = 365

// Allocator computes the next free publication slot for a brand+variant.
type Allocator struct {
	schedules domain.ScheduleRepository
	launch    time.Time
	loc       *time.Location
}

// NewAllocator creates an allocator. launch is the global earliest
// publishing instant; timezone is the wall-clock reference for the grid.
func NewAllocator(schedules domain.ScheduleRepository, launch time.Time, timezone string) *Allocator {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Allocator{
		schedules: schedules,
		launch:    launch,
		loc:       loc,
	}
}

// NextSlot returns the first future, unoccupied candidate instant for the
// brand+variant pair. The scan starts at max(launch, ref) truncated to day
// granularity and is bounded to a year; occupancy is exact-instant
// membership against currently scheduled/publishing rows, so different
// variants of the same brand never collide.
func (a *Allocator) NextSlot(ctx context.Context, brand *domain.Brand, variant domain.Variant, ref time.Time) (time.Time, error) {
	if !variant.Valid() {
		return time.Time{}, fmt.Errorf("%w: unknown variant %q", domain.ErrValidation, variant)
	}
	hours := candidateHours(variant, brand.SlotOffset)

	taken, err := a.schedules.TakenSlots(ctx, brand.ID, variant)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: load occupied slots: %w", err)
	}
	occupied := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		occupied[t.Unix()] = struct{}{}
	}

	ref = ref.In(a.loc)
	start := ref
	if a.launch.After(start) {
		start = a.launch.In(a.loc)
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.loc)

	for d := 0; d < scanBoundDays; d++ {
		dd := day.AddDate(0, 0, d)
		for _, h := range hours {
			// wall-clock construction so DST days keep their grid hours
			cand := time.Date(dd.Year(), dd.Month(), dd.Day(), h, 0, 0, 0, a.loc)
			if !cand.After(ref) {
				continue
			}
			if _, busy := occupied[cand.Unix()]; busy {
				continue
			}
			return cand, nil
		}
	}
	// scan bound exhausted; hand back the first candidate of the next day
	dd := day.AddDate(0, 0, scanBoundDays)
	return time.Date(dd.Year(), dd.Month(), dd.Day(), hours[0], 0, 0, 0, a.loc), nil
}

func candidateHours(variant domain.Variant, offset int) []int {
	var base []int
	switch variant {
	case domain.VariantLight:
		base = lightBaseHours
	case domain.VariantDark:
		base = darkBaseHours
	default:
		base = postBaseHours
	}
	hours := make([]int, len(base))
	for i, h := range base {
		hours[i] = ((h+offset)%24 + 24) % 24
	}
	sort.Ints(hours)
	return hours
}
