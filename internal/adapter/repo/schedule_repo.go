package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ScheduleRepositoryPG implements domain.ScheduleRepository on PostgreSQL.
// Claim exclusivity relies on row-level locking rather than in-process
// mutexes because claimers may run in separate processes.
type ScheduleRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewScheduleRepository creates a new scheduled-publication repository.
func NewScheduleRepository(sql infra.SQLExecutor) *ScheduleRepositoryPG {
	return &ScheduleRepositoryPG{sql: sql}
}

// Create inserts a new scheduled publication in status scheduled.
func (r *ScheduleRepositoryPG) Create(ctx context.Context, s *domain.ScheduledPublication) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertSchedule,
		s.ID,
		s.UserID,
		s.ContentRef,
		s.Caption,
		s.PlatformTitle,
		platformStrings(s.Platforms),
		s.ScheduledAt,
		s.Brand,
		string(s.Variant),
		s.JobID,
	)
	return err
}

// GetByID fetches a scheduled publication by id.
func (r *ScheduleRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ScheduledPublication, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectScheduleByID, id)
	s, err := scanSchedule(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ClaimDue atomically transitions every due scheduled row to publishing and
// returns the claimed set. The single-statement CTE keeps the row locks and
// the status flip in one transaction, and SKIP LOCKED lets concurrent
// claimers pass over rows already taken, so no row is ever claimed twice.
func (r *ScheduleRepositoryPG) ClaimDue(ctx context.Context, now time.Time) ([]*domain.ScheduledPublication, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimDueSchedules, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*domain.ScheduledPublication
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, s)
	}
	return claimed, rows.Err()
}

// SetOutcome records a terminal transition with its per-platform result map
// and clears any retry directives, which are only meaningful for one run.
func (r *ScheduleRepositoryPG) SetOutcome(ctx context.Context, id string, status domain.ScheduleStatus, results map[domain.Platform]domain.PlatformResult, errMsg string) error {
	if results == nil {
		results = map[domain.Platform]domain.PlatformResult{}
	}
	_, err := r.sql.Exec(ctx, sqlinline.QSetScheduleOutcome, id, string(status), jsoncfg.MustMarshal(results), errMsg)
	return err
}

// UpdateForRetry re-enters the row into scheduled with the given time and
// retry/skip platform directives.
func (r *ScheduleRepositoryPG) UpdateForRetry(ctx context.Context, id string, scheduledAt time.Time, retryPlatforms, skipPlatforms []domain.Platform) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateScheduleForRetry, id, scheduledAt,
		platformStrings(retryPlatforms), platformStrings(skipPlatforms))
	return err
}

// UpdateScheduledAt moves the row to a new time and back to scheduled.
func (r *ScheduleRepositoryPG) UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateScheduleTime, id, scheduledAt)
	return err
}

// TakenSlots lists the exact instants occupied by scheduled or publishing
// rows for the brand+variant pair.
func (r *ScheduleRepositoryPG) TakenSlots(ctx context.Context, brand string, variant domain.Variant) ([]time.Time, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectTakenSlots, brand, string(variant))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		slots = append(slots, t)
	}
	return slots, rows.Err()
}

func scanSchedule(row scanner) (*domain.ScheduledPublication, error) {
	var (
		s         domain.ScheduledPublication
		variant   string
		platforms []string
		retryPs   []string
		skipPs    []string
		results   []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ContentRef,
		&s.Caption,
		&s.PlatformTitle,
		&platforms,
		&s.ScheduledAt,
		&s.Brand,
		&variant,
		&s.JobID,
		&s.Status,
		&results,
		&retryPs,
		&skipPs,
		&s.ErrorMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Variant = domain.Variant(variant)
	s.Platforms = platformValues(platforms)
	s.RetryPlatforms = platformValues(retryPs)
	s.SkipPlatforms = platformValues(skipPs)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &s.Results); err != nil {
			return nil, fmt.Errorf("decode platform results: %w", err)
		}
	}
	return &s, nil
}
