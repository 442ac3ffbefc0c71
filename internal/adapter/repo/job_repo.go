package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job row with its initial brand-output map.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	outputs := job.BrandOutputs
	if outputs == nil {
		outputs = make(map[string]*domain.BrandOutput, len(job.BrandIDs))
	}
	for _, b := range job.BrandIDs {
		if _, ok := outputs[b]; !ok {
			outputs[b] = &domain.BrandOutput{Status: domain.BrandOutputPending}
		}
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.UserID,
		job.Title,
		job.Lines,
		job.BrandIDs,
		string(job.Variant),
		job.Hint,
		platformStrings(job.Platforms),
		string(job.Status),
		jsoncfg.MustMarshal(outputs),
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// UpdateStatus transitions the job's aggregate status.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJobStatus, jobID, string(status), errMsg)
	return err
}

// UpdateProgress records the current step label and progress percent.
// Progress never moves backwards; the query takes the greatest value.
func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, step string, progress int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJobProgress, jobID, step, progress)
	return err
}

// SetBrandOutput replaces one brand's entry in the output map.
func (r *JobRepositoryPG) SetBrandOutput(ctx context.Context, jobID, brandID string, output *domain.BrandOutput) error {
	if output == nil {
		return fmt.Errorf("%w: brand output is required", domain.ErrValidation)
	}
	_, err := r.sql.Exec(ctx, sqlinline.QSetJobBrandOutput, jobID, brandID, jsoncfg.MustMarshal(output))
	return err
}

// UpdateBrandStatus rewrites only the status and error fields of one brand's
// entry, preserving its artifacts. Used by the publish-side status sync.
func (r *JobRepositoryPG) UpdateBrandStatus(ctx context.Context, jobID, brandID string, status domain.BrandOutputStatus, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJobBrandStatus, jobID, brandID, string(status), errMsg)
	return err
}

// RequestCancel sets the durable cancellation flag. Terminal jobs are left
// untouched.
func (r *JobRepositoryPG) RequestCancel(ctx context.Context, jobID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequestJobCancel, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelRequested reads the durable cancellation flag.
func (r *JobRepositoryPG) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobCancelRequested, jobID)
	var cancelled bool
	if err := row.Scan(&cancelled); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return cancelled, nil
}

// ListByStatus returns every job in the given state, oldest first.
func (r *JobRepositoryPG) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByStatus, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.GenerationJob, error) {
	var (
		job       domain.GenerationJob
		variant   string
		platforms []string
		outputs   []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Title,
		&job.Lines,
		&job.BrandIDs,
		&variant,
		&job.Hint,
		&platforms,
		&job.Status,
		&job.Step,
		&job.Progress,
		&job.ErrorMessage,
		&outputs,
		&job.CancelRequested,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Variant = domain.Variant(variant)
	job.Platforms = platformValues(platforms)
	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &job.BrandOutputs); err != nil {
			return nil, fmt.Errorf("decode brand outputs: %w", err)
		}
	}
	return &job, nil
}

func platformStrings(in []domain.Platform) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		out = append(out, string(p))
	}
	return out
}

func platformValues(in []string) []domain.Platform {
	out := make([]domain.Platform, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Platform(p))
	}
	return out
}
