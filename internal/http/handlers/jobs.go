package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/domain/jsoncfg"
	"server/internal/middleware"
)

type jobResponse struct {
	ID           string                              `json:"id"`
	Title        string                              `json:"title"`
	Brands       []string                            `json:"brands"`
	Variant      string                              `json:"variant"`
	Platforms    []string                            `json:"platforms"`
	Status       string                              `json:"status"`
	Step         string                              `json:"step,omitempty"`
	Progress     int                                 `json:"progress"`
	Error        string                              `json:"error,omitempty"`
	BrandOutputs map[string]*domain.BrandOutput      `json:"brand_outputs"`
}

func jobView(j *domain.GenerationJob) jobResponse {
	platforms := make([]string, 0, len(j.Platforms))
	for _, p := range j.Platforms {
		platforms = append(platforms, string(p))
	}
	return jobResponse{
		ID:           j.ID,
		Title:        j.Title,
		Brands:       j.BrandIDs,
		Variant:      string(j.Variant),
		Platforms:    platforms,
		Status:       string(j.Status),
		Step:         j.Step,
		Progress:     j.Progress,
		Error:        j.ErrorMessage,
		BrandOutputs: j.BrandOutputs,
	}
}

// CreateJob validates the request, persists the job with every brand pending
// and launches the coordinator in the background.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jsoncfg.JobRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		a.fail(w, err)
		return
	}
	for _, brandID := range req.Brands {
		if _, err := a.Brands.GetByID(r.Context(), brandID); err != nil {
			a.fail(w, fmt.Errorf("%w: unknown brand %q", domain.ErrValidation, brandID))
			return
		}
	}

	job := &domain.GenerationJob{
		ID:        "job-" + uuid.NewString()[:8],
		UserID:    middleware.UserIDFromContext(r.Context()),
		Title:     req.Title,
		Lines:     req.Lines,
		BrandIDs:  req.Brands,
		Variant:   domain.Variant(req.Variant),
		Hint:      req.Hint,
		Platforms: req.PlatformList(),
		Status:    domain.JobStatusPending,
	}
	for _, brandID := range job.BrandIDs {
		job.Output(brandID)
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.fail(w, err)
		return
	}

	if err := a.Runner.Launch(job.ID, func(ctx context.Context) error {
		return a.Coordinator.Run(ctx, job.ID)
	}); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"id": job.ID, "status": string(job.Status)})
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, jobView(job))
}

// CancelJob sets the durable cancel flag and pokes the in-process runner.
// The coordinator honors the flag at the next brand boundary.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	if job.Status.Terminal() {
		a.fail(w, fmt.Errorf("%w: job is already %s", domain.ErrValidation, job.Status))
		return
	}
	if err := a.Jobs.RequestCancel(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.Runner.Cancel(id)
	a.json(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
}
