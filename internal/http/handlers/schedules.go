package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
)

type scheduleResponse struct {
	ID          string                                   `json:"id"`
	ContentRef  string                                   `json:"content_ref"`
	Caption     string                                   `json:"caption,omitempty"`
	Platforms   []string                                 `json:"platforms"`
	ScheduledAt time.Time                                `json:"scheduled_at"`
	Brand       string                                   `json:"brand"`
	Variant     string                                   `json:"variant"`
	JobID       string                                   `json:"job_id,omitempty"`
	Status      string                                   `json:"status"`
	Results     map[domain.Platform]domain.PlatformResult `json:"results,omitempty"`
	Error       string                                   `json:"error,omitempty"`
}

func scheduleView(s *domain.ScheduledPublication) scheduleResponse {
	platforms := make([]string, 0, len(s.Platforms))
	for _, p := range s.Platforms {
		platforms = append(platforms, string(p))
	}
	return scheduleResponse{
		ID:          s.ID,
		ContentRef:  s.ContentRef,
		Caption:     s.Caption,
		Platforms:   platforms,
		ScheduledAt: s.ScheduledAt,
		Brand:       s.Brand,
		Variant:     string(s.Variant),
		JobID:       s.JobID,
		Status:      string(s.Status),
		Results:     s.Results,
		Error:       s.ErrorMessage,
	}
}

// NextSlot answers "when would this brand+variant publish next".
func (a *App) NextSlot(w http.ResponseWriter, r *http.Request) {
	brandID := r.URL.Query().Get("brand")
	variant := domain.Variant(r.URL.Query().Get("variant"))
	if brandID == "" {
		a.fail(w, fmt.Errorf("%w: brand is required", domain.ErrValidation))
		return
	}
	brand, err := a.Brands.GetByID(r.Context(), brandID)
	if err != nil {
		a.fail(w, err)
		return
	}
	slot, err := a.Allocator.NextSlot(r.Context(), brand, variant, time.Now())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"brand": brandID, "variant": variant, "slot": slot})
}

type createScheduleRequest struct {
	JobID       string     `json:"job_id"`
	Brand       string     `json:"brand"`
	Platforms   []string   `json:"platforms"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// CreateSchedule books a publication for a brand's completed job output. The
// instant comes from the allocator unless the caller pins one; the job's
// brand entry is flipped to scheduled best-effort.
func (a *App) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.JobID == "" || req.Brand == "" {
		a.fail(w, fmt.Errorf("%w: job_id and brand are required", domain.ErrValidation))
		return
	}

	job, err := a.Jobs.GetByID(r.Context(), req.JobID)
	if err != nil {
		a.fail(w, err)
		return
	}
	out, ok := job.BrandOutputs[req.Brand]
	if !ok || !out.Status.Succeeded() {
		a.fail(w, fmt.Errorf("%w: brand %q has no publishable output", domain.ErrValidation, req.Brand))
		return
	}
	brand, err := a.Brands.GetByID(r.Context(), req.Brand)
	if err != nil {
		a.fail(w, err)
		return
	}

	platforms := make([]domain.Platform, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		platforms = append(platforms, domain.Platform(p))
	}
	if len(platforms) == 0 {
		platforms = job.Platforms
	}
	if len(platforms) == 0 {
		platforms = brand.DefaultPlatforms
	}

	at := time.Time{}
	if req.ScheduledAt != nil {
		at = *req.ScheduledAt
	} else {
		at, err = a.Allocator.NextSlot(r.Context(), brand, job.Variant, time.Now())
		if err != nil {
			a.fail(w, err)
			return
		}
	}

	contentRef := out.VideoURL
	if !job.Variant.IsReel() {
		contentRef = out.BackgroundURL
	}
	sched := &domain.ScheduledPublication{
		ID:            uuid.NewString(),
		UserID:        middleware.UserIDFromContext(r.Context()),
		ContentRef:    contentRef,
		Caption:       out.Caption,
		PlatformTitle: out.PlatformTitle,
		Platforms:     platforms,
		ScheduledAt:   at,
		Brand:         req.Brand,
		Variant:       job.Variant,
		JobID:         job.ID,
		Status:        domain.ScheduleStatusScheduled,
	}
	if err := a.Schedules.Create(r.Context(), sched); err != nil {
		a.fail(w, err)
		return
	}

	// best effort; the publication row is the source of truth
	if err := a.Jobs.UpdateBrandStatus(r.Context(), job.ID, req.Brand, domain.BrandOutputScheduled, ""); err != nil {
		a.Logger.Warn().Err(err).Str("job_id", job.ID).Str("brand", req.Brand).Msg("brand schedule sync failed")
	}

	a.json(w, http.StatusCreated, map[string]any{"id": sched.ID, "scheduled_at": at})
}

func (a *App) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := a.Schedules.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, scheduleView(sched))
}

// RetrySchedule re-queues a failed or partial publication.
func (a *App) RetrySchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Publisher.Retry(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"id": id, "status": "scheduled"})
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (a *App) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ScheduledAt.IsZero() {
		a.error(w, http.StatusBadRequest, "bad_request", "scheduled_at is required")
		return
	}
	if err := a.Publisher.Reschedule(r.Context(), id, req.ScheduledAt); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"id": id, "scheduled_at": req.ScheduledAt})
}

func (a *App) PublishNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Publisher.PublishNow(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"id": id, "status": "scheduled"})
}
