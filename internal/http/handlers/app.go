// Package handlers exposes the job, scheduling and publishing surfaces over
// HTTP. Handlers stay thin: decode, validate, delegate, encode.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra/credentials"
	"server/internal/pipeline"
	"server/internal/scheduler"
	"server/internal/storage"
)

type App struct {
	Jobs      domain.JobRepository
	Brands    domain.BrandRepository
	Schedules domain.ScheduleRepository

	Coordinator *pipeline.Coordinator
	Runner      *pipeline.Runner
	Allocator   *scheduler.Allocator
	Publisher   *scheduler.Publisher

	Files       *storage.FileStore
	Credentials *credentials.Store

	Logger zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}

// fail maps domain errors onto HTTP statuses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrAlreadyPublished):
		a.error(w, http.StatusConflict, "already_published", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
