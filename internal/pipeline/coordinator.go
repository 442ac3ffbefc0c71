// Package pipeline drives multi-brand generation jobs: content preparation,
// per-brand rendering with an isolation timeout, progress reporting, and
// partial-success aggregation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/render"
	"server/internal/providers/textgen"
)

const defaultBrandTimeout = 5 * time.Minute

// Coordinator runs generation jobs end to end. One brand's hang or failure
// never blocks its siblings; the job fails only when every brand does.
type Coordinator struct {
	jobs     domain.JobRepository
	brands   domain.BrandRepository
	renderer render.Renderer
	textgen  textgen.Generator

	brandTimeout time.Duration
	logger       zerolog.Logger
}

// NewCoordinator wires the coordinator. brandTimeout bounds one brand's
// whole step-chain, including the gated render round trip.
func NewCoordinator(
	jobs domain.JobRepository,
	brands domain.BrandRepository,
	renderer render.Renderer,
	generator textgen.Generator,
	brandTimeout time.Duration,
	logger zerolog.Logger,
) *Coordinator {
	if brandTimeout <= 0 {
		brandTimeout = defaultBrandTimeout
	}
	return &Coordinator{
		jobs:         jobs,
		brands:       brands,
		renderer:     renderer,
		textgen:      generator,
		brandTimeout: brandTimeout,
		logger:       logger.With().Str("component", "coordinator").Logger(),
	}
}

// Run executes a job from scratch.
func (c *Coordinator) Run(ctx context.Context, jobID string) error {
	return c.execute(ctx, jobID, false)
}

// Resume re-runs a job after an uncontrolled restart. Brands already
// completed keep their artifacts and are not regenerated; everything else
// is reset to pending and goes through the same step-chain as Run.
func (c *Coordinator) Resume(ctx context.Context, jobID string) error {
	return c.execute(ctx, jobID, true)
}

func (c *Coordinator) execute(ctx context.Context, jobID string, resume bool) error {
	log := c.logger.With().Str("job_id", jobID).Bool("resume", resume).Logger()

	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("pipeline: load job: %w", err)
	}
	if len(job.BrandIDs) == 0 {
		msg := "job has no target brands"
		if err := c.jobs.UpdateStatus(ctx, jobID, domain.JobStatusFailed, msg); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	pending := c.pendingBrands(ctx, job, resume)
	if len(pending) == 0 {
		log.Info().Msg("nothing to do, all brands completed")
		return c.finalize(ctx, job, "")
	}

	if err := c.jobs.UpdateStatus(ctx, jobID, domain.JobStatusGenerating, ""); err != nil {
		return fmt.Errorf("pipeline: mark generating: %w", err)
	}
	job.Status = domain.JobStatusGenerating

	contents := c.prepareContent(ctx, job, pending)

	var firstErr error
	total := len(job.BrandIDs)
	for i, brandID := range job.BrandIDs {
		cancelled, err := c.jobs.CancelRequested(ctx, jobID)
		if err != nil {
			log.Warn().Err(err).Msg("cancel check failed, continuing")
		} else if cancelled {
			log.Info().Msg("job cancelled")
			return c.jobs.UpdateStatus(ctx, jobID, domain.JobStatusCancelled, "")
		}

		out := job.Output(brandID)
		if _, run := contents[brandID]; !run {
			// completed on a previous attempt
			continue
		}

		progress := 10 + 80*i/total
		step := fmt.Sprintf("brand %d/%d", i+1, total)
		if err := c.jobs.UpdateProgress(ctx, jobID, step, progress); err != nil {
			log.Warn().Err(err).Msg("progress update failed")
		}

		if err := c.runBrand(ctx, job, brandID, contents[brandID]); err != nil {
			out.Status = domain.BrandOutputFailed
			out.Error = err.Error()
			if dbErr := c.jobs.UpdateBrandStatus(ctx, jobID, brandID, domain.BrandOutputFailed, err.Error()); dbErr != nil {
				log.Warn().Err(dbErr).Str("brand", brandID).Msg("brand status write failed")
			}
			if firstErr == nil {
				firstErr = err
			}
			log.Warn().Err(err).Str("brand", brandID).Msg("brand generation failed")
		}
	}

	errMsg := ""
	if firstErr != nil {
		errMsg = firstErr.Error()
	}
	return c.finalize(ctx, job, errMsg)
}

// pendingBrands decides which brands need a run and resets stale state when
// resuming. The returned set doubles as the "process this brand" marker.
func (c *Coordinator) pendingBrands(ctx context.Context, job *domain.GenerationJob, resume bool) map[string]struct{} {
	pending := make(map[string]struct{}, len(job.BrandIDs))
	for _, brandID := range job.BrandIDs {
		out := job.Output(brandID)
		if resume && out.Status.Succeeded() {
			continue
		}
		if resume && out.Status != domain.BrandOutputPending {
			out.Status = domain.BrandOutputPending
			out.Error = ""
			if err := c.jobs.UpdateBrandStatus(ctx, job.ID, brandID, domain.BrandOutputPending, ""); err != nil {
				c.logger.Warn().Err(err).Str("brand", brandID).Msg("brand reset failed")
			}
		}
		pending[brandID] = struct{}{}
	}
	return pending
}

// prepareContent produces per-brand copy up front. Post jobs get one batched
// call padded with fallbacks; reel jobs with several brands get one
// differentiation call that degrades to the shared base content.
func (c *Coordinator) prepareContent(ctx context.Context, job *domain.GenerationJob, pending map[string]struct{}) map[string]textgen.BrandContent {
	order := make([]string, 0, len(pending))
	for _, brandID := range job.BrandIDs {
		if _, ok := pending[brandID]; ok {
			order = append(order, brandID)
		}
	}
	n := len(order)
	contents := make(map[string]textgen.BrandContent, n)

	base := textgen.BrandContent{Title: job.Title, Lines: job.Lines}
	switch {
	case job.Variant == domain.VariantPost:
		items, err := c.textgen.GenerateBatch(ctx, n, job.Hint)
		if err != nil {
			c.logger.Warn().Err(err).Str("job_id", job.ID).Msg("batch content failed, using fallbacks")
			items = nil
		}
		for i, brandID := range order {
			if i < len(items) {
				contents[brandID] = items[i]
			} else {
				contents[brandID] = textgen.Fallback(i, job.Hint)
			}
		}
	case n >= 2:
		items, err := c.textgen.Differentiate(ctx, base, n)
		if err != nil || len(items) < n {
			c.logger.Warn().Err(err).Str("job_id", job.ID).Msg("differentiation failed, brands share base content")
			items = nil
		}
		for i, brandID := range order {
			if i < len(items) {
				contents[brandID] = items[i]
			} else {
				contents[brandID] = base
			}
		}
	default:
		for _, brandID := range order {
			contents[brandID] = base
		}
	}
	return contents
}

// runBrand executes one brand's step-chain in its own goroutine under a
// per-brand deadline. On timeout the worker is left to drain on its own; its
// late result goes to a buffered channel nobody reads, which is harmless
// because brand status is only written after this select.
func (c *Coordinator) runBrand(ctx context.Context, job *domain.GenerationJob, brandID string, content textgen.BrandContent) error {
	bctx, cancel := context.WithTimeout(ctx, c.brandTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.processBrand(bctx, job, brandID, content)
	}()

	select {
	case err := <-done:
		return err
	case <-bctx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &domain.TimeoutError{Brand: brandID, Limit: c.brandTimeout}
	}
}

func (c *Coordinator) processBrand(ctx context.Context, job *domain.GenerationJob, brandID string, content textgen.BrandContent) error {
	if err := c.jobs.UpdateBrandStatus(ctx, job.ID, brandID, domain.BrandOutputGenerating, ""); err != nil {
		c.logger.Warn().Err(err).Str("brand", brandID).Msg("brand status write failed")
	}

	brand, err := c.brands.GetByID(ctx, brandID)
	if err != nil {
		return fmt.Errorf("brand %s: %w", brandID, err)
	}

	title := content.Title
	if title == "" {
		title = job.Title
	}
	lines := content.Lines
	if len(lines) == 0 {
		lines = job.Lines
	}
	artifacts, err := c.renderer.Render(ctx, render.Request{
		Brand:   brand,
		Title:   title,
		Lines:   lines,
		Variant: job.Variant,
		Hint:    job.Hint,
	})
	if err != nil {
		return fmt.Errorf("brand %s: %w", brandID, err)
	}

	out := job.Output(brandID)
	out.Status = domain.BrandOutputCompleted
	out.ThumbnailURL = artifacts.ThumbnailURL
	out.VideoURL = artifacts.VideoURL
	out.BackgroundURL = artifacts.BackgroundURL
	out.Caption = artifacts.Caption
	if out.Caption == "" {
		out.Caption = content.Caption
	}
	out.PlatformTitle = artifacts.PlatformTitle
	out.Error = ""
	if err := c.jobs.SetBrandOutput(ctx, job.ID, brandID, out); err != nil {
		return fmt.Errorf("brand %s: persist output: %w", brandID, err)
	}
	return nil
}

// finalize aggregates per-brand outcomes. Partial success is success; the
// job fails only when zero brands succeeded, keeping the first failure's
// error as the most specific one.
func (c *Coordinator) finalize(ctx context.Context, job *domain.GenerationJob, errMsg string) error {
	if err := c.jobs.UpdateProgress(ctx, job.ID, "done", 100); err != nil {
		c.logger.Warn().Err(err).Str("job_id", job.ID).Msg("final progress update failed")
	}
	if job.SucceededBrands() > 0 {
		return c.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusCompleted, "")
	}
	if errMsg == "" {
		errMsg = "all brands failed"
	}
	if err := c.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, errMsg); err != nil {
		return err
	}
	return fmt.Errorf("pipeline: job %s: %s", job.ID, errMsg)
}
