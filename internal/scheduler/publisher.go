package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/publish"
)

// Publisher claims due publications, fans each one out to its platform
// clients and records the per-platform outcome. One item's failure never
// stops the loop, and a row claimed here is invisible to concurrent loops.
type Publisher struct {
	schedules  domain.ScheduleRepository
	jobs       domain.JobRepository
	publishers publish.Set
	logger     zerolog.Logger

	now func() time.Time
}

// NewPublisher wires the publish loop service.
func NewPublisher(schedules domain.ScheduleRepository, jobs domain.JobRepository, publishers publish.Set, logger zerolog.Logger) *Publisher {
	return &Publisher{
		schedules:  schedules,
		jobs:       jobs,
		publishers: publishers,
		logger:     logger.With().Str("component", "publisher").Logger(),
		now:        time.Now,
	}
}

// ProcessDue claims everything due right now and publishes it. Returns the
// number of items processed.
func (p *Publisher) ProcessDue(ctx context.Context) (int, error) {
	items, err := p.schedules.ClaimDue(ctx, p.now())
	if err != nil {
		return 0, fmt.Errorf("scheduler: claim due: %w", err)
	}
	for _, item := range items {
		p.publishItem(ctx, item)
	}
	return len(items), nil
}

// Run drives ProcessDue on an interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.logger.Info().Dur("interval", interval).Msg("publish loop started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("publish loop stopped")
			return
		case <-ticker.C:
			n, err := p.ProcessDue(ctx)
			if err != nil {
				p.logger.Error().Err(err).Msg("claim cycle failed")
				continue
			}
			if n > 0 {
				p.logger.Info().Int("items", n).Msg("processed due publications")
			}
		}
	}
}

// publishItem attempts every remaining platform for one claimed item and
// stores the classified outcome. Results from earlier attempts are kept so
// a retried partial shows the full map.
func (p *Publisher) publishItem(ctx context.Context, item *domain.ScheduledPublication) {
	log := p.logger.With().Str("schedule_id", item.ID).Str("brand", item.Brand).Logger()

	results := make(map[domain.Platform]domain.PlatformResult, len(item.Platforms))
	for platform, r := range item.Results {
		if r.Success {
			results[platform] = r
		}
	}

	var firstErr string
	for _, platform := range item.PlatformsToAttempt() {
		res := p.publishOne(ctx, item, platform)
		results[platform] = res
		if !res.Success && firstErr == "" {
			firstErr = res.Error
		}
	}

	status := domain.ClassifyOutcome(results)
	if err := p.schedules.SetOutcome(ctx, item.ID, status, results, firstErr); err != nil {
		log.Error().Err(err).Msg("outcome write failed")
		return
	}
	log.Info().Str("status", string(status)).Msg("publication finished")

	p.syncJob(ctx, item, status, firstErr)
}

func (p *Publisher) publishOne(ctx context.Context, item *domain.ScheduledPublication, platform domain.Platform) domain.PlatformResult {
	pub, ok := p.publishers.For(platform)
	if !ok {
		return domain.PlatformResult{Success: false, Error: fmt.Sprintf("no publisher configured for %s", platform)}
	}
	req := publish.Request{
		Caption: item.Caption,
		Title:   item.PlatformTitle,
		IsReel:  item.Variant.IsReel(),
	}
	if req.IsReel {
		req.VideoURL = item.ContentRef
	} else {
		req.ImageURL = item.ContentRef
	}
	res, err := pub.Publish(ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Str("schedule_id", item.ID).Str("platform", string(platform)).Msg("platform publish failed")
		return domain.PlatformResult{Success: false, Error: err.Error()}
	}
	return domain.PlatformResult{Success: true, PostID: res.PostID}
}

// syncJob reflects the terminal outcome back onto the originating job's
// brand entry. Best effort: a failed sync is logged, never propagated, so
// the publication's own transition always wins.
func (p *Publisher) syncJob(ctx context.Context, item *domain.ScheduledPublication, status domain.ScheduleStatus, errMsg string) {
	if item.JobID == "" || item.Brand == "" {
		return
	}
	var brandStatus domain.BrandOutputStatus
	switch status {
	case domain.ScheduleStatusPublished, domain.ScheduleStatusPartial:
		brandStatus = domain.BrandOutputPublished
	default:
		brandStatus = domain.BrandOutputFailed
	}
	if err := p.jobs.UpdateBrandStatus(ctx, item.JobID, item.Brand, brandStatus, errMsg); err != nil {
		p.logger.Warn().Err(err).Str("job_id", item.JobID).Str("brand", item.Brand).Msg("job sync failed")
	}
}

// Retry re-queues a failed or partial publication. A failed item re-attempts
// everything immediately; a partial item gets retry/skip directives computed
// from its stored result map, so platforms that already succeeded are never
// published twice.
func (p *Publisher) Retry(ctx context.Context, id string) error {
	item, err := p.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch item.Status {
	case domain.ScheduleStatusFailed:
		return p.schedules.UpdateForRetry(ctx, id, p.now(), nil, nil)
	case domain.ScheduleStatusPartial:
		var retryPlatforms, skipPlatforms []domain.Platform
		for _, platform := range item.Platforms {
			if r, ok := item.Results[platform]; ok && r.Success {
				skipPlatforms = append(skipPlatforms, platform)
			} else {
				retryPlatforms = append(retryPlatforms, platform)
			}
		}
		return p.schedules.UpdateForRetry(ctx, id, p.now(), retryPlatforms, skipPlatforms)
	case domain.ScheduleStatusPublished:
		return domain.ErrAlreadyPublished
	default:
		return fmt.Errorf("%w: cannot retry publication in status %s", domain.ErrValidation, item.Status)
	}
}

// Reschedule moves a not-yet-published item to a new instant. An item in
// publishing is claimed by a running cycle; re-queueing it there would let a
// second cycle publish the same platforms again.
func (p *Publisher) Reschedule(ctx context.Context, id string, at time.Time) error {
	item, err := p.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch item.Status {
	case domain.ScheduleStatusPublished:
		return domain.ErrAlreadyPublished
	case domain.ScheduleStatusPublishing:
		return fmt.Errorf("%w: publication is currently publishing", domain.ErrValidation)
	}
	return p.schedules.UpdateScheduledAt(ctx, id, at)
}

// PublishNow makes the item due immediately; the next claim cycle picks it
// up.
func (p *Publisher) PublishNow(ctx context.Context, id string) error {
	return p.Reschedule(ctx, id, p.now())
}
