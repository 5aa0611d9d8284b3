package services

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

// StepPruner deletes memoized step outputs. *repositories.StepRepository satisfies it.
type StepPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type BackfillOptions struct {
	// OlderThan skips rows younger than this so in-flight events are left alone.
	OlderThan time.Duration
	Limit     int
	// StepRetention prunes memoized steps older than this. Zero keeps everything.
	StepRetention time.Duration
}

type BackfillReport struct {
	ResumesRequeued      int
	ApplicationsRequeued int
	StepsPruned          int64
	Failures             int
}

// Backfill re-emits events for rows the pipeline never finished, e.g. after a failed publish
// or a worker crash mid-run.
type Backfill struct {
	resumes      repositories.ResumeRepository
	applications repositories.ApplicationRepository
	storage      StorageService
	publisher    dispatch.Publisher
	steps        StepPruner
	logger       *zap.Logger
	now          func() time.Time
}

func NewBackfill(
	resumes repositories.ResumeRepository,
	applications repositories.ApplicationRepository,
	storage StorageService,
	publisher dispatch.Publisher,
	steps StepPruner,
	log *zap.Logger,
) *Backfill {
	return &Backfill{
		resumes:      resumes,
		applications: applications,
		storage:      storage,
		publisher:    publisher,
		steps:        steps,
		logger:       logger.OrNop(log),
		now:          time.Now,
	}
}

func (b *Backfill) Run(ctx context.Context, opts BackfillOptions) (BackfillReport, error) {
	var report BackfillReport
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	cutoff := b.now().Add(-opts.OlderThan)

	// Processing rows older than the cutoff belong to a run that died.
	for _, status := range []models.ParseStatus{models.ParseStatusPending, models.ParseStatusProcessing} {
		resumes, err := b.resumes.FindByStatus(ctx, status, cutoff, opts.Limit)
		if err != nil {
			return report, err
		}
		for _, resume := range resumes {
			if b.requeueResume(ctx, resume) {
				report.ResumesRequeued++
			} else {
				report.Failures++
			}
		}
	}

	apps, err := b.applications.FindUnrated(ctx, opts.Limit)
	if err != nil {
		return report, err
	}
	for _, app := range apps {
		if app.AppliedAt.After(cutoff) {
			continue
		}
		ev, err := dispatch.NewEvent(dispatch.EventApplicationCreated, dispatch.ApplicationCreated{
			JobListingID: app.JobListingID.String(),
			CandidateID:  app.CandidateID.String(),
		})
		if err == nil {
			err = b.publisher.Publish(ctx, ev)
		}
		if err != nil {
			b.logger.Warn("failed to requeue application",
				zap.String("job_listing_id", app.JobListingID.String()),
				zap.String("candidate_id", app.CandidateID.String()),
				zap.Error(err),
			)
			report.Failures++
			continue
		}
		report.ApplicationsRequeued++
	}

	if opts.StepRetention > 0 && b.steps != nil {
		pruned, err := b.steps.DeleteBefore(ctx, b.now().Add(-opts.StepRetention))
		if err != nil {
			return report, err
		}
		report.StepsPruned = pruned
	}

	b.logger.Info("backfill finished",
		zap.Int("resumes_requeued", report.ResumesRequeued),
		zap.Int("applications_requeued", report.ApplicationsRequeued),
		zap.Int64("steps_pruned", report.StepsPruned),
		zap.Int("failures", report.Failures),
	)

	return report, nil
}

func (b *Backfill) requeueResume(ctx context.Context, resume models.Resume) bool {
	log := b.logger.With(zap.String("candidate_id", resume.CandidateID.String()), zap.String("parse_status", string(resume.ParseStatus)))

	content, err := b.storage.Read(resume.FileURL)
	if err != nil {
		log.Warn("failed to read stored resume", zap.String("file_url", resume.FileURL), zap.Error(err))
		return false
	}

	ev, err := dispatch.NewEvent(dispatch.EventResumeUploaded, dispatch.ResumeUploaded{
		CandidateID: resume.CandidateID.String(),
		FileContent: base64.StdEncoding.EncodeToString(content),
		FileType:    string(resume.FileType),
		FileURL:     resume.FileURL,
	})
	if err == nil {
		err = b.publisher.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn("failed to requeue resume", zap.Error(err))
		return false
	}

	log.Debug("resume requeued", logger.EventFields(ev.ID, ev.Name, ev.Attempt)...)
	return true
}
