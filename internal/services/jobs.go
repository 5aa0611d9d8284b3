package services

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
)

// HandlerRegistry is satisfied by *dispatch.Dispatcher.
type HandlerRegistry interface {
	Register(name string, h dispatch.Handler)
}

// RegisterJobs binds the resume parse and applicant ranking pipelines to their events.
func RegisterJobs(registry HandlerRegistry, parser ResumeParser, ranker ApplicantRanker, log *zap.Logger) {
	log = logger.OrNop(log)

	registry.Register(dispatch.EventResumeUploaded, func(ctx context.Context, steps *dispatch.Steps, ev dispatch.Event) (any, error) {
		var payload dispatch.ResumeUploaded
		if err := ev.Decode(&payload); err != nil {
			log.Error("invalid resume.uploaded payload", zap.String(logger.FieldEventID, ev.ID), zap.Error(err))
			return ParseOutcome{Error: "Invalid event payload"}, nil
		}

		candidateID, err := uuid.Parse(payload.CandidateID)
		if err != nil {
			log.Error("invalid candidate id", zap.String(logger.FieldEventID, ev.ID), zap.String("candidate_id", payload.CandidateID))
			return ParseOutcome{CandidateID: payload.CandidateID, Error: "Invalid candidate id"}, nil
		}

		// Undecodable content or an unknown type still runs the pipeline, which ends in FAILED.
		content, err := base64.StdEncoding.DecodeString(payload.FileContent)
		if err != nil {
			log.Warn("file content is not valid base64", zap.String(logger.FieldEventID, ev.ID), zap.Error(err))
			content = nil
		}

		fileType, err := models.ParseFileType(payload.FileType)
		if err != nil {
			log.Warn("unsupported file type in event", zap.String(logger.FieldEventID, ev.ID), zap.Error(err))
			fileType = models.FileType(payload.FileType)
		}

		return parser.Parse(ctx, steps, ParseRequest{
			CandidateID: candidateID,
			FileContent: content,
			FileType:    fileType,
			FileURL:     payload.FileURL,
		})
	})

	registry.Register(dispatch.EventApplicationCreated, func(ctx context.Context, steps *dispatch.Steps, ev dispatch.Event) (any, error) {
		var payload dispatch.ApplicationCreated
		if err := ev.Decode(&payload); err != nil {
			log.Error("invalid application.created payload", zap.String(logger.FieldEventID, ev.ID), zap.Error(err))
			return RankOutcome{Error: "Invalid event payload"}, nil
		}

		jobID, err := uuid.Parse(payload.JobListingID)
		if err != nil {
			return RankOutcome{Error: "Invalid job listing id"}, nil
		}
		candidateID, err := uuid.Parse(payload.CandidateID)
		if err != nil {
			return RankOutcome{Error: "Invalid candidate id"}, nil
		}

		return ranker.Rank(ctx, steps, RankRequest{JobListingID: jobID, CandidateID: candidateID})
	})
}
