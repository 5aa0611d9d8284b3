package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

type ApplicationHandler struct {
	applications repositories.ApplicationRepository
	jobs         repositories.JobListingRepository
	publisher    dispatch.Publisher
	logger       *zap.Logger
}

func NewApplicationHandler(
	applications repositories.ApplicationRepository,
	jobs repositories.JobListingRepository,
	publisher dispatch.Publisher,
	log *zap.Logger,
) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		jobs:         jobs,
		publisher:    publisher,
		logger:       logger.OrNop(log),
	}
}

// HandleCreate applies a candidate to a published job and emits application.created.
func (h *ApplicationHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	jobID, err := uuid.Parse(req.JobListingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job listing ID format",
		})
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	ctx := c.UserContext()
	log := h.logger.With(zap.String("job_listing_id", jobID.String()), zap.String("candidate_id", candidateID.String()))

	job, err := h.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job listing not found",
			})
		}
		log.Error("failed to load job listing", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load job listing")
	}

	if job.Status != models.JobStatusPublished {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot apply to unpublished job listing",
		})
	}

	if req.CoverLetter != nil && strings.TrimSpace(*req.CoverLetter) == "" {
		req.CoverLetter = nil
	}

	now := time.Now()
	app := models.Application{
		JobListingID: jobID,
		CandidateID:  candidateID,
		CoverLetter:  req.CoverLetter,
		Stage:        models.StageApplied,
		AppliedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.applications.Create(ctx, &app); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "You have already applied to this job",
			})
		}
		log.Error("failed to create application", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create application")
	}

	publish(c, h.publisher, log, dispatch.EventApplicationCreated, dispatch.ApplicationCreated{
		JobListingID: jobID.String(),
		CandidateID:  candidateID.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(toApplicationResponse(app))
}

// HandleListByJob lists a job's applications, best rated first by default. Unrated
// applications come back with a null rating.
func (h *ApplicationHandler) HandleListByJob(c *fiber.Ctx) error {
	jobID, ok, err := h.loadJobID(c)
	if !ok {
		return err
	}

	filter := repositories.ApplicationFilter{SortBy: c.Query("sort_by", repositories.SortByRating)}
	switch filter.SortBy {
	case repositories.SortByRating, repositories.SortByAppliedAt:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "sort_by must be 'rating' or 'applied_at'",
		})
	}

	if raw := c.Query("stage"); raw != "" {
		stage, err := models.ParseApplicationStage(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		filter.Stage = &stage
	}

	if c.Query("min_rating") != "" {
		minRating := c.QueryInt("min_rating", -1)
		if minRating < 0 || minRating > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "min_rating must be between 0 and 100",
			})
		}
		filter.MinRating = &minRating
	}

	apps, err := h.applications.ListByJob(c.UserContext(), jobID, filter)
	if err != nil {
		h.logger.Error("failed to list applications", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to list applications")
	}

	responses := make([]models.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		responses = append(responses, toApplicationResponse(app))
	}

	return c.JSON(responses)
}

// HandleStats buckets a job's applications by AI rating.
func (h *ApplicationHandler) HandleStats(c *fiber.Ctx) error {
	jobID, ok, err := h.loadJobID(c)
	if !ok {
		return err
	}

	stats, err := h.applications.Stats(c.UserContext(), jobID)
	if err != nil {
		h.logger.Error("failed to compute application stats", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to compute application stats")
	}

	return c.JSON(stats)
}

// loadJobID parses :job_id and checks the job exists. When ok is false the
// response has already been written and err must be returned as is.
func (h *ApplicationHandler) loadJobID(c *fiber.Ctx) (uuid.UUID, bool, error) {
	jobID, err := uuid.Parse(c.Params("job_id"))
	if err != nil {
		return uuid.Nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job listing ID format",
		})
	}

	if _, err := h.jobs.FindByID(c.UserContext(), jobID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return uuid.Nil, false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job listing not found",
			})
		}
		h.logger.Error("failed to load job listing", zap.Error(err))
		return uuid.Nil, false, fiber.NewError(fiber.StatusInternalServerError, "Failed to load job listing")
	}

	return jobID, true, nil
}

func toApplicationResponse(app models.Application) models.ApplicationResponse {
	return models.ApplicationResponse{
		JobListingID: app.JobListingID.String(),
		CandidateID:  app.CandidateID.String(),
		CoverLetter:  app.CoverLetter,
		Rating:       app.Rating,
		AIAnalysis:   app.AIAnalysis,
		Stage:        string(app.Stage),
		AppliedAt:    app.AppliedAt.Format(time.RFC3339),
	}
}
