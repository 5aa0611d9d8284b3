package handlers

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
	"joblinker/api/internal/services"
)

type ResumeHandler struct {
	resumes     repositories.ResumeRepository
	storage     services.StorageService
	publisher   dispatch.Publisher
	maxFileSize int64
	logger      *zap.Logger
}

func NewResumeHandler(
	resumes repositories.ResumeRepository,
	storage services.StorageService,
	publisher dispatch.Publisher,
	maxFileSize int64,
	log *zap.Logger,
) *ResumeHandler {
	return &ResumeHandler{
		resumes:     resumes,
		storage:     storage,
		publisher:   publisher,
		maxFileSize: maxFileSize,
		logger:      logger.OrNop(log),
	}
}

// HandleUpload stores a resume, resets its parse cycle and emits resume.uploaded.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.FormValue("candidate_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please upload the resume as 'file'",
		})
	}

	fileType, err := models.ParseFileType(file.Header.Get("Content-Type"))
	if err != nil {
		fileType, err = models.ParseFileType(filepath.Ext(file.Filename))
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only PDF and DOCX files are allowed",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, h.maxFileSize+1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	if int64(len(content)) > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	ctx := c.UserContext()
	log := h.logger.With(zap.String("candidate_id", candidateID.String()))

	var previousURL string
	if existing, err := h.resumes.FindByCandidateID(ctx, candidateID); err == nil {
		previousURL = existing.FileURL
	} else if !errors.Is(err, repositories.ErrNotFound) {
		log.Error("failed to load resume", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load resume")
	}

	fileURL, err := h.storage.Save(candidateID, fileType, content)
	if err != nil {
		log.Error("failed to store resume file", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save resume file")
	}

	resume := models.Resume{
		CandidateID: candidateID,
		FileURL:     fileURL,
		FileName:    file.Filename,
		FileType:    fileType,
	}
	if err := h.resumes.UpsertForUpload(ctx, &resume); err != nil {
		// Cleanup uploaded file if database write fails
		if delErr := h.storage.Delete(fileURL); delErr != nil {
			log.Warn("failed to delete orphaned resume file", zap.String("file_url", fileURL), zap.Error(delErr))
		}
		log.Error("failed to save resume", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save resume")
	}

	if previousURL != "" && previousURL != fileURL {
		if err := h.storage.Delete(previousURL); err != nil {
			log.Warn("failed to delete previous resume file", zap.String("file_url", previousURL), zap.Error(err))
		}
	}

	publish(c, h.publisher, log, dispatch.EventResumeUploaded, dispatch.ResumeUploaded{
		CandidateID: candidateID.String(),
		FileContent: encodeBase64(content),
		FileType:    string(fileType),
		FileURL:     resume.FileURL,
	})

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:          resume.ID.String(),
		CandidateID: candidateID.String(),
		FileName:    resume.FileName,
		FileType:    string(resume.FileType),
		ParseStatus: string(resume.ParseStatus),
	})
}

// HandleGetResume reports the parse status of a candidate's resume.
func (h *ResumeHandler) HandleGetResume(c *fiber.Ctx) error {
	candidateID, err := uuid.Parse(c.Params("candidate_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid candidate ID format",
		})
	}

	resume, err := h.resumes.FindByCandidateID(c.UserContext(), candidateID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No resume uploaded",
			})
		}
		h.logger.Error("failed to load resume", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load resume")
	}

	response := models.ResumeStatusResponse{
		CandidateID: resume.CandidateID.String(),
		FileName:    resume.FileName,
		ParseStatus: string(resume.ParseStatus),
		AISummary:   resume.AISummary,
	}
	if resume.ExtractedText != nil {
		response.ExtractedTextLength = utf8.RuneCountInString(*resume.ExtractedText)
		if c.QueryBool("include_text") {
			response.ExtractedText = resume.ExtractedText
		}
	}

	return c.JSON(response)
}
