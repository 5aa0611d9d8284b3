package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(app fiber.Router, resumes *ResumeHandler, applications *ApplicationHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", HandleHealth)

	api.Post("/resumes/upload", resumes.HandleUpload)
	api.Get("/resumes/:candidate_id", resumes.HandleGetResume)

	api.Post("/applications", applications.HandleCreate)
	api.Get("/jobs/:job_id/applications", applications.HandleListByJob)
	api.Get("/jobs/:job_id/applications/stats", applications.HandleStats)
}
