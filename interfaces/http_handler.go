package interfaces

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"govres/domain"
	"govres/infrastructure"
	"govres/usecase"
)

// Services are the use cases the HTTP API exposes.
type Services struct {
	Ally       *usecase.Ally
	Identity   *usecase.Identity
	Resumes    *usecase.Resumes
	PastJobs   *usecase.Profile[domain.PastJob, *domain.PastJob]
	Volunteers *usecase.Profile[domain.PastJob, *domain.PastJob]
	Education  *usecase.Profile[domain.Education, *domain.Education]
	Awards     *usecase.Profile[domain.Award, *domain.Award]
}

type HTTPHandler struct {
	Services
	cfg infrastructure.Config
	log *slog.Logger
}

// NewHTTPHandler registers every route on router.
func NewHTTPHandler(router *gin.Engine, svc Services, cfg infrastructure.Config, log *slog.Logger) *HTTPHandler {
	h := &HTTPHandler{Services: svc, cfg: cfg, log: log}

	router.Use(h.requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", h.identity())
	api.GET("/me", h.GetMe)
	api.PUT("/me", h.UpdateMe)

	registerProfile[domain.PastJob](api, "/past-jobs", svc.PastJobs)
	registerProfile[domain.PastJob](api, "/volunteers", svc.Volunteers)
	registerProfile[domain.Education](api, "/education", svc.Education)
	registerProfile[domain.Award](api, "/awards", svc.Awards)
	api.GET("/past-jobs/:id/qualifications", h.PastJobQualifications)

	api.GET("/jobs/search", h.SearchJobs)

	api.POST("/applications", h.SelectJob)
	api.GET("/applications", h.ListApplications)
	api.GET("/applications/:id", h.GetApplication)
	api.DELETE("/applications/:id", h.DeleteApplication)
	api.GET("/applications/:id/steps", h.GetSteps)
	api.PUT("/applications/:id/steps/:step", h.SetStep)
	api.POST("/applications/:id/keywords", h.ExtractKeywords)
	api.POST("/applications/:id/topics", h.CategorizeTopics)
	api.GET("/applications/:id/topics", h.GetTopics)
	api.POST("/applications/:id/past-jobs/:pastJobId/match", h.MatchQualifications)
	api.GET("/applications/:id/qualifications", h.GetQualifications)
	api.GET("/applications/:id/resume", h.BuildResume)

	api.POST("/qualifications/:id/paragraph", h.DraftParagraph)
	api.PUT("/qualifications/:id", h.ConfirmQualification)

	api.POST("/resumes", h.UploadResume)
	api.GET("/resumes", h.ListResumes)
	api.GET("/resumes/:id", h.GetResume)
	api.DELETE("/resumes/:id", h.DeleteResume)

	admin := api.Group("", requireAdmin())
	admin.GET("/admin/users", h.ListUsers)
	admin.PUT("/admin/users/:id", h.SetAdmin)
	admin.DELETE("/admin/users/:id", h.DeleteUser)
	admin.POST("/identity/events", h.PublishIdentityEvent)

	return h
}

// respondError maps domain errors to a status and writes {"error": msg}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNoJobSelected):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedFile):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, usecase.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrLLMResponse), errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}

	log := requestLog(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", status, "error", err)
	} else {
		log.Warn("Request rejected", "status", status, "error", err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// badRequest answers 400 for a body or query that failed to bind.
func badRequest(c *gin.Context, err error) {
	requestLog(c).Warn("Invalid request", "error", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
