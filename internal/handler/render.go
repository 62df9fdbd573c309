package handler

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/config"
	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/scheduler"
	"github.com/clipforge/api/internal/template"
	"github.com/clipforge/api/internal/validate"
	"github.com/clipforge/api/pkg/response"
)

// Encoder is the availability view handlers need. *render.Encoder
// satisfies it.
type Encoder interface {
	Available() bool
	Version() string
}

// RenderHandler owns job admission and the job-facing read endpoints.
type RenderHandler struct {
	scheduler *scheduler.Scheduler
	templates *template.Store
	encoder   Encoder
	cfg       *config.Config
	validator *validator.Validate
}

func NewRenderHandler(sched *scheduler.Scheduler, templates *template.Store, encoder Encoder, cfg *config.Config, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		scheduler: sched,
		templates: templates,
		encoder:   encoder,
		cfg:       cfg,
		validator: v,
	}
}

// Start handles POST /render-video. Admission is synchronous: template
// lookup, request validation, encoder availability, then queue capacity.
// Only a fully validated request becomes a job.
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	var req model.RenderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, response.CodeInvalidRequest, "Invalid request body", nil)
	}
	if req.TemplateID == "" {
		return response.BadRequest(c, response.CodeInvalidRequest, "template_id is required", nil)
	}

	tpl, err := h.templates.Get(req.TemplateID)
	if err != nil {
		if errors.Is(err, template.ErrNotFound) {
			return response.NotFound(c, response.CodeTemplateNotFound,
				fmt.Sprintf("Template not found: %s", req.TemplateID))
		}
		return response.ServerError(c, err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.BadRequest(c, response.CodeInvalidRequest, "Validation failed", formatValidationErrors(err))
	}
	if err := validate.RenderRequest(&req, tpl, h.cfg.Download.AllowedDomains); err != nil {
		var ve *validate.Error
		if errors.As(err, &ve) {
			return response.BadRequest(c, ve.Code, ve.Message, ve.Details)
		}
		return response.ServerError(c, err.Error())
	}

	if !h.encoder.Available() {
		return response.ServiceUnavailable(c, response.CodeFFmpegNotAvailable,
			"FFmpeg is not installed on this server")
	}

	job, err := h.scheduler.Submit(req)
	if err != nil {
		if errors.Is(err, scheduler.ErrQueueFull) {
			return response.Error(c, fiber.StatusServiceUnavailable, response.CodeQueueFull,
				"Job queue is full, try again later", nil)
		}
		return response.ServerError(c, err.Error())
	}

	estimated := int(tpl.TotalDuration())
	if estimated < 30 {
		estimated = 30
	}

	log.Printf("Render job submitted: %s", job.ID)
	return response.Accepted(c, model.RenderAcceptedResponse{
		Status:               string(job.Status),
		JobID:                job.ID,
		TemplateID:           job.TemplateID,
		EstimatedTimeSeconds: estimated,
		CheckStatusURL:       "/status/" + job.ID,
	})
}

// Status handles GET /status/:jobId.
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	job, ok := h.scheduler.Get(jobID)
	if !ok {
		return response.NotFound(c, response.CodeJobNotFound,
			fmt.Sprintf("Job not found: %s", jobID))
	}
	return response.OK(c, job)
}

// Download handles GET /download/:jobId, serving the finished video.
func (h *RenderHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	job, ok := h.scheduler.Get(jobID)
	if !ok {
		return response.NotFound(c, response.CodeJobNotFound,
			fmt.Sprintf("Job not found: %s", jobID))
	}
	if job.Status != model.JobStatusCompleted {
		return response.BadRequest(c, response.CodeVideoNotReady,
			fmt.Sprintf("Video not ready. Current status: %s", job.Status), nil)
	}
	if job.OutputPath == "" {
		return response.NotFound(c, response.CodeVideoNotFound,
			"Video file not found. It may have been cleaned up.")
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		return response.NotFound(c, response.CodeVideoNotFound,
			"Video file not found. It may have been cleaned up.")
	}

	log.Printf("Serving video download: %s", jobID)
	return c.Download(job.OutputPath, fmt.Sprintf("video_%s.mp4", jobID))
}

// ListJobs handles GET /jobs.
func (h *RenderHandler) ListJobs(c *fiber.Ctx) error {
	return response.OK(c, model.JobListResponse{
		Jobs:  h.scheduler.List(),
		Stats: h.scheduler.Stats(),
	})
}

// formatValidationErrors flattens validator errors into field messages.
func formatValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fmt.Sprintf("failed on '%s' validation", fe.Tag())
		}
	}
	return out
}
