package handler

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/cleanup"
	"github.com/clipforge/api/internal/config"
	"github.com/clipforge/api/internal/scheduler"
	"github.com/clipforge/api/internal/template"
	"github.com/clipforge/api/pkg/response"
)

// OpsHandler serves the health check and the manual cleanup trigger.
type OpsHandler struct {
	scheduler *scheduler.Scheduler
	templates *template.Store
	encoder   Encoder
	sweeper   *cleanup.Sweeper
	cfg       *config.Config
}

func NewOpsHandler(sched *scheduler.Scheduler, templates *template.Store, encoder Encoder, sweeper *cleanup.Sweeper, cfg *config.Config) *OpsHandler {
	return &OpsHandler{
		scheduler: sched,
		templates: templates,
		encoder:   encoder,
		sweeper:   sweeper,
		cfg:       cfg,
	}
}

// Health handles GET /.
func (h *OpsHandler) Health(c *fiber.Ctx) error {
	stats := h.scheduler.Stats()
	templates := h.templates.List()
	names := make([]string, 0, len(templates))
	for _, t := range templates {
		names = append(names, t.TemplateName)
	}
	storage := h.sweeper.Stats()

	return response.OK(c, fiber.Map{
		"status":  "online",
		"service": "ClipForge Video API",
		"version": "1.0.0",
		"ffmpeg": fiber.Map{
			"installed": h.encoder.Available(),
			"version":   h.encoder.Version(),
		},
		"queue": fiber.Map{
			"active_jobs":    stats.Queued + stats.Processing,
			"processing":     stats.Processing,
			"queued":         stats.Queued,
			"max_concurrent": stats.MaxWorkers,
		},
		"templates": fiber.Map{
			"count":     len(templates),
			"available": names,
		},
		"storage": fiber.Map{
			"temp_files":   storage.Files,
			"temp_size_mb": float64(storage.TotalBytes) / (1024 * 1024),
		},
	})
}

// Cleanup handles POST /cleanup. The hours query overrides the
// configured retention for one sweep.
func (h *OpsHandler) Cleanup(c *fiber.Ctx) error {
	hours := h.cfg.Retention.VideoRetentionHours
	// hours=0 is a full sweep: every terminal job's files go, whatever
	// their age.
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return response.BadRequest(c, response.CodeInvalidRequest,
				"hours must be a non-negative integer", nil)
		}
		hours = parsed
	}

	res := h.sweeper.Sweep(hours)
	log.Printf("Cleanup completed: %+v", res)

	return response.OK(c, fiber.Map{
		"status":        "success",
		"files_deleted": res.FilesDeleted,
		"bytes_freed":   res.BytesFreed,
		"jobs_affected": res.JobsAffected,
		"errors":        res.Errors,
	})
}
