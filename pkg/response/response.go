package response

import "github.com/gofiber/fiber/v2"

// Error codes shared by the HTTP layer and the render pipeline.
// Admission codes reject a request synchronously and never create a job;
// pipeline codes are recorded on a job that already exists.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidTemplate     = "INVALID_TEMPLATE"
	CodeTemplateNotFound    = "TEMPLATE_NOT_FOUND"
	CodeTemplateExists      = "TEMPLATE_EXISTS"
	CodeCannotDelete        = "CANNOT_DELETE"
	CodeMissingImages       = "MISSING_IMAGES"
	CodeInvalidURL          = "INVALID_URL"
	CodeInvalidAudio        = "INVALID_AUDIO"
	CodeInvalidWebhookURL   = "INVALID_WEBHOOK_URL"
	CodeQueueFull           = "QUEUE_FULL"
	CodeJobNotFound         = "JOB_NOT_FOUND"
	CodeVideoNotReady       = "VIDEO_NOT_READY"
	CodeVideoNotFound       = "VIDEO_NOT_FOUND"
	CodeImageDownloadFailed = "IMAGE_DOWNLOAD_FAILED"
	CodeFFmpegNotAvailable  = "FFMPEG_NOT_AVAILABLE"
	CodeFFmpegError         = "FFMPEG_ERROR"
	CodeServerError         = "SERVER_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeNotFound            = "NOT_FOUND"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequest(c *fiber.Ctx, code, message string, details interface{}) error {
	return Error(c, fiber.StatusBadRequest, code, message, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func NotFound(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusNotFound, code, message, nil)
}

func Conflict(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusConflict, code, message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded", nil)
}

func ServiceUnavailable(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusServiceUnavailable, code, message, nil)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServerError, message, nil)
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}
