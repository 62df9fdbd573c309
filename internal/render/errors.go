package render

import (
	"errors"
	"fmt"

	"github.com/clipforge/api/pkg/response"
)

// PipelineError is a render failure with a stable error code. The
// scheduler records the code on the failed job and the webhook payload
// carries it to the caller.
type PipelineError struct {
	Code    string
	Message string
	cause   error
}

func (e *PipelineError) Error() string { return e.Message }

func (e *PipelineError) Unwrap() error { return e.cause }

// Errf builds a coded pipeline error.
func Errf(code string, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(code string, err error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf extracts the pipeline code from an error chain, defaulting to
// SERVER_ERROR for anything uncoded.
func CodeOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return response.CodeServerError
}
