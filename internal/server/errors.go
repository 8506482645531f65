package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/veyra/automarket/internal/workflow"
)

// HTTPStatus maps service errors to HTTP status codes. Unrecognized errors
// map to 500.
func HTTPStatus(err error) int {
	var precondition *workflow.PreconditionError
	var validation validator.ValidationErrors

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrAlreadyExists), errors.Is(err, workflow.ErrVersionConflict):
		return http.StatusConflict
	case errors.As(err, &precondition):
		return http.StatusPreconditionFailed
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
