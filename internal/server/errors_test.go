package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veyra/automarket/internal/workflow"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", workflow.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", workflow.ErrNotFound), http.StatusNotFound},
		{"already exists", workflow.ErrAlreadyExists, http.StatusConflict},
		{"version conflict", workflow.ErrVersionConflict, http.StatusConflict},
		{"precondition", &workflow.PreconditionError{Stage: "images", Missing: "calendar_events"}, http.StatusPreconditionFailed},
		{"wrapped precondition", fmt.Errorf("stage: %w", &workflow.PreconditionError{Stage: "html", Missing: "briefing_md"}), http.StatusPreconditionFailed},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
