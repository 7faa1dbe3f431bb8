// Package response writes JSON bodies and maps errors to HTTP statuses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/kychat-server/internal/apierrors"
	"github.com/dtroode/kychat-server/internal/model"
)

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// JSON sends data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an error response. API errors keep their status and message,
// store not-found becomes 404 and anything else a generic 500.
func Error(w http.ResponseWriter, err error) {
	status, message := statusOf(err)
	JSON(w, status, ErrorBody{Detail: message})
}

func statusOf(err error) (int, string) {
	if apiErr, ok := apierrors.As(err); ok {
		return apiErr.Status, apiErr.Message
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		internal := apierrors.NewErrInternalServerError()
		return internal.Status, internal.Message
	}
}
