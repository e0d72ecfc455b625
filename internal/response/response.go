// file: internal/response/response.go
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"goldhub/internal/contextutils"
	"goldhub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// ErrorDetail carries structured error information.
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// WRITERS
// ===============================

// WriteSuccess writes a success envelope with the given status code.
func WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: contextutils.GetRequestID(r.Context()),
		Timestamp: time.Now().Unix(),
	})
}

// WriteError maps a service error onto the envelope. Internal causes are
// never exposed; the structured type, code and message are.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	serviceErr := services.GetServiceError(err)

	if serviceErr.GetStatusCode() >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, serviceErr.GetStatusCode(), &APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Type:    serviceErr.Type,
			Message: serviceErr.Message,
			Code:    serviceErr.Code,
			Details: serviceErr.Details,
		},
		RequestID: contextutils.GetRequestID(r.Context()),
		Timestamp: time.Now().Unix(),
	})
}

// WriteValidationError writes a 400 with the given message.
func WriteValidationError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, message string) {
	WriteError(w, r, logger, services.NewValidationError(message, nil))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
