package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error.
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error.
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error.
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewBusinessError creates a business logic error.
func NewBusinessError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "BUSINESS_ERROR",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error.
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceUnavailableError creates a service unavailable error.
func NewServiceUnavailableError(message string) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// ===============================
// CLAIM ERROR TAXONOMY
// ===============================

// Error codes surfaced by the claim flow. NotCompleted and AlreadyClaimed
// are expected, non-exceptional outcomes and map to distinguishable codes
// rather than a generic failure.
const (
	CodeChallengeNotCompleted = "CHALLENGE_NOT_COMPLETED"
	CodeRewardAlreadyClaimed  = "REWARD_ALREADY_CLAIMED"
	CodePersistenceRace       = "PERSISTENCE_RACE"
)

// NewNotCompletedError reports a claim attempted before the goal was
// reached.
func NewNotCompletedError(challengeID string) *ServiceError {
	return &ServiceError{
		Type:       "BUSINESS_ERROR",
		Message:    fmt.Sprintf("challenge %s is not completed", challengeID),
		Code:       CodeChallengeNotCompleted,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewAlreadyClaimedError reports a duplicate claim.
func NewAlreadyClaimedError(challengeID string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    fmt.Sprintf("reward for challenge %s has already been claimed", challengeID),
		Code:       CodeRewardAlreadyClaimed,
		StatusCode: http.StatusConflict,
	}
}

// NewPersistenceRaceError reports an optimistic write that lost a race.
// Retryable.
func NewPersistenceRaceError(message string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       CodePersistenceRace,
		StatusCode: http.StatusConflict,
	}
}

// NewTransientStoreError reports a store read/write failure that may
// succeed on retry.
func NewTransientStoreError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		Code:       "TRANSIENT_STORE_ERROR",
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error, or wraps it in a
// generic internal one. Returns nil for a nil error.
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError(err.Error())
}

// IsErrorType checks if an error is of a specific type.
func IsErrorType(err error, errorType string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Type == errorType
	}
	return false
}

// IsErrorCode checks if an error carries a specific code.
func IsErrorCode(err error, code string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Code == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsNotCompletedError checks for a claim-before-completion error.
func IsNotCompletedError(err error) bool {
	return IsErrorCode(err, CodeChallengeNotCompleted)
}

// IsAlreadyClaimedError checks for a duplicate-claim error.
func IsAlreadyClaimedError(err error) bool {
	return IsErrorCode(err, CodeRewardAlreadyClaimed)
}

// IsRetryableError reports whether the claim flow should retry: optimistic
// write races and transient store failures.
func IsRetryableError(err error) bool {
	serviceErr := GetServiceError(err)
	if serviceErr == nil {
		return false
	}
	return serviceErr.Code == CodePersistenceRace || serviceErr.Code == "TRANSIENT_STORE_ERROR"
}
