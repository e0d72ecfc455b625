package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetServiceErrorNilIsNil(t *testing.T) {
	assert.Nil(t, GetServiceError(nil))
}

func TestPredicatesHandleNilError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotCompletedError(nil))
	assert.False(t, IsAlreadyClaimedError(nil))
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsErrorCode(nil, CodePersistenceRace))
	assert.False(t, IsErrorType(nil, "NOT_FOUND"))
}

func TestGetServiceErrorWrapsPlainErrors(t *testing.T) {
	serviceErr := GetServiceError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", serviceErr.Type)
}

func TestGetServiceErrorUnwrapsThroughChains(t *testing.T) {
	inner := NewPersistenceRaceError("lost the race")
	wrapped := fmt.Errorf("claim attempt: %w", inner)

	assert.True(t, IsRetryableError(wrapped))
	assert.Equal(t, CodePersistenceRace, GetServiceError(wrapped).Code)
}
