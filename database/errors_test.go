package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDBError(t *testing.T) {
	assert.NoError(t, WrapDBError("Save", nil))

	cause := errors.New("connection reset")
	err := fmt.Errorf("save ranking: %w", WrapDBError("ReplaceHotProductRanking", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ReplaceHotProductRanking", OperationOf(err))
	assert.Contains(t, err.Error(), "storage ReplaceHotProductRanking failed: connection reset")
	assert.Empty(t, OperationOf(cause))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		validation bool
		message    string
	}{
		{
			name:     "not found",
			err:      NewNotFoundErrorWithID("category", int64(99)),
			notFound: true,
			message:  "category 99 does not exist",
		},
		{
			name:       "validation with value",
			err:        NewValidationErrorWithValue("time range", "must be 30, 90, 180 or 365 days", 45),
			validation: true,
			message:    "invalid time range 45: must be 30, 90, 180 or 365 days",
		},
		{
			name:       "validation wrapped",
			err:        fmt.Errorf("load: %w", NewValidationError("analysis", "must not be nil")),
			validation: true,
			message:    "load: invalid analysis: must not be nil",
		},
		{
			name:    "plain",
			err:     errors.New("boom"),
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}
