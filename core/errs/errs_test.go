package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageWrapsCause(t *testing.T) {
	err := Stage("req-1", "extract", fmt.Errorf("llm: %w", ErrCollaboratorUnavailable))
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Contains(t, err.Error(), "req-1")
	assert.Contains(t, err.Error(), "extract")

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError")
	}
	assert.Equal(t, "extract", se.Stage)
}

func TestStageNil(t *testing.T) {
	assert.NoError(t, Stage("req", "match", nil))
}

func TestHelpers(t *testing.T) {
	assert.ErrorIs(t, Validationf("capacity %d", 0), ErrValidation)
	assert.ErrorIs(t, NotFoundf("resource %s", "r1"), ErrNotFound)
	assert.Equal(t, "validation failed: capacity 0", Validationf("capacity %d", 0).Error())
}
