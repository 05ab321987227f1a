package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wrong_phase", ReasonOf(ErrWrongPhase))
	assert.Equal(t, "not_your_turn", ReasonOf(fmt.Errorf("roll: %w", ErrNotYourTurn)))
	assert.Equal(t, "internal", ReasonOf(errors.New("boom")))
}

func TestGameError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "malformed frame", ErrMalformed.Error())
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", ErrRateLimited), ErrRateLimited))
}
