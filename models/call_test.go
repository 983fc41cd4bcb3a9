package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doruhan/vira/models"
)

// TestCallStatusTransitions verifies the forward-only call lifecycle:
// pending → {accepted, rejected, ended}, accepted → ended, terminal states
// refuse everything.
func TestCallStatusTransitions(t *testing.T) {
	tests := []struct {
		from    models.CallStatus
		to      models.CallStatus
		allowed bool
	}{
		{models.CallStatusPending, models.CallStatusAccepted, true},
		{models.CallStatusPending, models.CallStatusRejected, true},
		{models.CallStatusPending, models.CallStatusEnded, true},
		{models.CallStatusAccepted, models.CallStatusEnded, true},

		{models.CallStatusAccepted, models.CallStatusPending, false},
		{models.CallStatusAccepted, models.CallStatusRejected, false},
		{models.CallStatusRejected, models.CallStatusAccepted, false},
		{models.CallStatusRejected, models.CallStatusEnded, false},
		{models.CallStatusEnded, models.CallStatusAccepted, false},
		{models.CallStatusEnded, models.CallStatusRejected, false},
		{models.CallStatusEnded, models.CallStatusEnded, false},
		{models.CallStatusPending, models.CallStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestCallStatusTerminal(t *testing.T) {
	assert.False(t, models.CallStatusPending.Terminal())
	assert.False(t, models.CallStatusAccepted.Terminal())
	assert.True(t, models.CallStatusRejected.Terminal())
	assert.True(t, models.CallStatusEnded.Terminal())
}
