package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kedai/internal/apperrors"
)

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"pending", "preparing", "ready", "completed", "cancelled", " ready "} {
		_, err := ParseOrderStatus(raw)
		assert.NoError(t, err, raw)
	}

	for _, raw := range []string{"archived", "", "COMPLETED", "shipped"} {
		_, err := ParseOrderStatus(raw)
		assert.ErrorIs(t, err, apperrors.ErrValidation, raw)
	}
}

func TestPlanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		wantErr  error
		noop     bool
		accrues  bool
	}{
		{from: StatusPending, to: StatusPreparing},
		{from: StatusPending, to: StatusCancelled},
		{from: StatusPending, to: StatusCompleted, accrues: true},
		{from: StatusPreparing, to: StatusCompleted, accrues: true},
		{from: StatusReady, to: StatusCompleted, accrues: true},
		{from: StatusReady, to: StatusCancelled},
		{from: StatusCompleted, to: StatusCompleted, noop: true},
		{from: StatusCancelled, to: StatusCancelled, noop: true},
		{from: StatusCompleted, to: StatusPending, wantErr: apperrors.ErrInvalidTransition},
		{from: StatusCancelled, to: StatusCompleted, wantErr: apperrors.ErrInvalidTransition},
		{from: StatusReady, to: StatusPreparing, wantErr: apperrors.ErrInvalidTransition},
		{from: StatusPending, to: "archived", wantErr: apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tr, err := PlanTransition(tt.from, tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.noop, tr.Noop)
			assert.Equal(t, tt.accrues, tr.Accrues())
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, OrderStatus("archived").IsTerminal())
}
