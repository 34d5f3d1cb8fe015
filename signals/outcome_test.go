package signals_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

func Test_SuccessOutcome_IsExclusive(t *testing.T) {
	outcome := signals.SuccessOutcome()

	assert.True(t, outcome.IsSuccess())
	assert.False(t, outcome.IsError())
	assert.False(t, outcome.IsInterrupted())
	assert.Empty(t, outcome.Events())
	assert.Empty(t, outcome.Commands())

	_, rejected := outcome.Rejection()
	assert.False(t, rejected)
	assert.NoError(t, outcome.Err())
}

func Test_SuccessWithEvents_CarriesEvents(t *testing.T) {
	// arrange
	event, err := signals.BuildEventSignal(
		"tenant-1",
		signals.TargetID{Type: "balances", ID: "tenant-1"},
		"FundsDeposited",
		[]byte(`{}`),
	)
	require.NoError(t, err)

	// act
	outcome := signals.SuccessWithEvents(event)

	// assert
	assert.True(t, outcome.IsSuccess())
	require.Len(t, outcome.Events(), 1)
	assert.Equal(t, event.ID, outcome.Events()[0].ID)
	assert.Empty(t, outcome.Commands())
}

func Test_SuccessWithRejection_IsSuccessCarryingRejection(t *testing.T) {
	// arrange
	rejection, err := signals.BuildRejectionSignal(
		"tenant-1",
		signals.TargetID{Type: "settlement", ID: "acc-1"},
		"WithdrawalDeclined",
		[]byte(`{}`),
	)
	require.NoError(t, err)

	// act
	outcome := signals.SuccessWithRejection(rejection)

	// assert
	assert.True(t, outcome.IsSuccess())
	carried, rejected := outcome.Rejection()
	require.True(t, rejected)
	assert.Equal(t, rejection.ID, carried.ID)
	assert.Empty(t, outcome.Events())
}

func Test_ErrorOutcome_CarriesError(t *testing.T) {
	cause := errors.New("database unreachable")

	outcome := signals.ErrorOutcome(cause)

	assert.True(t, outcome.IsError())
	assert.False(t, outcome.IsSuccess())
	assert.ErrorIs(t, outcome.Err(), cause)
}

func Test_InterruptedOutcome_CarriesReason(t *testing.T) {
	tests := []struct {
		reason   signals.InterruptionReason
		expected string
	}{
		{signals.InterruptionNoHandler, "no_handler"},
		{signals.InterruptionTargetArchived, "target_archived"},
		{signals.InterruptionTargetNotFound, "target_not_found"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			outcome := signals.InterruptedOutcome(tc.reason)

			assert.True(t, outcome.IsInterrupted())
			assert.False(t, outcome.IsSuccess())
			assert.Equal(t, tc.reason, outcome.Reason())
			assert.Equal(t, tc.expected, outcome.Reason().String())
		})
	}
}
