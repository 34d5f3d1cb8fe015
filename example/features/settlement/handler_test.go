package settlement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/example/features/settlement"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

var settlementTarget = signals.TargetID{Type: core.SettlementTargetType, ID: "acc-1"}

func registeredOperation(t *testing.T, signalType signals.SignalTypeString) dispatch.Operation {
	t.Helper()

	registry := dispatch.NewRegistry()
	require.NoError(t, settlement.Register(registry))

	operation := registry.Resolve(core.SettlementTargetType, signalType)
	require.NotNil(t, operation)

	return operation
}

func transactionWithState(t *testing.T, state core.SettlementState) *dispatch.Transaction {
	t.Helper()

	return dispatch.BeginTransaction(dispatch.Entity{
		Target:    settlementTarget,
		TenantID:  "tenant-1",
		StateJSON: core.MustMarshal(state),
		Version:   1,
	})
}

func buildEvent(t *testing.T, signalType signals.SignalTypeString, payload any) signals.Signal {
	t.Helper()

	sig, err := signals.BuildEventSignal("tenant-1", settlementTarget, signalType, core.MustMarshal(payload))
	require.NoError(t, err)

	return sig
}

func Test_SettlementDue_IssuesWithdrawCommandAgainstAccount(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.SettlementDueEventType)
	tx := dispatch.BeginTransaction(dispatch.BuildFreshEntity("tenant-1", settlementTarget))
	due := buildEvent(t, core.SettlementDueEventType, core.SettlementDuePayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, due)

	// assert
	require.True(t, outcome.IsSuccess())

	state, err := core.UnmarshalSettlementState(tx.StateJSON())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", state.AccountID)
	assert.Equal(t, int64(2_500), state.PendingReviewFor)

	require.Len(t, outcome.Commands(), 1)
	withdraw := outcome.Commands()[0]
	assert.Equal(t, core.WithdrawFundsCommandType, withdraw.Type)
	assert.Equal(t, signals.TargetID{Type: core.AccountTargetType, ID: "acc-1"}, withdraw.Target)
	assert.Equal(t, due.ID, withdraw.CausationID)
}

func Test_SettlementDue_IgnoredWhileHalted(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.SettlementDueEventType)
	tx := transactionWithState(t, core.SettlementState{AccountID: "acc-1", Halted: true})
	due := buildEvent(t, core.SettlementDueEventType, core.SettlementDuePayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, due)

	// assert
	require.True(t, outcome.IsSuccess())
	assert.False(t, tx.IsModified())
	assert.Empty(t, outcome.Commands())
}

func Test_FundsWithdrawn_SettlesThePendingWithdrawal(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.FundsWithdrawnEventType)
	tx := transactionWithState(t, core.SettlementState{AccountID: "acc-1", PendingReviewFor: 2_500})
	withdrawn := buildEvent(t, core.FundsWithdrawnEventType, core.MoneyMovementPayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, withdrawn)

	// assert
	require.True(t, outcome.IsSuccess())

	state, err := core.UnmarshalSettlementState(tx.StateJSON())
	require.NoError(t, err)
	assert.Equal(t, 1, state.SettledCount)
	assert.Equal(t, int64(2_500), state.SettledCents)
	assert.Zero(t, state.PendingReviewFor)
}

func Test_FundsWithdrawn_UnscheduledWithdrawalFailsButRecordsState(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.FundsWithdrawnEventType)
	tx := dispatch.BeginTransaction(dispatch.BuildFreshEntity("tenant-1", settlementTarget))
	withdrawn := buildEvent(t, core.FundsWithdrawnEventType, core.MoneyMovementPayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, withdrawn)

	// assert: the outcome fails, yet the observation is recorded in state
	require.True(t, outcome.IsError())
	assert.ErrorIs(t, outcome.Err(), settlement.ErrUnexpectedWithdrawal)
	assert.True(t, tx.IsModified())

	state, err := core.UnmarshalSettlementState(tx.StateJSON())
	require.NoError(t, err)
	assert.Equal(t, int64(2_500), state.PendingReviewFor)
}

func Test_WithdrawalDeclined_HaltsTheSettlementRun(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.WithdrawalDeclinedRejectionType)
	tx := transactionWithState(t, core.SettlementState{AccountID: "acc-1", PendingReviewFor: 50_000})

	declined, err := signals.BuildRejectionSignal("tenant-1", settlementTarget, core.WithdrawalDeclinedRejectionType,
		core.MustMarshal(core.WithdrawalDeclinedPayload{
			AccountID:    "acc-1",
			AmountCents:  50_000,
			BalanceCents: 100,
			Reason:       "insufficient funds",
		}))
	require.NoError(t, err)

	// act
	outcome := operation.Invoke(context.Background(), tx, declined)

	// assert
	require.True(t, outcome.IsSuccess())

	state, stateErr := core.UnmarshalSettlementState(tx.StateJSON())
	require.NoError(t, stateErr)
	assert.True(t, state.Halted)
	assert.Equal(t, 1, state.DeclinedCount)
	assert.Zero(t, state.PendingReviewFor)
}
