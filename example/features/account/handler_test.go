package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/example/features/account"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

var accountTarget = signals.TargetID{Type: core.AccountTargetType, ID: "acc-1"}

func registeredOperation(t *testing.T, signalType signals.SignalTypeString) dispatch.Operation {
	t.Helper()

	registry := dispatch.NewRegistry()
	require.NoError(t, account.Register(registry))

	operation := registry.Resolve(core.AccountTargetType, signalType)
	require.NotNil(t, operation)

	return operation
}

func transactionWithState(t *testing.T, state core.AccountState) *dispatch.Transaction {
	t.Helper()

	return dispatch.BeginTransaction(dispatch.Entity{
		Target:    accountTarget,
		TenantID:  "tenant-1",
		StateJSON: core.MustMarshal(state),
		Version:   1,
	})
}

func buildCommand(t *testing.T, signalType signals.SignalTypeString, payload any) signals.Signal {
	t.Helper()

	sig, err := signals.BuildCommandSignal("tenant-1", accountTarget, signalType, core.MustMarshal(payload))
	require.NoError(t, err)

	return sig
}

func Test_OpenAccount_OpensAndAnnouncesToBalances(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.OpenAccountCommandType)
	tx := dispatch.BeginTransaction(dispatch.BuildFreshEntity("tenant-1", accountTarget))
	cmd := buildCommand(t, core.OpenAccountCommandType, core.OpenAccountPayload{AccountID: "acc-1", Owner: "Ada"})

	// act
	outcome := operation.Invoke(context.Background(), tx, cmd)

	// assert
	require.True(t, outcome.IsSuccess())
	assert.True(t, tx.IsModified())

	state, err := core.UnmarshalAccountState(tx.StateJSON())
	require.NoError(t, err)
	assert.True(t, state.Opened)
	assert.Equal(t, "Ada", state.Owner)

	require.Len(t, outcome.Events(), 1)
	opened := outcome.Events()[0]
	assert.Equal(t, core.AccountOpenedEventType, opened.Type)
	assert.Equal(t, signals.TargetID{Type: core.BalancesTargetType, ID: "tenant-1"}, opened.Target)
	assert.Equal(t, cmd.ID, opened.CausationID)
}

func Test_OpenAccount_SecondOpenIsANoOp(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.OpenAccountCommandType)
	tx := transactionWithState(t, core.AccountState{Opened: true, Owner: "Ada"})
	cmd := buildCommand(t, core.OpenAccountCommandType, core.OpenAccountPayload{AccountID: "acc-1", Owner: "Grace"})

	// act
	outcome := operation.Invoke(context.Background(), tx, cmd)

	// assert
	require.True(t, outcome.IsSuccess())
	assert.False(t, tx.IsModified())
	assert.Empty(t, outcome.Events())
}

func Test_DepositFunds_IncreasesBalance(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.DepositFundsCommandType)
	tx := transactionWithState(t, core.AccountState{Opened: true, Owner: "Ada", BalanceCents: 100})
	cmd := buildCommand(t, core.DepositFundsCommandType, core.MoneyMovementPayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, cmd)

	// assert
	require.True(t, outcome.IsSuccess())

	state, err := core.UnmarshalAccountState(tx.StateJSON())
	require.NoError(t, err)
	assert.Equal(t, int64(2_600), state.BalanceCents)

	require.Len(t, outcome.Events(), 1)
	assert.Equal(t, core.FundsDepositedEventType, outcome.Events()[0].Type)
}

func Test_WithdrawFunds_WithSufficientBalance_EmitsToBalancesAndSettlement(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.WithdrawFundsCommandType)
	tx := transactionWithState(t, core.AccountState{Opened: true, Owner: "Ada", BalanceCents: 10_000})
	cmd := buildCommand(t, core.WithdrawFundsCommandType, core.MoneyMovementPayload{AccountID: "acc-1", AmountCents: 2_500})

	// act
	outcome := operation.Invoke(context.Background(), tx, cmd)

	// assert
	require.True(t, outcome.IsSuccess())

	state, err := core.UnmarshalAccountState(tx.StateJSON())
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), state.BalanceCents)

	require.Len(t, outcome.Events(), 2)
	assert.Equal(t, signals.TargetID{Type: core.BalancesTargetType, ID: "tenant-1"}, outcome.Events()[0].Target)
	assert.Equal(t, signals.TargetID{Type: core.SettlementTargetType, ID: "acc-1"}, outcome.Events()[1].Target)

	for _, event := range outcome.Events() {
		assert.Equal(t, core.FundsWithdrawnEventType, event.Type)
		assert.Equal(t, cmd.ID, event.CausationID)
	}
}

func Test_WithdrawFunds_WithInsufficientBalance_DeclinesTowardsSettlement(t *testing.T) {
	// arrange
	operation := registeredOperation(t, core.WithdrawFundsCommandType)
	tx := transactionWithState(t, core.AccountState{Opened: true, Owner: "Ada", BalanceCents: 100})
	cmd := buildCommand(t, core.WithdrawFundsCommandType, core.MoneyMovementPayload{AccountID: "acc-1", AmountCents: 50_000})

	// act
	outcome := operation.Invoke(context.Background(), tx, cmd)

	// assert: a decline is a success outcome carrying a rejection
	require.True(t, outcome.IsSuccess())
	assert.Empty(t, outcome.Events())

	declined, rejected := outcome.Rejection()
	require.True(t, rejected)
	assert.Equal(t, core.WithdrawalDeclinedRejectionType, declined.Type)
	assert.Equal(t, signals.TargetID{Type: core.SettlementTargetType, ID: "acc-1"}, declined.Target)

	payload, err := core.UnmarshalWithdrawalDeclinedPayload(declined.PayloadJSON)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), payload.AmountCents)
	assert.Equal(t, int64(100), payload.BalanceCents)
	assert.Equal(t, "insufficient funds", payload.Reason)
}
