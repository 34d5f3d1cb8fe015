// Package settlement implements the settlement process manager of the
// example. One instance exists per account; it is created by the first
// SettlementDue event, drives withdrawals by issuing WithdrawFunds commands,
// and reacts to the outcomes of those withdrawals.
//
// Its handlers deliberately exercise the process-manager persistence
// asymmetry: state modified before a failed outcome still gets persisted,
// while the triggering signal stays eligible for redelivery.
package settlement

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// ErrUnexpectedWithdrawal is reported when a withdrawal arrives for an
// account this process manager never scheduled a settlement for.
var ErrUnexpectedWithdrawal = errors.New("observed withdrawal without a due settlement")

// Register binds the settlement event and rejection handlers to the registry.
func Register(registry *dispatch.Registry) error {
	if err := registry.Register(core.SettlementTargetType, core.SettlementDueEventType, dispatch.OperationFunc(settlementDue)); err != nil {
		return err
	}

	if err := registry.Register(core.SettlementTargetType, core.FundsWithdrawnEventType, dispatch.OperationFunc(fundsWithdrawn)); err != nil {
		return err
	}

	return registry.Register(core.SettlementTargetType, core.WithdrawalDeclinedRejectionType, dispatch.OperationFunc(withdrawalDeclined))
}

// settlementDue records the due amount and issues the withdrawal command
// against the account aggregate.
func settlementDue(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalSettlementDuePayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalSettlementState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	if state.Halted {
		// a halted settlement run ignores further due events
		return signals.SuccessOutcome()
	}

	state.AccountID = payload.AccountID
	state.PendingReviewFor = payload.AmountCents
	tx.SetStateJSON(core.MustMarshal(state))

	withdraw, deriveErr := sig.DeriveCommand(
		signals.TargetID{Type: core.AccountTargetType, ID: payload.AccountID},
		core.WithdrawFundsCommandType,
		core.MustMarshal(core.MoneyMovementPayload{
			AccountID:   payload.AccountID,
			AmountCents: payload.AmountCents,
		}),
	)
	if deriveErr != nil {
		return signals.ErrorOutcome(deriveErr)
	}

	return signals.SuccessWithCommands(withdraw)
}

// fundsWithdrawn settles a pending withdrawal. A withdrawal this instance
// never scheduled is recorded for review and reported as a failure; the
// recorded state survives the failed outcome.
func fundsWithdrawn(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalMoneyMovementPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalSettlementState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	if state.PendingReviewFor == 0 {
		state.AccountID = payload.AccountID
		state.PendingReviewFor = payload.AmountCents
		tx.SetStateJSON(core.MustMarshal(state))

		return signals.ErrorOutcome(ErrUnexpectedWithdrawal)
	}

	state.SettledCount++
	state.SettledCents += payload.AmountCents
	state.PendingReviewFor = 0
	tx.SetStateJSON(core.MustMarshal(state))

	return signals.SuccessOutcome()
}

// withdrawalDeclined halts the settlement run for the account.
func withdrawalDeclined(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalWithdrawalDeclinedPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalSettlementState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	state.AccountID = payload.AccountID
	state.DeclinedCount++
	state.PendingReviewFor = 0
	state.Halted = true
	tx.SetStateJSON(core.MustMarshal(state))

	return signals.SuccessOutcome()
}
