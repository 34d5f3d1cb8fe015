// Package account implements the account aggregate of the example: it
// handles the OpenAccount, DepositFunds, and WithdrawFunds commands, guards
// the balance invariant, and raises WithdrawalDeclined when a withdrawal
// would overdraw the account.
package account

import (
	"context"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	declineReasonInsufficientFunds = "insufficient funds"
)

// Register binds the account command handlers to the registry.
func Register(registry *dispatch.Registry) error {
	if err := registry.Register(core.AccountTargetType, core.OpenAccountCommandType, dispatch.OperationFunc(openAccount)); err != nil {
		return err
	}

	if err := registry.Register(core.AccountTargetType, core.DepositFundsCommandType, dispatch.OperationFunc(depositFunds)); err != nil {
		return err
	}

	return registry.Register(core.AccountTargetType, core.WithdrawFundsCommandType, dispatch.OperationFunc(withdrawFunds))
}

func openAccount(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalOpenAccountPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalAccountState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	if state.Opened {
		// opening twice is a no-op, not a rejection
		return signals.SuccessOutcome()
	}

	state.Opened = true
	state.Owner = payload.Owner
	tx.SetStateJSON(core.MustMarshal(state))

	opened, deriveErr := sig.DeriveEvent(
		balancesTarget(sig),
		core.AccountOpenedEventType,
		core.MustMarshal(payload),
	)
	if deriveErr != nil {
		return signals.ErrorOutcome(deriveErr)
	}

	return signals.SuccessWithEvents(opened)
}

func depositFunds(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalMoneyMovementPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalAccountState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	state.BalanceCents += payload.AmountCents
	tx.SetStateJSON(core.MustMarshal(state))

	deposited, deriveErr := sig.DeriveEvent(
		balancesTarget(sig),
		core.FundsDepositedEventType,
		core.MustMarshal(payload),
	)
	if deriveErr != nil {
		return signals.ErrorOutcome(deriveErr)
	}

	return signals.SuccessWithEvents(deposited)
}

// withdrawFunds guards the balance invariant. A decline discards the
// in-memory state entirely; the rejection is routed to the settlement
// process manager of the account so it can react to the failed run.
func withdrawFunds(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalMoneyMovementPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalAccountState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	if state.BalanceCents < payload.AmountCents {
		declined, deriveErr := sig.DeriveRejection(
			core.WithdrawalDeclinedRejectionType,
			core.MustMarshal(core.WithdrawalDeclinedPayload{
				AccountID:    payload.AccountID,
				AmountCents:  payload.AmountCents,
				BalanceCents: state.BalanceCents,
				Reason:       declineReasonInsufficientFunds,
			}),
		)
		if deriveErr != nil {
			return signals.ErrorOutcome(deriveErr)
		}

		declined = declined.WithTarget(settlementTarget(payload.AccountID))

		return signals.SuccessWithRejection(declined)
	}

	state.BalanceCents -= payload.AmountCents
	tx.SetStateJSON(core.MustMarshal(state))

	withdrawnForBalances, deriveErr := sig.DeriveEvent(
		balancesTarget(sig),
		core.FundsWithdrawnEventType,
		core.MustMarshal(payload),
	)
	if deriveErr != nil {
		return signals.ErrorOutcome(deriveErr)
	}

	withdrawnForSettlement, deriveErr := sig.DeriveEvent(
		settlementTarget(payload.AccountID),
		core.FundsWithdrawnEventType,
		core.MustMarshal(payload),
	)
	if deriveErr != nil {
		return signals.ErrorOutcome(deriveErr)
	}

	return signals.SuccessWithEvents(withdrawnForBalances, withdrawnForSettlement)
}

// balancesTarget is the tenant-wide balances projection instance.
func balancesTarget(sig signals.Signal) signals.TargetID {
	return signals.TargetID{Type: core.BalancesTargetType, ID: sig.TenantID}
}

func settlementTarget(accountID string) signals.TargetID {
	return signals.TargetID{Type: core.SettlementTargetType, ID: accountID}
}
