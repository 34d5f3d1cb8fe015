// Package balances implements the balances projection of the example: a
// tenant-wide read model summing all account movements. It reacts to events
// only and produces no derived signals.
package balances

import (
	"context"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// Register binds the balances event handlers to the registry.
func Register(registry *dispatch.Registry) error {
	if err := registry.Register(core.BalancesTargetType, core.AccountOpenedEventType, dispatch.OperationFunc(accountOpened)); err != nil {
		return err
	}

	if err := registry.Register(core.BalancesTargetType, core.FundsDepositedEventType, dispatch.OperationFunc(fundsDeposited)); err != nil {
		return err
	}

	return registry.Register(core.BalancesTargetType, core.FundsWithdrawnEventType, dispatch.OperationFunc(fundsWithdrawn))
}

func accountOpened(_ context.Context, tx *dispatch.Transaction, _ signals.Signal) signals.Outcome {
	state, stateErr := core.UnmarshalBalancesState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	state.AccountCount++
	tx.SetStateJSON(core.MustMarshal(state))

	return signals.SuccessOutcome()
}

func fundsDeposited(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalMoneyMovementPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalBalancesState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	state.TotalBalanceCents += payload.AmountCents
	state.MovementCount++
	tx.SetStateJSON(core.MustMarshal(state))

	return signals.SuccessOutcome()
}

func fundsWithdrawn(_ context.Context, tx *dispatch.Transaction, sig signals.Signal) signals.Outcome {
	payload, unmarshalErr := core.UnmarshalMoneyMovementPayload(sig.PayloadJSON)
	if unmarshalErr != nil {
		return signals.ErrorOutcome(unmarshalErr)
	}

	state, stateErr := core.UnmarshalBalancesState(tx.StateJSON())
	if stateErr != nil {
		return signals.ErrorOutcome(stateErr)
	}

	state.TotalBalanceCents -= payload.AmountCents
	state.MovementCount++
	tx.SetStateJSON(core.MustMarshal(state))

	return signals.SuccessOutcome()
}
