// The demo command wires the full dispatch core with the in-memory engine
// and runs the example domain end to end: it opens an account, deposits
// funds, and triggers two settlement runs, one of which is declined and
// halts the settlement process manager.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/AntonStoeckl/signal-dispatch-go/config"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/endpoint"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/engine"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/memoryengine"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/sharding"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/example/features/account"
	"github.com/AntonStoeckl/signal-dispatch-go/example/features/balances"
	"github.com/AntonStoeckl/signal-dispatch-go/example/features/settlement"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

const (
	tenantID  = "demo-tenant"
	accountID = "acc-1001"
	settleFor = int64(2500)
	overdraw  = int64(50000)
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("demo failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, cfgErr := config.EngineConfigFromEnv()
	if cfgErr != nil {
		return cfgErr
	}

	store := memoryengine.NewMemoryEngine()

	delivery, deliveryErr := sharding.NewInProcessDelivery(
		cfg.ShardCount,
		store,
		sharding.WithLaneCapacity(cfg.LaneCapacity),
		sharding.WithPostponeDelay(cfg.PostponeDelay),
		sharding.WithLogger(logger),
	)
	if deliveryErr != nil {
		return deliveryErr
	}

	eng, engineErr := engine.NewEngine(delivery, cfg.ShardCount, engine.WithLogger(logger))
	if engineErr != nil {
		return engineErr
	}

	if err := mountEndpoints(eng, store, cfg, logger); err != nil {
		return err
	}

	if err := registerHandlers(eng.Registry()); err != nil {
		return err
	}

	ctx := context.Background()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	if err := postDemoSignals(ctx, eng); err != nil {
		return err
	}

	// let the shard workers drain the causation chains
	time.Sleep(time.Second)

	reportStates(ctx, store, logger)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return eng.Stop(stopCtx)
}

func mountEndpoints(eng *engine.Engine, store *memoryengine.MemoryEngine, cfg config.EngineConfig, logger *slog.Logger) error {
	mounts := []struct {
		targetType signals.TargetTypeString
		strategy   endpoint.Strategy
	}{
		{core.AccountTargetType, endpoint.AggregateStrategy{}},
		{core.SettlementTargetType, endpoint.ProcessManagerStrategy{}},
		{core.BalancesTargetType, endpoint.ProjectionStrategy{}},
	}

	for _, mount := range mounts {
		ep, err := endpoint.NewEndpoint(
			mount.targetType,
			mount.strategy,
			store,
			store,
			eng.Registry(),
			endpoint.WithDispatchTimeout(cfg.DispatchTimeout),
			endpoint.WithLogger(logger),
		)
		if err != nil {
			return err
		}

		if err = eng.MountEndpoint(ep); err != nil {
			return err
		}
	}

	return nil
}

func registerHandlers(registry *dispatch.Registry) error {
	if err := account.Register(registry); err != nil {
		return err
	}

	if err := settlement.Register(registry); err != nil {
		return err
	}

	return balances.Register(registry)
}

func postDemoSignals(ctx context.Context, eng *engine.Engine) error {
	accountTarget := signals.TargetID{Type: core.AccountTargetType, ID: accountID}
	settlementTarget := signals.TargetID{Type: core.SettlementTargetType, ID: accountID}

	open, err := signals.BuildCommandSignal(tenantID, accountTarget, core.OpenAccountCommandType,
		core.MustMarshal(core.OpenAccountPayload{AccountID: accountID, Owner: "Ada"}))
	if err != nil {
		return err
	}

	deposit, err := signals.BuildCommandSignal(tenantID, accountTarget, core.DepositFundsCommandType,
		core.MustMarshal(core.MoneyMovementPayload{AccountID: accountID, AmountCents: 10_000}))
	if err != nil {
		return err
	}

	settleDue, err := signals.BuildEventSignal(tenantID, settlementTarget, core.SettlementDueEventType,
		core.MustMarshal(core.SettlementDuePayload{AccountID: accountID, AmountCents: settleFor}))
	if err != nil {
		return err
	}

	overdrawDue, err := signals.BuildEventSignal(tenantID, settlementTarget, core.SettlementDueEventType,
		core.MustMarshal(core.SettlementDuePayload{AccountID: accountID, AmountCents: overdraw}))
	if err != nil {
		return err
	}

	for _, sig := range []signals.Signal{open, deposit, settleDue, overdrawDue} {
		if ack := eng.Post(ctx, sig); !ack.IsAccepted() {
			return &postRejectedError{signalType: sig.Type, stage: ack.Stage().String(), reason: ack.Reason()}
		}
	}

	return nil
}

type postRejectedError struct {
	signalType string
	stage      string
	reason     string
}

func (e *postRejectedError) Error() string {
	return "signal " + e.signalType + " rejected at stage " + e.stage + ": " + e.reason
}

func reportStates(ctx context.Context, store *memoryengine.MemoryEngine, logger *slog.Logger) {
	accountEntity, _, _ := store.Load(ctx, tenantID, signals.TargetID{Type: core.AccountTargetType, ID: accountID})
	settlementEntity, _, _ := store.Load(ctx, tenantID, signals.TargetID{Type: core.SettlementTargetType, ID: accountID})
	balancesEntity, _, _ := store.Load(ctx, tenantID, signals.TargetID{Type: core.BalancesTargetType, ID: tenantID})

	logger.Info("account state",
		"state", string(accountEntity.StateJSON),
		"version", accountEntity.Version)
	logger.Info("settlement state",
		"state", string(settlementEntity.StateJSON),
		"version", settlementEntity.Version)
	logger.Info("balances state",
		"state", string(balancesEntity.StateJSON),
		"version", balancesEntity.Version)
}
