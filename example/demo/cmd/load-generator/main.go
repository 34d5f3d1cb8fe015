// The load-generator command drives the dispatch engine with a configurable
// signal rate over the example banking domain: it opens a pool of accounts
// and then posts random deposits, withdrawals, and settlement runs against
// them, reporting throughput and rejection counts while it runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
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

// Config extends the engine tunables with the load shape.
type Config struct {
	config.EngineConfig

	TenantID       string        `env:"LOADGEN_TENANT_ID" envDefault:"load-tenant"`
	SignalsPerSec  int           `env:"LOADGEN_SIGNALS_PER_SEC" envDefault:"200"`
	AccountCount   int           `env:"LOADGEN_ACCOUNT_COUNT" envDefault:"50"`
	RunDuration    time.Duration `env:"LOADGEN_DURATION" envDefault:"30s"`
	ReportInterval time.Duration `env:"LOADGEN_REPORT_INTERVAL" envDefault:"5s"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(logger); err != nil {
		logger.Error("load generator failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}

	store := memoryengine.NewMemoryEngine()

	delivery, deliveryErr := sharding.NewInProcessDelivery(
		cfg.ShardCount,
		store,
		sharding.WithLaneCapacity(cfg.LaneCapacity),
		sharding.WithPostponeDelay(cfg.PostponeDelay),
	)
	if deliveryErr != nil {
		return deliveryErr
	}

	eng, engineErr := engine.NewEngine(delivery, cfg.ShardCount, engine.WithLogger(logger))
	if engineErr != nil {
		return engineErr
	}

	if err := mountEndpoints(eng, store, cfg); err != nil {
		return err
	}

	if err := registerHandlers(eng.Registry()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	generator := NewLoadGenerator(eng, store, cfg, logger)
	generator.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eng.Stop(stopCtx); err != nil {
		return err
	}

	generator.ReportFinal(context.Background())

	return nil
}

func mountEndpoints(eng *engine.Engine, store *memoryengine.MemoryEngine, cfg Config) error {
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
