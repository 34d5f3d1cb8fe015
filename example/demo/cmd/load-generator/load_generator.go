package main

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/engine"
	"github.com/AntonStoeckl/signal-dispatch-go/dispatch/memoryengine"
	"github.com/AntonStoeckl/signal-dispatch-go/example/core"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// LoadGenerator posts a randomized signal mix against the engine at a
// configured rate. Deposits dominate so most withdrawals succeed; the
// occasional oversized settlement run exercises the decline path and halts
// that account's settlement process manager.
type LoadGenerator struct {
	eng    *engine.Engine
	store  *memoryengine.MemoryEngine
	cfg    Config
	logger *slog.Logger

	posted   atomic.Int64
	rejected atomic.Int64
	started  time.Time
}

// NewLoadGenerator creates a LoadGenerator over an already started engine.
func NewLoadGenerator(eng *engine.Engine, store *memoryengine.MemoryEngine, cfg Config, logger *slog.Logger) *LoadGenerator {
	return &LoadGenerator{
		eng:    eng,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Run opens the account pool and generates load until the configured duration
// elapses or the context is canceled.
func (g *LoadGenerator) Run(ctx context.Context) {
	g.started = time.Now()

	g.openAccounts(ctx)

	rate := g.cfg.SignalsPerSec
	if rate <= 0 {
		rate = 1
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	reporter := time.NewTicker(g.cfg.ReportInterval)
	defer reporter.Stop()

	deadline := time.NewTimer(g.cfg.RunDuration)
	defer deadline.Stop()

	g.logger.Info("load generation started",
		"signals_per_sec", g.cfg.SignalsPerSec,
		"accounts", g.cfg.AccountCount,
		"duration", g.cfg.RunDuration.String())

	for {
		select {
		case <-ticker.C:
			g.postRandomSignal(ctx)

		case <-reporter.C:
			g.reportProgress()

		case <-deadline.C:
			return

		case <-ctx.Done():
			return
		}
	}
}

// ReportFinal logs the totals and the final balances projection state.
func (g *LoadGenerator) ReportFinal(ctx context.Context) {
	balancesEntity, _, _ := g.store.Load(ctx, g.cfg.TenantID,
		signals.TargetID{Type: core.BalancesTargetType, ID: g.cfg.TenantID})

	g.logger.Info("load generation finished",
		"posted", g.posted.Load(),
		"rejected", g.rejected.Load(),
		"elapsed", time.Since(g.started).String(),
		"balances_state", string(balancesEntity.StateJSON),
		"balances_version", balancesEntity.Version)
}

func (g *LoadGenerator) openAccounts(ctx context.Context) {
	for i := 0; i < g.cfg.AccountCount; i++ {
		accountID := g.accountID(i)

		open, err := signals.BuildCommandSignal(
			g.cfg.TenantID,
			signals.TargetID{Type: core.AccountTargetType, ID: accountID},
			core.OpenAccountCommandType,
			core.MustMarshal(core.OpenAccountPayload{AccountID: accountID, Owner: "owner-" + accountID}),
		)
		if err != nil {
			g.logger.Error("building open command failed", "error", err.Error())
			continue
		}

		g.post(ctx, open)
	}
}

// postRandomSignal picks a scenario with fixed weights: deposits keep the
// accounts funded, withdrawals drain them, settlement runs drive the process
// manager and occasionally overdraw on purpose.
func (g *LoadGenerator) postRandomSignal(ctx context.Context) {
	accountID := g.accountID(rand.Intn(g.cfg.AccountCount))
	accountTarget := signals.TargetID{Type: core.AccountTargetType, ID: accountID}

	var sig signals.Signal
	var err error

	switch roll := rand.Intn(100); {
	case roll < 50:
		sig, err = signals.BuildCommandSignal(g.cfg.TenantID, accountTarget, core.DepositFundsCommandType,
			core.MustMarshal(core.MoneyMovementPayload{
				AccountID:   accountID,
				AmountCents: int64(rand.Intn(10_000) + 100),
			}))

	case roll < 80:
		sig, err = signals.BuildCommandSignal(g.cfg.TenantID, accountTarget, core.WithdrawFundsCommandType,
			core.MustMarshal(core.MoneyMovementPayload{
				AccountID:   accountID,
				AmountCents: int64(rand.Intn(5_000) + 100),
			}))

	case roll < 98:
		sig, err = signals.BuildEventSignal(g.cfg.TenantID,
			signals.TargetID{Type: core.SettlementTargetType, ID: accountID},
			core.SettlementDueEventType,
			core.MustMarshal(core.SettlementDuePayload{
				AccountID:   accountID,
				AmountCents: int64(rand.Intn(2_000) + 100),
			}))

	default:
		// an oversized settlement run that will be declined and halt the account's settlement
		sig, err = signals.BuildEventSignal(g.cfg.TenantID,
			signals.TargetID{Type: core.SettlementTargetType, ID: accountID},
			core.SettlementDueEventType,
			core.MustMarshal(core.SettlementDuePayload{
				AccountID:   accountID,
				AmountCents: 100_000_000,
			}))
	}

	if err != nil {
		g.logger.Error("building signal failed", "error", err.Error())
		return
	}

	g.post(ctx, sig)
}

func (g *LoadGenerator) post(ctx context.Context, sig signals.Signal) {
	ack := g.eng.Post(ctx, sig)
	if !ack.IsAccepted() {
		g.rejected.Add(1)
		g.logger.Warn("signal rejected",
			"signal_type", sig.Type,
			"stage", ack.Stage().String(),
			"reason", ack.Reason())

		return
	}

	g.posted.Add(1)
}

func (g *LoadGenerator) reportProgress() {
	elapsed := time.Since(g.started).Seconds()

	g.logger.Info("load generation progress",
		"posted", g.posted.Load(),
		"rejected", g.rejected.Load(),
		"rate_per_sec", float64(g.posted.Load())/elapsed)
}

func (g *LoadGenerator) accountID(index int) string {
	return "acc-" + strconv.Itoa(1000+index)
}
