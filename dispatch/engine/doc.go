// Package engine assembles the dispatch core into one runnable unit: a
// handler registry, the posting pipeline, sharded delivery, and one dispatch
// endpoint per target type, with one worker goroutine consuming each shard
// lane.
//
// Typical wiring:
//
//	delivery, _ := sharding.NewInProcessDelivery(8, ledger)
//	eng, _ := engine.NewEngine(delivery, 8)
//	eng.MountEndpoint(accountEndpoint)
//	eng.RegisterOperation("account", "open_account", openAccountOp)
//	eng.Start(ctx)
//	defer eng.Stop(shutdownCtx)
//
//	ack := eng.Post(ctx, someCommand)
//
// Post acknowledges admission only; dispatch outcomes surface through the
// persisted entity state and derived signals.
package engine
