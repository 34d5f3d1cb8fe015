// Package sharding provides the in-process delivery layer: stable shard
// assignment, ordered per-shard lanes, ledger-backed de-duplication, and
// postponement of busy targets.
//
// Every signal gets a lane determined solely by its target identity, so
// signals for the same target are delivered strictly in enqueue order while
// lanes run in parallel. Re-queued pairs (postponed or version-conflicted)
// go to the tail of their lane; the dispatch endpoint's optimistic
// concurrency recheck on redelivery is the actual correctness guard, not
// queue position.
//
// A distributed delivery backend is an alternate adapter behind the
// dispatch.Delivery interface and out of scope here.
package sharding
