// Package endpoint provides the transactional apply-to-target-and-persist
// protocol: given one (target, signal) pair it loads or creates the target
// entity, applies the signal within a dispatch transaction, persists the
// result with an optimistic version check, classifies the outcome, and
// routes derived signals back into the posting pipeline.
//
// The protocol is one generic state machine
// (Resolving -> InTransaction -> {Committed, Aborted} -> Reported)
// parameterized by a small Strategy capability implemented per target kind:
//
//   - AggregateStrategy: only a success outcome causes a commit; on error,
//     interruption, or rejection the in-memory state is discarded
//   - ProcessManagerStrategy: modified state is persisted regardless of the
//     business outcome, because lifecycle transitions triggered by a
//     rejection must survive even though the outcome itself failed
//   - ProjectionStrategy: reacts to events only and produces no derived
//     signals beyond internal state mutation
//
// A version mismatch on commit aborts the attempt with
// dispatch.ErrVersionConflict; delivery re-queues the pair and the recheck on
// redelivery is the actual correctness guard.
package endpoint
