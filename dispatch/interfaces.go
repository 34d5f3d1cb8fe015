package dispatch

import (
	"context"

	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// Operation is the handling operation resolved for one (target type, signal
// type) pair. It is executed against the transaction snapshot; any signals it
// wants to emit, or a rejection it wants to raise, are carried in the Outcome
// and are not persisted or posted by the operation itself.
//
// An operation must not retain the transaction beyond the invocation.
type Operation interface {
	Invoke(ctx context.Context, tx *Transaction, sig signals.Signal) signals.Outcome
}

// OperationFunc adapts a plain function to the Operation interface.
type OperationFunc func(ctx context.Context, tx *Transaction, sig signals.Signal) signals.Outcome

// Invoke implements the Operation interface.
func (f OperationFunc) Invoke(ctx context.Context, tx *Transaction, sig signals.Signal) signals.Outcome {
	return f(ctx, tx, sig)
}

// HandlerResolver is the handler resolution capability consumed by the
// dispatch endpoint: given a target type and a signal type it returns the
// applicable operation, or nil when the signal is not handled by that target.
type HandlerResolver interface {
	Resolve(targetType signals.TargetTypeString, signalType signals.SignalTypeString) Operation
}

// EntityRepository is the version-checked store behind the dispatch core.
//
// Implementations provide their own concurrency control; the dispatch core
// relies solely on the expectedVersion condition of Store to detect
// concurrent writers and never takes a cross-shard lock.
type EntityRepository interface {
	// Load returns the entity and true, or a zero entity and false when no
	// entity exists for the target. An entity marked deleted is treated as
	// absent by a normal load.
	Load(ctx context.Context, tenantID signals.TenantIDString, target signals.TargetID) (Entity, bool, error)

	// Store persists the entity conditioned on the stored version matching
	// expectedVersion. A mismatch returns ErrVersionConflict and leaves the
	// stored entity untouched. A fresh entity is created when expectedVersion
	// is zero and no record exists yet.
	Store(ctx context.Context, entity Entity, expectedVersion EntityVersionUint) error

	// MarkLifecycle applies a lifecycle flag change to the entity record.
	MarkLifecycle(ctx context.Context, tenantID signals.TenantIDString, target signals.TargetID, change LifecycleChange) error
}

// AppliedSignalLedger is the idempotence capability consumed by delivery and
// by the dispatch endpoint's commit step. Recording is an idempotent
// insert-or-detect; checking never mutates.
type AppliedSignalLedger interface {
	WasApplied(ctx context.Context, target signals.TargetID, signalID signals.SignalIDString) (bool, error)
	RecordApplied(ctx context.Context, target signals.TargetID, signalID signals.SignalIDString) error
}

// CommitStore is an optional upgrade of EntityRepository: implementations
// that can persist the entity state and the applied-signal record in one
// transactional unit should implement it. The dispatch endpoint uses it when
// available, falling back to Store followed by RecordApplied.
type CommitStore interface {
	StoreAndRecord(
		ctx context.Context,
		entity Entity,
		expectedVersion EntityVersionUint,
		signalID signals.SignalIDString,
	) error
}

// LifecyclePolicy is the callback surface exposed to the surrounding system.
//
// OnRejection is consulted after a domain rejection was raised; the returned
// LifecycleChange may mark the entity archived or deleted. OnHandlerFailed
// reports technical handler failures; this core does not retry them.
type LifecyclePolicy interface {
	OnRejection(ctx context.Context, target signals.TargetID, rejection signals.Signal) LifecycleChange
	OnHandlerFailed(ctx context.Context, signalID signals.SignalIDString, err error)
}

// Poster accepts signals for admission to the pipeline. The dispatch endpoint
// uses it to re-inject derived signals; producers use the same interface.
type Poster interface {
	Post(ctx context.Context, sig signals.Signal) Acknowledgement
}

// Delivery assigns signals to ordered lanes and guarantees per-target
// ordering. The in-process implementation lives in dispatch/sharding; a
// distributed implementation is an alternate adapter behind this interface.
type Delivery interface {
	// Enqueue appends the pair to the lane selected by the shard function.
	// It never blocks the caller beyond a bounded queuing delay.
	Enqueue(target signals.TargetID, sig signals.Signal) error

	// Run consumes one lane until the context is canceled, invoking dispatchFn
	// for each deliverable pair in enqueue order. Exactly one runner per shard
	// index may be active at a time.
	Run(ctx context.Context, shardIndex uint, dispatchFn DispatchFunc) error
}

// DispatchFunc is the worker-side callback delivering one pair to a dispatch
// endpoint. Returning ErrVersionConflict requeues the pair to the tail of its
// lane for redelivery; any other error is reported and the pair is dropped.
type DispatchFunc func(ctx context.Context, target signals.TargetID, sig signals.Signal) error

// PostponePredicate decides whether a pair should be deferred rather than
// dispatched immediately, re-queued to the tail of its lane. The policy for
// when a target is considered busy is owned by the surrounding system.
type PostponePredicate func(target signals.TargetID, sig signals.Signal) bool

// DuplicateCallback is reported when delivery drops a pair because the
// signal's id is already durably recorded as applied to the target.
type DuplicateCallback func(target signals.TargetID, sig signals.Signal)
