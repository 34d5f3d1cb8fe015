package endpoint

import (
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// TargetKindString is a type alias for string, naming a target kind for logs and metrics.
type TargetKindString = string

const (
	TargetKindAggregate      TargetKindString = "aggregate"
	TargetKindProcessManager TargetKindString = "process_manager"
	TargetKindProjection     TargetKindString = "projection"
)

// PersistDecision tells the endpoint what the commit step has to do.
type PersistDecision uint8

const (
	// PersistNone aborts without persisting; the stored entity is untouched.
	PersistNone PersistDecision = iota

	// PersistAndRecord stores the entity and records the signal as applied
	// in the same commit.
	PersistAndRecord

	// PersistOnly stores the entity without recording the signal as applied.
	// Used when modified process-manager state must survive a failed outcome;
	// the signal itself did not apply and remains eligible for redelivery by
	// the surrounding system.
	PersistOnly
)

// Strategy captures the per-target-kind variance of the dispatch protocol.
// It replaces a deep endpoint class hierarchy with one generic dispatch
// function parameterized by this capability.
type Strategy interface {
	// Kind names the target kind for logs and metrics.
	Kind() TargetKindString

	// AcceptsKind reports whether this target kind handles the signal kind
	// at all; a mismatch is an interruption, not an error.
	AcceptsKind(kind signals.Kind) bool

	// AllowsCreation reports whether a signal of the given kind may create a
	// fresh default-state entity when none exists yet.
	AllowsCreation(kind signals.Kind) bool

	// PersistDecision decides the commit behavior from the invocation outcome
	// and the transaction's modified flag.
	PersistDecision(outcome signals.Outcome, modified bool) PersistDecision
}

// AggregateStrategy implements the aggregate variant: commands only, created
// on first command, committed only on a success outcome. A rejection is a
// success outcome for classification purposes but discards the in-memory
// state: nothing is persisted and the entity version does not move.
type AggregateStrategy struct{}

// Kind implements the Strategy interface.
func (AggregateStrategy) Kind() TargetKindString {
	return TargetKindAggregate
}

// AcceptsKind implements the Strategy interface.
func (AggregateStrategy) AcceptsKind(kind signals.Kind) bool {
	return kind == signals.KindCommand
}

// AllowsCreation implements the Strategy interface.
func (AggregateStrategy) AllowsCreation(kind signals.Kind) bool {
	return kind == signals.KindCommand
}

// PersistDecision implements the Strategy interface.
func (AggregateStrategy) PersistDecision(outcome signals.Outcome, _ bool) PersistDecision {
	if !outcome.IsSuccess() {
		return PersistNone
	}

	if _, rejected := outcome.Rejection(); rejected {
		return PersistNone
	}

	return PersistAndRecord
}

// ProcessManagerStrategy implements the process-manager variant: reacts to
// events and rejections, created on the first event. Modified state is
// persisted regardless of the outcome, because lifecycle transitions
// (archive/delete) triggered by a rejection must survive even though the
// business outcome itself failed. This is a deliberate asymmetry from the
// aggregate variant.
type ProcessManagerStrategy struct{}

// Kind implements the Strategy interface.
func (ProcessManagerStrategy) Kind() TargetKindString {
	return TargetKindProcessManager
}

// AcceptsKind implements the Strategy interface.
func (ProcessManagerStrategy) AcceptsKind(kind signals.Kind) bool {
	return kind == signals.KindEvent || kind == signals.KindRejection
}

// AllowsCreation implements the Strategy interface.
func (ProcessManagerStrategy) AllowsCreation(kind signals.Kind) bool {
	return kind == signals.KindEvent
}

// PersistDecision implements the Strategy interface.
// The modified flag governs whether a store call happens, independent of
// whether the business outcome was a success.
func (ProcessManagerStrategy) PersistDecision(outcome signals.Outcome, modified bool) PersistDecision {
	if !modified {
		return PersistNone
	}

	if outcome.IsSuccess() {
		return PersistAndRecord
	}

	return PersistOnly
}

// ProjectionStrategy implements the projection variant: events only, created
// on the first event, no derived signals beyond internal state mutation.
// A missing handler for an event type is a configuration error surfaced at
// registration time, not a per-signal outcome.
type ProjectionStrategy struct{}

// Kind implements the Strategy interface.
func (ProjectionStrategy) Kind() TargetKindString {
	return TargetKindProjection
}

// AcceptsKind implements the Strategy interface.
func (ProjectionStrategy) AcceptsKind(kind signals.Kind) bool {
	return kind == signals.KindEvent
}

// AllowsCreation implements the Strategy interface.
func (ProjectionStrategy) AllowsCreation(kind signals.Kind) bool {
	return kind == signals.KindEvent
}

// PersistDecision implements the Strategy interface.
func (ProjectionStrategy) PersistDecision(outcome signals.Outcome, _ bool) PersistDecision {
	if !outcome.IsSuccess() {
		return PersistNone
	}

	return PersistAndRecord
}
