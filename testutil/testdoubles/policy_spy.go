package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/signal-dispatch-go/dispatch"
	"github.com/AntonStoeckl/signal-dispatch-go/signals"
)

// RejectionCall is one captured OnRejection invocation.
type RejectionCall struct {
	Target    signals.TargetID
	Rejection signals.Signal
}

// FailureCall is one captured OnHandlerFailed invocation.
type FailureCall struct {
	SignalID signals.SignalIDString
	Err      error
}

// LifecyclePolicySpy is a dispatch.LifecyclePolicy implementation that
// captures calls and returns a configurable lifecycle change.
type LifecyclePolicySpy struct {
	mu             sync.Mutex
	rejectionCalls []RejectionCall
	failureCalls   []FailureCall

	// ChangeOnRejection is returned from every OnRejection call.
	ChangeOnRejection dispatch.LifecycleChange
}

// NewLifecyclePolicySpy creates a new LifecyclePolicySpy that returns no
// lifecycle change by default.
func NewLifecyclePolicySpy() *LifecyclePolicySpy {
	return &LifecyclePolicySpy{}
}

// OnRejection implements the dispatch.LifecyclePolicy interface.
func (s *LifecyclePolicySpy) OnRejection(
	_ context.Context,
	target signals.TargetID,
	rejection signals.Signal,
) dispatch.LifecycleChange {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectionCalls = append(s.rejectionCalls, RejectionCall{Target: target, Rejection: rejection})

	return s.ChangeOnRejection
}

// OnHandlerFailed implements the dispatch.LifecyclePolicy interface.
func (s *LifecyclePolicySpy) OnHandlerFailed(_ context.Context, signalID signals.SignalIDString, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failureCalls = append(s.failureCalls, FailureCall{SignalID: signalID, Err: err})
}

// GetRejectionCalls returns a copy of all captured OnRejection calls.
func (s *LifecyclePolicySpy) GetRejectionCalls() []RejectionCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]RejectionCall, len(s.rejectionCalls))
	copy(calls, s.rejectionCalls)

	return calls
}

// GetFailureCalls returns a copy of all captured OnHandlerFailed calls.
func (s *LifecyclePolicySpy) GetFailureCalls() []FailureCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]FailureCall, len(s.failureCalls))
	copy(calls, s.failureCalls)

	return calls
}

// Ensure LifecyclePolicySpy implements dispatch.LifecyclePolicy.
var _ dispatch.LifecyclePolicy = (*LifecyclePolicySpy)(nil)
