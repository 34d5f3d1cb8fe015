// Package signals provides the envelope and result types flowing through the
// signal-dispatch pipeline.
//
// A Signal is an immutable value describing a command, an event, or a
// rejection on its way to a stateful target. It is built on scalars and an
// opaque JSON payload to be completely agnostic of the domain types in the
// client code.
//
// An Outcome is the tagged result of one dispatch attempt. A successful
// attempt carries exactly one of: produced events, produced commands, or a
// single rejection signal. Failed attempts carry either a technical error or
// an interruption reason.
//
// Key types:
//   - Signal: the immutable envelope, constructed via the Build... factories
//   - TargetID: the (target type, instance id) pair a signal is routed to
//   - Outcome: the tagged union produced by one dispatch attempt
//
// Common usage pattern:
//
//	sig, err := signals.BuildCommandSignal(tenantID, target, payloadJSON)
//	if err != nil {
//		// handle error
//	}
//
//	derived, err := sig.DeriveEvent(otherTarget, eventPayloadJSON)
package signals
