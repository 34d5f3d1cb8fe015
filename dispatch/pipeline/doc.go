// Package pipeline provides the posting pipeline that gate-keeps signals
// before they enter delivery.
//
// The processing order is fixed and must not be reordered by configuration:
//
//  1. all registered filters, in registration order; the first rejection
//     short-circuits the chain
//  2. the validation filter (structural correctness of the envelope/payload)
//  3. the dead-signal filter (is any handler at all registered for the
//     signal's type, across all targets?)
//  4. routing (resolving the target of unrouted signals)
//
// A signal rejected at any stage never reaches delivery; the poster receives
// a synchronous Acknowledgement carrying the stage and reason. A filter
// returning a technical error is treated identically to an explicit
// rejection. Filters must not mutate the signal.
package pipeline
