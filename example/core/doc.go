// Package core holds the userland domain vocabulary of the example: signal
// type identifiers, payload data transfer objects, and the persisted state
// shapes of the account aggregate, the settlement process manager, and the
// balances projection.
//
// Payloads and state are scalar-field structs serialized to JSON; nothing in
// this package knows about the dispatch machinery.
package core
